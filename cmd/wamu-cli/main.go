// Command wamu-cli demonstrates the identity-bound share protocols over
// an in-process mock identity provider: splitting and reconstructing a
// secret share, rotating the identity behind a share pair, and running
// a simulated multi-party share recovery.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/internal/simulate"
	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/initphase"
	"github.com/luxfi/wamu/pkg/orchestrator"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/quorum"
	"github.com/luxfi/wamu/pkg/request"
	"github.com/luxfi/wamu/pkg/rotation"
	"github.com/luxfi/wamu/pkg/share"
)

var numParties, numExistingParties int

var rootCmd = &cobra.Command{
	Use:   "wamu-cli",
	Short: "CLI for the identity-bound threshold wallet protocols",
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a freshly sampled secret share under a fresh mock identity",
	RunE:  runSplit,
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate a share pair from one mock identity to a freshly generated one",
	RunE:  runRotate,
}

var simulateRecoveryCmd = &cobra.Command{
	Use:   "simulate-recovery",
	Short: "Run a simulated multi-party share recovery end to end",
	RunE:  runSimulateRecovery,
}

var simulateShareAdditionCmd = &cobra.Command{
	Use:   "simulate-share-addition",
	Short: "Run a simulated quorum-approved share addition, admitting one new party",
	RunE:  runSimulateShareAddition,
}

func init() {
	simulateRecoveryCmd.Flags().IntVar(&numParties, "parties", 3, "number of participating parties")
	simulateShareAdditionCmd.Flags().IntVar(&numExistingParties, "parties", 4, "number of existing parties")
	rootCmd.AddCommand(splitCmd, rotateCmd, simulateRecoveryCmd, simulateShareAdditionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSplit(cmd *cobra.Command, args []string) error {
	idp := testutil.NewMockIdentityProvider()
	secret := field.Random()
	signingShare, subShareB := share.Split(secret, idp)

	signingBytes := signingShare.Bytes()
	xBytes := subShareB.X().Bytes()
	yBytes := subShareB.Y().Bytes()

	fmt.Printf("verifying_key: %x\n", idp.VerifyingKey().Key)
	fmt.Printf("signing_share: %s\n", hex.EncodeToString(signingBytes[:]))
	fmt.Printf("sub_share_b:   (%s, %s)\n", hex.EncodeToString(xBytes[:]), hex.EncodeToString(yBytes[:]))
	return nil
}

func runRotate(cmd *cobra.Command, args []string) error {
	currentIdp := testutil.NewMockIdentityProvider()
	secret := field.Random()
	signingShare, subShareB := share.Split(secret, currentIdp)

	newIdp := testutil.NewMockIdentityProvider()

	initPayload := rotation.Initiate(currentIdp)
	fragment, err := rotation.VerifyRequestAndInitiateChallenge(initPayload, []crypto.VerifyingKey{currentIdp.VerifyingKey()})
	if err != nil {
		return err
	}
	fragments := []field.Element{fragment}

	response := rotation.ChallengeResponse(fragments, currentIdp, newIdp)
	if err := rotation.VerifyChallengeResponse(response, fragments, currentIdp.VerifyingKey()); err != nil {
		return err
	}

	newSigningShare, newSubShareB, err := rotation.RotateSigningAndSubShare(signingShare, subShareB, currentIdp, newIdp)
	if err != nil {
		return err
	}

	reconstructed, err := share.Reconstruct(newSigningShare, newSubShareB, newIdp)
	if err != nil {
		return err
	}

	fmt.Printf("old_verifying_key: %x\n", currentIdp.VerifyingKey().Key)
	fmt.Printf("new_verifying_key: %x\n", newIdp.VerifyingKey().Key)
	fmt.Printf("secret_share_preserved: %t\n", reconstructed.Equal(secret))
	return nil
}

func runSimulateRecovery(cmd *cobra.Command, args []string) error {
	if numParties < 2 {
		return fmt.Errorf("wamu-cli: --parties must be at least 2")
	}

	idps := map[party.ID]*testutil.MockIdentityProvider{}
	parties := make(party.IDSlice, 0, numParties)
	for i := 1; i <= numParties; i++ {
		id := party.ID(i)
		idps[id] = testutil.NewMockIdentityProvider()
		parties = append(parties, id)
	}

	var verifiedPartiesList []crypto.VerifyingKey
	verifiedParties := map[party.ID]crypto.VerifyingKey{}
	for id, idp := range idps {
		verifiedPartiesList = append(verifiedPartiesList, idp.VerifyingKey())
		verifiedParties[id] = idp.VerifyingKey()
	}

	initiator := party.ID(1)
	newParties := party.IDSlice{}
	machines := map[party.ID]simulate.Party[*orchestrator.CompositeMessage]{}
	for id, idp := range idps {
		secret := field.Random()
		signingShare, subShareB := share.Split(secret, idp)
		existingShare := &orchestrator.ExistingShare{SigningShare: signingShare, SubShare: subShareB}

		initMachine := initphase.New(initphase.ModeIdentityAuthentication, request.TagShareRecovery, id, initiator, parties, verifiedPartiesList, 0, idp)
		selfID := id
		machines[id] = orchestrator.New(initMachine, id, parties, newParties, numParties/2, idp, verifiedParties, func(existingXi *[32]byte) round.Engine {
			return round.NewMockFSDKREngine(selfID, parties, newParties, existingXi)
		}, existingShare)
	}

	if err := simulate.Network(context.Background(), machines, 50); err != nil {
		return err
	}

	fmt.Printf("recovery finished for %d parties\n", numParties)
	return nil
}

func runSimulateShareAddition(cmd *cobra.Command, args []string) error {
	numParties := numExistingParties
	if numParties < 2 {
		return fmt.Errorf("wamu-cli: --parties must be at least 2")
	}

	idps := map[party.ID]*testutil.MockIdentityProvider{}
	existing := make(party.IDSlice, 0, numParties)
	for i := 1; i <= numParties; i++ {
		id := party.ID(i)
		idps[id] = testutil.NewMockIdentityProvider()
		existing = append(existing, id)
	}
	newParty := party.ID(numParties + 1)
	idps[newParty] = testutil.NewMockIdentityProvider()
	newParties := party.IDSlice{newParty}
	allParties := append(append(party.IDSlice{}, existing...), newParty)

	verifiedParties := map[party.ID]crypto.VerifyingKey{}
	for _, id := range existing {
		verifiedParties[id] = idps[id].VerifyingKey()
	}
	verifiedParties[newParty] = idps[newParty].VerifyingKey()

	threshold := numParties / 2
	quorumSize := threshold + 1
	initiator := existing[0]

	existingShares := map[party.ID]*orchestrator.ExistingShare{}
	for _, id := range existing {
		secret := field.Random()
		signingShare, subShareB := share.Split(secret, idps[id])
		existingShares[id] = &orchestrator.ExistingShare{SigningShare: signingShare, SubShare: subShareB}
	}
	existingShares[newParty] = nil

	machines := map[party.ID]*orchestrator.Machine{}
	for _, id := range allParties {
		machines[id] = quorum.NewShareAddition(
			id, initiator,
			existing, newParties,
			threshold, quorumSize,
			idps[id],
			verifiedParties,
			quorum.EngineFactoryForMock(id, allParties, newParties),
			existingShares[id],
		)
	}

	simParties := map[party.ID]simulate.Party[*orchestrator.CompositeMessage]{}
	for id, m := range machines {
		simParties[id] = m
	}
	if err := simulate.Network(context.Background(), simParties, 50); err != nil {
		return err
	}

	fmt.Printf("share addition finished: %d existing parties admitted party %d\n", numParties, newParty)
	return nil
}
