package quorum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/internal/testutil"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/orchestrator"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/quorum"
	"github.com/luxfi/wamu/pkg/share"
)

func drive(t *testing.T, machines map[party.ID]*orchestrator.Machine) {
	t.Helper()
	for iteration := 0; iteration < 30; iteration++ {
		allFinished := true
		type sent struct {
			sender party.ID
			msg    *orchestrator.CompositeMessage
		}
		var outbox []sent

		for id, m := range machines {
			if m.IsFinished() {
				continue
			}
			allFinished = false
			if !m.WantsToProceed() {
				continue
			}
			require.NoErrorf(t, m.Proceed(), "party %d", id)
			for _, msg := range m.DrainMessages() {
				outbox = append(outbox, sent{sender: id, msg: msg})
			}
		}

		for _, s := range outbox {
			for id, m := range machines {
				if id == s.sender {
					continue
				}
				require.NoErrorf(t, m.HandleIncoming(s.msg), "party %d", id)
			}
		}

		if allFinished {
			return
		}
	}
	t.Fatal("orchestrator did not converge")
}

// TestShareAdditionFourToFive mirrors an ensemble of 4 existing parties
// admitting a 5th under an unchanged threshold of 2, gated by quorum
// approval from the 4 existing parties. The new party is not quorum
// eligible: it is a round-2 participant (it proves control of its
// identity) but cannot approve the very request that admits it.
func TestShareAdditionFourToFive(t *testing.T) {
	existing := party.IDSlice{1, 2, 3, 4}
	newParty := party.ID(5)
	newParties := party.IDSlice{newParty}
	threshold := 2
	quorumSize := 3

	idps := map[party.ID]*testutil.MockIdentityProvider{}
	for _, id := range existing {
		idps[id] = testutil.NewMockIdentityProvider()
	}
	idps[newParty] = testutil.NewMockIdentityProvider()

	verifiedParties := map[party.ID]crypto.VerifyingKey{}
	for _, id := range existing {
		verifiedParties[id] = idps[id].VerifyingKey()
	}
	verifiedParties[newParty] = idps[newParty].VerifyingKey()

	// Each existing party already holds a (SigningShare, SubShare) pair
	// reconstructing to its own secret; the new party holds neither.
	existingShares := map[party.ID]*orchestrator.ExistingShare{}
	for _, id := range existing {
		secret := field.Random()
		signingShare, subShareB := share.Split(secret, idps[id])
		existingShares[id] = &orchestrator.ExistingShare{SigningShare: signingShare, SubShare: subShareB}
	}
	existingShares[newParty] = nil

	initiator := party.ID(2)
	allParties := append(append(party.IDSlice{}, existing...), newParty)

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

	drive(t, machines)

	outputs := map[party.ID]orchestrator.ExistingShare{}
	for id, m := range machines {
		assert.Equalf(t, orchestrator.Finished, m.State(), "party %d", id)
		out, err := m.PickOutput()
		require.NoErrorf(t, err, "party %d", id)
		require.NotNilf(t, out.SigningShare, "party %d", id)

		newSigningShare, ok := out.SigningShare.SigningShare.(share.SigningShare)
		require.Truef(t, ok, "party %d", id)
		newSubShare, ok := out.SigningShare.SubShare.(share.SubShare)
		require.Truef(t, ok, "party %d", id)
		outputs[id] = orchestrator.ExistingShare{SigningShare: newSigningShare, SubShare: newSubShare}
	}

	// Invariant 9: a continuing party's refreshed (SigningShare, SubShare)
	// reconstructs to the same x_i it held before the refresh.
	for _, id := range existing {
		before, err := share.Reconstruct(existingShares[id].SigningShare, existingShares[id].SubShare, idps[id])
		require.NoErrorf(t, err, "party %d", id)

		after, err := share.Reconstruct(outputs[id].SigningShare, outputs[id].SubShare, idps[id])
		require.NoErrorf(t, err, "party %d", id)

		assert.Truef(t, before.Equal(after), "party %d: x_i changed across refresh", id)
	}
}

// TestThresholdModificationRejectsUnsafeThreshold drives a full 4-party
// quorum-approved threshold modification to an unsafe new threshold
// (3, which exceeds n/2 = 2); the quorum gate itself succeeds, but the
// transition into the refresh phase must fail with BadFSDKRThreshold.
func TestThresholdModificationRejectsUnsafeThreshold(t *testing.T) {
	parties := party.IDSlice{1, 2, 3, 4}
	idps := map[party.ID]*testutil.MockIdentityProvider{}
	for _, id := range parties {
		idps[id] = testutil.NewMockIdentityProvider()
	}

	verifiedParties := map[party.ID]crypto.VerifyingKey{}
	for _, id := range parties {
		verifiedParties[id] = idps[id].VerifyingKey()
	}

	initiator := party.ID(1)
	machines := map[party.ID]*orchestrator.Machine{}
	for _, id := range parties {
		machines[id] = quorum.NewThresholdModification(
			id, initiator,
			parties,
			3, 3,
			idps[id],
			verifiedParties,
			quorum.EngineFactoryForMock(id, parties, party.IDSlice{}),
			nil,
		)
	}

	var sawBadThreshold bool
	for iteration := 0; iteration < 30 && !sawBadThreshold; iteration++ {
		type sent struct {
			sender party.ID
			msg    *orchestrator.CompositeMessage
		}
		var outbox []sent

		for id, m := range machines {
			if m.IsFinished() || !m.WantsToProceed() {
				continue
			}
			if err := m.Proceed(); err != nil {
				sawBadThreshold = true
				break
			}
			for _, msg := range m.DrainMessages() {
				outbox = append(outbox, sent{sender: id, msg: msg})
			}
		}
		if sawBadThreshold {
			break
		}

		for _, s := range outbox {
			for id, m := range machines {
				if id == s.sender {
					continue
				}
				if err := m.HandleIncoming(s.msg); err != nil {
					sawBadThreshold = true
					break
				}
			}
			if sawBadThreshold {
				break
			}
		}
	}

	assert.True(t, sawBadThreshold, "expected BadFSDKRThreshold during transition to refresh phase")
}
