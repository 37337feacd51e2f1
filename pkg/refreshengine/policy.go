// Package refreshengine provides the concrete augmented.Policy
// implementations for each upstream engine this module authorizes:
// keygen, FS-DKR key refresh, and (pre)sign.
package refreshengine

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/augmented"
	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/share"
	"github.com/luxfi/wamu/pkg/werror"
)

// commitment hashes sender ‖ ek.n ‖ rp.N ‖ rp.S ‖ rp.T, the Paillier
// encryption key modulus and Ring-Pedersen parameters carried on FS-DKR
// join/refresh messages.
func commitment(sender party.ID, msg *round.Message) []byte {
	h := sha256.New()
	var senderBytes [2]byte
	binary.BigEndian.PutUint16(senderBytes[:], uint16(sender))
	h.Write(senderBytes[:])
	h.Write(msg.EKN)
	h.Write(msg.RPN)
	h.Write(msg.RPS)
	h.Write(msg.RPT)
	return h.Sum(nil)
}

func splitOutput(scalar [32]byte, idp identity.Provider) (augmented.AugmentedOutput, [32]byte, error) {
	secret, err := field.FromBytes(scalar[:])
	if err != nil {
		return augmented.AugmentedOutput{}, [32]byte{}, werror.Wrap(werror.Core, err)
	}
	signingShare, subShareB := share.Split(secret, idp)

	var zeroed [32]byte
	return augmented.AugmentedOutput{
		SigningShare: &augmented.SigningShareAndSubShare{
			SigningShare: signingShare,
			SubShare:     subShareB,
		},
	}, zeroed, nil
}

// RefreshPolicy implements the FS-DKR key refresh attestation policy:
// round 1 join messages are attested by new parties only, round 2
// refresh messages are attested by existing parties only, every other
// round passes through unattested.
type RefreshPolicy struct {
	newParties party.IDSlice
}

// NewRefreshPolicy builds a RefreshPolicy for a run over parties where
// newParties is the subset joining during this refresh. Construction
// fails with BadFSDKRThreshold if threshold exceeds the honest-majority
// bound FS-DKR requires (t <= n/2).
func NewRefreshPolicy(parties, newParties party.IDSlice, threshold int) (*RefreshPolicy, error) {
	n := len(parties)
	if threshold > n/2 {
		return nil, werror.New(werror.BadFSDKRThreshold)
	}
	return &RefreshPolicy{newParties: newParties}, nil
}

// RequiresAttestation implements augmented.Policy.
func (p *RefreshPolicy) RequiresAttestation(msg *round.Message) bool {
	switch msg.RoundNumber {
	case 1:
		return p.newParties.Contains(msg.From)
	case 2:
		return !p.newParties.Contains(msg.From)
	default:
		return false
	}
}

// Commitment implements augmented.Policy.
func (p *RefreshPolicy) Commitment(sender party.ID, msg *round.Message) []byte {
	return commitment(sender, msg)
}

// AugmentOutput implements augmented.Policy: splits the engine's
// refreshed scalar share into a (SigningShare, SubShare) pair via idp,
// and zeroes the scalar before it is handed back to the caller.
func (p *RefreshPolicy) AugmentOutput(output interface{}, idp identity.Provider) (augmented.AugmentedOutput, error) {
	out, ok := output.(round.MockFSDKROutput)
	if !ok {
		return augmented.AugmentedOutput{}, werror.New(werror.InvalidInput)
	}
	augmentedOut, zeroed, err := splitOutput(out.Scalar, idp)
	if err != nil {
		return augmented.AugmentedOutput{}, err
	}
	augmentedOut.Base = round.MockFSDKROutput{Scalar: zeroed}
	return augmentedOut, nil
}

// KeygenPolicy treats every party as new: a fresh keygen run has no
// pre-existing members, so round 1 join messages are attested by every
// party. By analogy with refresh, the fresh local secret is split into
// a (SigningShare, SubShare) pair on output.
type KeygenPolicy struct{}

// NewKeygenPolicy builds a KeygenPolicy.
func NewKeygenPolicy() *KeygenPolicy { return &KeygenPolicy{} }

// RequiresAttestation implements augmented.Policy.
func (p *KeygenPolicy) RequiresAttestation(msg *round.Message) bool {
	return msg.RoundNumber == 1
}

// Commitment implements augmented.Policy.
func (p *KeygenPolicy) Commitment(sender party.ID, msg *round.Message) []byte {
	return commitment(sender, msg)
}

// AugmentOutput implements augmented.Policy.
func (p *KeygenPolicy) AugmentOutput(output interface{}, idp identity.Provider) (augmented.AugmentedOutput, error) {
	out, ok := output.(round.MockFSDKROutput)
	if !ok {
		return augmented.AugmentedOutput{}, werror.New(werror.InvalidInput)
	}
	augmentedOut, zeroed, err := splitOutput(out.Scalar, idp)
	if err != nil {
		return augmented.AugmentedOutput{}, err
	}
	augmentedOut.Base = round.MockFSDKROutput{Scalar: zeroed}
	return augmentedOut, nil
}

// SignPolicy passes every round and the final output through unattested
// and unaugmented: signing never changes what secret material a party
// holds, so there is nothing to attest or re-split. The open question in
// the source material of whether (pre)sign should attest round-1
// commitment parameters by analogy with refresh is resolved here in
// favor of strict pass-through, since signing is not a membership-
// changing operation and has no join/refresh message class to attest.
type SignPolicy struct{}

// NewSignPolicy builds a SignPolicy.
func NewSignPolicy() *SignPolicy { return &SignPolicy{} }

// RequiresAttestation implements augmented.Policy.
func (p *SignPolicy) RequiresAttestation(*round.Message) bool { return false }

// Commitment implements augmented.Policy. Never called since
// RequiresAttestation always reports false.
func (p *SignPolicy) Commitment(party.ID, *round.Message) []byte { return nil }

// AugmentOutput implements augmented.Policy: pass through unchanged.
func (p *SignPolicy) AugmentOutput(output interface{}, _ identity.Provider) (augmented.AugmentedOutput, error) {
	return augmented.AugmentedOutput{Base: output}, nil
}
