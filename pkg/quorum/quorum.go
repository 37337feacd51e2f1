// Package quorum provides the three named quorum-approved command
// entry points the protocol exposes: share addition, share removal and
// threshold modification. Each is a thin constructor over the generic
// quorum-approval init phase (pkg/initphase) and the authorized key
// refresh orchestrator (pkg/orchestrator) — the three commands differ
// only in their command tag and in how the caller shapes parties,
// newParties and threshold, exactly as the gating machinery is generic
// over both.
package quorum

import (
	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/initphase"
	"github.com/luxfi/wamu/pkg/orchestrator"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/request"
)

// verifiedKeysFor projects verifiedParties down to the keys of eligible,
// deriving the init phase's quorum-gating list directly from the
// party set that is actually authorized to approve, rather than trusting
// a caller-supplied list that might (as in share addition) include a
// party not yet entitled to a vote.
func verifiedKeysFor(eligible party.IDSlice, verifiedParties map[party.ID]crypto.VerifyingKey) []crypto.VerifyingKey {
	keys := make([]crypto.VerifyingKey, 0, len(eligible))
	for _, id := range eligible {
		if vk, ok := verifiedParties[id]; ok {
			keys = append(keys, vk)
		}
	}
	return keys
}

// NewShareAddition builds the orchestrator for a share-addition run: the
// new ensemble is existingParties plus the parties joining in this run
// (newParties), the threshold is unchanged, and a quorum of
// existingParties must approve before the refresh phase starts. Only
// existingParties are quorum-eligible — a joining party in newParties is
// a round-2 participant (it proves control of its identity) but cannot
// vote to admit itself. existingShare is this party's pre-refresh
// (SigningShare, SubShare) pair, or nil if self is in newParties.
func NewShareAddition(
	self, initiator party.ID,
	existingParties, newParties party.IDSlice,
	threshold, quorumSize int,
	idp identity.Provider,
	verifiedParties map[party.ID]crypto.VerifyingKey,
	engineFactory orchestrator.EngineFactory,
	existingShare *orchestrator.ExistingShare,
) *orchestrator.Machine {
	allParties := append(append(party.IDSlice{}, existingParties...), newParties...)
	verifiedPartiesList := verifiedKeysFor(existingParties, verifiedParties)
	initMachine := initphase.New(initphase.ModeQuorumApproval, request.TagShareAddition, self, initiator, allParties, verifiedPartiesList, quorumSize, idp)
	return orchestrator.New(initMachine, self, allParties, newParties, threshold, idp, verifiedParties, engineFactory, existingShare)
}

// NewShareRemoval builds the orchestrator for a share-removal run:
// remainingParties is the ensemble after the departing parties are
// dropped. No party is "new", so every remaining member sends an
// attested refresh message once the quorum gate clears. existingShare is
// this party's pre-refresh (SigningShare, SubShare) pair.
func NewShareRemoval(
	self, initiator party.ID,
	remainingParties party.IDSlice,
	threshold, quorumSize int,
	idp identity.Provider,
	verifiedParties map[party.ID]crypto.VerifyingKey,
	engineFactory orchestrator.EngineFactory,
	existingShare *orchestrator.ExistingShare,
) *orchestrator.Machine {
	verifiedPartiesList := verifiedKeysFor(remainingParties, verifiedParties)
	initMachine := initphase.New(initphase.ModeQuorumApproval, request.TagShareRemoval, self, initiator, remainingParties, verifiedPartiesList, quorumSize, idp)
	return orchestrator.New(initMachine, self, remainingParties, party.IDSlice{}, threshold, idp, verifiedParties, engineFactory, existingShare)
}

// NewThresholdModification builds the orchestrator for a
// threshold-modification run: the party set is unchanged, only
// newThreshold differs from the ensemble's current threshold.
// existingShare is this party's pre-refresh (SigningShare, SubShare) pair.
func NewThresholdModification(
	self, initiator party.ID,
	parties party.IDSlice,
	newThreshold, quorumSize int,
	idp identity.Provider,
	verifiedParties map[party.ID]crypto.VerifyingKey,
	engineFactory orchestrator.EngineFactory,
	existingShare *orchestrator.ExistingShare,
) *orchestrator.Machine {
	verifiedPartiesList := verifiedKeysFor(parties, verifiedParties)
	initMachine := initphase.New(initphase.ModeQuorumApproval, request.TagThresholdModification, self, initiator, parties, verifiedPartiesList, quorumSize, idp)
	return orchestrator.New(initMachine, self, parties, party.IDSlice{}, newThreshold, idp, verifiedParties, engineFactory, existingShare)
}

// EngineFactoryForMock adapts internal/round's mock FS-DKR engine into
// an orchestrator.EngineFactory, for tests and the CLI that have no
// real upstream engine to wire in.
func EngineFactoryForMock(self party.ID, parties, newParties party.IDSlice) orchestrator.EngineFactory {
	return func(existingXi *[32]byte) round.Engine {
		return round.NewMockFSDKREngine(self, parties, newParties, existingXi)
	}
}
