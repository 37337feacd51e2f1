// Package initphase implements the gating sub-machine that runs before
// an authorized key refresh: either an identity-authentication challenge
// (for share recovery) or a quorum-approval challenge (for share
// addition, share removal, threshold modification). Both modes share
// the same three-round shape:
//
//  1. The initiating party broadcasts an IdentityAuthedRequestPayload.
//  2. Every other party verifies the request, broadcasts its own
//     challenge fragment, and — in quorum mode — its CommandApprovalPayload.
//  3. The initiator aggregates the fragments it received, signs the
//     aggregate (and, in quorum mode, attaches the collected approvals),
//     and broadcasts the challenge response. Every other party verifies
//     the response against the full fragment set it collected in round 2.
package initphase

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/challenge"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/request"
	"github.com/luxfi/wamu/pkg/werror"
)

// Mode selects the gating challenge this sub-machine runs.
type Mode int

const (
	// ModeIdentityAuthentication gates share recovery: single signature,
	// no approvals collected.
	ModeIdentityAuthentication Mode = iota
	// ModeQuorumApproval gates share addition, share removal and
	// threshold modification: the response additionally carries peer
	// approvals.
	ModeQuorumApproval
)

// Output is what the init phase hands to the orchestrator once
// finished. Exactly one of Signature or Quorum is set, matching Mode.
type Output struct {
	Signature *crypto.Signature
	Quorum    *request.QuorumApprovedChallengeResponsePayload
}

type round2Body struct {
	Fragment [32]byte
	Approval *request.CommandApprovalPayload `cbor:",omitempty"`
}

type round3Body struct {
	Signature *crypto.Signature                              `cbor:",omitempty"`
	Quorum    *request.QuorumApprovedChallengeResponsePayload `cbor:",omitempty"`
}

// Machine is the init-phase sub-machine. It does not implement
// round.Engine directly (it has no upstream engine to wrap) but exposes
// the same cooperative shape so the orchestrator can drive it
// uniformly.
type Machine struct {
	mode            Mode
	tag             string
	self            party.ID
	initiator       party.ID
	parties         party.IDSlice
	verifiedParties []crypto.VerifyingKey
	quorumSize      int
	idp             identity.Provider

	roundNum round.Number
	queue    []*round.Message
	finished bool
	output   *Output

	req           *request.IdentityAuthedRequestPayload
	fragments     []challenge.Fragment
	fragmentsFrom map[party.ID]bool
	approvals     []request.CommandApprovalPayload
	fingerprint   *[32]byte
}

// New builds an init-phase machine. self is this party's own ID;
// initiator is the party requesting the gated operation; parties is the
// full participant set; verifiedParties is the set of public keys
// authorized to participate; quorumSize only matters in
// ModeQuorumApproval.
func New(mode Mode, tag string, self, initiator party.ID, parties party.IDSlice, verifiedParties []crypto.VerifyingKey, quorumSize int, idp identity.Provider) *Machine {
	return &Machine{
		mode:            mode,
		tag:             tag,
		self:            self,
		initiator:       initiator,
		parties:         parties,
		verifiedParties: verifiedParties,
		quorumSize:      quorumSize,
		idp:             idp,
		fragmentsFrom:   map[party.ID]bool{},
	}
}

// expectedRound2Senders are every party except the initiator.
func (m *Machine) expectedRound2Senders() int {
	return len(m.parties.Without(m.initiator))
}

// WantsToProceed reports whether this party has what it needs to emit
// its next message.
func (m *Machine) WantsToProceed() bool {
	if m.finished {
		return false
	}
	if m.self == m.initiator {
		switch m.roundNum {
		case 0:
			return true
		case 1:
			return len(m.fragmentsFrom) >= m.expectedRound2Senders()
		default:
			return false
		}
	}
	switch m.roundNum {
	case 0:
		return m.req != nil
	default:
		return false
	}
}

// Proceed emits this party's next message for the phase it's in.
func (m *Machine) Proceed() error {
	if m.self == m.initiator {
		return m.proceedInitiator()
	}
	return m.proceedVerifier()
}

func (m *Machine) proceedInitiator() error {
	switch m.roundNum {
	case 0:
		req := request.Initiate(m.tag, m.idp)
		m.req = &req
		body, err := cbor.Marshal(req)
		if err != nil {
			return werror.Wrap(werror.Core, err)
		}
		m.queue = append(m.queue, &round.Message{
			From:        m.self,
			Broadcast:   true,
			RoundNumber: 1,
			Body:        body,
		})
		m.roundNum = 1
		return nil
	case 1:
		sig := challenge.Respond(m.fragments, m.idp)
		out := &Output{}
		body3 := round3Body{}
		if m.mode == ModeIdentityAuthentication {
			out.Signature = &sig
			body3.Signature = &sig
		} else {
			quorum := request.QuorumApprovedChallengeResponsePayload{
				VerifyingKey: m.idp.VerifyingKey(),
				Approvals:    m.approvals,
				Signature:    sig,
			}
			out.Quorum = &quorum
			body3.Quorum = &quorum
		}
		body, err := cbor.Marshal(body3)
		if err != nil {
			return werror.Wrap(werror.Core, err)
		}
		m.queue = append(m.queue, &round.Message{
			From:        m.self,
			Broadcast:   true,
			RoundNumber: 3,
			Body:        body,
		})
		m.output = out
		m.finished = true
		m.roundNum = 3
		return nil
	default:
		return werror.New(werror.OutOfOrderMessage)
	}
}

func (m *Machine) proceedVerifier() error {
	if m.roundNum != 0 || m.req == nil {
		return werror.New(werror.OutOfOrderMessage)
	}

	fragment, err := request.VerifyAndInitiateChallenge(m.tag, *m.req, m.verifiedParties)
	if err != nil {
		return err
	}

	body2 := round2Body{Fragment: fragment.Bytes()}
	if m.mode == ModeQuorumApproval && m.isVerifiedKey(m.idp.VerifyingKey()) {
		fp := m.requestFingerprint()
		approval := request.Approve(fp, m.idp)
		body2.Approval = &approval
	}

	body, err := cbor.Marshal(body2)
	if err != nil {
		return werror.Wrap(werror.Core, err)
	}
	m.queue = append(m.queue, &round.Message{
		From:        m.self,
		Broadcast:   true,
		RoundNumber: 2,
		Body:        body,
	})

	// A verifier also contributed a fragment to the aggregate, so it
	// must track it among the set it will later check the response
	// against.
	m.recordFragment(m.self, fragment)
	m.roundNum = 1
	return nil
}

// isVerifiedKey reports whether vk is among the parties authorized to
// approve the gated command. A party absent from this set still
// contributes a challenge fragment (it still has to prove control of
// its identity to be admitted) but, in ModeQuorumApproval, must not
// emit or have its approval counted — the clearest case is the new
// party being added by a share-addition request, which is a round-2
// participant but is not yet authorized to approve the very request
// that admits it.
func (m *Machine) isVerifiedKey(vk crypto.VerifyingKey) bool {
	for _, candidate := range m.verifiedParties {
		if candidate.Equal(vk) {
			return true
		}
	}
	return false
}

func (m *Machine) requestFingerprint() [32]byte {
	if m.fingerprint != nil {
		return *m.fingerprint
	}
	fp := request.Fingerprint(*m.req)
	m.fingerprint = &fp
	return fp
}

func (m *Machine) recordFragment(sender party.ID, f challenge.Fragment) {
	if m.fragmentsFrom[sender] {
		return
	}
	m.fragmentsFrom[sender] = true
	m.fragments = append(m.fragments, f)
}

// HandleIncoming delivers one message from another party.
func (m *Machine) HandleIncoming(msg *round.Message) error {
	switch msg.RoundNumber {
	case 1:
		if m.self == m.initiator {
			return nil
		}
		var req request.IdentityAuthedRequestPayload
		if err := cbor.Unmarshal(msg.Body, &req); err != nil {
			return werror.Wrap(werror.Core, err)
		}
		m.req = &req
		return nil
	case 2:
		var body round2Body
		if err := cbor.Unmarshal(msg.Body, &body); err != nil {
			return werror.Wrap(werror.Core, err)
		}
		fragment, err := challenge.FragmentFromBytes(body.Fragment)
		if err != nil {
			return err
		}
		m.recordFragment(msg.From, fragment)
		if m.mode == ModeQuorumApproval && body.Approval != nil && m.isVerifiedKey(body.Approval.ApprovingVerifyingKey) {
			if err := request.VerifyApproval(*body.Approval, m.requestFingerprint()); err != nil {
				return err
			}
			m.approvals = append(m.approvals, *body.Approval)
		}
		return nil
	case 3:
		if m.self == m.initiator {
			return nil
		}
		var body round3Body
		if err := cbor.Unmarshal(msg.Body, &body); err != nil {
			return werror.Wrap(werror.Core, err)
		}
		initiatorKey := m.req.VerifyingKey
		out := &Output{}
		switch m.mode {
		case ModeIdentityAuthentication:
			if body.Signature == nil {
				return werror.New(werror.InvalidInput)
			}
			if err := challenge.Verify(*body.Signature, m.fragments, initiatorKey); err != nil {
				return err
			}
			out.Signature = body.Signature
		default:
			if body.Quorum == nil {
				return werror.New(werror.InvalidInput)
			}
			if err := request.VerifyApprovals(body.Quorum.Approvals, m.requestFingerprint(), m.verifiedParties, m.quorumSize); err != nil {
				return err
			}
			if err := challenge.Verify(body.Quorum.Signature, m.fragments, initiatorKey); err != nil {
				return err
			}
			out.Quorum = body.Quorum
		}
		m.output = out
		m.finished = true
		m.roundNum = 3
		return nil
	default:
		return werror.New(werror.OutOfOrderMessage)
	}
}

// DrainMessages returns and clears this machine's outbound queue.
func (m *Machine) DrainMessages() []*round.Message {
	out := m.queue
	m.queue = nil
	return out
}

// IsFinished reports whether this party has a verified gate result.
func (m *Machine) IsFinished() bool { return m.finished }

// PickOutput returns the gate result once finished.
func (m *Machine) PickOutput() (*Output, error) {
	if !m.finished {
		return nil, werror.New(werror.InvalidInput)
	}
	return m.output, nil
}

// CurrentRound reports the round this party is in.
func (m *Machine) CurrentRound() round.Number { return m.roundNum }

// TotalRounds reports the fixed 3-round shape of this phase.
func (m *Machine) TotalRounds() round.Number { return 3 }

// PartyInd reports which party this machine acts as.
func (m *Machine) PartyInd() party.ID { return m.self }

// Parties reports the full party set.
func (m *Machine) Parties() party.IDSlice { return m.parties }
