// Package augmented implements the generic adapter that runs an
// upstream round-based engine (see internal/round) while attaching a
// per-round identity attestation to every message it emits, and
// verifying the attestation on every message it receives. The engine
// itself is never inspected beyond the round.Engine contract; this
// package only observes the message traffic crossing that boundary.
package augmented

import (
	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/werror"
)

// Attestation is the identity signature carried alongside a round
// message or omitted when the Policy says this round/sender pair
// doesn't require one.
type Attestation struct {
	Signature crypto.Signature
}

// Message pairs an upstream round message with its (optional) identity
// attestation. This is the AugmentedType<Base, Extra> of the spec's
// data model, specialized to round.Message.
type Message struct {
	Base  *round.Message
	Extra *Attestation
}

// AugmentedOutput is the AugmentedType<Base, Extra> specialized to an
// engine's terminal output: for keygen/refresh, the SigningShare field
// carries the freshly split signing share and sub-share; for signing,
// SigningShare is nil and Base passes through unchanged.
type AugmentedOutput struct {
	Base         interface{}
	SigningShare *SigningShareAndSubShare
}

// SigningShareAndSubShare is the pair produced by splitting an engine's
// freshly (re)generated local secret.
type SigningShareAndSubShare struct {
	SigningShare interface{}
	SubShare     interface{}
}

// Policy is the component-specific attestation and output-augmentation
// behavior plugged into Machine. pkg/refreshengine provides the keygen,
// refresh and sign policies.
type Policy interface {
	// RequiresAttestation reports whether msg, produced or received in
	// its given round by its given sender, must carry an attestation.
	RequiresAttestation(msg *round.Message) bool
	// Commitment returns the bytes signed (by the sender) or verified
	// (by a receiver) for msg's attestation.
	Commitment(sender party.ID, msg *round.Message) []byte
	// AugmentOutput turns the wrapped engine's raw output into this
	// policy's AugmentedOutput, using idp to split any freshly produced
	// secret.
	AugmentOutput(output interface{}, idp identity.Provider) (AugmentedOutput, error)
}

// Machine wraps a round.Engine, attaching and verifying identity
// attestations per Policy. It implements the same cooperative,
// caller-driven shape as the wrapped engine.
type Machine struct {
	engine          round.Engine
	idp             identity.Provider
	policy          Policy
	verifiedParties map[party.ID]crypto.VerifyingKey
	queue           []*Message
}

// New builds a Machine wrapping engine, signing outgoing attestations
// with idp and verifying incoming ones against verifiedParties.
func New(engine round.Engine, idp identity.Provider, policy Policy, verifiedParties map[party.ID]crypto.VerifyingKey) *Machine {
	return &Machine{
		engine:          engine,
		idp:             idp,
		policy:          policy,
		verifiedParties: verifiedParties,
	}
}

// HandleIncoming validates msg's attestation against its base body
// before delivering the base message to the wrapped engine.
func (m *Machine) HandleIncoming(msg *Message) error {
	if err := m.preHandleIncoming(msg); err != nil {
		return err
	}
	if err := m.engine.HandleIncoming(msg.Base); err != nil {
		return err
	}
	m.drain()
	return nil
}

func (m *Machine) preHandleIncoming(msg *Message) error {
	vk, ok := m.verifiedParties[msg.Base.From]
	if !ok {
		return werror.WithBadActors(werror.UnauthorizedParty, []int{int(msg.Base.From)})
	}

	required := m.policy.RequiresAttestation(msg.Base)
	if required && msg.Extra == nil {
		return werror.WithBadActors(werror.MissingParams, []int{int(msg.Base.From)})
	}
	if !required && msg.Extra != nil {
		return werror.WithBadActors(werror.UnexpectedAttestation, []int{int(msg.Base.From)})
	}
	if !required {
		return nil
	}

	commitment := m.policy.Commitment(msg.Base.From, msg.Base)
	if err := crypto.VerifySignature(vk, commitment, msg.Extra.Signature); err != nil {
		return werror.New(werror.InvalidSignature)
	}
	return nil
}

// WantsToProceed reports whether the wrapped engine wants to proceed.
func (m *Machine) WantsToProceed() bool { return m.engine.WantsToProceed() }

// Proceed advances the wrapped engine, attaching attestations to any
// resulting outbound messages.
func (m *Machine) Proceed() error {
	if err := m.engine.Proceed(); err != nil {
		return err
	}
	m.drain()
	return nil
}

// drain pulls the wrapped engine's outbound queue, wraps each message
// with its attestation (or none, per policy), and appends to this
// machine's own queue.
func (m *Machine) drain() {
	for _, base := range m.engine.DrainMessages() {
		var extra *Attestation
		if m.policy.RequiresAttestation(base) {
			commitment := m.policy.Commitment(m.engine.PartyInd(), base)
			sig := m.idp.Sign(commitment)
			extra = &Attestation{Signature: sig}
		}
		m.queue = append(m.queue, &Message{Base: base, Extra: extra})
	}
}

// DrainMessages returns and clears this machine's outbound queue.
func (m *Machine) DrainMessages() []*Message {
	out := m.queue
	m.queue = nil
	return out
}

// IsFinished reports whether the wrapped engine has produced its output.
func (m *Machine) IsFinished() bool { return m.engine.IsFinished() }

// PickOutput augments the wrapped engine's terminal output per policy.
func (m *Machine) PickOutput() (AugmentedOutput, error) {
	out, err := m.engine.PickOutput()
	if err != nil {
		return AugmentedOutput{}, err
	}
	return m.policy.AugmentOutput(out, m.idp)
}

// CurrentRound reports the wrapped engine's current round.
func (m *Machine) CurrentRound() round.Number { return m.engine.CurrentRound() }

// TotalRounds reports the wrapped engine's total round count.
func (m *Machine) TotalRounds() round.Number { return m.engine.TotalRounds() }

// PartyInd reports which party this machine acts as.
func (m *Machine) PartyInd() party.ID { return m.engine.PartyInd() }

// Parties reports the full party set for this run.
func (m *Machine) Parties() party.IDSlice { return m.engine.Parties() }
