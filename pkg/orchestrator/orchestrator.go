// Package orchestrator implements the authorized key refresh
// orchestrator: a composite state machine that sequences a gating init
// phase (identity authentication or quorum approval, see pkg/initphase)
// followed by the augmented FS-DKR key refresh (pkg/refreshengine,
// pkg/augmented), translating between the two sub-machines' message
// queues and enforcing that messages can't jump phases out of order.
package orchestrator

import (
	"github.com/luxfi/wamu/internal/round"
	"github.com/luxfi/wamu/pkg/augmented"
	"github.com/luxfi/wamu/pkg/crypto"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/initphase"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/refreshengine"
	"github.com/luxfi/wamu/pkg/share"
	"github.com/luxfi/wamu/pkg/werror"
)

// State is the composite orchestrator's phase.
type State int

const (
	InitRunning State = iota
	Transition
	RefreshRunning
	Finished
)

// MessageKind tags a CompositeMessage's body as belonging to the init
// phase or the refresh phase.
type MessageKind int

const (
	KindInit MessageKind = iota
	KindRefresh
)

// CompositeMessage wraps a sub-machine message with the phase it
// belongs to, so a party driving multiple peers can tell which
// sub-machine should receive it.
type CompositeMessage struct {
	Kind MessageKind
	Body *round.Message
	// Extra is the identity attestation of a refresh-phase message; it
	// is nil for init-phase messages and unattested refresh rounds.
	Extra *augmented.Attestation
}

// EngineFactory builds the upstream refresh engine for a party once the
// init phase has finished and the refresh phase is ready to start. It
// is supplied by the caller since the orchestrator never constructs a
// concrete upstream engine itself (that engine is out of scope).
//
// existingXi is nil for a party with no pre-existing share (e.g. a
// party newly admitted by share addition); for a continuing party it is
// the freshly reconstructed x_i the orchestrator computed from that
// party's (SigningShare, SubShare) pair immediately before this call, so
// the factory can seed the engine's local-key scalar with it. The
// orchestrator zeroes its own copy as soon as this call returns.
type EngineFactory func(existingXi *[32]byte) round.Engine

// ExistingShare is the (SigningShare, SubShare) pair a continuing party
// already holds going into a refresh. The orchestrator reconstructs its
// x_i from this pair at the INIT_RUNNING -> REFRESH_RUNNING transition
// and hands that scalar to EngineFactory; a party with no existing share
// (one newly admitted by share addition) supplies nil instead.
type ExistingShare struct {
	SigningShare share.SigningShare
	SubShare     share.SubShare
}

// Machine is the composite authorized-key-refresh state machine.
type Machine struct {
	state State

	init    *initphase.Machine
	refresh *augmented.Machine

	self            party.ID
	parties         party.IDSlice
	newParties      party.IDSlice
	threshold       int
	idp             identity.Provider
	verifiedParties map[party.ID]crypto.VerifyingKey
	engineFactory   EngineFactory
	existingShare   *ExistingShare

	queue  []*CompositeMessage
	output *augmented.AugmentedOutput
}

// New builds a composite orchestrator. initMachine is the gating
// sub-machine already configured for its mode and tag; the refresh
// phase is instantiated lazily, once initMachine finishes, using
// engineFactory and the refresh-only parameters below. existingShare is
// this party's pre-refresh (SigningShare, SubShare) pair, or nil for a
// party with no share yet (e.g. one newly admitted by share addition).
func New(
	initMachine *initphase.Machine,
	self party.ID,
	parties, newParties party.IDSlice,
	threshold int,
	idp identity.Provider,
	verifiedParties map[party.ID]crypto.VerifyingKey,
	engineFactory EngineFactory,
	existingShare *ExistingShare,
) *Machine {
	return &Machine{
		state:           InitRunning,
		init:            initMachine,
		self:            self,
		parties:         parties,
		newParties:      newParties,
		threshold:       threshold,
		idp:             idp,
		verifiedParties: verifiedParties,
		engineFactory:   engineFactory,
		existingShare:   existingShare,
	}
}

// HandleIncoming routes msg to the active sub-machine, rejecting a
// message tagged for a phase the orchestrator isn't in.
func (m *Machine) HandleIncoming(msg *CompositeMessage) error {
	switch msg.Kind {
	case KindInit:
		if m.state != InitRunning {
			return werror.New(werror.OutOfOrderMessage)
		}
		if err := m.init.HandleIncoming(msg.Body); err != nil {
			return werror.Wrap(werror.StateMachine, err)
		}
	case KindRefresh:
		if m.state != RefreshRunning {
			return werror.New(werror.OutOfOrderMessage)
		}
		if err := m.refresh.HandleIncoming(&augmented.Message{Base: msg.Body, Extra: msg.Extra}); err != nil {
			return werror.Wrap(werror.StateMachine, err)
		}
	default:
		return werror.New(werror.InvalidInput)
	}
	m.drainActive()
	return m.tryTransition()
}

// WantsToProceed reports whether the active sub-machine wants to
// proceed.
func (m *Machine) WantsToProceed() bool {
	switch m.state {
	case InitRunning:
		return m.init.WantsToProceed()
	case RefreshRunning:
		return m.refresh.WantsToProceed()
	default:
		return false
	}
}

// Proceed advances the active sub-machine.
func (m *Machine) Proceed() error {
	var err error
	switch m.state {
	case InitRunning:
		err = m.init.Proceed()
	case RefreshRunning:
		err = m.refresh.Proceed()
	default:
		return werror.New(werror.OutOfOrderMessage)
	}
	if err != nil {
		return werror.Wrap(werror.StateMachine, err)
	}
	m.drainActive()
	return m.tryTransition()
}

// drainActive pulls the active sub-machine's outbound queue into the
// composite queue, tagging each message with its phase.
func (m *Machine) drainActive() {
	switch m.state {
	case InitRunning:
		for _, body := range m.init.DrainMessages() {
			m.queue = append(m.queue, &CompositeMessage{Kind: KindInit, Body: body})
		}
	case RefreshRunning:
		for _, augMsg := range m.refresh.DrainMessages() {
			m.queue = append(m.queue, &CompositeMessage{Kind: KindRefresh, Body: augMsg.Base, Extra: augMsg.Extra})
		}
	}
}

// tryTransition fires INIT_RUNNING -> REFRESH_RUNNING the instant the
// init sub-machine reports finished, instantiating the refresh
// sub-machine and draining any messages it immediately produces; it
// fires RefreshRunning -> Finished once the refresh sub-machine is
// finished.
func (m *Machine) tryTransition() error {
	if m.state == InitRunning && m.init.IsFinished() {
		m.state = Transition

		policy, err := refreshengine.NewRefreshPolicy(m.parties, m.newParties, m.threshold)
		if err != nil {
			return err
		}

		var existingXi *[32]byte
		if m.existingShare != nil {
			secret, err := share.Reconstruct(m.existingShare.SigningShare, m.existingShare.SubShare, m.idp)
			if err != nil {
				return werror.Wrap(werror.Core, err)
			}
			xi := secret.Bytes()
			existingXi = &xi
		}
		engine := m.engineFactory(existingXi)
		if existingXi != nil {
			for i := range existingXi {
				existingXi[i] = 0
			}
		}

		m.refresh = augmented.New(engine, m.idp, policy, m.verifiedParties)
		m.state = RefreshRunning
		m.drainActive()
	}
	if m.state == RefreshRunning && m.refresh.IsFinished() {
		m.state = Finished
	}
	return nil
}

// DrainMessages returns and clears the composite outbound queue.
func (m *Machine) DrainMessages() []*CompositeMessage {
	out := m.queue
	m.queue = nil
	return out
}

// IsFinished reports whether both sub-machines have finished.
func (m *Machine) IsFinished() bool { return m.state == Finished }

// PickOutput returns the refresh sub-machine's augmented output once
// finished.
func (m *Machine) PickOutput() (augmented.AugmentedOutput, error) {
	if m.state != Finished {
		return augmented.AugmentedOutput{}, werror.New(werror.InvalidInput)
	}
	if m.output != nil {
		return augmented.AugmentedOutput{}, werror.New(werror.AlreadyPicked)
	}
	out, err := m.refresh.PickOutput()
	if err != nil {
		return augmented.AugmentedOutput{}, err
	}
	m.output = &out
	return out, nil
}

// CurrentRound reports init.total_rounds() + refresh.current_round()
// once the refresh phase is active, otherwise init.current_round().
func (m *Machine) CurrentRound() round.Number {
	if m.state == InitRunning || m.state == Transition {
		return m.init.CurrentRound()
	}
	return m.init.TotalRounds() + m.refresh.CurrentRound()
}

// State reports the orchestrator's current composite state.
func (m *Machine) State() State { return m.state }
