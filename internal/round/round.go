// Package round defines the contract this module assumes of an
// upstream threshold-ECDSA round-based engine (keygen, refresh,
// pre-sign, sign). The engine itself is out of scope: it is treated as
// a black box with typed message and output shapes, modeled here the
// way the teacher's protocol.MultiHandler models a round.Session — a
// cooperative, single-threaded state machine driven by the owner
// through HandleIncoming/Proceed, with outbound messages collected in
// an internal queue and drained after each call.
package round

import "github.com/luxfi/wamu/pkg/party"

// Number identifies a round within an Engine's run. Round 0 is the state
// before the first Proceed; messages carry round numbers from 1.
type Number uint16

// Message is one protocol message produced or consumed by an Engine.
// EKN/RPN/RPS/RPT are populated only on the FS-DKR join (round 1) and
// refresh (round 2) messages; every other round leaves them nil.
type Message struct {
	SSID        []byte
	From        party.ID
	To          party.ID // zero value means broadcast to all parties
	Broadcast   bool
	RoundNumber Number
	Body        []byte // engine-specific payload, opaque to this module

	EKN []byte // Paillier encryption key modulus
	RPN []byte // Ring-Pedersen modulus
	RPS []byte // Ring-Pedersen parameter S
	RPT []byte // Ring-Pedersen parameter T
}

// Engine is the capability surface this module consumes from the
// upstream round-based engine. Nothing in this module inspects an
// Engine's internal round logic; it only observes messages and outputs
// at this boundary in order to attach and verify identity attestations.
type Engine interface {
	// HandleIncoming delivers one message from another party.
	HandleIncoming(msg *Message) error
	// WantsToProceed reports whether the engine has everything it
	// needs to advance to its next round.
	WantsToProceed() bool
	// Proceed advances the engine by one round, queuing any resulting
	// outbound messages internally.
	Proceed() error
	// DrainMessages returns and clears the engine's outbound message
	// queue. Callers must drain after every HandleIncoming and Proceed
	// call.
	DrainMessages() []*Message
	// IsFinished reports whether the engine has produced its output.
	IsFinished() bool
	// PickOutput returns the engine's output once finished, or an error
	// if called before then.
	PickOutput() (interface{}, error)
	// CurrentRound reports the round the engine is currently in.
	CurrentRound() Number
	// TotalRounds reports the number of rounds the engine expects to
	// run, if known in advance.
	TotalRounds() Number
	// PartyInd reports which party this engine instance acts as.
	PartyInd() party.ID
	// Parties reports the full party set for this engine run.
	Parties() party.IDSlice
}
