package round

import (
	"crypto/rand"
	"fmt"

	"github.com/luxfi/wamu/pkg/party"
)

// MockFSDKROutput is the local-key shape a real FS-DKR refresh engine
// would hand back, reduced to its refreshed scalar share. The refresh
// and keygen policies in pkg/refreshengine replace Scalar with zeroes
// after splitting it, exercising the zeroize-before-return discipline
// augmentation is responsible for.
type MockFSDKROutput struct {
	Scalar [32]byte
}

// MockFSDKREngine is a minimal stand-in for an FS-DKR-based key refresh
// engine, used to exercise the augmented wrapper and orchestrator
// without a real threshold-ECDSA implementation. Round 1 is a join
// message broadcast by every party in newParties; round 2 is a refresh
// message broadcast by every party in parties-but-not-newParties; round
// 3 finalizes.
type MockFSDKREngine struct {
	self       party.ID
	parties    party.IDSlice
	newParties party.IDSlice

	round    Number
	queue    []*Message
	received map[Number]map[party.ID]bool
	finished bool

	hasExistingXi bool
	existingXi    [32]byte
}

// NewMockFSDKREngine builds an engine instance acting as self within
// parties, where newParties is the subset joining during this refresh.
// existingXi is nil for a party with no pre-existing share (e.g. one
// newly admitted by share addition); otherwise it is the scalar the
// caller reconstructed for this party, and PickOutput hands it back
// unchanged, standing in for a real FS-DKR engine's guarantee that a
// continuing party's x_i survives the refresh.
func NewMockFSDKREngine(self party.ID, parties, newParties party.IDSlice, existingXi *[32]byte) *MockFSDKREngine {
	e := &MockFSDKREngine{
		self:       self,
		parties:    parties,
		newParties: newParties,
		round:      0,
		received:   map[Number]map[party.ID]bool{1: {}, 2: {}},
	}
	if existingXi != nil {
		e.hasExistingXi = true
		e.existingXi = *existingXi
	}
	return e
}

func (e *MockFSDKREngine) isNew(id party.ID) bool { return e.newParties.Contains(id) }

func randomParam() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// HandleIncoming records msg as received for its round, ignoring
// messages for rounds this engine has already passed.
func (e *MockFSDKREngine) HandleIncoming(msg *Message) error {
	if msg.RoundNumber < e.round {
		return nil
	}
	if e.received[msg.RoundNumber] == nil {
		e.received[msg.RoundNumber] = map[party.ID]bool{}
	}
	e.received[msg.RoundNumber][msg.From] = true
	return nil
}

// WantsToProceed reports whether every expected sender for the current
// round, other than this party itself, has been heard from (or, for
// round 0, that the engine hasn't started yet).
func (e *MockFSDKREngine) WantsToProceed() bool {
	switch e.round {
	case 0:
		return true
	case 1:
		expected := 0
		for _, id := range e.newParties {
			if id != e.self {
				expected++
			}
		}
		return len(e.received[1]) >= expected
	case 2:
		expected := 0
		for _, id := range e.parties {
			if !e.isNew(id) && id != e.self {
				expected++
			}
		}
		return len(e.received[2]) >= expected
	default:
		return false
	}
}

// Proceed advances the engine by one round.
func (e *MockFSDKREngine) Proceed() error {
	switch e.round {
	case 0:
		e.round = 1
		if e.isNew(e.self) {
			e.queue = append(e.queue, &Message{
				From:        e.self,
				Broadcast:   true,
				RoundNumber: 1,
				EKN:         randomParam(),
				RPN:         randomParam(),
				RPS:         randomParam(),
				RPT:         randomParam(),
			})
		}
		return nil
	case 1:
		e.round = 2
		if !e.isNew(e.self) {
			e.queue = append(e.queue, &Message{
				From:        e.self,
				Broadcast:   true,
				RoundNumber: 2,
				EKN:         randomParam(),
				RPN:         randomParam(),
				RPS:         randomParam(),
				RPT:         randomParam(),
			})
		}
		return nil
	case 2:
		e.round = 3
		e.finished = true
		return nil
	default:
		return fmt.Errorf("round: engine already finished")
	}
}

// DrainMessages returns and clears the outbound queue.
func (e *MockFSDKREngine) DrainMessages() []*Message {
	out := e.queue
	e.queue = nil
	return out
}

// IsFinished reports whether round 3 has been reached.
func (e *MockFSDKREngine) IsFinished() bool { return e.finished }

// PickOutput returns the refreshed local key once finished.
func (e *MockFSDKREngine) PickOutput() (interface{}, error) {
	if !e.finished {
		return nil, fmt.Errorf("round: engine not finished")
	}
	if e.hasExistingXi {
		return MockFSDKROutput{Scalar: e.existingXi}, nil
	}
	var scalar [32]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return nil, err
	}
	return MockFSDKROutput{Scalar: scalar}, nil
}

// CurrentRound reports the round this engine is in.
func (e *MockFSDKREngine) CurrentRound() Number { return e.round }

// TotalRounds reports the fixed 3-round shape of this mock.
func (e *MockFSDKREngine) TotalRounds() Number { return 3 }

// PartyInd reports which party this engine instance acts as.
func (e *MockFSDKREngine) PartyInd() party.ID { return e.self }

// Parties reports the full party set.
func (e *MockFSDKREngine) Parties() party.IDSlice { return e.parties }
