// Package simulate drives an authorized-key-refresh orchestrator (or
// any set of sub-machines sharing its cooperative shape) across several
// concurrently-running parties, giving tests and the CLI a realistic
// multi-party harness without a real network.
package simulate

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/wamu/pkg/party"
)

// ErrDidNotConverge is returned by Network when maxTicks elapses
// without every party reaching IsFinished.
var ErrDidNotConverge = errors.New("simulate: parties did not converge within the tick budget")

// Party is the cooperative state-machine shape every orchestrator or
// sub-machine in this module exposes.
type Party[Msg any] interface {
	WantsToProceed() bool
	Proceed() error
	DrainMessages() []Msg
	HandleIncoming(Msg) error
	IsFinished() bool
}

// Network runs every party in parties to completion, round-robin
// fashion: each tick, every party that wants to proceed does so
// concurrently (via errgroup), and the outbound messages it produced
// are broadcast to every other party before the next tick begins.
//
// maxTicks bounds the run so a protocol bug that never converges fails
// fast instead of hanging forever.
func Network[Msg any](ctx context.Context, parties map[party.ID]Party[Msg], maxTicks int) error {
	for tick := 0; tick < maxTicks; tick++ {
		var mu sync.Mutex
		outboxes := make(map[party.ID][]Msg, len(parties))
		notFinished := false

		g, _ := errgroup.WithContext(ctx)
		for id, p := range parties {
			id, p := id, p
			g.Go(func() error {
				if p.IsFinished() {
					return nil
				}
				mu.Lock()
				notFinished = true
				mu.Unlock()

				if !p.WantsToProceed() {
					return nil
				}
				if err := p.Proceed(); err != nil {
					return err
				}
				msgs := p.DrainMessages()

				mu.Lock()
				outboxes[id] = msgs
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for sender, msgs := range outboxes {
			for _, msg := range msgs {
				for id, p := range parties {
					if id == sender {
						continue
					}
					if err := p.HandleIncoming(msg); err != nil {
						return err
					}
				}
			}
		}

		if !notFinished {
			return nil
		}
	}
	return ErrDidNotConverge
}
