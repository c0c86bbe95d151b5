// Package workflow implements the per-request orchestration engine: a
// cooperative node loop (reflection, executor, conflict resolver, final
// response, error handler) threaded by a router over a single WorkflowState,
// streaming progress events to the caller and terminating with exactly one
// final event.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/pkg/models"
)

// Event is one item of a run's output stream: either a progress snapshot or
// the terminal final event. Exactly one of the fields is set.
type Event struct {
	Progress *models.ProgressEvent `json:"progress,omitempty"`
	Final    *models.FinalEvent    `json:"final,omitempty"`
}

// progressBus serializes a run's event emissions into one bounded stream.
// Consumer lag applies backpressure through the channel; a departed consumer
// (canceled context) makes emissions drop instead of failing the run.
type progressBus struct {
	ch        chan Event
	finalOnce sync.Once
}

func newProgressBus(capacity int) *progressBus {
	if capacity <= 0 {
		capacity = 64
	}
	return &progressBus{ch: make(chan Event, capacity)}
}

// Events returns the consumer side of the stream. Closed after the final
// event.
func (b *progressBus) Events() <-chan Event {
	return b.ch
}

// EmitProgress enqueues a progress event, blocking on a slow consumer and
// dropping the event when consumerCtx is done.
func (b *progressBus) EmitProgress(consumerCtx context.Context, ev models.ProgressEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	select {
	case b.ch <- Event{Progress: &ev}:
	case <-consumerCtx.Done():
	}
}

// EmitFinal enqueues the terminal event and closes the stream. Safe to call
// more than once; only the first call takes effect. The final event is
// buffered even when the consumer is gone so late readers still observe it;
// if the buffer is full, the oldest progress event is dropped to make room.
func (b *progressBus) EmitFinal(ev models.FinalEvent) {
	b.finalOnce.Do(func() {
		for {
			select {
			case b.ch <- Event{Final: &ev}:
				close(b.ch)
				return
			default:
				select {
				case <-b.ch:
				default:
				}
			}
		}
	})
}
