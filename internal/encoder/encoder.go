// Package encoder is the pipeline's terminal stage: a Worker + Listener
// that receives TrackBuf batches and hands them to a Sink. Producing an
// actual video bitstream is out of scope (§ Non-goals); the Tracker does
// not depend on encoder internals, only on the Sink capability (§4.4).
package encoder

import (
	"log"

	"github.com/lindenwood-labs/trackpipe/internal/bus"
	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// Sink consumes one tick's worth of tracks. Implementations might draw an
// overlay, publish to a UI, or simply log — the Tracker never knows which.
type Sink interface {
	Handle([]model.TrackBuf) error
}

// Encoder is a Worker + Listener<[]TrackBuf>.
type Encoder struct {
	inbox  *bus.Listener[[]model.TrackBuf]
	sink   Sink
	logger *log.Logger
}

// New constructs an Encoder stage. logger may be nil, in which case
// log.Default() is used.
func New(sink Sink, logger *log.Logger) *Encoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Encoder{inbox: bus.NewListener[[]model.TrackBuf](), sink: sink, logger: logger}
}

// AddMessage delivers a tracks batch to the stage's inbox, per §4.2. The
// Tracker calls this method directly; it is the encoder's only contract.
func (e *Encoder) AddMessage(batch []model.TrackBuf) bool {
	return e.inbox.AddMessage(batch)
}

// Inbox exposes the encoder's Listener so a pipeline harness can wire it
// directly as the Tracker's downstream sink, avoiding an extra adapter.
func (e *Encoder) Inbox() *bus.Listener[[]model.TrackBuf] {
	return e.inbox
}

// WaitingToRun implements worker.Hooks.
func (e *Encoder) WaitingToRun() bool { return true }

// Paused implements worker.Hooks.
func (e *Encoder) Paused() bool { return true }

// WaitingToHalt implements worker.Hooks.
func (e *Encoder) WaitingToHalt() bool { return true }

// Running implements worker.Hooks: move the latest batch out and hand it
// to the Sink.
func (e *Encoder) Running() bool {
	batch, ok := e.inbox.Take()
	if !ok {
		return true
	}
	if err := e.sink.Handle(batch); err != nil {
		e.logger.Printf("encoder: sink failed: %v", err)
	}
	return true
}
