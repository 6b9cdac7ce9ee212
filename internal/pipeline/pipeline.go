// Package pipeline is the harness that wires Capture -> Inference ->
// Tracker -> Encoder together and drives their Workers through a
// dependency-ordered start/stop sequence.
package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lindenwood-labs/trackpipe/internal/capture"
	"github.com/lindenwood-labs/trackpipe/internal/clock"
	"github.com/lindenwood-labs/trackpipe/internal/encoder"
	"github.com/lindenwood-labs/trackpipe/internal/inference"
	"github.com/lindenwood-labs/trackpipe/internal/labels"
	"github.com/lindenwood-labs/trackpipe/internal/tracker"
	"github.com/lindenwood-labs/trackpipe/internal/worker"
)

// startTimeout bounds how long the harness waits for each stage to reach
// its expected state during startup/shutdown sequencing.
const startTimeout = 500 * time.Millisecond

// Pipeline owns the four stage Workers and starts/stops them in dependency
// order: Encoder first up (so it can receive from the moment Tracker
// starts), Capture last up (so nothing is dropped before the chain behind
// it is ready); shutdown runs the reverse.
type Pipeline struct {
	RunID uuid.UUID

	capture   *capture.Capture
	inference *inference.Inference
	tracker   *tracker.Tracker
	encoder   *encoder.Encoder

	captureW   *worker.Worker
	inferenceW *worker.Worker
	trackerW   *worker.Worker
	encoderW   *worker.Worker

	logger *log.Logger
}

// New wires the four stages together. logger may be nil, in which case
// log.Default() is used; every log line is prefixed with the first eight
// characters of the pipeline's RunID so concurrent runs (e.g. in tests) can
// be told apart.
func New(
	src capture.Source,
	det inference.Detector,
	labelMap labels.Map,
	confidence float64,
	cfg tracker.Config,
	sink encoder.Sink,
	eventSink tracker.EventSink,
	logger *log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	runID := uuid.New()
	taggedLogger := log.New(logger.Writer(), "["+runID.String()[:8]+"] ", logger.Flags())

	enc := encoder.New(sink, taggedLogger)
	trk := tracker.New(cfg, enc.Inbox(), clock.Real, taggedLogger, eventSink)
	inf := inference.New(det, labelMap, confidence, trk, taggedLogger)
	cap := capture.New(src, inf, taggedLogger)

	return &Pipeline{
		RunID:      runID,
		capture:    cap,
		inference:  inf,
		tracker:    trk,
		encoder:    enc,
		captureW:   worker.New(cap, taggedLogger),
		inferenceW: worker.New(inf, taggedLogger),
		trackerW:   worker.New(trk, taggedLogger),
		encoderW:   worker.New(enc, taggedLogger),
		logger:     taggedLogger,
	}
}

// Start brings every stage up in dependency order: Encoder, Tracker,
// Inference, Capture — each waiting for the previous to report Running
// before proceeding, so nothing downstream misses messages from a stage
// that started before it.
func (p *Pipeline) Start() bool {
	order := []struct {
		name string
		w    *worker.Worker
	}{
		{"encoder", p.encoderW},
		{"tracker", p.trackerW},
		{"inference", p.inferenceW},
		{"capture", p.captureW},
	}

	for _, stage := range order {
		if !stage.w.Start(stage.name, worker.DefaultPriority) {
			p.logger.Printf("pipeline: %s failed to start", stage.name)
			return false
		}
		if !stage.w.Wait(worker.Paused, startTimeout) {
			p.logger.Printf("pipeline: %s did not reach Paused", stage.name)
			return false
		}
		if !stage.w.Run() {
			p.logger.Printf("pipeline: %s failed to run", stage.name)
			return false
		}
		if !stage.w.Wait(worker.Running, startTimeout) {
			p.logger.Printf("pipeline: %s did not reach Running", stage.name)
			return false
		}
	}
	return true
}

// Stop tears every stage down in the reverse of Start's order: Capture
// first, so no new frames enter the chain while downstream stages still
// drain, then Inference, Tracker, Encoder.
func (p *Pipeline) Stop() {
	order := []struct {
		name string
		w    *worker.Worker
	}{
		{"capture", p.captureW},
		{"inference", p.inferenceW},
		{"tracker", p.trackerW},
		{"encoder", p.encoderW},
	}

	for _, stage := range order {
		if !stage.w.Stop() {
			p.logger.Printf("pipeline: %s failed to stop cleanly", stage.name)
			continue
		}
		stage.w.Wait(worker.Stopped, startTimeout)
	}

	if err := p.capture.Close(); err != nil {
		p.logger.Printf("pipeline: closing capture source: %v", err)
	}
	if err := p.inference.Close(); err != nil {
		p.logger.Printf("pipeline: closing detector: %v", err)
	}
}
