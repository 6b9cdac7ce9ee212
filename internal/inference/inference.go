// Package inference runs a neural detector over each captured frame and
// forwards the surviving detections to the tracker (§4.4).
package inference

import (
	"log"

	"github.com/lindenwood-labs/trackpipe/internal/bus"
	"github.com/lindenwood-labs/trackpipe/internal/labels"
	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// Detection is one raw detector output, before label mapping and
// confidence filtering.
type Detection struct {
	ClassID    int
	Confidence float64
	X, Y       int
	W, H       int
}

// Detector runs a model over a frame. Implementations resize the frame to
// the model's input dimensions internally.
type Detector interface {
	Detect(frame model.FrameBuf) ([]Detection, error)
	Close() error
}

// BoxSink is the capability Tracker exposes: a one-slot overwrite inbox
// for detection batches, per §4.2.
type BoxSink interface {
	AddMessage([]model.BoxBuf) bool
}

// Inference is a Worker + Listener<FrameBuf> that runs a Detector over each
// frame, maps labels to model.Type, filters by confidence, and forwards
// the survivors to a BoxSink.
type Inference struct {
	inbox     *bus.Listener[model.FrameBuf]
	detector  Detector
	labelMap  labels.Map
	threshold float64
	sink      BoxSink
	logger    *log.Logger

	nextID uint64
}

// New constructs an Inference stage. logger may be nil, in which case
// log.Default() is used.
func New(detector Detector, labelMap labels.Map, threshold float64, sink BoxSink, logger *log.Logger) *Inference {
	if logger == nil {
		logger = log.Default()
	}
	return &Inference{
		inbox:     bus.NewListener[model.FrameBuf](),
		detector:  detector,
		labelMap:  labelMap,
		threshold: threshold,
		sink:      sink,
		logger:    logger,
	}
}

// AddMessage delivers a frame to the stage's inbox, per §4.2.
func (inf *Inference) AddMessage(frame model.FrameBuf) bool {
	return inf.inbox.AddMessage(frame)
}

// WaitingToRun implements worker.Hooks.
func (inf *Inference) WaitingToRun() bool { return true }

// Paused implements worker.Hooks.
func (inf *Inference) Paused() bool { return true }

// WaitingToHalt implements worker.Hooks.
func (inf *Inference) WaitingToHalt() bool { return true }

// Running implements worker.Hooks: run the detector on the latest frame, map
// and filter its outputs, and forward the survivors to the tracker.
func (inf *Inference) Running() bool {
	frame, ok := inf.inbox.Take()
	if !ok {
		return true
	}

	dets, err := inf.detector.Detect(frame)
	if err != nil {
		inf.logger.Printf("inference: detect failed: %v", err)
		return true
	}

	boxes := make([]model.BoxBuf, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < inf.threshold {
			continue
		}
		typ := inf.labelMap.Type(d.ClassID)
		if typ == model.Unknown {
			continue
		}
		inf.nextID++
		boxes = append(boxes, model.BoxBuf{
			Type: typ,
			ID:   inf.nextID,
			X:    d.X,
			Y:    d.Y,
			W:    d.W,
			H:    d.H,
		})
	}

	if !inf.sink.AddMessage(boxes) {
		inf.logger.Printf("inference: tracker inbox full, dropping batch of %d boxes", len(boxes))
	}
	return true
}

// Close releases the underlying Detector.
func (inf *Inference) Close() error {
	return inf.detector.Close()
}
