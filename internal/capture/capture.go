// Package capture produces FrameBufs from a video source and hands them to
// the inference stage, the first link in the pipeline (§4.4 "external
// collaborators").
package capture

import (
	"image"
	"log"

	"gocv.io/x/gocv"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// Source is anything capture can pull raw frames from. The production
// implementation wraps gocv.VideoCapture; tests substitute a fixture.
type Source interface {
	Read() (model.FrameBuf, bool)
	Close() error
}

// FrameSink is the capability Inference exposes: a one-slot overwrite inbox
// for frames, per §4.2.
type FrameSink interface {
	AddMessage(model.FrameBuf) bool
}

// Capture is a Worker that reads frames from a Source and delivers them to
// a FrameSink. It has no inbox of its own — it is a pure producer.
type Capture struct {
	src    Source
	sink   FrameSink
	logger *log.Logger
	nextID uint64
}

// New constructs a Capture stage. logger may be nil, in which case
// log.Default() is used.
func New(src Source, sink FrameSink, logger *log.Logger) *Capture {
	if logger == nil {
		logger = log.Default()
	}
	return &Capture{src: src, sink: sink, logger: logger}
}

// WaitingToRun implements worker.Hooks; Capture needs no one-shot setup
// beyond what New already did.
func (c *Capture) WaitingToRun() bool { return true }

// Paused implements worker.Hooks.
func (c *Capture) Paused() bool { return true }

// WaitingToHalt implements worker.Hooks; the Source outlives individual
// pause/resume cycles and is closed by the pipeline harness, not here.
func (c *Capture) WaitingToHalt() bool { return true }

// Running implements worker.Hooks: read one frame, stamp it with a
// monotonically increasing id, and hand it downstream.
func (c *Capture) Running() bool {
	frame, ok := c.src.Read()
	if !ok {
		return true
	}
	c.nextID++
	frame.ID = c.nextID

	if !c.sink.AddMessage(frame) {
		c.logger.Printf("capture: inference inbox full, dropping frame %d", frame.ID)
	}
	return true
}

// Close releases the underlying Source.
func (c *Capture) Close() error {
	return c.src.Close()
}

// videoSource is the gocv.VideoCapture-backed production Source.
type videoSource struct {
	cap           *gocv.VideoCapture
	width, height int
}

// OpenDevice opens a camera device by index (e.g. 0 for /dev/video0) and
// resizes every frame read from it to width×height.
func OpenDevice(index int, width, height int) (Source, error) {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	return &videoSource{cap: cap, width: width, height: height}, nil
}

// OpenFile opens a video file or network stream URI as a Source.
func OpenFile(path string, width, height int) (Source, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, err
	}
	return &videoSource{cap: cap, width: width, height: height}, nil
}

// Read implements Source.
func (s *videoSource) Read() (model.FrameBuf, bool) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.cap.Read(&mat); !ok || mat.Empty() {
		return model.FrameBuf{}, false
	}

	resized := mat
	if s.width > 0 && s.height > 0 && (mat.Cols() != s.width || mat.Rows() != s.height) {
		resized = gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)

	return model.FrameBuf{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pixels: append([]byte(nil), rgb.ToBytes()...),
	}, true
}

// Close implements Source.
func (s *videoSource) Close() error {
	return s.cap.Close()
}
