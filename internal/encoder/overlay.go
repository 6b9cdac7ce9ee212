package encoder

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// boxColors gives each model.Type a stable overlay color, in the spirit of
// the reference renderer's per-category palette.
var boxColors = map[model.Type]color.RGBA{
	model.Person:  {R: 0, G: 255, B: 0, A: 255},
	model.Pet:     {R: 255, G: 200, B: 0, A: 255},
	model.Vehicle: {R: 0, G: 120, B: 255, A: 255},
	model.Unknown: {R: 255, G: 255, B: 255, A: 255},
}

// OverlaySink is a reference Sink that draws each tick's tracks onto a
// fixed-size canvas with gocv — a demonstration of the overlay, not a real
// video encoder pipeline (that is an explicit Non-goal).
type OverlaySink struct {
	width, height int
}

// NewOverlaySink constructs an OverlaySink that draws onto a width×height
// canvas matching the source frame geometry.
func NewOverlaySink(width, height int) *OverlaySink {
	return &OverlaySink{width: width, height: height}
}

// Handle implements Sink: render one frame's worth of track rectangles and
// labels, then discard the canvas — there is no downstream bitstream.
func (o *OverlaySink) Handle(tracks []model.TrackBuf) error {
	canvas := gocv.NewMatWithSize(o.height, o.width, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	for _, tr := range tracks {
		rect := image.Rect(tr.X, tr.Y, tr.X+tr.W, tr.Y+tr.H)
		col := boxColors[tr.Type]
		gocv.Rectangle(&canvas, rect, col, 2)

		label := fmt.Sprintf("%s #%d", tr.Type, tr.ID)
		labelPos := image.Pt(tr.X, tr.Y-6)
		if labelPos.Y < 0 {
			labelPos.Y = tr.Y + 14
		}
		gocv.PutText(&canvas, label, labelPos, gocv.FontHersheySimplex, 0.4, col, 1)
	}

	return nil
}
