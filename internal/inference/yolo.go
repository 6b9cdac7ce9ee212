package inference

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// YOLODetector runs a YOLO-family network via OpenCV's DNN module. It is
// the production Detector; it does not map labels itself — that is the
// Inference stage's job via a labels.Map — it only reports class ids.
type YOLODetector struct {
	mu            sync.Mutex
	net           gocv.Net
	inputSize     int
	minConfidence float64
}

// NewYOLODetector loads a network from weights/config files. inputSize is
// the model's square input dimension (e.g. 416, 640).
func NewYOLODetector(weightsPath, configPath string, inputSize int) (*YOLODetector, error) {
	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("inference: failed to load network from %s and %s", weightsPath, configPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{net: net, inputSize: inputSize, minConfidence: 0.3}, nil
}

// Detect implements Detector.
func (y *YOLODetector) Detect(frame model.FrameBuf) ([]Detection, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return nil, fmt.Errorf("inference: frame to Mat: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(y.inputSize, y.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")
	output := y.net.Forward("")
	defer output.Close()

	size := float32(y.inputSize)
	scaleX := float32(frame.Width) / size
	scaleY := float32(frame.Height) / size

	var dets []Detection
	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		data := row.Clone()
		scores := data.ColRange(5, data.Cols())
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
		classID := maxLoc.X
		confidence := float64(maxVal)

		if confidence >= y.minConfidence {
			xNorm := data.GetFloatAt(0, 0)
			yNorm := data.GetFloatAt(0, 1)
			wNorm := data.GetFloatAt(0, 2)
			hNorm := data.GetFloatAt(0, 3)

			centerX := int(xNorm * size * scaleX)
			centerY := int(yNorm * size * scaleY)
			w := int(wNorm * size * scaleX)
			h := int(hNorm * size * scaleY)

			dets = append(dets, Detection{
				ClassID:    classID,
				Confidence: confidence,
				X:          centerX - w/2,
				Y:          centerY - h/2,
				W:          w,
				H:          h,
			})
		}

		scores.Close()
		data.Close()
		row.Close()
	}

	return dets, nil
}

// Close implements Detector.
func (y *YOLODetector) Close() error {
	return y.net.Close()
}
