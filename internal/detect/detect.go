// Package detect implements the Detector capability the inference
// dispatcher depends on, backed by github.com/yalue/onnxruntime_go.
// The teacher's own cmd/ai-service/inference.go never actually calls
// onnxruntime_go despite it sitting in go.mod as an indirect
// dependency (it returns randomized mock detections instead); this
// package wires the library for real, promoting it to a genuinely
// exercised dependency.
package detect

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
)

// Detector is the capability the inference dispatcher consumes.
type Detector interface {
	Infer(pixels []byte, width, height int, confThreshold float64) ([]model.BoundingBoxDetection, error)
}

// cocoLabel maps a COCO class index to a human label, matching the
// subset of classes the recording policy and WebRTC overlay care about.
var cocoLabel = map[int]string{
	0: "person",
	1: "bicycle",
	2: "car",
	3: "motorcycle",
	5: "bus",
	7: "truck",
	15: "cat",
	16: "dog",
}

// ONNXDetector wraps a single onnxruntime_go session behind a
// read-write lock so Infer (read lock) and LoadModel (write lock) can
// never observe or produce a torn state.
type ONNXDetector struct {
	mu      sync.RWMutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	inputWidth  int
	inputHeight int
}

// NewONNXDetector constructs a detector with no model loaded. Call
// LoadModel before the first Infer.
func NewONNXDetector() *ONNXDetector {
	return &ONNXDetector{inputWidth: 640, inputHeight: 640}
}

// LoadModel loads or swaps the underlying ONNX Runtime session
// atomically under the write lock. Fails with ModelLoadFailed if the
// path does not resolve or the runtime rejects the model.
func (d *ONNXDetector) LoadModel(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nexerr.Wrap(nexerr.ModelLoadFailed, "initialize onnxruntime environment", err)
		}
	}

	inputShape := ort.NewShape(1, 3, int64(d.inputHeight), int64(d.inputWidth))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nexerr.Wrap(nexerr.ModelLoadFailed, "allocate input tensor", err)
	}

	outputShape := ort.NewShape(1, 84, 8400)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nexerr.Wrap(nexerr.ModelLoadFailed, "allocate output tensor", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nexerr.Wrap(nexerr.ModelLoadFailed, fmt.Sprintf("load model %s", path), err)
	}

	if d.session != nil {
		d.session.Destroy()
		d.input.Destroy()
		d.output.Destroy()
	}
	d.session = session
	d.input = inputTensor
	d.output = outputTensor
	return nil
}

// Infer runs the loaded model under a read lock, so it can run
// concurrently with other Infer calls but never overlaps a LoadModel
// swap. Returns InferenceFailed if no model is loaded.
func (d *ONNXDetector) Infer(pixels []byte, width, height int, confThreshold float64) ([]model.BoundingBoxDetection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.session == nil {
		return nil, nexerr.New(nexerr.InferenceFailed, "no model loaded")
	}

	letterbox(pixels, width, height, d.input.GetData(), d.inputWidth, d.inputHeight)

	if err := d.session.Run(); err != nil {
		return nil, nexerr.Wrap(nexerr.InferenceFailed, "session run", err)
	}

	return decodeYOLOOutput(d.output.GetData(), width, height, d.inputWidth, d.inputHeight, confThreshold), nil
}

// Close releases the underlying ONNX Runtime resources.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.input.Destroy()
		d.output.Destroy()
		d.session = nil
	}
	return nil
}

// letterbox resizes src (BGR, width x height) into dst's CHW float32
// layout (RGB, normalized 0..1), padding to preserve aspect ratio.
func letterbox(src []byte, srcW, srcH int, dst []float32, dstW, dstH int) {
	scale := min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)
	padX := (dstW - newW) / 2
	padY := (dstH - newH) / 2

	for i := range dst {
		dst[i] = 0.5 // neutral gray padding
	}

	plane := dstW * dstH
	for y := 0; y < newH; y++ {
		srcY := y * srcH / newH
		for x := 0; x < newW; x++ {
			srcX := x * srcW / newW
			off := (srcY*srcW + srcX) * 3
			if off+2 >= len(src) {
				continue
			}
			b := float32(src[off]) / 255.0
			g := float32(src[off+1]) / 255.0
			r := float32(src[off+2]) / 255.0

			dx, dy := x+padX, y+padY
			idx := dy*dstW + dx
			dst[0*plane+idx] = r
			dst[1*plane+idx] = g
			dst[2*plane+idx] = b
		}
	}
}

// decodeYOLOOutput interprets a YOLOv8-style [1,84,8400] output tensor
// (4 box params + 80 class scores per anchor) into detections mapped
// back to the original frame's pixel coordinates.
func decodeYOLOOutput(out []float32, frameW, frameH, modelW, modelH int, confThreshold float64) []model.BoundingBoxDetection {
	const numAnchors = 8400
	const numClasses = 80

	scale := min(float64(modelW)/float64(frameW), float64(modelH)/float64(frameH))
	padX := float64(modelW-int(float64(frameW)*scale)) / 2
	padY := float64(modelH-int(float64(frameH)*scale)) / 2

	var detections []model.BoundingBoxDetection
	for a := 0; a < numAnchors; a++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := out[(4+c)*numAnchors+a]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if float64(bestScore) < confThreshold || bestClass < 0 {
			continue
		}
		label, known := cocoLabel[bestClass]
		if !known {
			continue
		}

		cx := float64(out[0*numAnchors+a])
		cy := float64(out[1*numAnchors+a])
		w := float64(out[2*numAnchors+a])
		h := float64(out[3*numAnchors+a])

		x1 := int(((cx - w/2) - padX) / scale)
		y1 := int(((cy - h/2) - padY) / scale)
		x2 := int(((cx + w/2) - padX) / scale)
		y2 := int(((cy + h/2) - padY) / scale)

		x1 = clampInt(x1, 0, frameW-1)
		y1 = clampInt(y1, 0, frameH-1)
		x2 = clampInt(x2, 0, frameW-1)
		y2 = clampInt(y2, 0, frameH-1)

		detections = append(detections, model.BoundingBoxDetection{
			ClassName:  label,
			ClassID:    bestClass,
			Confidence: float64(bestScore),
			X1:         x1, Y1: y1, X2: x2, Y2: y2,
		})
	}
	return detections
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
