package inference

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

type fakeFrameSource struct {
	mu    sync.Mutex
	frame model.Frame
	ok    bool
}

func (f *fakeFrameSource) set(frame model.Frame, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame, f.ok = frame, ok
}

func (f *fakeFrameSource) LatestFrame(cameraID int) (model.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.ok
}

type fakeDetector struct {
	dets []model.BoundingBoxDetection
	err  error
}

func (f fakeDetector) LoadModel(path string) error { return nil }

func (f fakeDetector) Infer(pixels []byte, width, height int, confThreshold float64) ([]model.BoundingBoxDetection, error) {
	return f.dets, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	records int
}

func (f *fakeRecorder) Record(cameraID int, frame model.Frame, detection model.BoundingBoxDetection) {
	f.mu.Lock()
	f.records++
	f.mu.Unlock()
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

func TestStartProcessingIsIdempotentPerCamera(t *testing.T) {
	d := New(&fakeFrameSource{}, fakeDetector{}, &fakeRecorder{}, 0.5, 2)
	d.StartProcessing(1, 1, 2)

	d.workersMu.Lock()
	n := len(d.workers)
	d.workersMu.Unlock()
	assert.Equal(t, 2, n)

	d.StopProcessing()
}

func TestWorkerRecordsDetectionsAndPublishesAnnotatedFrame(t *testing.T) {
	src := &fakeFrameSource{}
	det := model.BoundingBoxDetection{ClassName: "person", Confidence: 0.8}
	detector := fakeDetector{dets: []model.BoundingBoxDetection{det}}
	recorder := &fakeRecorder{}

	d := New(src, detector, recorder, 0.5, 2)
	d.StartProcessing(5)
	defer d.StopProcessing()

	src.set(model.Frame{CameraID: 5, FrameNumber: 1, Width: 4, Height: 4, Pixels: make([]byte, 48)}, true)

	require.Eventually(t, func() bool {
		return recorder.count() > 0
	}, time.Second, 5*time.Millisecond)

	annotated, ok := d.LatestResults(5)
	require.True(t, ok)
	assert.Equal(t, []model.BoundingBoxDetection{det}, annotated.Detections)
}

func TestSetEventRecorderSwapsCollaboratorBeforeFirstUse(t *testing.T) {
	d := New(&fakeFrameSource{}, fakeDetector{}, nil, 0.5, 2)
	r := &fakeRecorder{}
	d.SetEventRecorder(r)
	assert.Same(t, r, d.events)
}

func TestSetConfThresholdUpdatesValueReadUnderLock(t *testing.T) {
	d := New(&fakeFrameSource{}, fakeDetector{}, &fakeRecorder{}, 0.5, 2)
	d.SetConfThreshold(0.9)
	assert.InDelta(t, 0.9, d.threshold(), 1e-9)
}
