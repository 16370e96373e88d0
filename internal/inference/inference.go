// Package inference implements the inference dispatcher: one worker
// per camera that consumes the newest raw frame, runs the detector,
// publishes an annotated frame, and forwards detections to the
// detection-event manager. Grounded on monitor.go's worker-pool
// lifecycle shape and on detection_manager.py's per-frame processing
// cadence.
package inference

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/SpherCodes/nexguard-surveillance/internal/metrics"
	"github.com/SpherCodes/nexguard-surveillance/internal/model"
	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
	"github.com/SpherCodes/nexguard-surveillance/internal/ring"
)

// FrameSource is the subset of the capture manager the dispatcher depends on.
type FrameSource interface {
	LatestFrame(cameraID int) (model.Frame, bool)
}

// Detector is the capability this dispatcher drives per frame.
type Detector interface {
	LoadModel(path string) error
	Infer(pixels []byte, width, height int, confThreshold float64) ([]model.BoundingBoxDetection, error)
}

// EventRecorder receives every detection synchronously from the hot loop.
type EventRecorder interface {
	Record(cameraID int, frame model.Frame, detection model.BoundingBoxDetection)
}

type cameraWorker struct {
	cameraID int
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// Dispatcher runs one worker per camera, pulling the newest raw frame,
// running the detector, publishing the annotated result, and
// forwarding detections to the event recorder.
type Dispatcher struct {
	capture  FrameSource
	detector Detector
	events   EventRecorder

	confMu        sync.RWMutex
	confThreshold float64

	ringsMu sync.Mutex
	rings   map[int]*ring.Ring[model.AnnotatedFrame]

	workersMu sync.Mutex
	workers   map[int]*cameraWorker

	annotatedRingSize int
}

// New builds a Dispatcher. annotatedRingSize sizes each camera's
// annotated-frame ring (the WebRTC track source and clip recorder both
// read from it).
func New(capture FrameSource, detector Detector, events EventRecorder, confThreshold float64, annotatedRingSize int) *Dispatcher {
	if annotatedRingSize <= 0 {
		annotatedRingSize = 4
	}
	return &Dispatcher{
		capture:           capture,
		detector:          detector,
		events:            events,
		confThreshold:     confThreshold,
		rings:             make(map[int]*ring.Ring[model.AnnotatedFrame]),
		workers:           make(map[int]*cameraWorker),
		annotatedRingSize: annotatedRingSize,
	}
}

// LoadModel loads or swaps the detector atomically.
func (d *Dispatcher) LoadModel(path string) error {
	return d.detector.LoadModel(path)
}

// SetEventRecorder wires the detection-event manager after
// construction: the manager itself is built with this dispatcher as
// its ResultsSource, so the two collaborators cannot both be supplied
// to each other's constructor.
func (d *Dispatcher) SetEventRecorder(events EventRecorder) {
	d.events = events
}

// SetConfThreshold updates the confidence threshold, effective next frame.
func (d *Dispatcher) SetConfThreshold(t float64) {
	d.confMu.Lock()
	d.confThreshold = t
	d.confMu.Unlock()
}

func (d *Dispatcher) threshold() float64 {
	d.confMu.RLock()
	defer d.confMu.RUnlock()
	return d.confThreshold
}

func (d *Dispatcher) ringFor(cameraID int) *ring.Ring[model.AnnotatedFrame] {
	d.ringsMu.Lock()
	defer d.ringsMu.Unlock()
	r, ok := d.rings[cameraID]
	if !ok {
		r = ring.New[model.AnnotatedFrame](d.annotatedRingSize)
		d.rings[cameraID] = r
	}
	return r
}

// StartProcessing starts a worker per requested camera (idempotent per camera).
func (d *Dispatcher) StartProcessing(cameraIDs ...int) {
	d.workersMu.Lock()
	defer d.workersMu.Unlock()
	for _, id := range cameraIDs {
		w, exists := d.workers[id]
		if exists && w.running {
			continue
		}
		w = &cameraWorker{cameraID: id, stopCh: make(chan struct{}), doneCh: make(chan struct{}), running: true}
		d.workers[id] = w
		go d.runWorker(w)
	}
}

// StopProcessing signals and joins workers for the given cameras (or
// all workers if none are given) with a small timeout.
func (d *Dispatcher) StopProcessing(cameraIDs ...int) {
	d.workersMu.Lock()
	targets := cameraIDs
	if len(targets) == 0 {
		for id := range d.workers {
			targets = append(targets, id)
		}
	}
	var toStop []*cameraWorker
	for _, id := range targets {
		if w, ok := d.workers[id]; ok && w.running {
			toStop = append(toStop, w)
		}
	}
	d.workersMu.Unlock()

	for _, w := range toStop {
		close(w.stopCh)
		select {
		case <-w.doneCh:
		case <-time.After(500 * time.Millisecond):
			log.Printf("[inference] camera %d worker did not stop promptly", w.cameraID)
		}
	}
}

// LatestResults performs drain-to-latest on the annotated ring.
func (d *Dispatcher) LatestResults(cameraID int) (model.AnnotatedFrame, bool) {
	return d.ringFor(cameraID).DrainToLatest()
}

// runWorker is the per-camera inference loop: poll for a new frame,
// infer, record detections, and publish the annotated result.
func (d *Dispatcher) runWorker(w *cameraWorker) {
	defer close(w.doneCh)
	defer func() {
		d.workersMu.Lock()
		w.running = false
		d.workersMu.Unlock()
	}()

	var lastFrameNumber int64
	label := strconv.Itoa(w.cameraID)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		frame, ok := d.capture.LatestFrame(w.cameraID)
		if !ok || frame.FrameNumber == lastFrameNumber {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		lastFrameNumber = frame.FrameNumber

		start := time.Now()
		detections, err := d.detector.Infer(frame.Pixels, frame.Width, frame.Height, d.threshold())
		metrics.InferenceLatencyMs.WithLabelValues(label).Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.InferenceFailuresTotal.WithLabelValues(label).Inc()
			if kind, ok := nexerr.KindOf(err); ok {
				log.Printf("[inference] camera %d: %s", w.cameraID, kind)
			}
			continue
		}
		metrics.InferenceRunsTotal.WithLabelValues(label).Inc()

		annotated := model.AnnotatedFrame{
			Frame:           frame,
			Detections:      detections,
			AnnotatedPixels: frame.Pixels,
			ResultTimestamp: frame.CaptureTimestamp,
		}

		for _, det := range detections {
			d.events.Record(w.cameraID, frame, det)
		}

		d.ringFor(w.cameraID).Push(annotated)
	}
}
