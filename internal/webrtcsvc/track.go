package webrtcsvc

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/SpherCodes/nexguard-surveillance/internal/annotate"
	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// ResultsSource is the subset of the inference dispatcher a track
// source reads from: the latest annotated frame for a camera.
type ResultsSource interface {
	LatestResults(cameraID int) (model.AnnotatedFrame, bool)
}

// CaptureSource is the subset of the capture manager a track source
// falls back to when the dispatcher has nothing for a camera yet.
type CaptureSource interface {
	LatestFrame(cameraID int) (model.Frame, bool)
}

// Encoder turns one BGR frame into an already-encoded media sample
// payload for the negotiated video codec. No H.264/VP8 encoder ships
// in this module's dependency set, so production deployments provide
// their own Encoder (e.g. backed by a cgo x264 binding); the reference
// implementation here ships a passthrough encoder suitable for
// same-process testing of the session/signaling machinery around it.
type Encoder interface {
	Encode(pixels []byte, width, height int) ([]byte, error)
}

// PassthroughEncoder hands the raw BGR buffer to WriteSample
// unmodified. Not a real video codec — a placeholder that lets every
// other part of the track-source pipeline (caching, fallback,
// pacing) be exercised without a native encoder dependency.
type PassthroughEncoder struct{}

func (PassthroughEncoder) Encode(pixels []byte, width, height int) ([]byte, error) {
	return pixels, nil
}

const cacheTimeout = 2 * time.Second

// TrackSource feeds one outbound WebRTC video track: prefer the
// inference dispatcher's annotated+overlaid frame, use the capture
// manager's latest frame when the dispatcher has no result at all,
// fall back to a short-lived cache of the last rendered frame, and
// finally to a synthetic "No Signal" placeholder.
type TrackSource struct {
	cameraID      int
	width, height int
	fpsTarget     int

	results ResultsSource
	capture CaptureSource
	encoder Encoder
	track   *webrtc.TrackLocalStaticSample

	mu           sync.Mutex
	lastRendered []byte
	lastResultTS float64
	lastRenderAt time.Time
	started      bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewTrackSource(cameraID, width, height, fpsTarget int, results ResultsSource, capture CaptureSource, encoder Encoder) (*TrackSource, error) {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if fpsTarget <= 0 {
		fpsTarget = 15
	}
	if encoder == nil {
		encoder = PassthroughEncoder{}
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video", "nexguard-camera",
	)
	if err != nil {
		return nil, err
	}

	return &TrackSource{
		cameraID: cameraID, width: width, height: height, fpsTarget: fpsTarget,
		results: results, capture: capture, encoder: encoder, track: track,
		stopCh: make(chan struct{}), doneCh: make(chan struct{}),
	}, nil
}

func (t *TrackSource) Track() *webrtc.TrackLocalStaticSample {
	return t.track
}

// Start spawns the produce loop, pacing emission to fpsTarget.
func (t *TrackSource) Start() {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()
	go t.run()
}

// Stop ends the produce loop and waits for it; a source that was never
// started has no loop to wait for.
func (t *TrackSource) Stop() {
	close(t.stopCh)
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if started {
		<-t.doneCh
	}
}

func (t *TrackSource) run() {
	defer close(t.doneCh)

	interval := time.Second / time.Duration(t.fpsTarget)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameCount int64

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			pixels, width, height := t.renderNext()
			encoded, err := t.encoder.Encode(pixels, width, height)
			if err != nil {
				continue
			}
			sample := media.Sample{
				Data:     encoded,
				Duration: interval,
			}
			_ = t.track.WriteSample(sample)
			frameCount++
		}
	}
}

// renderNext prefers a fresh dispatcher result, then (only when the
// dispatcher has no result at all) the latest capture frame, then the
// cache, then a synthetic frame.
func (t *TrackSource) renderNext() (pixels []byte, width, height int) {
	if result, ok := t.results.LatestResults(t.cameraID); ok {
		t.mu.Lock()
		isNew := result.ResultTimestamp > t.lastResultTS
		t.mu.Unlock()

		if isNew {
			overlaid := annotate.Overlay(result.AnnotatedPixels, result.Frame.Width, result.Frame.Height, t.cameraID, result.Detections)
			t.mu.Lock()
			t.lastRendered = overlaid
			t.lastResultTS = result.ResultTimestamp
			t.lastRenderAt = time.Now()
			t.mu.Unlock()
			return overlaid, result.Frame.Width, result.Frame.Height
		}
	} else if frame, ok := t.capture.LatestFrame(t.cameraID); ok {
		overlaid := annotate.Overlay(frame.Pixels, frame.Width, frame.Height, t.cameraID, nil)
		t.mu.Lock()
		t.lastRendered = overlaid
		t.lastResultTS = frame.CaptureTimestamp
		t.lastRenderAt = time.Now()
		t.mu.Unlock()
		return overlaid, frame.Width, frame.Height
	}

	t.mu.Lock()
	cached := t.lastRendered
	cachedAt := t.lastRenderAt
	t.mu.Unlock()

	if cached != nil && time.Since(cachedAt) <= cacheTimeout {
		return cached, t.width, t.height
	}

	return annotate.NoSignal(t.width, t.height), t.width, t.height
}
