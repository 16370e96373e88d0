// Package capture implements the capture manager: one worker per
// camera, each owning a capture handle and pushing decoded frames into
// a bounded, drop-oldest per-camera FrameRing. Grounded on
// original_source video_capture.py's VideoCapture class and on
// monitor.go's worker-pool lifecycle conventions (stop flags, status
// cache). Frame pacing checks the elapsed time against the frame
// interval and sleeps 1ms between checks.
package capture

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

// CameraStatus is the read-only snapshot returned by Manager.Status.
type CameraStatus struct {
	Enabled      bool
	Running      bool
	FPSObserved  float64
	BufferUsage  float64 // percent, 0-100
	FrameCount   int64
}

type cameraState struct {
	mu     sync.Mutex
	config model.CameraConfig

	ringBuf   *ring.Ring[model.Frame]
	preroll   *ring.Ring[model.Frame]

	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	frameCount    int64
	lastFrameTime time.Time
	fpsObserved   float64
}

// Manager owns the set of CameraConfigs and their capture workers.
type Manager struct {
	mu      sync.Mutex
	cameras map[int]*cameraState
	open    Opener

	preRollSize int
}

// New creates a Manager. opener is the FrameSource factory; pass nil to
// use DefaultOpener. preRollFrames sizes the pre-roll ring each camera
// keeps alongside its main ring (see SPEC_FULL.md Open Question #2).
func New(opener Opener, preRollFrames int) *Manager {
	if opener == nil {
		opener = DefaultOpener
	}
	if preRollFrames <= 0 {
		preRollFrames = 1
	}
	return &Manager{
		cameras:     make(map[int]*cameraState),
		open:        opener,
		preRollSize: preRollFrames,
	}
}

// Add registers a new camera config. Returns AlreadyExists if camera_id is taken.
func (m *Manager) Add(cfg model.CameraConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cameras[cfg.CameraID]; exists {
		return nexerr.New(nexerr.AlreadyExists, "camera already registered")
	}

	cs := &cameraState{
		config:  cfg,
		ringBuf: ring.New[model.Frame](cfg.BufferSize),
		preroll: ring.New[model.Frame](m.preRollSize),
	}
	m.cameras[cfg.CameraID] = cs

	if cfg.Enabled {
		m.startLocked(cs)
	}
	return nil
}

// Update stops the running worker (if any), swaps the config, resizes
// the ring if buffer_size changed (the ring is emptied either way), and
// restarts the worker iff enabled.
func (m *Manager) Update(cfg model.CameraConfig) error {
	m.mu.Lock()
	cs, exists := m.cameras[cfg.CameraID]
	m.mu.Unlock()
	if !exists {
		return nexerr.New(nexerr.NotFound, "camera not registered")
	}

	m.stopAndWait(cs)

	cs.mu.Lock()
	oldSize := cs.config.BufferSize
	cs.config = cfg
	if cfg.BufferSize != oldSize {
		cs.ringBuf = ring.New[model.Frame](cfg.BufferSize)
	} else {
		cs.ringBuf.Clear()
	}
	cs.preroll.Clear()
	cs.frameCount = 0
	cs.mu.Unlock()

	if cfg.Enabled {
		m.mu.Lock()
		m.startLocked(cs)
		m.mu.Unlock()
	}
	return nil
}

// Remove stops the worker, releases the capture handle, and deletes all
// per-camera state.
func (m *Manager) Remove(cameraID int) error {
	m.mu.Lock()
	cs, exists := m.cameras[cameraID]
	if !exists {
		m.mu.Unlock()
		return nexerr.New(nexerr.NotFound, "camera not registered")
	}
	delete(m.cameras, cameraID)
	m.mu.Unlock()

	m.stopAndWait(cs)
	return nil
}

// Start is idempotent: starting an already-running camera is a no-op.
func (m *Manager) Start(cameraID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, exists := m.cameras[cameraID]
	if !exists {
		return nexerr.New(nexerr.NotFound, "camera not registered")
	}
	m.startLocked(cs)
	return nil
}

// Stop is idempotent: stopping an already-stopped camera is a no-op.
func (m *Manager) Stop(cameraID int) error {
	m.mu.Lock()
	cs, exists := m.cameras[cameraID]
	m.mu.Unlock()
	if !exists {
		return nexerr.New(nexerr.NotFound, "camera not registered")
	}
	m.stopAndWait(cs)
	return nil
}

// StartAll starts every registered camera's worker (idempotent per camera).
func (m *Manager) StartAll() {
	m.mu.Lock()
	states := make([]*cameraState, 0, len(m.cameras))
	for _, cs := range m.cameras {
		states = append(states, cs)
	}
	for _, cs := range states {
		m.startLocked(cs)
	}
	m.mu.Unlock()
}

// StopAll stops every registered camera's worker.
func (m *Manager) StopAll() {
	m.mu.Lock()
	states := make([]*cameraState, 0, len(m.cameras))
	for _, cs := range m.cameras {
		states = append(states, cs)
	}
	m.mu.Unlock()
	for _, cs := range states {
		m.stopAndWait(cs)
	}
}

// IsActive reports whether the camera's worker is currently running.
func (m *Manager) IsActive(cameraID int) bool {
	m.mu.Lock()
	cs, exists := m.cameras[cameraID]
	m.mu.Unlock()
	if !exists {
		return false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.running
}

// LatestFrame returns the newest frame currently in the ring without
// removing it, or ok=false if empty or the camera is unknown.
func (m *Manager) LatestFrame(cameraID int) (model.Frame, bool) {
	m.mu.Lock()
	cs, exists := m.cameras[cameraID]
	m.mu.Unlock()
	if !exists {
		return model.Frame{}, false
	}
	return cs.ringBuf.Latest()
}

// PreRollFrames returns a snapshot of the pre-roll ring, oldest first.
func (m *Manager) PreRollFrames(cameraID int) []model.Frame {
	m.mu.Lock()
	cs, exists := m.cameras[cameraID]
	m.mu.Unlock()
	if !exists {
		return nil
	}
	return cs.preroll.Snapshot()
}

// Status returns a snapshot of every registered camera's observable state.
func (m *Manager) Status() map[int]CameraStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int]CameraStatus, len(m.cameras))
	for id, cs := range m.cameras {
		cs.mu.Lock()
		out[id] = CameraStatus{
			Enabled:     cs.config.Enabled,
			Running:     cs.running,
			FPSObserved: cs.fpsObserved,
			BufferUsage: 100 * float64(cs.ringBuf.Size()) / float64(cs.ringBuf.Capacity()),
			FrameCount:  cs.frameCount,
		}
		cs.mu.Unlock()
	}
	return out
}

// startLocked starts cs's worker if not already running. Caller holds m.mu.
func (m *Manager) startLocked(cs *cameraState) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.running {
		return
	}
	cs.running = true
	cs.stopCh = make(chan struct{})
	cs.doneCh = make(chan struct{})
	go m.runWorker(cs, cs.stopCh, cs.doneCh)
}

// stopAndWait signals the worker to stop and joins it with a 3s
// timeout; on timeout the worker is detached (it releases its handle
// on its next loop iteration).
func (m *Manager) stopAndWait(cs *cameraState) {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	stopCh, doneCh := cs.stopCh, cs.doneCh
	cs.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(3 * time.Second):
		log.Printf("[capture] camera %d worker did not stop within 3s, detaching", cs.config.CameraID)
	}
}

// runWorker opens the camera's source with retry, then reads frames
// at its configured fps, reopening the source if a read fails.
func (m *Manager) runWorker(cs *cameraState, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	cs.mu.Lock()
	cfg := cs.config
	cs.mu.Unlock()

	src, err := openWithRetry(m.open, cfg.URL, cfg.Width, cfg.Height)
	if err != nil {
		log.Printf("[capture] camera %d open failed: %v", cfg.CameraID, nexerr.Wrap(nexerr.CaptureOpenFailed, "open", err))
		cs.mu.Lock()
		cs.running = false
		cs.mu.Unlock()
		metrics.CaptureOpenFailures.WithLabelValues(itoa(cfg.CameraID)).Inc()
		return
	}
	defer func() {
		if src != nil {
			src.Close()
		}
	}()

	interval := time.Second / time.Duration(maxInt(cfg.FPSTarget, 1))
	lastRead := time.Time{}

	for {
		select {
		case <-stopCh:
			cs.mu.Lock()
			cs.running = false
			cs.ringBuf.Clear()
			cs.mu.Unlock()
			return
		default:
		}

		if !lastRead.IsZero() && time.Since(lastRead) < interval {
			time.Sleep(time.Millisecond)
			continue
		}

		if src == nil {
			if src, err = m.open(cfg.URL, cfg.Width, cfg.Height); err != nil {
				src = nil
				time.Sleep(time.Second)
				continue
			}
		}

		pixels, w, h, err := src.Read()
		if err != nil {
			metrics.CaptureReadFailures.WithLabelValues(itoa(cfg.CameraID)).Inc()
			log.Printf("[capture] camera %d read failed: %v", cfg.CameraID, nexerr.Wrap(nexerr.CaptureReadFailed, "read", err))
			src.Close()
			src = nil
			time.Sleep(time.Second)
			continue
		}

		if w != cfg.Width || h != cfg.Height {
			pixels = resizeNearest(pixels, w, h, cfg.Width, cfg.Height)
			w, h = cfg.Width, cfg.Height
		}

		now := time.Now()
		cs.mu.Lock()
		cs.frameCount++
		frame := model.Frame{
			Pixels:           pixels,
			Width:            w,
			Height:           h,
			CameraID:         cfg.CameraID,
			CaptureTimestamp: float64(now.UnixNano()) / 1e9,
			FrameNumber:      cs.frameCount,
		}
		if !cs.lastFrameTime.IsZero() {
			dt := now.Sub(cs.lastFrameTime).Seconds()
			if dt > 0 {
				cs.fpsObserved = 1 / dt
			}
		}
		cs.lastFrameTime = now
		cs.mu.Unlock()

		cs.ringBuf.Push(frame)
		cs.preroll.Push(frame)
		metrics.CaptureFramesTotal.WithLabelValues(itoa(cfg.CameraID)).Inc()

		lastRead = now
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
