// Package events implements the detection-event manager: the
// recording policy, cooldown filter, annotated-still writer, and
// post-event clip recorder. Grounded line-for-line on
// original_source/backend/app/utils/detection_manager.py.
package events

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"
	"time"

	"github.com/SpherCodes/nexguard-surveillance/internal/annotate"
	"github.com/SpherCodes/nexguard-surveillance/internal/metrics"
	"github.com/SpherCodes/nexguard-surveillance/internal/model"
	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
	"github.com/SpherCodes/nexguard-surveillance/internal/platform/paths"
	"github.com/SpherCodes/nexguard-surveillance/internal/store"
)

// ResultsSource is the subset of the inference dispatcher the clip
// recorder polls for frames while a recording is active.
type ResultsSource interface {
	LatestResults(cameraID int) (model.AnnotatedFrame, bool)
}

// AlertEnqueuer is the subset of notify.Pool the manager depends on.
type AlertEnqueuer interface {
	Enqueue(detection model.DetectionEventRecord, camera model.CameraConfig)
}

// Config holds the recording-policy and clip-bracket tunables named in
// the external-interfaces configuration surface.
type Config struct {
	StorageDir          string
	StorageImgSubdir    string
	StorageVideoSubdir  string
	MinConfidence       float64
	RecordableTypes     map[string]bool
	CooldownSeconds     float64
	ClipLeadingSeconds  float64
	ClipTrailingSeconds float64
	EnableAlerts        bool
	ClipFPS             int
}

type activeRecording struct {
	startTime        float64
	endTime          float64
	triggerTimestamp float64
	detectionID      int64
	cameraID         int
	outputPath       string
	relPath          string
}

// Manager applies the recording policy and cooldown filter to each
// detection, persists accepted ones, and drives the post-event clip
// recorder.
type Manager struct {
	cfg     Config
	store   store.Store
	alerts  AlertEnqueuer
	results ResultsSource

	cooldownMu sync.Mutex
	cooldown   map[string]float64

	recordingMu      sync.Mutex
	activeRecordings map[int]*activeRecording
}

func New(cfg Config, st store.Store, alerts AlertEnqueuer, results ResultsSource) *Manager {
	if cfg.ClipFPS <= 0 {
		cfg.ClipFPS = 20
	}
	return &Manager{
		cfg:              cfg,
		store:            st,
		alerts:           alerts,
		results:          results,
		cooldown:         make(map[string]float64),
		activeRecordings: make(map[int]*activeRecording),
	}
}

func cooldownKey(cameraID int, class string) string {
	return fmt.Sprintf("%d_%s", cameraID, class)
}

func (m *Manager) shouldRecord(detection model.BoundingBoxDetection) bool {
	if detection.Confidence < m.cfg.MinConfidence {
		return false
	}
	return m.cfg.RecordableTypes[detection.ClassName]
}

// isInCooldownAndUpdate performs the atomic check-and-update under
// cooldownMu: returns true (and leaves the table unchanged) if the
// event is suppressed; otherwise updates the table to now and returns false.
func (m *Manager) isInCooldownAndUpdate(cameraID int, class string, now float64) bool {
	key := cooldownKey(cameraID, class)
	m.cooldownMu.Lock()
	defer m.cooldownMu.Unlock()

	last, seen := m.cooldown[key]
	if seen && now-last < m.cfg.CooldownSeconds {
		return true
	}
	m.cooldown[key] = now
	return false
}

// Record is the hot-loop entry point: called synchronously by the
// inference dispatcher for every detection. Must stay non-blocking on
// the happy path — persistence runs inline (matching the source, which
// writes synchronously within the calling thread) but every disk/DB
// call here is local and fast; the only asynchronous work is the
// recording task and alert dispatch.
func (m *Manager) Record(cameraID int, frame model.Frame, detection model.BoundingBoxDetection) {
	if !m.shouldRecord(detection) {
		return
	}

	now := frame.CaptureTimestamp
	if m.isInCooldownAndUpdate(cameraID, detection.ClassName, now) {
		metrics.DetectionCooldownRejectedTotal.WithLabelValues(itoa(cameraID), detection.ClassName).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	record := model.DetectionEventRecord{
		CameraID:      cameraID,
		Timestamp:     now,
		DetectionType: detection.ClassName,
		Confidence:    detection.Confidence,
	}

	persisted, err := m.store.CreateDetection(ctx, record)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.StorePersistFailed, "create detection", err))
		return
	}
	metrics.DetectionEventsTotal.WithLabelValues(itoa(cameraID), detection.ClassName).Inc()

	camera, _, err := m.store.GetCamera(ctx, cameraID)
	displayName := camera.DisplayName
	if err != nil || displayName == "" {
		displayName = fmt.Sprintf("Cam%d", cameraID)
	}

	m.writeStill(ctx, persisted, frame, detection, displayName)
	m.startOrExtendRecording(persisted, cameraID, now, displayName)

	if m.cfg.EnableAlerts {
		m.alerts.Enqueue(persisted, camera)
	}
}

func dateParts(timestamp float64) (year, month, day string) {
	t := time.Unix(int64(timestamp), 0).UTC()
	return fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), fmt.Sprintf("%02d", t.Day())
}

func (m *Manager) writeStill(ctx context.Context, detection model.DetectionEventRecord, frame model.Frame, det model.BoundingBoxDetection, displayName string) {
	year, month, day := dateParts(detection.Timestamp)
	ts := int64(detection.Timestamp)
	filename := fmt.Sprintf("%d_%d_%s.jpg", detection.CameraID, ts, det.ClassName)
	relPath := path.Join(m.cfg.StorageImgSubdir, displayName, year, month, day, filename)

	normalized, err := paths.NormalizeRelative(relPath)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.MediaWriteFailed, "normalize image path", err))
		return
	}

	absPath, err := paths.SafeJoin(m.cfg.StorageDir, normalized)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.PathEscape, "resolve image path", err))
		return
	}

	timestampLabel := time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
	annotated := annotate.Frame(frame.Pixels, frame.Width, frame.Height, []model.BoundingBoxDetection{det}, timestampLabel)

	size, err := writeJPEG(absPath, annotated, frame.Width, frame.Height)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.MediaWriteFailed, "write still", err))
		return
	}

	media := model.MediaRecord{
		CameraID:    detection.CameraID,
		DetectionID: detection.ID,
		MediaType:   model.MediaImage,
		Path:        normalized,
		Timestamp:   detection.Timestamp,
		SizeBytes:   size,
	}
	if err := m.store.CreateMedia(ctx, media); err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.StorePersistFailed, "create image media", err))
	}
}

// startOrExtendRecording extends an existing active recording's
// end_time, or starts a new one and spawns its recording task.
func (m *Manager) startOrExtendRecording(detection model.DetectionEventRecord, cameraID int, triggerTimestamp float64, displayName string) {
	m.recordingMu.Lock()
	defer m.recordingMu.Unlock()

	if existing, ok := m.activeRecordings[cameraID]; ok {
		existing.endTime = triggerTimestamp + m.cfg.ClipTrailingSeconds
		return
	}

	year, month, day := dateParts(triggerTimestamp)
	filename := fmt.Sprintf("%d_%d_%d_clip.mp4", cameraID, int64(triggerTimestamp), detection.ID)
	relPath := path.Join(m.cfg.StorageVideoSubdir, displayName, year, month, day, filename)

	normalized, err := paths.NormalizeRelative(relPath)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.MediaWriteFailed, "normalize clip path", err))
		return
	}
	absPath, err := paths.SafeJoin(m.cfg.StorageDir, normalized)
	if err != nil {
		log.Printf("[events] %v", nexerr.Wrap(nexerr.PathEscape, "resolve clip path", err))
		return
	}

	rec := &activeRecording{
		startTime:        triggerTimestamp - m.cfg.ClipLeadingSeconds,
		endTime:          triggerTimestamp + m.cfg.ClipTrailingSeconds,
		triggerTimestamp: triggerTimestamp,
		detectionID:      detection.ID,
		cameraID:         cameraID,
		outputPath:       absPath,
		relPath:          normalized,
	}
	m.activeRecordings[cameraID] = rec
	metrics.RecordingsActive.Inc()

	go m.runRecordingTask(rec)
}

// runRecordingTask implements the recording task loop: poll the
// inference dispatcher's annotated ring until now >= end_time,
// collecting frames within the clip bracket, then finalize.
func (m *Manager) runRecordingTask(rec *activeRecording) {
	type buffered struct {
		pixels        []byte
		width, height int
		timestamp     float64
	}
	var frames []buffered

	for {
		m.recordingMu.Lock()
		endTime := rec.endTime
		m.recordingMu.Unlock()

		if nowSeconds() >= endTime {
			break
		}

		if result, ok := m.results.LatestResults(rec.cameraID); ok && result.ResultTimestamp >= rec.startTime {
			pixels := make([]byte, len(result.AnnotatedPixels))
			copy(pixels, result.AnnotatedPixels)
			frames = append(frames, buffered{
				pixels: pixels, width: result.Frame.Width, height: result.Frame.Height,
				timestamp: result.ResultTimestamp,
			})
		}
		time.Sleep(100 * time.Millisecond)
	}

	if len(frames) > 0 {
		plain := make([]clipFrame, len(frames))
		for i, f := range frames {
			plain[i] = clipFrame{pixels: f.pixels, width: f.width, height: f.height}
		}
		duration, size, err := encodeClip(rec.outputPath, plain, m.cfg.ClipFPS)
		if err != nil {
			metrics.ClipWriteFailuresTotal.WithLabelValues(itoa(rec.cameraID)).Inc()
			log.Printf("[events] %v", nexerr.Wrap(nexerr.MediaWriteFailed, "encode clip", err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			media := model.MediaRecord{
				CameraID:    rec.cameraID,
				DetectionID: rec.detectionID,
				MediaType:   model.MediaVideo,
				Path:        rec.relPath,
				Timestamp:   rec.triggerTimestamp,
				Duration:    &duration,
				SizeBytes:   size,
			}
			if err := m.store.CreateMedia(ctx, media); err != nil {
				log.Printf("[events] %v", nexerr.Wrap(nexerr.StorePersistFailed, "create video media", err))
			}
			cancel()
		}
	}

	m.recordingMu.Lock()
	delete(m.activeRecordings, rec.cameraID)
	m.recordingMu.Unlock()
	metrics.RecordingsActive.Dec()
}

// ActiveRecordingCount returns the number of in-flight recordings
// (test/observability helper, not part of the public contract).
func (m *Manager) ActiveRecordingCount() int {
	m.recordingMu.Lock()
	defer m.recordingMu.Unlock()
	return len(m.activeRecordings)
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
