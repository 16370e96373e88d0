package store

import (
	"context"
	"sync"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// MemoryStore is an in-process Store used by tests; the server's
// pipeline always builds a PostgresStore. Shape
// follows the teacher's hand-rolled mock convention
// (internal/cameras/service_test.go's MockRepo).
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	detections []model.DetectionEventRecord
	media      []model.MediaRecord
	cameras    map[int]model.CameraConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cameras: make(map[int]model.CameraConfig)}
}

func (s *MemoryStore) PutCamera(cfg model.CameraConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras[cfg.CameraID] = cfg
}

func (s *MemoryStore) CreateDetection(ctx context.Context, e model.DetectionEventRecord) (model.DetectionEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.detections = append(s.detections, e)
	return e, nil
}

func (s *MemoryStore) CreateMedia(ctx context.Context, m model.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = append(s.media, m)
	return nil
}

func (s *MemoryStore) GetMediaVideoPath(ctx context.Context, detectionID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.media) - 1; i >= 0; i-- {
		m := s.media[i]
		if m.DetectionID == detectionID && m.MediaType == model.MediaVideo {
			return m.Path, true, nil
		}
	}
	return "", false, nil
}

func (s *MemoryStore) GetCamera(ctx context.Context, cameraID int) (model.CameraConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.cameras[cameraID]
	return cfg, ok, nil
}

// Detections returns a snapshot, used by tests to assert on persisted rows.
func (s *MemoryStore) Detections() []model.DetectionEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DetectionEventRecord, len(s.detections))
	copy(out, s.detections)
	return out
}

// Media returns a snapshot, used by tests to assert on persisted rows.
func (s *MemoryStore) Media() []model.MediaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MediaRecord, len(s.media))
	copy(out, s.media)
	return out
}
