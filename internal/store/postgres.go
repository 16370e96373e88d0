package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/lib/pq"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// PostgresStore is the reference Store implementation, grounded on the
// teacher's DBTX pattern in internal/data/repositories.go. Camera
// lookups are cached with a bounded LRU
// (github.com/hashicorp/golang-lru/v2), wiring a teacher dependency
// that previously had no feature consumer.
type PostgresStore struct {
	db    *sql.DB
	cache *lru.Cache[int, model.CameraConfig]
}

// NewPostgresStore opens a connection pool and prepares the camera cache.
func NewPostgresStore(databaseURL string, cacheSize int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newPostgresStore(db, cacheSize)
}

// newPostgresStore builds a PostgresStore around an already-open *sql.DB,
// letting tests substitute a sqlmock connection without dialing a real
// database.
func newPostgresStore(db *sql.DB, cacheSize int) (*PostgresStore, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[int, model.CameraConfig](cacheSize)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateDetection(ctx context.Context, e model.DetectionEventRecord) (model.DetectionEventRecord, error) {
	const query = `
		INSERT INTO detection_events (camera_id, timestamp, detection_type, confidence, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	row := s.db.QueryRowContext(ctx, query, e.CameraID, e.Timestamp, e.DetectionType, e.Confidence)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return model.DetectionEventRecord{}, fmt.Errorf("create detection: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) CreateMedia(ctx context.Context, m model.MediaRecord) error {
	const query = `
		INSERT INTO media_records (camera_id, detection_id, media_type, path, timestamp, duration, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, m.CameraID, m.DetectionID, string(m.MediaType), m.Path, m.Timestamp, m.Duration, m.SizeBytes)
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMediaVideoPath(ctx context.Context, detectionID int64) (string, bool, error) {
	const query = `
		SELECT path FROM media_records
		WHERE detection_id = $1 AND media_type = 'video'
		ORDER BY timestamp DESC LIMIT 1`

	var path string
	err := s.db.QueryRowContext(ctx, query, detectionID).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get media video path: %w", err)
	}
	return path, true, nil
}

func (s *PostgresStore) GetCamera(ctx context.Context, cameraID int) (model.CameraConfig, bool, error) {
	if cfg, ok := s.cache.Get(cameraID); ok {
		return cfg, true, nil
	}

	const query = `
		SELECT camera_id, display_name, url, fps_target, width, height, buffer_size, enabled, location, zone_id
		FROM cameras WHERE camera_id = $1`

	var cfg model.CameraConfig
	err := s.db.QueryRowContext(ctx, query, cameraID).Scan(
		&cfg.CameraID, &cfg.DisplayName, &cfg.URL, &cfg.FPSTarget, &cfg.Width, &cfg.Height,
		&cfg.BufferSize, &cfg.Enabled, &cfg.Location, &cfg.ZoneID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CameraConfig{}, false, nil
	}
	if err != nil {
		return model.CameraConfig{}, false, fmt.Errorf("get camera: %w", err)
	}

	s.cache.Add(cameraID, cfg)
	return cfg, true, nil
}
