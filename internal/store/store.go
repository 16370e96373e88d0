// Package store defines the Store interface the core depends on (the
// relational data model and its migrations are an external
// collaborator the core never owns) plus a Postgres reference
// implementation. Interface shape grounded on the teacher's
// internal/data/repositories.go DBTX abstraction.
package store

import (
	"context"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// Store is the external collaborator the detection-event manager and
// media endpoint depend on. The core never shares a handle across
// workers — each call here is expected to use its own short-lived
// connection/transaction internally.
type Store interface {
	CreateDetection(ctx context.Context, e model.DetectionEventRecord) (model.DetectionEventRecord, error)
	CreateMedia(ctx context.Context, m model.MediaRecord) error
	GetMediaVideoPath(ctx context.Context, detectionID int64) (string, bool, error)
	GetCamera(ctx context.Context, cameraID int) (model.CameraConfig, bool, error)
}
