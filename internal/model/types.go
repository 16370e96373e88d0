// Package model holds the data-model types shared across every core
// component: CameraConfig, Frame, AnnotatedFrame, BoundingBoxDetection,
// DetectionEventRecord and MediaRecord, per the data model section of
// the specification this module implements.
package model

import "time"

// CameraConfig identifies and configures one camera stream.
type CameraConfig struct {
	CameraID    int    `yaml:"camera_id" json:"camera_id"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	// URL is either a decimal integer ("local device index") or a
	// URL understood by the capture backend (rtsp://, file path, etc).
	URL        string `yaml:"url" json:"url"`
	FPSTarget  int    `yaml:"fps_target" json:"fps_target"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	BufferSize int    `yaml:"buffer_size" json:"buffer_size"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Location   string `yaml:"location" json:"location"`
	ZoneID     int    `yaml:"zone_id" json:"zone_id"`
}

// Frame is a single decoded image with capture metadata. Pixels are
// height x width x 3, 8-bit BGR, matching the convention of the
// capture backend this was grounded on.
type Frame struct {
	Pixels           []byte
	Width            int
	Height           int
	CameraID         int
	CaptureTimestamp float64 // unix seconds, monotonic-wall
	FrameNumber      int64   // starts at 1, strictly increasing per camera
}

// BoundingBoxDetection is one detector output. Transient, never persisted.
type BoundingBoxDetection struct {
	ClassName  string
	ClassID    int
	Confidence float64
	X1, Y1, X2, Y2 int
}

// AnnotatedFrame is a Frame plus detector output, produced by the
// inference dispatcher and owned by the per-camera annotated ring.
type AnnotatedFrame struct {
	Frame            Frame
	Detections       []BoundingBoxDetection
	AnnotatedPixels  []byte
	ResultTimestamp  float64
}

// MediaType distinguishes stored media kinds.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// DetectionEventRecord is the persisted form of an accepted detection.
type DetectionEventRecord struct {
	ID            int64
	CameraID      int
	Timestamp     float64
	DetectionType string
	Confidence    float64
	CreatedAt     time.Time
}

// MediaRecord is the persisted form of a stored still or clip.
type MediaRecord struct {
	ID          int64
	CameraID    int
	DetectionID int64
	MediaType   MediaType
	// Path is storage-relative, forward-slash normalized, and never
	// contains ".." after normalization.
	Path      string
	Timestamp float64
	Duration  *float64
	SizeBytes int64
}
