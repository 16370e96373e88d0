package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// HTTPSink posts alerts to an arbitrary webhook URL. Adapted from the
// teacher's internal/sfu/client.go do() helper shape (shared-secret
// header, JSON body, status-code error wrapping) — pipeline.buildSink
// selects it ahead of NATS whenever a webhook URL is configured, since that file's
// original purpose (mediasoup SFU signaling) has no place in an
// in-process pion/webrtc architecture.
type HTTPSink struct {
	url          string
	sharedSecret string
	client       *http.Client
}

func NewHTTPSink(url, sharedSecret string) *HTTPSink {
	return &HTTPSink{
		url:          url,
		sharedSecret: sharedSecret,
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSink) SendAlert(ctx context.Context, detection model.DetectionEventRecord, camera model.CameraConfig) error {
	payload := alertPayload{
		DetectionID: int(detection.ID),
		CameraID:    detection.CameraID,
		CameraName:  camera.DisplayName,
		Type:        detection.DetectionType,
		Confidence:  detection.Confidence,
		Timestamp:   detection.Timestamp,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Auth", s.sharedSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert webhook error: status=%d", resp.StatusCode)
	}
	return nil
}

// LogSink only logs; used when EnableAlertNotifications is false or
// the NATS connection cannot be made.
type LogSink struct{}

func (LogSink) SendAlert(ctx context.Context, detection model.DetectionEventRecord, camera model.CameraConfig) error {
	log.Printf("[notify] alert not sent (no sink): detection=%d camera=%d type=%s", detection.ID, detection.CameraID, detection.DetectionType)
	return nil
}
