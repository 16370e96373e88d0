// Package notify implements the NotificationSink external collaborator
// contract and a bounded worker pool that decouples alert dispatch
// from the inference hot loop: the hot loop enqueues via a
// non-blocking send and never waits on delivery.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/SpherCodes/nexguard-surveillance/internal/metrics"
	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

// Sink is the external collaborator the detection-event manager calls
// after persisting an accepted event.
type Sink interface {
	SendAlert(ctx context.Context, detection model.DetectionEventRecord, camera model.CameraConfig) error
}

type alertJob struct {
	detection model.DetectionEventRecord
	camera    model.CameraConfig
}

// Pool is a bounded worker pool feeding a Sink. Grounded on
// monitor.go's nvrWorkers/channelWorkers shape (fixed goroutine pool
// draining a bounded channel, non-blocking enqueue via select/default).
type Pool struct {
	sink  Sink
	queue chan alertJob
	stop  chan struct{}
}

// NewPool starts numWorkers goroutines draining a queue of the given capacity.
func NewPool(sink Sink, queueCapacity, numWorkers int) *Pool {
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	if numWorkers <= 0 {
		numWorkers = 4
	}
	p := &Pool{
		sink:  sink,
		queue: make(chan alertJob, queueCapacity),
		stop:  make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		go p.runWorker()
	}
	return p
}

// Enqueue is the non-blocking entry point the inference/event hot path
// calls. If the queue is full the alert is dropped and counted, never
// blocking the caller.
func (p *Pool) Enqueue(detection model.DetectionEventRecord, camera model.CameraConfig) {
	select {
	case p.queue <- alertJob{detection: detection, camera: camera}:
	default:
		metrics.NotificationsDroppedTotal.Inc()
		log.Printf("[notify] alert queue full, dropping detection %d", detection.ID)
	}
}

func (p *Pool) runWorker() {
	for {
		select {
		case <-p.stop:
			return
		case job := <-p.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := p.sink.SendAlert(ctx, job.detection, job.camera)
			cancel()
			if err != nil {
				metrics.NotificationsSentTotal.WithLabelValues("error").Inc()
				log.Printf("[notify] send alert failed for detection %d: %v", job.detection.ID, err)
				continue
			}
			metrics.NotificationsSentTotal.WithLabelValues("ok").Inc()
		}
	}
}

// Stop signals every worker to exit after the current job.
func (p *Pool) Stop() {
	close(p.stop)
}

// alertPayload is the JSON shape published to NATS.
type alertPayload struct {
	DetectionID int     `json:"detection_id"`
	CameraID    int     `json:"camera_id"`
	CameraName  string  `json:"camera_name"`
	Type        string  `json:"detection_type"`
	Confidence  float64 `json:"confidence"`
	Timestamp   float64 `json:"timestamp"`
}

// NATSSink publishes alerts to a subject, fire-and-forget: the core
// never waits on or retries a failed publish.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to a NATS server. Errors here are returned to
// the caller (typically at startup); the sink's own SendAlert never
// blocks the hot loop because it is only ever invoked from Pool workers.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Timeout(5*time.Second))
	if err != nil {
		return nil, err
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) SendAlert(ctx context.Context, detection model.DetectionEventRecord, camera model.CameraConfig) error {
	payload := alertPayload{
		DetectionID: int(detection.ID),
		CameraID:    detection.CameraID,
		CameraName:  camera.DisplayName,
		Type:        detection.DetectionType,
		Confidence:  detection.Confidence,
		Timestamp:   detection.Timestamp,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.subject, data)
}

func (s *NATSSink) Close() {
	s.conn.Close()
}
