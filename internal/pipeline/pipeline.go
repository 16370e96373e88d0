// Package pipeline composes the five core components — capture,
// inference, detection events, WebRTC sessions, and the media
// Range/transcode API — into a single value owned by cmd/server,
// replacing the teacher's package-level singleton wiring in
// cmd/server/main.go with one struct built once at startup and passed
// down by reference.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/SpherCodes/nexguard-surveillance/internal/authn"
	"github.com/SpherCodes/nexguard-surveillance/internal/capture"
	"github.com/SpherCodes/nexguard-surveillance/internal/config"
	"github.com/SpherCodes/nexguard-surveillance/internal/detect"
	"github.com/SpherCodes/nexguard-surveillance/internal/events"
	"github.com/SpherCodes/nexguard-surveillance/internal/inference"
	"github.com/SpherCodes/nexguard-surveillance/internal/mediahttp"
	"github.com/SpherCodes/nexguard-surveillance/internal/model"
	"github.com/SpherCodes/nexguard-surveillance/internal/notify"
	"github.com/SpherCodes/nexguard-surveillance/internal/store"
	"github.com/SpherCodes/nexguard-surveillance/internal/viewer"
	"github.com/SpherCodes/nexguard-surveillance/internal/webrtcsvc"
)

// Pipeline owns every long-lived component and the goroutines they run.
type Pipeline struct {
	Config *config.Config

	Store   store.Store
	Capture *capture.Manager
	Detect  *detect.ONNXDetector
	Infer   *inference.Dispatcher
	Events  *events.Manager
	Alerts  *notify.Pool
	Viewers *viewer.Tracker
	WebRTC  *webrtcsvc.Manager
	Media   *mediahttp.Handler
	Auth    authn.Authenticator

	redis          *redis.Client
	modelWatchStop chan struct{}
}

// cameraLookupAdapter satisfies webrtcsvc.CameraLookup off the capture
// manager's camera set, resolved through the Store instead (the
// capture manager keeps per-camera state privately; the Store is the
// shared source of camera resolution dimensions/fps).
type cameraLookupAdapter struct {
	st store.Store
}

func (a cameraLookupAdapter) CameraResolution(cameraID int) (int, int, int, bool) {
	cam, ok, err := a.st.GetCamera(context.Background(), cameraID)
	if err != nil || !ok {
		return 0, 0, 0, false
	}
	return cam.Width, cam.Height, cam.FPSTarget, true
}

// Build constructs every component in this order: Store -> Capture ->
// Detector -> alert sink and notify pool -> Viewer -> Dispatcher ->
// Events -> WebRTC -> Media -> Authenticator. The API router is built
// by the caller. Build starts the notify worker pool (which must be
// running before the first detection arrives) and, when a model path
// is configured, the model file watcher; nothing else is started.
func Build(cfg *config.Config) (*Pipeline, error) {
	st, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	captureMgr := capture.New(buildOpener(cfg), cfg.PreRollBufferSize)

	detector := detect.NewONNXDetector()
	modelWatchStop := make(chan struct{})
	if cfg.ModelPath != "" {
		if err := detector.LoadModel(cfg.ModelPath); err != nil {
			log.Printf("[pipeline] model load failed, starting without a loaded model: %v", err)
		}
		if err := detect.WatchModel(cfg.ModelPath, detector.LoadModel, modelWatchStop); err != nil {
			log.Printf("[pipeline] model watcher failed to start, hot-swap disabled: %v", err)
		}
	}

	sink := buildSink(cfg)
	alertPool := notify.NewPool(sink, 256, 4)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	viewerTracker := viewer.NewTracker(redisClient)

	dispatcher := inference.New(captureMgr, detector, nil, cfg.ConfThreshold, 4)

	eventsCfg := events.Config{
		StorageDir:          cfg.StorageDir,
		StorageImgSubdir:    cfg.StorageImgSubdir,
		StorageVideoSubdir:  cfg.StorageVideoSubdir,
		MinConfidence:       cfg.MinConfidence,
		RecordableTypes:     cfg.RecordableTypes,
		CooldownSeconds:     cfg.DetectionCooldown.Seconds(),
		ClipLeadingSeconds:  cfg.ClipLeadingSeconds.Seconds(),
		ClipTrailingSeconds: cfg.ClipTrailingSeconds.Seconds(),
		EnableAlerts:        cfg.EnableAlertNotifications,
	}
	eventsMgr := events.New(eventsCfg, st, alertPool, dispatcher)

	// The dispatcher needs the events manager as its EventRecorder, but
	// events.New needs the dispatcher as its ResultsSource: break the
	// cycle by constructing the dispatcher with a nil recorder and
	// patching it in, matching the teacher's two-phase wiring for
	// cyclic collaborators in cmd/server/main.go's NVR/health section.
	dispatcher.SetEventRecorder(eventsMgr)

	iceServers := cfg.ICEServers
	webrtcMgr := webrtcsvc.New(iceServers, dispatcher, captureMgr, cameraLookupAdapter{st: st}, webrtcsvc.PassthroughEncoder{}, viewerTracker)

	mediaHandler := mediahttp.NewHandler(st, cfg.StorageDir, nil)
	authenticator := authn.NewJWTAuthenticator(cfg.JWTSigningKey)

	return &Pipeline{
		Config:  cfg,
		Store:   st,
		Capture: captureMgr,
		Detect:  detector,
		Infer:   dispatcher,
		Events:  eventsMgr,
		Alerts:  alertPool,
		Viewers: viewerTracker,
		WebRTC:  webrtcMgr,
		Media:   mediaHandler,
		Auth:    authenticator,
		redis:   redisClient,

		modelWatchStop: modelWatchStop,
	}, nil
}

func buildStore(cfg *config.Config) (store.Store, error) {
	return store.NewPostgresStore(cfg.DatabaseURL, 512)
}

// buildOpener picks the capture.Opener named by Config.CaptureBackend,
// falling back to the synthetic source for an unrecognized value
// rather than refusing to start.
func buildOpener(cfg *config.Config) capture.Opener {
	switch cfg.CaptureBackend {
	case "synthetic":
		return capture.DefaultOpener
	case "ffmpeg", "":
		return capture.FFmpegOpener
	default:
		log.Printf("[pipeline] unknown CAPTURE_BACKEND %q, falling back to synthetic", cfg.CaptureBackend)
		return capture.DefaultOpener
	}
}

// buildSink prefers a webhook sink when one is configured, otherwise
// NATS, falling back to logging-only if neither is reachable or
// alerts are disabled entirely.
func buildSink(cfg *config.Config) notify.Sink {
	if !cfg.EnableAlertNotifications {
		return notify.LogSink{}
	}
	if cfg.AlertWebhookURL != "" {
		return notify.NewHTTPSink(cfg.AlertWebhookURL, cfg.AlertWebhookSecret)
	}
	sink, err := notify.NewNATSSink(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Printf("[pipeline] NATS connect failed, alerts will only be logged: %v", err)
		return notify.LogSink{}
	}
	return sink
}

// LoadCameras registers every configured camera with the capture
// manager and starts inference for enabled ones.
func (p *Pipeline) LoadCameras(cameras []model.CameraConfig) {
	var enabled []int
	for _, cam := range cameras {
		if err := p.Capture.Add(cam); err != nil {
			log.Printf("[pipeline] add camera %d failed: %v", cam.CameraID, err)
			continue
		}
		if cam.Enabled {
			enabled = append(enabled, cam.CameraID)
		}
	}
	p.Infer.StartProcessing(enabled...)
}

// Shutdown stops every background worker in reverse dependency order.
func (p *Pipeline) Shutdown() {
	close(p.modelWatchStop)
	p.Capture.StopAll()
	p.Infer.StopProcessing()
	p.Alerts.Stop()
	if err := p.redis.Close(); err != nil {
		log.Printf("[pipeline] redis close error: %v", err)
	}
	if closer, ok := p.Store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("[pipeline] store close error: %v", err)
		}
	}
	if err := p.Detect.Close(); err != nil {
		log.Printf("[pipeline] detector close error: %v", err)
	}
}
