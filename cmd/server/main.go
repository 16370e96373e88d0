package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpherCodes/nexguard-surveillance/internal/api"
	"github.com/SpherCodes/nexguard-surveillance/internal/config"
	"github.com/SpherCodes/nexguard-surveillance/internal/pipeline"
	"github.com/SpherCodes/nexguard-surveillance/internal/platform/paths"
)

func main() {
	// 1. Platform paths
	if err := paths.EnsureDirs(); err != nil {
		log.Fatalf("platform init error: %v", err)
	}

	// 2. Config
	cfg := config.Load()

	// 3. Pipeline
	pl, err := pipeline.Build(cfg)
	if err != nil {
		log.Fatalf("pipeline build error: %v", err)
	}

	cameraListPath := paths.ResolveConfigPath(os.Getenv("NEXGUARD_CAMERA_LIST"))
	cameras, err := config.LoadCameraList(cameraListPath, cfg)
	if err != nil {
		log.Printf("camera list load error (%s), starting with no cameras: %v", cameraListPath, err)
	} else {
		pl.LoadCameras(cameras)
	}

	// 4. Routes
	handler := api.NewRouter(pl.WebRTC, pl.Media, pl.Auth)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	go func() {
		log.Printf("starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// 5. Wait for interrupt, then shut down gracefully.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println()
	log.Println("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	pl.Shutdown()
	log.Println("server stopped")
}
