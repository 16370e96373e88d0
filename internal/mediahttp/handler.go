// Package mediahttp serves stored detection clips to a browser
// <video> element with HTTP range support, transcoding on first
// access if the stored codec is not browser-friendly H.264. Grounded
// on original_source/backend/app/api/routes/detections.py for exact
// Range-header semantics and on the teacher's internal/hlsd/handlers.go
// for Go-side path resolution, CORS headers, and chi wiring.
package mediahttp

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SpherCodes/nexguard-surveillance/internal/metrics"
	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
	"github.com/SpherCodes/nexguard-surveillance/internal/platform/paths"
	"github.com/SpherCodes/nexguard-surveillance/internal/store"
)

const chunkSize = 1024 * 1024

// Handler serves /detections/media/video/{detection_id}.
type Handler struct {
	store      store.Store
	storageDir string
	transcoder Transcoder
}

func NewHandler(st store.Store, storageDir string, transcoder Transcoder) *Handler {
	if transcoder == nil {
		transcoder = FFProbeTranscoder{}
	}
	return &Handler{store: st, storageDir: storageDir, transcoder: transcoder}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/detections/media/video/{detection_id}", h.ServeVideo)
}

func (h *Handler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "detection_id")
	detectionID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.writeError(w, nexerr.New(nexerr.NotFound, "invalid detection id"))
		return
	}

	relPath, ok, err := h.store.GetMediaVideoPath(r.Context(), detectionID)
	if err != nil || !ok {
		metrics.MediaRangeRequestsTotal.WithLabelValues("404").Inc()
		http.Error(w, "video not found", http.StatusNotFound)
		return
	}

	absPath, err := paths.SafeJoin(h.storageDir, relPath)
	if err != nil {
		metrics.MediaRangeRequestsTotal.WithLabelValues("403").Inc()
		http.Error(w, "invalid media path", http.StatusForbidden)
		return
	}

	if _, err := os.Stat(absPath); err != nil {
		metrics.MediaRangeRequestsTotal.WithLabelValues("404").Inc()
		http.Error(w, "video file does not exist", http.StatusNotFound)
		return
	}

	servedPath := h.ensureWebFriendly(r.Context(), absPath)

	info, err := os.Stat(servedPath)
	if err != nil {
		metrics.MediaRangeRequestsTotal.WithLabelValues("404").Inc()
		http.Error(w, "video file does not exist", http.StatusNotFound)
		return
	}
	size := info.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "video/mp4")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		metrics.MediaRangeRequestsTotal.WithLabelValues("200").Inc()
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			serveRange(w, servedPath, 0, size-1)
		}
		return
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		metrics.MediaRangeRequestsTotal.WithLabelValues("416").Inc()
		http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	metrics.MediaRangeRequestsTotal.WithLabelValues("206").Inc()
	w.Header().Set("Content-Range", contentRange(start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		serveRange(w, servedPath, start, end)
	}
}

// ensureWebFriendly probes the stored file's codec and transcodes to
// {stem}_web.mp4 on first access if it is not already H.264. Probe or
// transcode failure falls back to serving the original file, per
// the "best-effort" failure semantics.
func (h *Handler) ensureWebFriendly(ctx context.Context, absPath string) string {
	webPath := webVariantPath(absPath)
	if _, err := os.Stat(webPath); err == nil {
		return webPath
	}

	codec, err := h.transcoder.ProbeCodec(ctx, absPath)
	if err != nil {
		log.Printf("[mediahttp] codec probe unavailable for %s: %v", absPath, err)
		return absPath
	}
	if strings.EqualFold(codec, "h264") {
		return absPath
	}

	if err := h.transcoder.Transcode(ctx, absPath, webPath); err != nil {
		metrics.MediaTranscodesTotal.WithLabelValues("error").Inc()
		log.Printf("[mediahttp] %v", nexerr.Wrap(nexerr.TranscodeFailed, "transcode to web mp4", err))
		return absPath
	}
	metrics.MediaTranscodesTotal.WithLabelValues("ok").Inc()
	return webPath
}

func webVariantPath(absPath string) string {
	if strings.HasSuffix(absPath, ".mp4") {
		return strings.TrimSuffix(absPath, ".mp4") + "_web.mp4"
	}
	return absPath + "_web.mp4"
}

func (h *Handler) writeError(w http.ResponseWriter, err *nexerr.Error) {
	http.Error(w, err.Message, nexerr.HTTPStatus(err.Kind))
}

func contentRange(start, end, size int64) string {
	return "bytes " + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10) + "/" + strconv.FormatInt(size, 10)
}

func serveRange(w http.ResponseWriter, path string, start, end int64) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return
	}

	remaining := end - start + 1
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		readSize := int64(len(buf))
		if remaining < readSize {
			readSize = remaining
		}
		n, err := f.Read(buf[:readSize])
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			remaining -= int64(n)
		}
		if err != nil {
			return
		}
	}
}
