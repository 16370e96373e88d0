package mediahttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
	"github.com/SpherCodes/nexguard-surveillance/internal/store"
)

type fakeTranscoder struct {
	codec        string
	probeErr     error
	transcodeErr error
}

func (f fakeTranscoder) ProbeCodec(ctx context.Context, path string) (string, error) {
	return f.codec, f.probeErr
}

func (f fakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if f.transcodeErr != nil {
		return f.transcodeErr
	}
	return os.WriteFile(outputPath, []byte("transcoded"), 0640)
}

func newTestServer(t *testing.T, storageDir string, st *store.MemoryStore, tc Transcoder) *httptest.Server {
	t.Helper()
	h := NewHandler(st, storageDir, tc)
	r := chi.NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeVideoNotFoundWhenNoMediaRecord(t *testing.T) {
	st := store.NewMemoryStore()
	dir := t.TempDir()
	srv := newTestServer(t, dir, st, fakeTranscoder{codec: "h264"})

	resp, err := http.Get(srv.URL + "/detections/media/video/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeVideoFullFileWithoutRange(t *testing.T) {
	st := store.NewMemoryStore()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0750))
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "clip.mp4"), content, 0640))

	_, err := st.CreateDetection(context.Background(), detectionRecord())
	require.NoError(t, err)
	require.NoError(t, st.CreateMedia(context.Background(), videoMediaRecord(1, "videos/clip.mp4")))

	srv := newTestServer(t, dir, st, fakeTranscoder{codec: "h264"})

	resp, err := http.Get(srv.URL + "/detections/media/video/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "10", resp.Header.Get("Content-Length"))
}

func TestServeVideoRangeRequest(t *testing.T) {
	st := store.NewMemoryStore()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0750))
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "clip.mp4"), content, 0640))

	_, err := st.CreateDetection(context.Background(), detectionRecord())
	require.NoError(t, err)
	require.NoError(t, st.CreateMedia(context.Background(), videoMediaRecord(1, "videos/clip.mp4")))

	srv := newTestServer(t, dir, st, fakeTranscoder{codec: "h264"})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/detections/media/video/1", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=2-4")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	require.Equal(t, "bytes 2-4/10", resp.Header.Get("Content-Range"))
	require.Equal(t, "3", resp.Header.Get("Content-Length"))
}

func TestServeVideoMalformedRangeReturns416(t *testing.T) {
	st := store.NewMemoryStore()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "clip.mp4"), []byte("0123456789"), 0640))

	_, err := st.CreateDetection(context.Background(), detectionRecord())
	require.NoError(t, err)
	require.NoError(t, st.CreateMedia(context.Background(), videoMediaRecord(1, "videos/clip.mp4")))

	srv := newTestServer(t, dir, st, fakeTranscoder{codec: "h264"})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/detections/media/video/1", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=abc-def")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
}

func TestServeVideoTranscodesNonH264OnFirstAccess(t *testing.T) {
	st := store.NewMemoryStore()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "clip.mp4"), []byte("0123456789"), 0640))

	_, err := st.CreateDetection(context.Background(), detectionRecord())
	require.NoError(t, err)
	require.NoError(t, st.CreateMedia(context.Background(), videoMediaRecord(1, "videos/clip.mp4")))

	srv := newTestServer(t, dir, st, fakeTranscoder{codec: "hevc"})

	resp, err := http.Get(srv.URL + "/detections/media/video/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, statErr := os.Stat(filepath.Join(dir, "videos", "clip_web.mp4"))
	require.NoError(t, statErr)
}

func detectionRecord() model.DetectionEventRecord {
	return model.DetectionEventRecord{CameraID: 1, Timestamp: 1000, DetectionType: "person", Confidence: 0.9}
}

func videoMediaRecord(detectionID int64, path string) model.MediaRecord {
	return model.MediaRecord{CameraID: 1, DetectionID: detectionID, MediaType: model.MediaVideo, Path: path, Timestamp: 1000}
}
