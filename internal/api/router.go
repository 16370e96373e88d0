package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SpherCodes/nexguard-surveillance/internal/authn"
	"github.com/SpherCodes/nexguard-surveillance/internal/mediahttp"
	"github.com/SpherCodes/nexguard-surveillance/internal/webrtcsvc"
)

// NewRouter wires the full HTTP surface: the WebRTC signaling
// WebSocket and the media Range/transcode endpoint, both gated behind
// the Authenticator contract, which yields a principal from a token
// or cookie.
func NewRouter(webrtc *webrtcsvc.Manager, media *mediahttp.Handler, auth authn.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(auth))

		r.Get("/webrtc/{camera_id}", func(w http.ResponseWriter, r *http.Request) {
			cameraID, err := strconv.Atoi(chi.URLParam(r, "camera_id"))
			if err != nil {
				http.Error(w, "invalid camera id", http.StatusBadRequest)
				return
			}
			webrtc.ServeSignaling(w, r, cameraID)
		})

		media.Register(r)
	})

	return r
}
