// Package webrtcsvc implements the WebRTC Session Manager: one
// PeerConnection per viewer, sourced from the inference dispatcher's
// annotated ring (or the capture ring, or a synthetic "No Signal"
// frame). Grounded on gdaybrice-gognestcli's internal/webrtc/session.go
// for the PeerConnection/ICE-callback/offer-answer shape and on
// original_source/backend/app/services/webrtc.py's RTCSessionManager
// for the per-camera/per-peer map lifecycle and track-source algorithm.
package webrtcsvc

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/SpherCodes/nexguard-surveillance/internal/nexerr"
)

// CameraLookup resolves a camera's streaming resolution/fps for a new track.
type CameraLookup interface {
	CameraResolution(cameraID int) (width, height, fpsTarget int, ok bool)
}

// ViewerTracker is the subset of viewer.Tracker the session manager
// depends on to keep ambient per-camera viewer counts, independent of
// the signaling peer ID the WebSocket layer assigns.
type ViewerTracker interface {
	Register(ctx context.Context, cameraID int) (string, error)
	Unregister(ctx context.Context, cameraID int, viewerID string) error
}

// Manager owns every active peer connection and its track source,
// indexed identically by camera then peer, matching the source's
// peer_connections/tracks maps.
type Manager struct {
	iceServers []webrtc.ICEServer
	results    ResultsSource
	capture    CaptureSource
	cameras    CameraLookup
	encoder    Encoder
	viewers    ViewerTracker

	mu       sync.Mutex
	sessions map[int]map[string]*peerSession
}

// New builds a Manager. viewers may be nil (viewer counting becomes a no-op).
func New(stunURLs []string, results ResultsSource, capture CaptureSource, cameras CameraLookup, encoder Encoder, viewers ViewerTracker) *Manager {
	servers := make([]webrtc.ICEServer, 0, len(stunURLs))
	for _, url := range stunURLs {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return &Manager{
		iceServers: servers,
		results:    results,
		capture:    capture,
		cameras:    cameras,
		encoder:    encoder,
		viewers:    viewers,
		sessions:   make(map[int]map[string]*peerSession),
	}
}

// CreateAnswer handles a client offer: builds a new peer connection
// and outbound track for (cameraID, peerID), negotiates, and returns
// the SDP answer to send back over the signaling socket.
func (m *Manager) CreateAnswer(cameraID int, peerID, offerSDP string) (string, error) {
	width, height, fps, ok := m.cameras.CameraResolution(cameraID)
	if !ok {
		return "", nexerr.New(nexerr.NotFound, fmt.Sprintf("camera %d not found", cameraID))
	}

	track, err := NewTrackSource(cameraID, width, height, fps, m.results, m.capture, m.encoder)
	if err != nil {
		return "", nexerr.Wrap(nexerr.PeerNegotiationFailed, "create track source", err)
	}

	session, err := newPeerSession(m.iceServers, cameraID, peerID, track, m.remove)
	if err != nil {
		return "", nexerr.Wrap(nexerr.PeerNegotiationFailed, "create peer connection", err)
	}

	answerSDP, err := session.negotiate(offerSDP)
	if err != nil {
		session.Close()
		return "", nexerr.Wrap(nexerr.PeerNegotiationFailed, "negotiate", err)
	}

	m.mu.Lock()
	if m.sessions[cameraID] == nil {
		m.sessions[cameraID] = make(map[string]*peerSession)
	}
	m.sessions[cameraID][peerID] = session
	m.mu.Unlock()

	if m.viewers != nil {
		viewerID, err := m.viewers.Register(context.Background(), cameraID)
		if err != nil {
			log.Printf("[webrtc] viewer register failed camera=%d peer=%s: %v", cameraID, peerID, err)
		} else {
			session.viewerID = viewerID
		}
	}

	return answerSDP, nil
}

// AddICECandidate applies a trickled candidate to an existing session.
// Malformed/unknown candidates are reported to the caller, who is
// expected to log and ignore per the signaling contract.
func (m *Manager) AddICECandidate(cameraID int, peerID string, candidate webrtc.ICECandidateInit) error {
	m.mu.Lock()
	session, ok := m.sessions[cameraID][peerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no session for camera=%d peer=%s", cameraID, peerID)
	}
	return session.addICECandidate(candidate)
}

// ClosePeer tears down one viewer's session explicitly (the
// "disconnect" signaling message, or WS teardown).
func (m *Manager) ClosePeer(cameraID int, peerID string) {
	m.mu.Lock()
	session, ok := m.sessions[cameraID][peerID]
	m.mu.Unlock()
	if ok {
		session.Close()
	}
}

// remove deletes a session from the map, pruning an empty per-camera
// sub-map, mirroring the source's map cleanup on close.
func (m *Manager) remove(cameraID int, peerID string) {
	m.mu.Lock()
	session, existed := m.sessions[cameraID][peerID]
	if peers, ok := m.sessions[cameraID]; ok {
		delete(peers, peerID)
		if len(peers) == 0 {
			delete(m.sessions, cameraID)
		}
	}
	m.mu.Unlock()

	if existed && m.viewers != nil && session.viewerID != "" {
		if err := m.viewers.Unregister(context.Background(), cameraID, session.viewerID); err != nil {
			log.Printf("[webrtc] viewer unregister failed camera=%d peer=%s: %v", cameraID, peerID, err)
		}
	}
}

// ActiveViewers returns the number of live peer sessions for a camera.
func (m *Manager) ActiveViewers(cameraID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[cameraID])
}
