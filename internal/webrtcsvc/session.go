package webrtcsvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v4"
)

// peerSession pairs a PeerConnection with the TrackSource feeding it.
// Grounded on the teacher's Nest-camera Session type (one peer
// connection, one outbound/inbound track, ICE state callbacks
// driving teardown) adapted from a receive-track to a send-track shape.
type peerSession struct {
	cameraID int
	peerID   string
	viewerID string

	pc     *webrtc.PeerConnection
	track  *TrackSource
	onDone func(cameraID int, peerID string)

	mu     sync.Mutex
	closed bool
}

func newPeerSession(iceServers []webrtc.ICEServer, cameraID int, peerID string, track *TrackSource, onDone func(int, string)) (*peerSession, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}

	if _, err := pc.AddTrack(track.Track()); err != nil {
		pc.Close()
		return nil, fmt.Errorf("adding track: %w", err)
	}

	s := &peerSession{cameraID: cameraID, peerID: peerID, pc: pc, track: track, onDone: onDone}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("[webrtc] camera=%d peer=%s ice state=%s", cameraID, peerID, state)
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateClosed {
			s.Close()
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed {
			s.Close()
		}
	})

	return s, nil
}

// negotiate sets the remote offer, creates and sets the local answer, and returns its SDP.
func (s *peerSession) negotiate(offerSDP string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	<-gatherComplete

	s.track.Start()
	return s.pc.LocalDescription().SDP, nil
}

func (s *peerSession) addICECandidate(candidate webrtc.ICECandidateInit) error {
	return s.pc.AddICECandidate(candidate)
}

// Close tears down the peer connection exactly once and notifies the manager.
func (s *peerSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.track.Stop()
	_ = s.pc.Close()
	if s.onDone != nil {
		s.onDone(s.cameraID, s.peerID)
	}
}
