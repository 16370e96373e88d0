package webrtcsvc

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

func deadlineNow() time.Time {
	return time.Now().Add(time.Second)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// signalMessage is the wire shape of every client->server message.
type signalMessage struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}

type answerMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ServeSignaling upgrades the request to a WebSocket and runs the
// per-viewer signaling loop: offer/answer exchange, trickled ICE
// candidates, and explicit disconnect. The caller
// resolves cameraID from the route and must have already validated
// it exists enough to decide whether to call this at all; an unknown
// camera is still rejected here with close code 1008 so CameraLookup
// stays the single source of truth.
func (m *Manager) ServeSignaling(w http.ResponseWriter, r *http.Request, cameraID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[webrtc] ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if _, _, _, ok := m.cameras.CameraResolution(cameraID); !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(1008, fmt.Sprintf("Camera %d not found", cameraID)),
			deadlineNow())
		return
	}

	peerID := conn.RemoteAddr().String()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.ClosePeer(cameraID, peerID)
			return
		}

		var msg signalMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(1002, "malformed signaling message"),
				deadlineNow())
			m.ClosePeer(cameraID, peerID)
			return
		}

		switch msg.Type {
		case "offer":
			answerSDP, err := m.CreateAnswer(cameraID, peerID, msg.SDP)
			if err != nil {
				log.Printf("[webrtc] negotiate failed camera=%d peer=%s: %v", cameraID, peerID, err)
				continue
			}
			if err := conn.WriteJSON(answerMessage{Type: "answer", SDP: answerSDP}); err != nil {
				m.ClosePeer(cameraID, peerID)
				return
			}
		case "ice-candidate":
			if msg.Candidate == nil {
				log.Printf("[webrtc] empty ice candidate from camera=%d peer=%s", cameraID, peerID)
				continue
			}
			if err := m.AddICECandidate(cameraID, peerID, *msg.Candidate); err != nil {
				log.Printf("[webrtc] malformed ice candidate camera=%d peer=%s: %v", cameraID, peerID, err)
			}
		case "disconnect":
			m.ClosePeer(cameraID, peerID)
			return
		default:
			log.Printf("[webrtc] unknown signaling type %q from camera=%d peer=%s", msg.Type, cameraID, peerID)
		}
	}
}
