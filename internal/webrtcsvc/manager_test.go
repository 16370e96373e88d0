package webrtcsvc

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpherCodes/nexguard-surveillance/internal/model"
)

type fakeCameraLookup struct {
	width, height, fps int
	known              bool
}

func (f fakeCameraLookup) CameraResolution(cameraID int) (int, int, int, bool) {
	return f.width, f.height, f.fps, f.known
}

func clientOffer(t *testing.T) (*webrtc.PeerConnection, string) {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	require.NoError(t, err)

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(offer))
	<-gatherComplete

	return pc, pc.LocalDescription().SDP
}

func TestCreateAnswerUnknownCameraFails(t *testing.T) {
	m := New(nil, fakeResults{}, fakeCapture{}, fakeCameraLookup{known: false}, PassthroughEncoder{}, nil)

	_, offerSDP := clientOffer(t)
	_, err := m.CreateAnswer(42, "peer-1", offerSDP)
	assert.Error(t, err)
}

func TestCreateAnswerRegistersSessionAndCloseRemoves(t *testing.T) {
	lookup := fakeCameraLookup{width: 64, height: 48, fps: 10, known: true}
	results := fakeResults{ok: false}
	capture := fakeCapture{frame: model.Frame{Width: 64, Height: 48, Pixels: make([]byte, 64*48*3)}, ok: true}
	m := New(nil, results, capture, lookup, PassthroughEncoder{}, nil)

	_, offerSDP := clientOffer(t)
	answerSDP, err := m.CreateAnswer(7, "peer-1", offerSDP)
	require.NoError(t, err)
	assert.NotEmpty(t, answerSDP)
	assert.Equal(t, 1, m.ActiveViewers(7))

	m.ClosePeer(7, "peer-1")
	assert.Equal(t, 0, m.ActiveViewers(7))
}
