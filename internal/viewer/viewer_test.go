package viewer

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTracker(client)
}

func TestRegisterThenCount(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	peerID, err := tr.Register(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, peerID)

	count, err := tr.Count(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMultipleViewersCounted(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Register(ctx, 5)
	require.NoError(t, err)
	_, err = tr.Register(ctx, 5)
	require.NoError(t, err)

	count, err := tr.Count(ctx, 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestUnregisterRemovesViewer(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	peerID, err := tr.Register(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, tr.Unregister(ctx, 2, peerID))

	count, err := tr.Count(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	peerID, err := tr.Register(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, tr.Heartbeat(ctx, 3, peerID))

	count, err := tr.Count(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestCountForUnknownCameraIsZero(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	count, err := tr.Count(ctx, 999)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}
