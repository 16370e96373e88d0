// Package viewer tracks active WebRTC viewer sessions per camera in
// Redis, so the WebRTC session manager can report live viewer counts
// and survive its own restarts without losing that bookkeeping.
// Grounded on internal/live/service.go's active-session Set pattern
// (its overlay-demand sorted set is not carried over), narrowed to what this
// specification's ViewerSession needs: no tenant scoping, no RBAC,
// no HLS/SFU response shaping.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SpherCodes/nexguard-surveillance/internal/metrics"
)

// SessionTTL is the expiry that every Register and Heartbeat sets on a
// camera's whole active set. Members have no expiry of their own: a
// peer that vanished without sending "disconnect" stays in the set
// until the set as a whole expires.
const SessionTTL = 2 * time.Minute

// Tracker records viewer sessions in Redis, keyed by camera and peer.
type Tracker struct {
	redis *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{redis: client}
}

func activeKey(cameraID int) string {
	return fmt.Sprintf("nexguard:viewers:active:%d", cameraID)
}

// Register creates a new peer ID for cameraID and marks it active.
func (t *Tracker) Register(ctx context.Context, cameraID int) (peerID string, err error) {
	peerID = uuid.New().String()
	key := activeKey(cameraID)

	pipe := t.redis.Pipeline()
	pipe.SAdd(ctx, key, peerID)
	pipe.Expire(ctx, key, SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	metrics.WebRTCViewersActive.WithLabelValues(itoa(cameraID)).Inc()
	return peerID, nil
}

// Heartbeat refreshes a peer's membership and the set's TTL.
func (t *Tracker) Heartbeat(ctx context.Context, cameraID int, peerID string) error {
	key := activeKey(cameraID)
	pipe := t.redis.Pipeline()
	pipe.SAdd(ctx, key, peerID)
	pipe.Expire(ctx, key, SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Unregister removes a peer from the active set. Per the decision
// recorded for this viewer-disconnect Open Question, this never
// signals the inference dispatcher — viewing and inference stay
// decoupled regardless of viewer count.
func (t *Tracker) Unregister(ctx context.Context, cameraID int, peerID string) error {
	if err := t.redis.SRem(ctx, activeKey(cameraID), peerID).Err(); err != nil {
		return err
	}
	metrics.WebRTCViewersActive.WithLabelValues(itoa(cameraID)).Dec()
	return nil
}

// Count returns the number of active viewers of a camera.
func (t *Tracker) Count(ctx context.Context, cameraID int) (int64, error) {
	return t.redis.SCard(ctx, activeKey(cameraID)).Result()
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
