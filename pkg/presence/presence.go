package presence

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const onlineKey = "online:users"

// Tracker keeps the set of users with at least one open live channel in a
// Redis set, so other instances and the presence endpoint can see them.
// A nil Tracker is valid and does nothing, for deployments without Redis.
type Tracker struct {
	redis *redis.Client
}

func NewTracker(addr string) *Tracker {
	if addr == "" {
		return nil
	}
	return &Tracker{redis: redis.NewClient(&redis.Options{Addr: addr})}
}

// Connected marks userID online. Best-effort: Redis errors are logged and
// swallowed, presence never affects delivery.
func (t *Tracker) Connected(ctx context.Context, userID string) {
	if t == nil {
		return
	}
	if err := t.redis.SAdd(ctx, onlineKey, userID).Err(); err != nil {
		slog.Warn("failed to set presence", "user", userID, "err", err)
	}
}

// Disconnected marks userID offline. Called only when the user's last
// channel closes.
func (t *Tracker) Disconnected(ctx context.Context, userID string) {
	if t == nil {
		return
	}
	if err := t.redis.SRem(ctx, onlineKey, userID).Err(); err != nil {
		slog.Warn("failed to clear presence", "user", userID, "err", err)
	}
}

// Online lists the currently online user ids.
func (t *Tracker) Online(ctx context.Context) ([]string, error) {
	if t == nil {
		return nil, nil
	}
	return t.redis.SMembers(ctx, onlineKey).Result()
}

func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	return t.redis.Close()
}
