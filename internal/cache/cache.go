// internal/cache/cache.go — optional Redis feed of applied game actions.
//
// The authoritative state is process memory; this feed only mirrors the
// turn history for external consumers (spectator tooling, audit). The
// server runs fine without it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const actionQueueKey = "dealbreaker:actions"

// ActionRecord is one applied action, in the order the room applied it.
type ActionRecord struct {
	RoomCode    string    `json:"roomCode"`
	ActionIndex int       `json:"actionIndex"`
	ActorID     uuid.UUID `json:"actorId"`
	ActionType  string    `json:"actionType"`
	CardName    string    `json:"cardName,omitempty"`
	Timestamp   int64     `json:"timestamp"`
}

// Publisher pushes action records onto a per-room Redis list.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher connects a publisher to the given Redis address. An empty
// address returns nil, which every caller treats as "feed disabled".
func NewPublisher(addr string) *Publisher {
	if addr == "" {
		return nil
	}
	return &Publisher{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping verifies connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// PublishAction appends the record to the room's action list.
func (p *Publisher) PublishAction(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	key := fmt.Sprintf("%s:%s", actionQueueKey, rec.RoomCode)
	if err := p.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("rpush action record: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
