// internal/room/registry.go
package room

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dealbreaker/internal/cache"
	"dealbreaker/internal/game"
)

// Broadcaster delivers room events to connected clients. The transport layer
// implements it; rooms receive it as injected callbacks and never see sockets.
type Broadcaster interface {
	BroadcastToRoom(code string, ev Event)
	BroadcastToPlayer(playerID uuid.UUID, ev Event)
}

// Registry owns every live room. It is constructed once at process start and
// passed by reference; entries are removed when a room empties.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	turnTimeout time.Duration
	history     *cache.Publisher
	log         *logrus.Logger
	broadcaster Broadcaster
}

// SetBroadcaster wires the transport in. Must be called before any room is
// created.
func (reg *Registry) SetBroadcaster(b Broadcaster) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.broadcaster = b
}

// NewRegistry creates an empty registry.
func NewRegistry(turnTimeout time.Duration, history *cache.Publisher, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		turnTimeout: turnTimeout,
		history:     history,
		log:         log,
	}
}

// Create allocates a room under a fresh 8-character code.
func (reg *Registry) Create() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		code = newRoomCode()
		if _, taken := reg.rooms[code]; !taken {
			break
		}
	}
	r := New(Options{
		Code:        code,
		TurnTimeout: reg.turnTimeout,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		History:     reg.history,
		Logger:      reg.log,
	})
	if b := reg.broadcaster; b != nil {
		r.BroadcastFn = func(ev Event) { b.BroadcastToRoom(code, ev) }
		r.BroadcastToPlayerFn = b.BroadcastToPlayer
	}
	reg.rooms[code] = r
	reg.log.WithField("room", code).Info("room created")
	return r
}

// Get looks up a room by code.
func (reg *Registry) Get(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, &game.NotFoundError{Kind: "room", ID: code}
	}
	return r, nil
}

// RemoveIfEmpty deletes the room when its last participant is gone and
// reports whether it was removed.
func (reg *Registry) RemoveIfEmpty(code string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	if !ok || !r.Empty() {
		return false
	}
	delete(reg.rooms, code)
	reg.log.WithField("room", code).Info("room removed")
	return true
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// newRoomCode derives a short join code from a uuid, the uppercased first
// block, e.g. "9F3C21AB".
func newRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
