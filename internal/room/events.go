// internal/room/events.go
package room

import (
	"time"

	"github.com/google/uuid"

	"dealbreaker/internal/game"
)

// EventType labels a room-scoped message pushed to clients.
type EventType string

// Public events go to every room member; private events target one player.
const (
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventReadyChanged     EventType = "ready_changed"
	EventGameStarted      EventType = "game_started"
	EventGameStateUpdated EventType = "game_state_updated"
	EventTurnEnded        EventType = "turn_ended"
	EventGameEnded        EventType = "game_ended"
	EventChatMessage      EventType = "chat_message"
	EventHandUpdated      EventType = "hand_updated" // private
	EventError            EventType = "error"        // private
)

// Event is the envelope pushed over the synchronization channel. Payload is
// one of the *Payload structs below.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type PlayerJoinedPayload struct {
	Player ParticipantView `json:"player"`
	Room   RoomView        `json:"room"`
}

type PlayerLeftPayload struct {
	PlayerID   uuid.UUID `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Room       RoomView  `json:"room"`
}

type ReadyChangedPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
	IsReady  bool      `json:"isReady"`
	Room     RoomView  `json:"room"`
}

type GameStartedPayload struct {
	GameState GameView `json:"gameState"`
}

type GameStateUpdatedPayload struct {
	GameState GameView              `json:"gameState"`
	Action    game.ActionDescriptor `json:"action"`
}

type TurnEndedPayload struct {
	GameState    GameView  `json:"gameState"`
	NextPlayerID uuid.UUID `json:"nextPlayerId"`
	// TimedOut marks a turn the server ended for a stalled seat.
	TimedOut bool `json:"timedOut,omitempty"`
}

type GameEndedPayload struct {
	WinnerID   uuid.UUID `json:"winnerId"`
	WinnerName string    `json:"winnerName"`
	GameState  GameView  `json:"gameState"`
}

type ChatPayload struct {
	// PlayerID is nil for server-generated system lines.
	PlayerID   *uuid.UUID `json:"playerId,omitempty"`
	PlayerName string     `json:"playerName"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
	System     bool       `json:"system,omitempty"`
}

// HandPayload is the only place hand contents ever appear; it is delivered
// exclusively to the owning player's connection.
type HandPayload struct {
	Hand []game.Card `json:"hand"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
