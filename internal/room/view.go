// internal/room/view.go — redacted views for broadcast payloads.
package room

import (
	"time"

	"github.com/google/uuid"

	"dealbreaker/internal/game"
)

// ParticipantView is the public record of a seated participant.
type ParticipantView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IsHost  bool      `json:"isHost"`
	IsReady bool      `json:"isReady"`
}

// RoomView is the public snapshot of a room used by lobby events and the
// HTTP directory lookup.
type RoomView struct {
	Code       string            `json:"code"`
	Phase      string            `json:"phase"`
	MaxPlayers int               `json:"maxPlayers"`
	Players    []ParticipantView `json:"players"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// GamePlayerView is one player's state as every room member may see it:
// banks and property buckets are on the table, hands are a count only.
type GamePlayerView struct {
	ID            uuid.UUID                          `json:"id"`
	Name          string                             `json:"name"`
	HandSize      int                                `json:"handSize"`
	Bank          []game.Card                        `json:"bank"`
	Properties    map[game.PropertyColor][]game.Card `json:"properties"`
	CompleteSets  int                                `json:"completeSets"`
	IsCurrentTurn bool                               `json:"isCurrentTurn"`
	Connected     bool                               `json:"connected"`
}

// GameView is the broadcast form of game state. It never carries hand
// contents; those travel only in private hand_updated events.
type GameView struct {
	ID                   uuid.UUID        `json:"id"`
	Players              []GamePlayerView `json:"players"` // seat order
	CurrentPlayerID      uuid.UUID        `json:"currentPlayerId"`
	CurrentPlayerActions int              `json:"currentPlayerActions"`
	MaxActionsPerTurn    int              `json:"maxActionsPerTurn"`
	DeckSize             int              `json:"deckSize"`
	DiscardSize          int              `json:"discardSize"`
	DiscardTop           *game.Card       `json:"discardTop,omitempty"`
	Phase                game.Phase       `json:"phase"`
	WinnerID             *uuid.UUID       `json:"winnerId,omitempty"`
}

// buildGameView projects the authoritative state into its public form.
// Assumes the room lock is held.
func (r *Room) buildGameView() GameView {
	g := r.game
	v := GameView{
		ID:                   g.ID,
		CurrentPlayerID:      g.Seats[g.CurrentPlayerIndex],
		CurrentPlayerActions: g.CurrentPlayerActions,
		MaxActionsPerTurn:    g.MaxActionsPerTurn,
		DeckSize:             len(g.Deck),
		DiscardSize:          len(g.DiscardPile),
		Phase:                g.Phase,
	}
	if len(g.DiscardPile) > 0 {
		top := g.DiscardPile[len(g.DiscardPile)-1]
		v.DiscardTop = &top
	}
	if g.Winner != nil {
		id := g.Winner.ID
		v.WinnerID = &id
	}
	v.Players = make([]GamePlayerView, 0, len(g.Seats))
	for i, seatID := range g.Seats {
		p := g.Players[seatID]
		v.Players = append(v.Players, GamePlayerView{
			ID:            p.ID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			Bank:          p.Bank,
			Properties:    p.Properties,
			CompleteSets:  p.CompleteSets,
			IsCurrentTurn: i == g.CurrentPlayerIndex && g.Phase == game.PhasePlaying,
			Connected:     r.isConnected(seatID),
		})
	}
	return v
}

// buildRoomView snapshots the lobby-facing room state.
// Assumes the room lock is held.
func (r *Room) buildRoomView() RoomView {
	v := RoomView{
		Code:       r.code,
		Phase:      string(r.phase),
		MaxPlayers: r.maxPlayers,
		CreatedAt:  r.createdAt,
		Players:    make([]ParticipantView, 0, len(r.participants)),
	}
	for _, p := range r.participants {
		v.Players = append(v.Players, ParticipantView{
			ID:      p.ID,
			Name:    p.Name,
			IsHost:  p.IsHost,
			IsReady: p.IsReady,
		})
	}
	return v
}
