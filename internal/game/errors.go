// internal/game/errors.go
package game

import "fmt"

// Validation error codes reported back to the originating connection.
const (
	CodeNotPlayersTurn   = "not_players_turn"
	CodeActionsExhausted = "actions_exhausted"
	CodeCardNotFound     = "card_not_found"
	CodeInvalidKind      = "invalid_kind"
	CodeGameOver         = "game_over"
	CodeNotEnoughPlayers = "not_enough_players"
)

// ValidationError rejects an action without mutating state. It is local and
// non-fatal; only the acting player sees it.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown room or player reference.
type NotFoundError struct {
	Kind string // "room" or "player"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
