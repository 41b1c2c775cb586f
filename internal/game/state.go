// internal/game/state.go
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle state of a game.
type Phase string

const (
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

const (
	// MaxActionsPerTurn is the play budget a seat gets before endTurn.
	MaxActionsPerTurn = 3
	// InitialHandSize is dealt to each seat at game start.
	InitialHandSize = 5
	// DrawPerTurn is drawn on endTurn and by Pass Go, capped by deck size.
	DrawPerTurn = 2
	// MinPlayers and MaxPlayers bound the seat count at game start.
	MinPlayers = 2
	MaxPlayers = 5
)

// Player is the authoritative per-participant record inside a game.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Hand order carries no rules meaning; it is kept stable for display.
	Hand       []Card                   `json:"hand"`
	Properties map[PropertyColor][]Card `json:"properties"`
	Bank       []Card                   `json:"bank"`
	// CompleteSets is derived; only the win evaluator writes it.
	CompleteSets int `json:"completeSets"`
}

// TurnRecord is one append-only entry in the game's action log.
type TurnRecord struct {
	PlayerID   uuid.UUID  `json:"playerId"`
	PlayerName string     `json:"playerName"`
	ActionKind string     `json:"actionKind"`
	Card       Card       `json:"card"`
	Timestamp  time.Time  `json:"timestamp"`
}

// GameState is the authoritative state of one room's game. It is created at
// game start, mutated only through PlayCard/EndTurn, and discarded with the
// room. Callers serialize access; GameState itself holds no lock.
type GameState struct {
	ID uuid.UUID `json:"id"`

	// Seats is the fixed turn order; Players is keyed by player id.
	Seats   []uuid.UUID              `json:"seats"`
	Players map[uuid.UUID]*Player    `json:"players"`

	CurrentPlayerIndex   int `json:"currentPlayerIndex"`
	CurrentPlayerActions int `json:"currentPlayerActions"`
	MaxActionsPerTurn    int `json:"maxActionsPerTurn"`

	// Deck is a stack: draws pop from the end.
	Deck        []Card `json:"-"`
	DiscardPile []Card `json:"discardPile"`

	Phase  Phase      `json:"phase"`
	Winner *Player    `json:"winner,omitempty"`

	TurnHistory []TurnRecord `json:"turnHistory"`

	deckSize int // original deck size, for the conservation invariant
}

// Seat describes a participant at the moment the game starts.
type Seat struct {
	ID   uuid.UUID
	Name string
}

// StartGame seats players in the given order, builds and shuffles the deck,
// and deals the initial hands round-robin. Fails when fewer than MinPlayers
// (or more than MaxPlayers) are seated.
func StartGame(id uuid.UUID, seated []Seat, rng *rand.Rand) (*GameState, error) {
	if len(seated) < MinPlayers {
		return nil, validationErr(CodeNotEnoughPlayers, "need at least %d players, have %d", MinPlayers, len(seated))
	}
	if len(seated) > MaxPlayers {
		return nil, validationErr(CodeNotEnoughPlayers, "at most %d players, have %d", MaxPlayers, len(seated))
	}

	deck := BuildDeck()
	Shuffle(deck, rng)

	g := &GameState{
		ID:                id,
		Seats:             make([]uuid.UUID, 0, len(seated)),
		Players:           make(map[uuid.UUID]*Player, len(seated)),
		MaxActionsPerTurn: MaxActionsPerTurn,
		Deck:              deck,
		DiscardPile:       []Card{},
		Phase:             PhasePlaying,
		deckSize:          len(deck),
	}
	for _, s := range seated {
		g.Seats = append(g.Seats, s.ID)
		g.Players[s.ID] = &Player{
			ID:         s.ID,
			Name:       s.Name,
			Hand:       []Card{},
			Properties: make(map[PropertyColor][]Card),
			Bank:       []Card{},
		}
	}

	// Deal round-robin, one card per seat per pass, stopping early if the
	// deck runs dry.
	for i := 0; i < InitialHandSize; i++ {
		for _, seatID := range g.Seats {
			if len(g.Deck) == 0 {
				return g, nil
			}
			g.Players[seatID].Hand = append(g.Players[seatID].Hand, g.popDeck())
		}
	}
	return g, nil
}

// CurrentPlayer returns the player whose turn it is.
func (g *GameState) CurrentPlayer() *Player {
	return g.Players[g.Seats[g.CurrentPlayerIndex]]
}

// TotalCards counts every card across deck, hands, banks, property buckets
// and discard. It equals the original deck size for the game's whole life.
func (g *GameState) TotalCards() int {
	n := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		n += len(p.Hand) + len(p.Bank)
		for _, bucket := range p.Properties {
			n += len(bucket)
		}
	}
	return n
}

// OriginalDeckSize reports the deck size at game start.
func (g *GameState) OriginalDeckSize() int { return g.deckSize }

// popDeck removes and returns the top card. Callers check len(g.Deck) first.
func (g *GameState) popDeck() Card {
	c := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	return c
}

// drawInto moves up to n cards from the deck into the player's hand and
// returns how many were actually drawn. No reshuffle from the discard pile:
// once the deck is exhausted, draws become no-ops.
func (g *GameState) drawInto(p *Player, n int) int {
	drawn := 0
	for i := 0; i < n && len(g.Deck) > 0; i++ {
		p.Hand = append(p.Hand, g.popDeck())
		drawn++
	}
	return drawn
}
