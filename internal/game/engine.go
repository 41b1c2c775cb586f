// internal/game/engine.go — turn/action state machine.
package game

import (
	"time"

	"github.com/google/uuid"
)

// ActionDescriptor is the public summary of an applied action, safe to
// broadcast to every room member.
type ActionDescriptor struct {
	Type       string    `json:"type"` // money_played, property_played, action_played, pass_go
	PlayerID   uuid.UUID `json:"playerId"`
	Card       Card      `json:"card"`
	CardsDrawn int       `json:"cardsDrawn,omitempty"`
}

// PlayResult reports a successful PlayCard: the public descriptor plus the
// ids of players whose private state (hand) changed, for targeted sync.
type PlayResult struct {
	Action         ActionDescriptor
	UpdatedPlayers []uuid.UUID
}

// TurnResult reports a successful EndTurn.
type TurnResult struct {
	NextPlayerID   uuid.UUID
	CardsDrawn     int
	UpdatedPlayers []uuid.UUID
}

// PlayCard validates and applies one card play for actorID. Validation is
// strictly before mutation: a rejected play leaves the state untouched.
// extra carries kind-specific parameters (targets for future action effects);
// the discard-only baseline ignores it.
func (g *GameState) PlayCard(actorID, cardID uuid.UUID, extra map[string]interface{}) (*PlayResult, error) {
	if g.Phase == PhaseFinished {
		return nil, validationErr(CodeGameOver, "game is over")
	}
	actor, ok := g.Players[actorID]
	if !ok {
		return nil, &NotFoundError{Kind: "player", ID: actorID.String()}
	}
	if g.Seats[g.CurrentPlayerIndex] != actorID {
		return nil, validationErr(CodeNotPlayersTurn, "not your turn")
	}
	if g.CurrentPlayerActions >= g.MaxActionsPerTurn {
		return nil, validationErr(CodeActionsExhausted, "no more actions this turn")
	}
	idx := indexOfCard(actor.Hand, cardID)
	if idx < 0 {
		return nil, validationErr(CodeCardNotFound, "card not in hand")
	}
	card := actor.Hand[idx]

	var res *PlayResult
	switch card.Kind {
	case KindMoney:
		g.removeFromHand(actor, idx)
		actor.Bank = append(actor.Bank, card)
		res = &PlayResult{
			Action:         ActionDescriptor{Type: "money_played", PlayerID: actorID, Card: card},
			UpdatedPlayers: []uuid.UUID{actorID},
		}
	case KindProperty:
		g.removeFromHand(actor, idx)
		actor.Properties[card.Color] = append(actor.Properties[card.Color], card)
		res = &PlayResult{
			Action:         ActionDescriptor{Type: "property_played", PlayerID: actorID, Card: card},
			UpdatedPlayers: []uuid.UUID{actorID},
		}
	case KindAction:
		r, err := g.playActionCard(actor, card, idx)
		if err != nil {
			return nil, err
		}
		res = r
	default:
		return nil, validationErr(CodeInvalidKind, "unknown card kind %q", card.Kind)
	}

	g.CurrentPlayerActions++
	g.TurnHistory = append(g.TurnHistory, TurnRecord{
		PlayerID:   actorID,
		PlayerName: actor.Name,
		ActionKind: res.Action.Type,
		Card:       card,
		Timestamp:  time.Now(),
	})
	g.evaluateWin()
	return res, nil
}

// playActionCard dispatches on the action kind. Only Pass Go has a full
// effect; the remaining kinds resolve as a plain discard with no targeting,
// payment, or counter window.
func (g *GameState) playActionCard(actor *Player, card Card, idx int) (*PlayResult, error) {
	switch card.Action {
	case ActionPassGo:
		g.removeFromHand(actor, idx)
		g.DiscardPile = append(g.DiscardPile, card)
		drawn := g.drawInto(actor, DrawPerTurn)
		return &PlayResult{
			Action:         ActionDescriptor{Type: "pass_go", PlayerID: actor.ID, Card: card, CardsDrawn: drawn},
			UpdatedPlayers: []uuid.UUID{actor.ID},
		}, nil
	case ActionRent, ActionSlyDeal, ActionForcedDeal, ActionDebtCollector,
		ActionItsMyBirthday, ActionJustSayNo, ActionHouse, ActionHotel:
		// Discard-only baseline for these kinds.
		g.removeFromHand(actor, idx)
		g.DiscardPile = append(g.DiscardPile, card)
		return &PlayResult{
			Action:         ActionDescriptor{Type: "action_played", PlayerID: actor.ID, Card: card},
			UpdatedPlayers: []uuid.UUID{actor.ID},
		}, nil
	default:
		return nil, validationErr(CodeInvalidKind, "unknown action kind %q", card.Action)
	}
}

// EndTurn draws the turn-end cards for the current seat, then rotates to the
// next seat and resets the action budget.
func (g *GameState) EndTurn(actorID uuid.UUID) (*TurnResult, error) {
	if g.Phase == PhaseFinished {
		return nil, validationErr(CodeGameOver, "game is over")
	}
	actor, ok := g.Players[actorID]
	if !ok {
		return nil, &NotFoundError{Kind: "player", ID: actorID.String()}
	}
	if g.Seats[g.CurrentPlayerIndex] != actorID {
		return nil, validationErr(CodeNotPlayersTurn, "not your turn")
	}

	drawn := g.drawInto(actor, DrawPerTurn)
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Seats)
	g.CurrentPlayerActions = 0

	next := g.Seats[g.CurrentPlayerIndex]
	return &TurnResult{
		NextPlayerID:   next,
		CardsDrawn:     drawn,
		UpdatedPlayers: []uuid.UUID{actorID, next},
	}, nil
}

// evaluateWin recomputes CompleteSets for every player and ends the game when
// someone holds WinningSets. Seat order breaks ties: the walk is over Seats,
// never over the player map, so the lowest seat wins deterministically.
func (g *GameState) evaluateWin() {
	for _, seatID := range g.Seats {
		p := g.Players[seatID]
		sets := 0
		for color, bucket := range p.Properties {
			need := RequiredSetSize(color)
			if need > 0 && len(bucket) >= need {
				sets++
			}
		}
		p.CompleteSets = sets
	}
	for _, seatID := range g.Seats {
		p := g.Players[seatID]
		if p.CompleteSets >= WinningSets {
			g.Winner = p
			g.Phase = PhaseFinished
			return
		}
	}
}

// removeFromHand deletes the card at idx, preserving hand display order.
func (g *GameState) removeFromHand(p *Player, idx int) {
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
}

func indexOfCard(cards []Card, id uuid.UUID) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
