// internal/game/card.go
package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// CardKind discriminates the three card families.
type CardKind string

const (
	KindMoney    CardKind = "money"
	KindProperty CardKind = "property"
	KindAction   CardKind = "action"
)

// PropertyColor identifies a property set.
type PropertyColor string

const (
	ColorBrown     PropertyColor = "brown"
	ColorLightBlue PropertyColor = "light_blue"
	ColorPink      PropertyColor = "pink"
	ColorOrange    PropertyColor = "orange"
	ColorRed       PropertyColor = "red"
	ColorYellow    PropertyColor = "yellow"
	ColorGreen     PropertyColor = "green"
	ColorDarkBlue  PropertyColor = "dark_blue"
	ColorUtility   PropertyColor = "utility"
	ColorRailroad  PropertyColor = "railroad"
)

// ActionKind identifies an action card's effect.
type ActionKind string

const (
	ActionPassGo        ActionKind = "pass_go"
	ActionRent          ActionKind = "rent"
	ActionSlyDeal       ActionKind = "sly_deal"
	ActionForcedDeal    ActionKind = "forced_deal"
	ActionDebtCollector ActionKind = "debt_collector"
	ActionItsMyBirthday ActionKind = "its_my_birthday"
	ActionJustSayNo     ActionKind = "just_say_no"
	ActionHouse         ActionKind = "house"
	ActionHotel         ActionKind = "hotel"
)

// Card is an immutable card instance. A card lives in exactly one zone
// (deck, a hand, a bank, a property bucket, or the discard pile) at a time;
// moving between zones is the only mutation it undergoes.
type Card struct {
	ID     uuid.UUID     `json:"id"`
	Kind   CardKind      `json:"kind"`
	Value  int           `json:"value"`
	Name   string        `json:"name"`
	Color  PropertyColor `json:"color,omitempty"`  // property cards only
	Action ActionKind    `json:"action,omitempty"` // action cards only
}

// cardTemplate describes one printing in the deck manifest; Count concrete
// instances are expanded from it.
type cardTemplate struct {
	Kind   CardKind
	Value  int
	Name   string
	Color  PropertyColor
	Action ActionKind
	Count  int
}

// deckManifest is the authoritative deck composition: 20 money, 56 property,
// 34 action — 110 cards total.
var deckManifest = []cardTemplate{
	// Money.
	{Kind: KindMoney, Value: 1, Name: "$1M", Count: 6},
	{Kind: KindMoney, Value: 2, Name: "$2M", Count: 5},
	{Kind: KindMoney, Value: 3, Name: "$3M", Count: 3},
	{Kind: KindMoney, Value: 4, Name: "$4M", Count: 3},
	{Kind: KindMoney, Value: 5, Name: "$5M", Count: 2},
	{Kind: KindMoney, Value: 10, Name: "$10M", Count: 1},

	// Properties.
	{Kind: KindProperty, Color: ColorBrown, Name: "Mediterranean Avenue", Value: 1, Count: 2},
	{Kind: KindProperty, Color: ColorBrown, Name: "Baltic Avenue", Value: 1, Count: 2},
	{Kind: KindProperty, Color: ColorLightBlue, Name: "Oriental Avenue", Value: 1, Count: 2},
	{Kind: KindProperty, Color: ColorLightBlue, Name: "Vermont Avenue", Value: 1, Count: 2},
	{Kind: KindProperty, Color: ColorLightBlue, Name: "Connecticut Avenue", Value: 1, Count: 2},
	{Kind: KindProperty, Color: ColorPink, Name: "St. Charles Place", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorPink, Name: "States Avenue", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorPink, Name: "Virginia Avenue", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorOrange, Name: "St. James Place", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorOrange, Name: "Tennessee Avenue", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorOrange, Name: "New York Avenue", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorRed, Name: "Kentucky Avenue", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorRed, Name: "Indiana Avenue", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorRed, Name: "Illinois Avenue", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorYellow, Name: "Atlantic Avenue", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorYellow, Name: "Ventnor Avenue", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorYellow, Name: "Marvin Gardens", Value: 3, Count: 2},
	{Kind: KindProperty, Color: ColorGreen, Name: "Pacific Avenue", Value: 4, Count: 2},
	{Kind: KindProperty, Color: ColorGreen, Name: "North Carolina Avenue", Value: 4, Count: 2},
	{Kind: KindProperty, Color: ColorGreen, Name: "Pennsylvania Avenue", Value: 4, Count: 2},
	{Kind: KindProperty, Color: ColorDarkBlue, Name: "Park Place", Value: 4, Count: 2},
	{Kind: KindProperty, Color: ColorDarkBlue, Name: "Boardwalk", Value: 4, Count: 2},
	{Kind: KindProperty, Color: ColorUtility, Name: "Electric Company", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorUtility, Name: "Water Works", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorRailroad, Name: "Reading Railroad", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorRailroad, Name: "Pennsylvania Railroad", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorRailroad, Name: "B. & O. Railroad", Value: 2, Count: 2},
	{Kind: KindProperty, Color: ColorRailroad, Name: "Short Line", Value: 2, Count: 2},

	// Actions.
	{Kind: KindAction, Action: ActionPassGo, Name: "Pass Go", Value: 1, Count: 10},
	{Kind: KindAction, Action: ActionRent, Name: "Rent", Value: 1, Count: 3},
	{Kind: KindAction, Action: ActionSlyDeal, Name: "Sly Deal", Value: 3, Count: 3},
	{Kind: KindAction, Action: ActionForcedDeal, Name: "Forced Deal", Value: 3, Count: 3},
	{Kind: KindAction, Action: ActionDebtCollector, Name: "Debt Collector", Value: 3, Count: 3},
	{Kind: KindAction, Action: ActionItsMyBirthday, Name: "It's My Birthday", Value: 2, Count: 3},
	{Kind: KindAction, Action: ActionJustSayNo, Name: "Just Say No", Value: 4, Count: 3},
	{Kind: KindAction, Action: ActionHouse, Name: "House", Value: 3, Count: 3},
	{Kind: KindAction, Action: ActionHotel, Name: "Hotel", Value: 4, Count: 3},
}

// DeckSize is the number of cards BuildDeck produces.
const DeckSize = 110

// requiredSetSize is the authoritative per-color count needed to complete a
// set. Looked up here rather than on the played card so differently tagged
// instances of the same color can never disagree.
var requiredSetSize = map[PropertyColor]int{
	ColorBrown:     2,
	ColorLightBlue: 3,
	ColorPink:      3,
	ColorOrange:    3,
	ColorRed:       3,
	ColorYellow:    3,
	ColorGreen:     3,
	ColorDarkBlue:  2,
	ColorUtility:   2,
	ColorRailroad:  4,
}

// RequiredSetSize returns the number of cards of the given color needed for a
// complete set. Unknown colors report 0 (never completable).
func RequiredSetSize(color PropertyColor) int {
	return requiredSetSize[color]
}

// WinningSets is the number of complete property sets that wins the game.
const WinningSets = 3

// BuildDeck expands the manifest into concrete card instances, each with its
// own uuid. The result is unshuffled; callers pass it through Shuffle.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, t := range deckManifest {
		for i := 0; i < t.Count; i++ {
			deck = append(deck, Card{
				ID:     uuid.New(),
				Kind:   t.Kind,
				Value:  t.Value,
				Name:   t.Name,
				Color:  t.Color,
				Action: t.Action,
			})
		}
	}
	return deck
}

// Shuffle permutes cards in place with a Fisher-Yates pass, walking from the
// last index down to 1 and swapping with rng.Intn(i+1). Every permutation is
// equally likely. The rng is injected so games can be replayed and tests can
// pin a seed.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
