// internal/game/card_test.go
package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeckComposition(t *testing.T) {
	deck := BuildDeck()
	require.Len(t, deck, DeckSize)

	counts := map[CardKind]int{}
	seen := map[uuid.UUID]bool{}
	for _, c := range deck {
		counts[c.Kind]++
		require.False(t, seen[c.ID], "duplicate instance id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Equal(t, 20, counts[KindMoney])
	assert.Equal(t, 56, counts[KindProperty])
	assert.Equal(t, 34, counts[KindAction])

	passGo := 0
	for _, c := range deck {
		if c.Action == ActionPassGo {
			passGo++
		}
	}
	assert.Equal(t, 10, passGo)
}

func TestBuildDeckIsDeterministicPerTemplate(t *testing.T) {
	a := BuildDeck()
	b := BuildDeck()
	require.Len(t, b, len(a))
	for i := range a {
		// Same template expansion order, fresh instance ids.
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].Kind, b[i].Kind)
		assert.NotEqual(t, a[i].ID, b[i].ID)
	}
}

func TestShuffleDeterministicWithSeed(t *testing.T) {
	a := BuildDeck()
	b := make([]Card, len(a))
	copy(b, a)

	Shuffle(a, rand.New(rand.NewSource(42)))
	Shuffle(b, rand.New(rand.NewSource(42)))

	for i := range a {
		require.Equal(t, a[i].ID, b[i].ID, "order diverged at %d", i)
	}
}

// TestShuffleUniformity runs many seeded shuffles of a 4-card deck and checks
// each of the 24 permutations lands close to its expected frequency.
func TestShuffleUniformity(t *testing.T) {
	const trials = 120000
	const perms = 24 // 4!

	rng := rand.New(rand.NewSource(7))
	freq := map[string]int{}
	for i := 0; i < trials; i++ {
		cards := []Card{
			{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
		}
		Shuffle(cards, rng)
		key := ""
		for _, c := range cards {
			key += c.Name
		}
		freq[key]++
	}

	require.Len(t, freq, perms, "every permutation should occur")
	expected := float64(trials) / perms
	for perm, n := range freq {
		// 5000 expected per bucket, 5% relative tolerance.
		assert.InDelta(t, expected, float64(n), expected*0.05,
			fmt.Sprintf("permutation %s out of tolerance", perm))
	}
}

func TestRequiredSetSizeTable(t *testing.T) {
	assert.Equal(t, 2, RequiredSetSize(ColorBrown))
	assert.Equal(t, 2, RequiredSetSize(ColorDarkBlue))
	assert.Equal(t, 2, RequiredSetSize(ColorUtility))
	assert.Equal(t, 4, RequiredSetSize(ColorRailroad))
	assert.Equal(t, 3, RequiredSetSize(ColorRed))
	assert.Equal(t, 0, RequiredSetSize(PropertyColor("chartreuse")))
}
