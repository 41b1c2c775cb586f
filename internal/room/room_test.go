package room

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbreaker/internal/game"
)

// mockBroadcaster records every event a room fires, public and private.
// Safe for use from the turn-deadline goroutine.
type mockBroadcaster struct {
	mu      sync.Mutex
	public  []Event
	private map[uuid.UUID][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{private: make(map[uuid.UUID][]Event)}
}

func (m *mockBroadcaster) wire(r *Room) {
	r.BroadcastFn = func(ev Event) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.public = append(m.public, ev)
	}
	r.BroadcastToPlayerFn = func(playerID uuid.UUID, ev Event) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.private[playerID] = append(m.private[playerID], ev)
	}
}

func (m *mockBroadcaster) publicOfType(t EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.public {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockBroadcaster) lastPublic(t EventType) (Event, bool) {
	evs := m.publicOfType(t)
	if len(evs) == 0 {
		return Event{}, false
	}
	return evs[len(evs)-1], true
}

func (m *mockBroadcaster) privateOfType(playerID uuid.UUID, t EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.private[playerID] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestRoom(t *testing.T, turnTimeout time.Duration) (*Room, *mockBroadcaster) {
	t.Helper()
	r := New(Options{
		Code:        "TESTROOM",
		TurnTimeout: turnTimeout,
		Rand:        rand.New(rand.NewSource(7)),
	})
	mb := newMockBroadcaster()
	mb.wire(r)
	return r, mb
}

// seatPlayers joins n named players and returns their ids in seat order.
func seatPlayers(t *testing.T, r *Room, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, r.Join(ids[i], fmt.Sprintf("player%d", i)))
	}
	return ids
}

func startGame(t *testing.T, r *Room, ids []uuid.UUID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, r.SetReady(id, true))
	}
	require.NoError(t, r.Start(ids[0]))
}

func TestJoinAssignsFirstSeatHost(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)

	view := r.View()
	require.Len(t, view.Players, 2)
	assert.True(t, view.Players[0].IsHost)
	assert.False(t, view.Players[1].IsHost)
	assert.Equal(t, string(PhaseForming), view.Phase)

	joined := mb.publicOfType(EventPlayerJoined)
	require.Len(t, joined, 2)
	p := joined[1].Payload.(PlayerJoinedPayload)
	assert.Equal(t, ids[1], p.Player.ID)
	assert.Len(t, p.Room.Players, 2)
}

func TestJoinRejectsDuplicateName(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	require.NoError(t, r.Join(uuid.New(), "alice"))

	err := r.Join(uuid.New(), "alice")
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name_taken", verr.Code)
}

func TestJoinRejectsWhenFull(t *testing.T) {
	r := New(Options{Code: "FULL", MaxPlayers: 2, Rand: rand.New(rand.NewSource(1))})
	newMockBroadcaster().wire(r)
	seatPlayers(t, r, 2)

	err := r.Join(uuid.New(), "late")
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "room_full", verr.Code)
}

func TestJoinRejectsOnceStarted(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	err := r.Join(uuid.New(), "late")
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "game_in_progress", verr.Code)
}

func TestStartRequiresHost(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	for _, id := range ids {
		require.NoError(t, r.SetReady(id, true))
	}

	err := r.Start(ids[1])
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "not_host", verr.Code)
}

func TestStartRequiresAllReady(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 3)
	require.NoError(t, r.SetReady(ids[0], true))
	require.NoError(t, r.SetReady(ids[1], true))

	err := r.Start(ids[0])
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "not_ready", verr.Code)
}

func TestStartDealsHandsPrivately(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 3)
	startGame(t, r, ids)

	started, ok := mb.lastPublic(EventGameStarted)
	require.True(t, ok)
	gv := started.Payload.(GameStartedPayload).GameState
	require.Len(t, gv.Players, 3)
	for _, pv := range gv.Players {
		assert.Equal(t, game.InitialHandSize, pv.HandSize)
	}
	assert.Equal(t, game.DeckSize-3*game.InitialHandSize, gv.DeckSize)

	for _, id := range ids {
		hands := mb.privateOfType(id, EventHandUpdated)
		require.Len(t, hands, 1)
		hp := hands[0].Payload.(HandPayload)
		assert.Len(t, hp.Hand, game.InitialHandSize)
	}
}

func TestPublicPayloadsNeverCarryHands(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	// Drive some turns so every public event type gets exercised.
	current := ids[0]
	other := ids[1]
	for i := 0; i < 4; i++ {
		require.NoError(t, r.EndTurn(current))
		current, other = other, current
	}
	require.NoError(t, r.Chat(ids[0], "hello"))

	mb.mu.Lock()
	defer mb.mu.Unlock()
	for _, ev := range mb.public {
		data, err := json.Marshal(ev)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"hand":`, "event %s leaked hand contents", ev.Type)
	}
}

func TestPlayCardBroadcastsUpdate(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	started, _ := mb.lastPublic(EventGameStarted)
	currentID := started.Payload.(GameStartedPayload).GameState.CurrentPlayerID

	hands := mb.privateOfType(currentID, EventHandUpdated)
	require.NotEmpty(t, hands)
	hand := hands[len(hands)-1].Payload.(HandPayload).Hand
	require.NotEmpty(t, hand)

	require.NoError(t, r.PlayCard(currentID, hand[0].ID, nil))

	upd, ok := mb.lastPublic(EventGameStateUpdated)
	require.True(t, ok)
	payload := upd.Payload.(GameStateUpdatedPayload)
	assert.Equal(t, currentID, payload.Action.PlayerID)
	assert.Equal(t, hand[0].ID, payload.Action.Card.ID)

	// The actor gets a fresh private hand after the play.
	after := mb.privateOfType(currentID, EventHandUpdated)
	require.Greater(t, len(after), len(hands))
}

func TestPlayCardRejectsOutOfTurn(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	started, _ := mb.lastPublic(EventGameStarted)
	currentID := started.Payload.(GameStartedPayload).GameState.CurrentPlayerID
	var otherID uuid.UUID
	for _, id := range ids {
		if id != currentID {
			otherID = id
		}
	}
	hand := mb.privateOfType(otherID, EventHandUpdated)[0].Payload.(HandPayload).Hand

	err := r.PlayCard(otherID, hand[0].ID, nil)
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, game.CodeNotPlayersTurn, verr.Code)
}

func TestChatTrimsAndCaps(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)

	require.NoError(t, r.Chat(ids[0], "  hi there  "))
	ev, ok := mb.lastPublic(EventChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hi there", ev.Payload.(ChatPayload).Message)

	require.NoError(t, r.Chat(ids[1], strings.Repeat("x", maxChatLen+50)))
	ev, _ = mb.lastPublic(EventChatMessage)
	assert.Len(t, ev.Payload.(ChatPayload).Message, maxChatLen)

	// The cap backs off to a rune boundary instead of splitting a
	// multi-byte character.
	require.NoError(t, r.Chat(ids[0], strings.Repeat("x", maxChatLen-1)+"é"))
	ev, _ = mb.lastPublic(EventChatMessage)
	msg := ev.Payload.(ChatPayload).Message
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, strings.Repeat("x", maxChatLen-1), msg)

	err := r.Chat(ids[0], "   ")
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "empty_message", verr.Code)
}

func TestZeroIDsOmittedFromPayloads(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	started, ok := mb.lastPublic(EventGameStarted)
	require.True(t, ok)
	data, err := json.Marshal(started)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"winnerId"`, "no winner yet")

	// System chat lines carry no player id at all.
	var sys Event
	found := false
	for _, ev := range mb.publicOfType(EventChatMessage) {
		if ev.Payload.(ChatPayload).System {
			sys = ev
			found = true
			break
		}
	}
	require.True(t, found)
	data, err = json.Marshal(sys)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"playerId"`)

	require.NoError(t, r.Chat(ids[0], "hi"))
	ev, _ := mb.lastPublic(EventChatMessage)
	require.NotNil(t, ev.Payload.(ChatPayload).PlayerID)
	assert.Equal(t, ids[0], *ev.Payload.(ChatPayload).PlayerID)
}

func TestAbandonedGameRoomIsReaped(t *testing.T) {
	reg := NewRegistry(0, nil, nil)
	reg.SetBroadcaster(registryBroadcaster{newMockBroadcaster()})

	r := reg.Create()
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	r.HandleDisconnect(ids[0])
	assert.False(t, r.Empty(), "one seat still connected")
	assert.False(t, reg.RemoveIfEmpty(r.Code()))

	r.HandleDisconnect(ids[1])
	assert.True(t, r.Empty(), "fully abandoned mid-game room must empty out")
	assert.True(t, reg.RemoveIfEmpty(r.Code()))
	assert.Equal(t, 0, reg.Len())
}

func TestStaleTurnDeadlineIsIgnored(t *testing.T) {
	r, mb := newTestRoom(t, time.Hour)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	r.mu.Lock()
	staleSeq := r.turnSeq
	r.mu.Unlock()

	// The turn rotates before the old deadline fires; with two players the
	// seat comes straight back around.
	require.NoError(t, r.EndTurn(ids[0]))
	require.NoError(t, r.EndTurn(ids[1]))

	before := len(mb.publicOfType(EventTurnEnded))
	r.handleTurnTimeout(staleSeq)
	assert.Len(t, mb.publicOfType(EventTurnEnded), before, "stale deadline must not end the new turn")

	r.mu.Lock()
	liveSeq := r.turnSeq
	r.mu.Unlock()
	r.handleTurnTimeout(liveSeq)
	evs := mb.publicOfType(EventTurnEnded)
	require.Len(t, evs, before+1)
	assert.True(t, evs[len(evs)-1].Payload.(TurnEndedPayload).TimedOut)
}

func TestDisconnectWhileFormingPromotesHost(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 3)

	r.HandleDisconnect(ids[0])

	view := r.View()
	require.Len(t, view.Players, 2)
	assert.Equal(t, ids[1], view.Players[0].ID)
	assert.True(t, view.Players[0].IsHost)

	left, ok := mb.lastPublic(EventPlayerLeft)
	require.True(t, ok)
	assert.Equal(t, ids[0], left.Payload.(PlayerLeftPayload).PlayerID)
}

func TestDisconnectMidGameKeepsSeat(t *testing.T) {
	r, mb := newTestRoom(t, 0)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	r.HandleDisconnect(ids[1])

	view := r.View()
	assert.Len(t, view.Players, 2, "seat stays occupied mid-game")

	require.NoError(t, r.EndTurn(ids[0]))
	ev, ok := mb.lastPublic(EventTurnEnded)
	require.True(t, ok)
	gv := ev.Payload.(TurnEndedPayload).GameState
	for _, pv := range gv.Players {
		if pv.ID == ids[1] {
			assert.False(t, pv.Connected)
		} else {
			assert.True(t, pv.Connected)
		}
	}
}

func TestTurnDeadlineForcesEndTurn(t *testing.T) {
	r, mb := newTestRoom(t, 40*time.Millisecond)
	ids := seatPlayers(t, r, 2)
	startGame(t, r, ids)

	started, _ := mb.lastPublic(EventGameStarted)
	firstID := started.Payload.(GameStartedPayload).GameState.CurrentPlayerID

	require.Eventually(t, func() bool {
		_, ok := mb.lastPublic(EventTurnEnded)
		return ok
	}, time.Second, 5*time.Millisecond)

	ev, _ := mb.lastPublic(EventTurnEnded)
	payload := ev.Payload.(TurnEndedPayload)
	assert.True(t, payload.TimedOut)
	assert.NotEqual(t, firstID, payload.NextPlayerID)
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(0, nil, nil)

	r := reg.Create()
	require.NotEmpty(t, r.Code())
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(strings.ToLower(r.Code()))
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = reg.Get("NOPE1234")
	var nferr *game.NotFoundError
	require.ErrorAs(t, err, &nferr)

	id := uuid.New()
	require.NoError(t, r.Join(id, "solo"))
	assert.False(t, reg.RemoveIfEmpty(r.Code()), "occupied room must not be removed")

	r.HandleDisconnect(id)
	assert.True(t, reg.RemoveIfEmpty(r.Code()))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryInjectsBroadcaster(t *testing.T) {
	reg := NewRegistry(0, nil, nil)
	mb := newMockBroadcaster()
	reg.SetBroadcaster(registryBroadcaster{mb})

	r := reg.Create()
	require.NoError(t, r.Join(uuid.New(), "alice"))

	joined := mb.publicOfType(EventPlayerJoined)
	require.Len(t, joined, 1)
}

// registryBroadcaster adapts the mock to the Broadcaster interface.
type registryBroadcaster struct{ mb *mockBroadcaster }

func (b registryBroadcaster) BroadcastToRoom(code string, ev Event) {
	b.mb.mu.Lock()
	defer b.mb.mu.Unlock()
	b.mb.public = append(b.mb.public, ev)
}

func (b registryBroadcaster) BroadcastToPlayer(playerID uuid.UUID, ev Event) {
	b.mb.mu.Lock()
	defer b.mb.mu.Unlock()
	b.mb.private[playerID] = append(b.mb.private[playerID], ev)
}
