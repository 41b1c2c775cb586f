// internal/room/room.go
package room

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dealbreaker/internal/cache"
	"dealbreaker/internal/game"
)

// Phase is the room lifecycle: forming while seats fill, playing once the
// game starts, finished after a winner.
type Phase string

const (
	PhaseForming  Phase = "forming"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

const maxChatLen = 200

// Participant is a seated room member. Seat order is join order and becomes
// turn order at game start.
type Participant struct {
	ID        uuid.UUID
	Name      string
	IsHost    bool
	IsReady   bool
	Connected bool
}

// Room owns one game and serializes every inbound command behind a single
// mutex: validate-then-apply is atomic and first-validated wins. The room
// never touches sockets; it reports through the injected broadcast callbacks.
type Room struct {
	mu sync.Mutex

	code       string
	createdAt  time.Time
	maxPlayers int
	phase      Phase

	participants []*Participant
	game         *game.GameState
	rng          *rand.Rand

	turnTimeout time.Duration
	turnTimer   *time.Timer
	// turnSeq increments every time the deadline is re-armed; a timeout
	// carrying a stale sequence is ignored.
	turnSeq int

	actionIndex int

	// BroadcastFn fans an event out to every connected room member;
	// BroadcastToPlayerFn targets a single player. Both are set by the
	// transport layer before the room is used.
	BroadcastFn         func(ev Event)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)

	history *cache.Publisher
	log     *logrus.Entry
}

// Options configures a new room.
type Options struct {
	Code        string
	MaxPlayers  int
	TurnTimeout time.Duration
	Rand        *rand.Rand
	History     *cache.Publisher
	Logger      *logrus.Logger
}

// New creates an empty forming room.
func New(opts Options) *Room {
	if opts.MaxPlayers <= 0 || opts.MaxPlayers > game.MaxPlayers {
		opts.MaxPlayers = game.MaxPlayers
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Room{
		code:        opts.Code,
		createdAt:   time.Now(),
		maxPlayers:  opts.MaxPlayers,
		phase:       PhaseForming,
		rng:         opts.Rand,
		turnTimeout: opts.TurnTimeout,
		history:     opts.History,
		log:         logger.WithField("room", opts.Code),
	}
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// View returns the public room snapshot.
func (r *Room) View() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildRoomView()
}

// Empty reports whether no participants remain.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0
}

// Join seats a new participant. The first seat becomes host.
func (r *Room) Join(playerID uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseForming {
		return &game.ValidationError{Code: "game_in_progress", Message: "game already in progress"}
	}
	if len(r.participants) >= r.maxPlayers {
		return &game.ValidationError{Code: "room_full", Message: "room is full"}
	}
	for _, p := range r.participants {
		if p.ID == playerID {
			return &game.ValidationError{Code: "already_joined", Message: "already in this room"}
		}
		if p.Name == name {
			return &game.ValidationError{Code: "name_taken", Message: "a player with this name is already in the room"}
		}
	}

	p := &Participant{
		ID:        playerID,
		Name:      name,
		IsHost:    len(r.participants) == 0,
		Connected: true,
	}
	r.participants = append(r.participants, p)
	r.log.WithFields(logrus.Fields{"player": playerID, "name": name}).Info("player joined")

	r.fire(Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{
		Player: ParticipantView{ID: p.ID, Name: p.Name, IsHost: p.IsHost, IsReady: p.IsReady},
		Room:   r.buildRoomView(),
	}})
	r.fireSystemChat(name + " joined the room")
	return nil
}

// SetReady toggles a participant's ready flag during forming.
func (r *Room) SetReady(playerID uuid.UUID, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.participant(playerID)
	if p == nil {
		return &game.NotFoundError{Kind: "player", ID: playerID.String()}
	}
	if r.phase != PhaseForming {
		return &game.ValidationError{Code: "game_in_progress", Message: "game already in progress"}
	}
	p.IsReady = ready
	r.fire(Event{Type: EventReadyChanged, Payload: ReadyChangedPayload{
		PlayerID: playerID,
		IsReady:  ready,
		Room:     r.buildRoomView(),
	}})
	return nil
}

// Start begins the game. Only the host may start, every seat must be ready,
// and at least two seats must be filled.
func (r *Room) Start(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.participant(playerID)
	if p == nil {
		return &game.NotFoundError{Kind: "player", ID: playerID.String()}
	}
	if r.phase != PhaseForming {
		return &game.ValidationError{Code: "game_in_progress", Message: "game already in progress"}
	}
	if !p.IsHost {
		return &game.ValidationError{Code: "not_host", Message: "only the host can start the game"}
	}
	for _, pt := range r.participants {
		if !pt.IsReady {
			return &game.ValidationError{Code: "not_ready", Message: "not all players are ready"}
		}
	}

	seats := make([]game.Seat, 0, len(r.participants))
	for _, pt := range r.participants {
		seats = append(seats, game.Seat{ID: pt.ID, Name: pt.Name})
	}
	g, err := game.StartGame(uuid.New(), seats, r.rng)
	if err != nil {
		return err
	}
	r.game = g
	r.phase = PhasePlaying
	r.log.WithField("players", len(seats)).Info("game started")
	r.publishAction(uuid.Nil, "game_started", "")

	r.fire(Event{Type: EventGameStarted, Payload: GameStartedPayload{GameState: r.buildGameView()}})
	for _, pt := range r.participants {
		r.sendHand(pt.ID)
	}
	r.scheduleTurnTimer()
	return nil
}

// PlayCard applies one card play through the engine and emits the public
// update plus private hand deltas.
func (r *Room) PlayCard(playerID, cardID uuid.UUID, extra map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return &game.ValidationError{Code: "no_game", Message: "game has not started"}
	}
	res, err := r.game.PlayCard(playerID, cardID, extra)
	if err != nil {
		return err
	}
	r.publishAction(playerID, res.Action.Type, res.Action.Card.Name)

	r.fire(Event{Type: EventGameStateUpdated, Payload: GameStateUpdatedPayload{
		GameState: r.buildGameView(),
		Action:    res.Action,
	}})
	for _, id := range res.UpdatedPlayers {
		r.sendHand(id)
	}

	if r.game.Phase == game.PhaseFinished {
		r.finishGame()
	}
	return nil
}

// EndTurn advances the turn and re-arms the turn deadline.
func (r *Room) EndTurn(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endTurnLocked(playerID, false)
}

// endTurnLocked is the shared end-turn path; timedOut marks server-forced
// turn ends. Assumes the lock is held.
func (r *Room) endTurnLocked(playerID uuid.UUID, timedOut bool) error {
	if r.game == nil {
		return &game.ValidationError{Code: "no_game", Message: "game has not started"}
	}
	res, err := r.game.EndTurn(playerID)
	if err != nil {
		return err
	}
	r.publishAction(playerID, "end_turn", "")

	r.fire(Event{Type: EventTurnEnded, Payload: TurnEndedPayload{
		GameState:    r.buildGameView(),
		NextPlayerID: res.NextPlayerID,
		TimedOut:     timedOut,
	}})
	for _, id := range res.UpdatedPlayers {
		r.sendHand(id)
	}
	r.scheduleTurnTimer()
	return nil
}

// Chat relays a message to the room. Pure pass-through, no state.
func (r *Room) Chat(playerID uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.participant(playerID)
	if p == nil {
		return &game.NotFoundError{Kind: "player", ID: playerID.String()}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return &game.ValidationError{Code: "empty_message", Message: "message is empty"}
	}
	if len(message) > maxChatLen {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := maxChatLen
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	r.fire(Event{Type: EventChatMessage, Payload: ChatPayload{
		PlayerID:   &playerID,
		PlayerName: p.Name,
		Message:    message,
		Timestamp:  time.Now(),
	}})
	return nil
}

// HandleDisconnect processes a dropped connection. During forming the seat is
// removed and the host role passes to the next seat; during play the seat is
// only marked disconnected and the turn deadline keeps the room moving.
func (r *Room) HandleDisconnect(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.participant(playerID)
	if p == nil {
		return
	}

	if r.phase == PhaseForming {
		wasHost := p.IsHost
		r.removeParticipant(playerID)
		if wasHost && len(r.participants) > 0 {
			r.participants[0].IsHost = true
		}
		r.log.WithField("player", playerID).Info("player left while forming")
		r.fireSystemChat(p.Name + " left the room")
		r.fire(Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{
			PlayerID:   playerID,
			PlayerName: p.Name,
			Room:       r.buildRoomView(),
		}})
		return
	}

	p.Connected = false
	r.log.WithField("player", playerID).Info("player disconnected mid-game")
	r.fireSystemChat(p.Name + " disconnected")
	r.fire(Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{
		PlayerID:   playerID,
		PlayerName: p.Name,
		Room:       r.buildRoomView(),
	}})

	for _, pt := range r.participants {
		if pt.Connected {
			return
		}
	}
	// Every seat has dropped; abandon the game so the registry can reap the
	// room once the transport checks it.
	r.log.Warn("all players disconnected, abandoning game")
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turnSeq++
	r.phase = PhaseFinished
	r.participants = nil
}

// finishGame emits the terminal event and stops the deadline.
// Assumes the lock is held.
func (r *Room) finishGame() {
	r.phase = PhaseFinished
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	w := r.game.Winner
	r.log.WithFields(logrus.Fields{"winner": w.ID, "name": w.Name}).Info("game ended")
	r.publishAction(w.ID, "game_ended", "")
	r.fire(Event{Type: EventGameEnded, Payload: GameEndedPayload{
		WinnerID:   w.ID,
		WinnerName: w.Name,
		GameState:  r.buildGameView(),
	}})
}

// scheduleTurnTimer arms the deadline for the current seat. A zero timeout
// disables the deadline. Assumes the lock is held.
func (r *Room) scheduleTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.turnTimeout <= 0 || r.game == nil || r.game.Phase != game.PhasePlaying {
		return
	}
	r.turnSeq++
	seq := r.turnSeq
	r.turnTimer = time.AfterFunc(r.turnTimeout, func() {
		r.handleTurnTimeout(seq)
	})
}

// handleTurnTimeout force-ends a stalled turn. The sequence check makes the
// guard exact: a timer that fired for an earlier turn is a no-op even when
// the same seat holds the turn again.
func (r *Room) handleTurnTimeout(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil || r.game.Phase != game.PhasePlaying || r.turnSeq != seq {
		return
	}
	playerID := r.game.Seats[r.game.CurrentPlayerIndex]
	r.log.WithField("player", playerID).Warn("turn deadline hit, ending turn")
	if err := r.endTurnLocked(playerID, true); err != nil {
		r.log.WithError(err).Error("forced end turn failed")
	}
}

// sendHand pushes the player's current hand over the private channel.
// Assumes the lock is held.
func (r *Room) sendHand(playerID uuid.UUID) {
	if r.game == nil {
		return
	}
	p, ok := r.game.Players[playerID]
	if !ok {
		return
	}
	r.fireToPlayer(playerID, Event{Type: EventHandUpdated, Payload: HandPayload{Hand: p.Hand}})
}

// publishAction queues a turn-history record onto the optional Redis feed.
// Nil-safe and asynchronous; failures are logged, never fatal.
// Assumes the lock is held.
func (r *Room) publishAction(actorID uuid.UUID, actionType, cardName string) {
	if r.history == nil {
		return
	}
	r.actionIndex++
	rec := cache.ActionRecord{
		RoomCode:    r.code,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		CardName:    cardName,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.history.PublishAction(ctx, rec); err != nil {
			r.log.WithError(err).Warn("failed publishing action record")
		}
	}()
}

// fire broadcasts a public event through the injected callback.
// Assumes the lock is held.
func (r *Room) fire(ev Event) {
	if r.BroadcastFn == nil {
		r.log.WithField("event", ev.Type).Warn("BroadcastFn is nil, dropping event")
		return
	}
	r.BroadcastFn(ev)
}

// fireToPlayer sends a private event to one player.
// Assumes the lock is held.
func (r *Room) fireToPlayer(playerID uuid.UUID, ev Event) {
	if r.BroadcastToPlayerFn == nil {
		r.log.WithField("event", ev.Type).Warn("BroadcastToPlayerFn is nil, dropping event")
		return
	}
	r.BroadcastToPlayerFn(playerID, ev)
}

func (r *Room) fireSystemChat(message string) {
	r.fire(Event{Type: EventChatMessage, Payload: ChatPayload{
		PlayerName: "System",
		Message:    message,
		Timestamp:  time.Now(),
		System:     true,
	}})
}

func (r *Room) participant(playerID uuid.UUID) *Participant {
	for _, p := range r.participants {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) removeParticipant(playerID uuid.UUID) {
	for i, p := range r.participants {
		if p.ID == playerID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return
		}
	}
}

func (r *Room) isConnected(playerID uuid.UUID) bool {
	p := r.participant(playerID)
	return p != nil && p.Connected
}
