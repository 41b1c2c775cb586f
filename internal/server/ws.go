// internal/server/ws.go — WebSocket transport for the room message set.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dealbreaker/internal/game"
	"dealbreaker/internal/room"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	readLimit    = 16 << 10 // inbound messages are small commands
)

// inboundMessage is the envelope every client message arrives in.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type setReadyPayload struct {
	IsReady bool `json:"isReady"`
}

type playCardPayload struct {
	CardID string                 `json:"cardId"`
	Extra  map[string]interface{} `json:"extra,omitempty"`
}

type sendChatPayload struct {
	Message string `json:"message"`
}

// client is one WebSocket connection. Its id doubles as the player id for
// the duration of the connection.
type client struct {
	id       uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
	roomCode string // guarded by Server.mu
}

// Server owns the connection registry and implements room.Broadcaster.
type Server struct {
	registry *room.Registry
	log      *logrus.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

// New creates a transport bound to the given room registry.
func New(registry *room.Registry, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		registry: registry,
		log:      log,
		clients:  make(map[uuid.UUID]*client),
	}
}

// BroadcastToRoom fans an event out to every connection in the room.
func (s *Server) BroadcastToRoom(code string, ev room.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).Error("marshal broadcast event")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.roomCode == code {
			c.trySend(data)
		}
	}
}

// BroadcastToPlayer delivers a private event to a single connection.
func (s *Server) BroadcastToPlayer(playerID uuid.UUID, ev room.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).Error("marshal private event")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[playerID]; ok {
		c.trySend(data)
	}
}

// HandleWS upgrades the request and runs the connection's read loop until it
// drops.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	conn.SetReadLimit(readLimit)

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.log.WithField("conn", c.id).Info("client connected")

	ctx := r.Context()
	go s.writeLoop(ctx, c)
	s.readLoop(ctx, c)
	s.dropClient(c)
}

// writeLoop drains the send channel and keeps the connection alive with
// pings.
func (s *Server) writeLoop(ctx context.Context, c *client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop decodes and dispatches inbound messages. Every malformed or
// unknown message is answered with an explicit error event, never silently
// dropped.
func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(c, "bad_message", "message is not valid JSON")
			continue
		}
		s.dispatch(c, msg)
	}
}

// dispatch routes one inbound message to the room command path.
func (s *Server) dispatch(c *client, msg inboundMessage) {
	switch msg.Type {
	case "join_room":
		var p joinRoomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RoomID == "" || p.PlayerName == "" {
			s.sendError(c, "bad_message", "join_room needs roomId and playerName")
			return
		}
		rm, err := s.registry.Get(p.RoomID)
		if err != nil {
			s.replyError(c, err)
			return
		}
		if err := rm.Join(c.id, p.PlayerName); err != nil {
			s.replyError(c, err)
			return
		}
		s.mu.Lock()
		c.roomCode = rm.Code()
		s.mu.Unlock()

	case "set_ready":
		var p setReadyPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError(c, "bad_message", "set_ready needs isReady")
			return
		}
		s.withRoom(c, func(rm *room.Room) error { return rm.SetReady(c.id, p.IsReady) })

	case "start_game":
		s.withRoom(c, func(rm *room.Room) error { return rm.Start(c.id) })

	case "play_card":
		var p playCardPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError(c, "bad_message", "play_card needs cardId")
			return
		}
		cardID, err := uuid.Parse(p.CardID)
		if err != nil {
			s.sendError(c, "bad_message", "cardId is not a valid id")
			return
		}
		s.withRoom(c, func(rm *room.Room) error { return rm.PlayCard(c.id, cardID, p.Extra) })

	case "end_turn":
		s.withRoom(c, func(rm *room.Room) error { return rm.EndTurn(c.id) })

	case "send_chat":
		var p sendChatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError(c, "bad_message", "send_chat needs message")
			return
		}
		s.withRoom(c, func(rm *room.Room) error { return rm.Chat(c.id, p.Message) })

	default:
		s.sendError(c, "unknown_type", "unknown message type "+msg.Type)
	}
}

// withRoom resolves the client's room and runs the command, reporting any
// error back to the originating connection only.
func (s *Server) withRoom(c *client, fn func(*room.Room) error) {
	s.mu.RLock()
	code := c.roomCode
	s.mu.RUnlock()
	if code == "" {
		s.sendError(c, "not_in_room", "join a room first")
		return
	}
	rm, err := s.registry.Get(code)
	if err != nil {
		s.replyError(c, err)
		return
	}
	if err := fn(rm); err != nil {
		s.replyError(c, err)
	}
}

// dropClient unregisters the connection and lets the room react.
func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	code := c.roomCode
	delete(s.clients, c.id)
	close(c.send)
	s.mu.Unlock()
	s.log.WithField("conn", c.id).Info("client disconnected")

	if code == "" {
		return
	}
	if rm, err := s.registry.Get(code); err == nil {
		rm.HandleDisconnect(c.id)
		s.registry.RemoveIfEmpty(code)
	}
}

// replyError translates an engine/room error into a private error event.
func (s *Server) replyError(c *client, err error) {
	var verr *game.ValidationError
	if errors.As(err, &verr) {
		s.sendError(c, verr.Code, verr.Message)
		return
	}
	var nferr *game.NotFoundError
	if errors.As(err, &nferr) {
		s.sendError(c, "not_found", nferr.Error())
		return
	}
	s.log.WithError(err).Error("unexpected command error")
	s.sendError(c, "internal", "internal server error")
}

func (s *Server) sendError(c *client, code, message string) {
	ev := room.Event{Type: room.EventError, Payload: room.ErrorPayload{Code: code, Message: message}}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues without blocking; a slow consumer sheds messages rather
// than stalling the room.
func (c *client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}
