package eitheror

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RouterConfig holds configuration for the session router.
type RouterConfig struct {
	Registry *Registry

	// RateLimit and RateBurst bound inbound messages per connection.
	// A zero RateLimit disables limiting.
	RateLimit rate.Limit
	RateBurst int

	Logger zerolog.Logger
}

type session struct {
	conn     Conn
	limiter  *rate.Limiter
	roomCode string
}

// Router binds connections to rooms and forwards their messages.
type Router struct {
	registry *Registry
	limit    rate.Limit
	burst    int
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRouter(cfg *RouterConfig) (*Router, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	limit, burst := cfg.RateLimit, cfg.RateBurst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &Router{
		registry: cfg.Registry,
		limit:    limit,
		burst:    burst,
		log:      cfg.Logger,
		sessions: make(map[string]*session),
	}, nil
}

// Connect registers a new connection and tells the client its session id.
func (rt *Router) Connect(conn Conn) {
	rt.mu.Lock()
	rt.sessions[conn.ID()] = &session{
		conn:    conn,
		limiter: rate.NewLimiter(rt.limit, rt.burst),
	}
	rt.mu.Unlock()

	conn.Send(Event{Name: EventSession, Data: SessionData{ConnectionID: conn.ID()}})
}

// Disconnect forgets the connection and removes its player from its room.
func (rt *Router) Disconnect(id string) {
	rt.mu.Lock()
	s, ok := rt.sessions[id]
	delete(rt.sessions, id)
	rt.mu.Unlock()

	if !ok {
		return
	}

	rt.leave(id, s.roomCode)
}

// Binding returns the room code the connection is bound to.
func (rt *Router) Binding(id string) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s, ok := rt.sessions[id]
	if !ok || s.roomCode == "" {
		return "", false
	}

	return s.roomCode, true
}

func (rt *Router) bind(id, code string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if s, ok := rt.sessions[id]; ok {
		s.roomCode = code
	}
}

func (rt *Router) leave(id, code string) {
	if code == "" {
		return
	}

	hub, err := rt.registry.Get(code)
	if err != nil {
		return
	}

	_ = hub.Leave(id)
}

// Handle decodes one frame from the connection and routes it.
func (rt *Router) Handle(ctx context.Context, id string, frame []byte) {
	rt.mu.Lock()
	s, ok := rt.sessions[id]
	var code string
	if ok {
		code = s.roomCode
	}
	rt.mu.Unlock()

	if !ok {
		return
	}

	if !s.limiter.Allow() {
		rt.reply(s.conn, ErrRateLimited)
		return
	}

	cmd, err := DecodeCommand(frame)
	if err != nil {
		rt.reply(s.conn, err)
		return
	}

	switch c := cmd.(type) {
	case CreateRoom:
		hub, err := rt.registry.CreateRoom(Player{ID: id, Name: c.PlayerName}, s.conn)
		if err != nil {
			rt.log.Error().Err(err).Msg("GAMES: Failed to create room")
			rt.reply(s.conn, err)
			return
		}

		rt.leave(id, code)
		rt.bind(id, hub.Code())

	case JoinRoom:
		if c.RoomCode == code {
			rt.reply(s.conn, ErrInvalidPhaseTransition)
			return
		}

		hub, err := rt.registry.Get(c.RoomCode)
		if err != nil {
			rt.reply(s.conn, err)
			return
		}

		if err := hub.Join(ctx, Player{ID: id, Name: c.PlayerName}, s.conn); err != nil {
			rt.reply(s.conn, err)
			return
		}

		rt.leave(id, code)
		rt.bind(id, hub.Code())

	default:
		if code == "" || (cmd.Room() != "" && cmd.Room() != code) {
			rt.reply(s.conn, ErrRoomNotFound)
			return
		}

		hub, err := rt.registry.Get(code)
		if err != nil {
			rt.reply(s.conn, err)
			return
		}

		if err := hub.Do(id, cmd); err != nil {
			rt.reply(s.conn, err)
		}
	}
}

func (rt *Router) reply(conn Conn, err error) {
	conn.Send(errorEvent(conn.ID(), err).Event)
}
