package eitheror

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const inboxSize = 64

// Conn is a live client connection.
type Conn interface {
	ID() string

	// Send queues an event without blocking. It returns false if the
	// connection cannot keep up, after which the connection is dropped.
	Send(Event) bool

	Close()
}

type requestKind int

const (
	requestJoin requestKind = iota
	requestLeave
	requestCommand
	requestAutoAdvance
)

type hubRequest struct {
	kind   requestKind
	conn   Conn
	player Player
	cmd    Command
	round  int
	errc   chan error
}

// Hub owns one Room. All reads and writes of the room happen on the hub's
// goroutine, one request at a time, and events are queued to connections in
// the order the room produced them.
type Hub struct {
	code     string
	room     *Room
	conns    map[string]Conn
	registry *Registry

	inbox    chan hubRequest
	done     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	lastActive time.Time

	archived bool
	log      zerolog.Logger
}

func newHub(registry *Registry, room *Room, creator Conn) *Hub {
	return &Hub{
		code:       room.Code(),
		room:       room,
		conns:      map[string]Conn{creator.ID(): creator},
		registry:   registry,
		inbox:      make(chan hubRequest, inboxSize),
		done:       make(chan struct{}),
		lastActive: time.Now(),
		log:        registry.log.With().Str("room", room.Code()).Logger(),
	}
}

func (h *Hub) Code() string {
	return h.code
}

// LastActive returns when the hub last handled a request.
func (h *Hub) LastActive() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) submit(req hubRequest) error {
	select {
	case <-h.done:
		return ErrRoomNotFound
	default:
	}

	select {
	case h.inbox <- req:
		return nil
	case <-h.done:
		return ErrRoomNotFound
	}
}

// Join adds the player behind conn to the room and waits for the outcome.
func (h *Hub) Join(ctx context.Context, p Player, conn Conn) error {
	errc := make(chan error, 1)

	if err := h.submit(hubRequest{kind: requestJoin, conn: conn, player: p, errc: errc}); err != nil {
		return err
	}

	select {
	case err := <-errc:
		return err
	case <-h.done:
		return ErrRoomNotFound
	case <-ctx.Done():
		// The join may still land; make sure it does not leave a ghost player.
		_ = h.Leave(p.ID)
		return ctx.Err()
	}
}

// Leave removes the player with the given connection id.
func (h *Hub) Leave(id string) error {
	return h.submit(hubRequest{kind: requestLeave, player: Player{ID: id}})
}

// Do runs a game command on behalf of the given connection.
func (h *Hub) Do(id string, cmd Command) error {
	return h.submit(hubRequest{kind: requestCommand, player: Player{ID: id}, cmd: cmd})
}

func (h *Hub) autoAdvance(round int) {
	_ = h.submit(hubRequest{kind: requestAutoAdvance, round: round})
}

func (h *Hub) run() {
	defer h.closeAll()

	h.deliver(h.room.Created())

	for {
		select {
		case req := <-h.inbox:
			h.touch()

			if empty := h.handle(req); empty {
				h.log.Debug().Msg("GAMES: Room is empty, removing")
				h.registry.remove(h)
				return
			}

		case <-h.done:
			return
		}
	}
}

// handle applies one request. It reports whether the room is now empty.
func (h *Hub) handle(req hubRequest) bool {
	switch req.kind {
	case requestJoin:
		out, err := h.room.Join(req.player)
		if err != nil {
			req.errc <- err
			return false
		}

		h.conns[req.player.ID] = req.conn
		req.errc <- nil

		h.log.Debug().Str("player", req.player.Name).Msg("GAMES: Player joined")
		h.deliver(out)

	case requestLeave:
		delete(h.conns, req.player.ID)

		out, empty, err := h.room.Leave(req.player.ID)
		if err != nil {
			return empty
		}
		if empty {
			return true
		}

		if h.room.Phase() != PhaseRoundRevealed {
			h.registry.scheduler.Cancel(h.code)
		}

		h.log.Debug().Str("player", req.player.ID).Msg("GAMES: Player left")
		h.deliver(out)

	case requestCommand:
		out, err := h.command(req.player.ID, req.cmd)
		if err != nil {
			h.log.Debug().Err(err).Str("player", req.player.ID).Msg("GAMES: Rejected command")
			h.deliver([]Outbound{errorEvent(req.player.ID, err)})
			return false
		}

		h.deliver(out)

	case requestAutoAdvance:
		out, ok := h.room.AutoAdvance(req.round)
		if ok {
			h.log.Debug().Int("round", req.round).Msg("GAMES: Auto-advanced")
			h.deliver(out)
		}
	}

	return false
}

func (h *Hub) command(id string, cmd Command) ([]Outbound, error) {
	switch c := cmd.(type) {
	case StartGame:
		out, err := h.room.StartGame(id)
		if err == nil {
			h.log.Info().Int("players", h.room.Len()).Msg("GAMES: Game started")
		}
		return out, err

	case SubmitAnswer:
		return h.room.SubmitAnswer(id, c.Answer)

	case SubmitGuess:
		return h.room.SubmitGuess(id, c.Guess)

	case RevealResults:
		out, err := h.room.RevealResults(id)
		if err == nil && h.registry.cfg.AutoAdvance > 0 {
			round := h.room.Round()
			h.registry.scheduler.Schedule(h.code, h.registry.cfg.AutoAdvance, func() {
				h.autoAdvance(round)
			})
		}
		return out, err

	case StartNextRound:
		out, err := h.room.StartNextRound(id)
		if err == nil {
			h.registry.scheduler.Cancel(h.code)
		}
		return out, err

	case RevealScoreboard:
		out, err := h.room.RevealScoreboard(id)
		if err == nil && !h.archived {
			h.archived = true
			h.record()
		}
		return out, err
	}

	return nil, ErrInvalidPayload
}

// record archives the final standings off the hub goroutine.
func (h *Hub) record() {
	result := Result{
		RoomCode:   h.code,
		FinishedAt: time.Now().UTC(),
		Rounds:     h.room.Round(),
		Standings:  h.room.Standings(),
	}

	archive := h.registry.cfg.Archive
	log := h.log

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := archive.Record(ctx, result); err != nil {
			log.Warn().Err(err).Msg("GAMES: Failed to archive result")
		}
	}()
}

func (h *Hub) deliver(out []Outbound) {
	for _, o := range out {
		if o.To != "" {
			if c, ok := h.conns[o.To]; ok {
				h.send(c, o.Event)
			}
			continue
		}

		for _, c := range h.conns {
			h.send(c, o.Event)
		}
	}
}

func (h *Hub) send(c Conn, e Event) {
	if c.Send(e) {
		return
	}

	h.log.Warn().Str("conn", c.ID()).Msg("GAMES: Dropping slow connection")
	delete(h.conns, c.ID())
	c.Close()
}

// closeAll disconnects every client still attached to the hub.
func (h *Hub) closeAll() {
	h.stop()

	for id, c := range h.conns {
		c.Close()
		delete(h.conns, id)
	}
}
