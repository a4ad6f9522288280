/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package eitheror

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	codeLength   = 4
	codeLetters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeAttempts = 64
)

// ErrNoFreeCodes is returned when no unused room code could be found.
var ErrNoFreeCodes = errors.New("no free room codes")

// Config holds configuration for the room registry.
type Config struct {
	// Questions is shared by every room.
	Questions *QuestionPool

	// Room rules applied to new rooms.
	Room RoomOptions

	// IdleTimeout removes rooms that have seen no traffic for this long.
	// Zero disables reaping.
	IdleTimeout time.Duration

	// AutoAdvance starts the next round this long after results are
	// revealed. Zero leaves it to the host.
	AutoAdvance time.Duration

	// Archive receives the final scoreboard of every finished game.
	Archive Archive

	Logger zerolog.Logger
}

// Registry maps room codes to running hubs.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*Hub

	cfg       Config
	scheduler *Scheduler
	log       zerolog.Logger
	newCode   func() (string, error)
}

func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Questions == nil {
		return nil, ErrNoQuestions
	}

	if cfg.IdleTimeout < 0 || cfg.AutoAdvance < 0 {
		return nil, errors.New("timeouts cannot be negative")
	}

	c := *cfg
	if c.Archive == nil {
		c.Archive = NopArchive{}
	}

	return &Registry{
		hubs:      make(map[string]*Hub),
		cfg:       c,
		scheduler: NewScheduler(),
		log:       c.Logger,
		newCode:   generateCode,
	}, nil
}

// generateCode returns a random code of uppercase letters, drawn from
// crypto/rand with rejection sampling so every letter is equally likely.
func generateCode() (string, error) {
	const max = byte(255 - (256 % len(codeLetters)))

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)

	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, codeLetters[int(b)%len(codeLetters)])
				if len(out) == codeLength {
					break
				}
			}
		}
	}

	return string(out), nil
}

// NormalizeCode trims and upper-cases a user-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is exactly four letters A to Z.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}

	return true
}

// CreateRoom starts a new room in the lobby with host as its only player.
func (r *Registry) CreateRoom(host Player, conn Conn) (*Hub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range codeAttempts {
		code, err := r.newCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}

		if _, exists := r.hubs[code]; exists {
			continue
		}

		room := NewRoom(code, host, r.cfg.Questions, r.cfg.Room)
		hub := newHub(r, room, conn)
		r.hubs[code] = hub

		go hub.run()

		r.log.Info().Str("room", code).Str("host", host.Name).Msg("GAMES: Created room")

		return hub, nil
	}

	return nil, ErrNoFreeCodes
}

func (r *Registry) Get(code string) (*Hub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hub, ok := r.hubs[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return hub, nil
}

// Remove stops the room and forgets its code.
func (r *Registry) Remove(code string) {
	code = NormalizeCode(code)

	r.mu.Lock()
	hub, ok := r.hubs[code]
	delete(r.hubs, code)
	r.mu.Unlock()

	r.scheduler.Cancel(code)

	if ok {
		hub.stop()
		r.log.Info().Str("room", code).Msg("GAMES: Removed room")
	}
}

// remove is called by a hub that has run out of players.
func (r *Registry) remove(h *Hub) {
	r.mu.Lock()
	if current, ok := r.hubs[h.code]; ok && current == h {
		delete(r.hubs, h.code)
	}
	r.mu.Unlock()

	r.scheduler.Cancel(h.code)
	h.stop()

	r.log.Info().Str("room", h.code).Msg("GAMES: Removed empty room")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hubs)
}

// Reap removes rooms idle since before now minus the idle timeout.
func (r *Registry) Reap(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}

	cutoff := now.Add(-r.cfg.IdleTimeout)

	var stale []string

	r.mu.RLock()
	for code, hub := range r.hubs {
		if hub.LastActive().Before(cutoff) {
			stale = append(stale, code)
		}
	}
	r.mu.RUnlock()

	for _, code := range stale {
		r.Remove(code)
	}

	return len(stale)
}

// Run reaps idle rooms until ctx is cancelled, then closes every room.
func (r *Registry) Run(ctx context.Context) error {
	defer r.Close()

	if r.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := r.Reap(now); n > 0 {
				r.log.Info().Int("rooms", n).Msg("GAMES: Reaped idle rooms")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops every room.
func (r *Registry) Close() {
	r.mu.Lock()
	hubs := r.hubs
	r.hubs = make(map[string]*Hub)
	r.mu.Unlock()

	r.scheduler.Stop()

	for _, hub := range hubs {
		hub.stop()
	}
}
