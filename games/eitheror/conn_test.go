package eitheror_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/Seednode/eitheror/games/eitheror"
	"github.com/Seednode/eitheror/games/eitheror/mocks"
)

const waitTimeout = time.Second

type fakeConn struct {
	id     string
	events chan eitheror.Event
	closed atomic.Bool
}

func newFakeConn(id string, buffer int) *fakeConn {
	return &fakeConn{id: id, events: make(chan eitheror.Event, buffer)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(e eitheror.Event) bool {
	if c.closed.Load() {
		return false
	}

	select {
	case c.events <- e:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Close() { c.closed.Store(true) }

func (c *fakeConn) next(t *testing.T) eitheror.Event {
	t.Helper()

	select {
	case e := <-c.events:
		return e
	case <-time.After(waitTimeout):
		t.Fatalf("%s: timed out waiting for an event", c.id)
	}

	return eitheror.Event{}
}

// expect reads the next event and requires it to have the given name.
func (c *fakeConn) expect(t *testing.T, name string) eitheror.Event {
	t.Helper()

	e := c.next(t)
	require.Equal(t, name, e.Name, "%s: unexpected event with data %+v", c.id, e.Data)

	return e
}

func (c *fakeConn) expectError(t *testing.T, code string) {
	t.Helper()

	e := c.expect(t, eitheror.EventErrorMessage)
	require.Equal(t, code, e.Data.(eitheror.ErrorMessageData).Code)
}

func (c *fakeConn) quiet(t *testing.T, d time.Duration) {
	t.Helper()

	select {
	case e := <-c.events:
		t.Fatalf("%s: unexpected event %s with data %+v", c.id, e.Name, e.Data)
	case <-time.After(d):
	}
}

func expectAll(t *testing.T, name string, conns ...*fakeConn) []eitheror.Event {
	t.Helper()

	events := make([]eitheror.Event, 0, len(conns))
	for _, c := range conns {
		events = append(events, c.expect(t, name))
	}

	return events
}

type harness struct {
	registry *eitheror.Registry
	router   *eitheror.Router
	archive  *mocks.MockArchive
}

type harnessOption func(*eitheror.Config, *eitheror.RouterConfig)

func withAutoAdvance(d time.Duration) harnessOption {
	return func(c *eitheror.Config, _ *eitheror.RouterConfig) { c.AutoAdvance = d }
}

func withRateLimit(limit rate.Limit, burst int) harnessOption {
	return func(_ *eitheror.Config, rc *eitheror.RouterConfig) {
		rc.RateLimit = limit
		rc.RateBurst = burst
	}
}

func withLateJoin() harnessOption {
	return func(c *eitheror.Config, _ *eitheror.RouterConfig) { c.Room.AllowLateJoin = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	archive := mocks.NewMockArchive(ctrl)

	pool, err := eitheror.DefaultQuestionPool()
	require.NoError(t, err)

	cfg := &eitheror.Config{
		Questions: pool,
		Room: eitheror.RoomOptions{
			// Always pick the first eligible player, so turns follow join order.
			Intn: func(int) int { return 0 },
		},
		Archive: archive,
		Logger:  zerolog.Nop(),
	}
	rcfg := &eitheror.RouterConfig{Logger: zerolog.Nop()}

	for _, opt := range opts {
		opt(cfg, rcfg)
	}

	registry, err := eitheror.NewRegistry(cfg)
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	rcfg.Registry = registry
	router, err := eitheror.NewRouter(rcfg)
	require.NoError(t, err)

	return &harness{registry: registry, router: router, archive: archive}
}

func (h *harness) connect(t *testing.T, id string) *fakeConn {
	t.Helper()

	c := newFakeConn(id, 64)
	h.router.Connect(c)

	e := c.expect(t, eitheror.EventSession)
	require.Equal(t, eitheror.SessionData{ConnectionID: id}, e.Data)

	return c
}

func (h *harness) send(t *testing.T, c *fakeConn, event string, data any) {
	t.Helper()

	frame, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)

	h.router.Handle(context.Background(), c.id, frame)
}

// create has c create a room and returns its code.
func (h *harness) create(t *testing.T, c *fakeConn, name string) string {
	t.Helper()

	h.send(t, c, eitheror.EventCreateRoom, map[string]string{"playerName": name})

	created := c.expect(t, eitheror.EventRoomCreated).Data.(eitheror.RoomCreatedData)
	require.Equal(t, eitheror.HostAssignmentData{IsHost: true}, c.expect(t, eitheror.EventHostAssignment).Data)

	return created.NewRoomCode
}

// join has c join the room; others are the players already in it.
func (h *harness) join(t *testing.T, c *fakeConn, code, name string, others ...*fakeConn) {
	t.Helper()

	h.send(t, c, eitheror.EventJoinRoom, map[string]string{"roomCode": code, "playerName": name})

	c.expect(t, eitheror.EventRoomUpdate)
	require.Equal(t, eitheror.HostAssignmentData{IsHost: false}, c.expect(t, eitheror.EventHostAssignment).Data)
	expectAll(t, eitheror.EventRoomUpdate, others...)
}
