package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/Seednode/eitheror/games/eitheror"
)

const (
	sendBuffer     = 64
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. It implements eitheror.Conn.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan eitheror.Event

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan eitheror.Event, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(e eitheror.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- e:
		return true
	default:
		return false
	}
}

// Close asks the write pump to say goodbye and hang up.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump feeds frames to the router until the connection fails or goes
// quiet for longer than timeout.
func (c *Client) readPump(ctx context.Context, rt *eitheror.Router, timeout time.Duration) {
	defer func() {
		rt.Disconnect(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

		rt.Handle(ctx, c.id, frame)
	}
}

func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func serveSocket(cfg *Config, rt *eitheror.Router, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("client", realIP(r)).Msg("SERVE: Websocket upgrade failed")
			return
		}

		client := newClient(conn)

		log.Debug().Str("conn", client.id).Str("client", realIP(r)).Msg("SERVE: Client connected")

		rt.Connect(client)

		go client.writePump(cfg.playerTimeout * 9 / 10)
		client.readPump(r.Context(), rt, cfg.playerTimeout)

		log.Debug().Str("conn", client.id).Msg("SERVE: Client disconnected")
	}
}
