// Package spectate pushes each planned turn to websocket viewers.
package spectate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brensch/antbeacon/game"
	"github.com/brensch/antbeacon/planner"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer     = 16
	broadcastQueue = 64
	writeWait      = 5 * time.Second
)

// Frame is what viewers receive once per turn.
type Frame struct {
	MatchID    string        `json:"match_id"`
	Turn       int           `json:"turn"`
	MyScore    int           `json:"my_score"`
	OppScore   int           `json:"opp_score"`
	MyAnts     int           `json:"my_ants"`
	OppAnts    int           `json:"opp_ants"`
	Controlled []int         `json:"controlled"`
	Beacons    []game.Beacon `json:"beacons"`
	FreeAnts   int           `json:"free_ants"`
	Stop       string        `json:"stop"`
}

func NewFrame(matchID string, state *game.TurnState, plan *planner.TurnPlan) Frame {
	return Frame{
		MatchID:    matchID,
		Turn:       state.Turn,
		MyScore:    state.MyScore,
		OppScore:   state.OppScore,
		MyAnts:     state.TotalMyAnts(),
		OppAnts:    state.TotalOppAnts(),
		Controlled: plan.Controlled,
		Beacons:    plan.Beacons,
		FreeAnts:   plan.FreeAnts,
		Stop:       string(plan.Stop),
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to connected viewers. A viewer whose send buffer is full
// misses that frame; the bot never waits on a viewer.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	// last frame, replayed to viewers that join mid-match
	last  []byte
	count atomic.Int64
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:        logger,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastQueue),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.count.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
			if h.last != nil {
				c.send <- h.last
			}
			h.log.Debug("viewer connected", "remote", c.conn.RemoteAddr().String(), "viewers", len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
				h.log.Debug("viewer disconnected", "viewers", len(h.clients))
			}
		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Debug("viewer lagging, frame dropped", "remote", c.conn.RemoteAddr().String())
				}
			}
		}
	}
}

// Broadcast queues v as a JSON frame. Frames are dropped while the queue is
// full.
func (h *Hub) Broadcast(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("spectate queue full, frame dropped")
	}
	return nil
}

// Clients is the number of connected viewers.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writer(c)
	go h.reader(c)
}

// reader drains viewer messages so control frames are handled, and
// unregisters on the first error.
func (h *Hub) reader(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writer(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
