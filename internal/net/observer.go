package net

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/world"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Frame is one observer message: a registry lifecycle event flattened for
// external tools (live map viewers, editors). Encoded as msgpack binary
// websocket messages.
type Frame struct {
	Kind    string `msgpack:"kind"`
	MapID   uint32 `msgpack:"map_id,omitempty"`
	GridID  uint32 `msgpack:"grid_id,omitempty"`
	Changes int    `msgpack:"changes,omitempty"`
}

// Observer serves a websocket feed of map/grid/tile lifecycle events.
// Bus delivery happens on the simulation goroutine; fan-out to clients goes
// through buffered channels so a slow viewer can never stall a tick.
// Clients that fall behind are dropped.
type Observer struct {
	srv      *http.Server
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewObserver(bind string, bus *event.Bus, log *zap.Logger) *Observer {
	o := &Observer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", o.handleWS)
	o.srv = &http.Server{Addr: bind, Handler: mux}

	event.Subscribe(bus, func(ev world.MapCreatedEvent) {
		o.broadcast(Frame{Kind: "map_created", MapID: uint32(ev.MapID)})
	})
	event.Subscribe(bus, func(ev world.MapRemovedEvent) {
		o.broadcast(Frame{Kind: "map_removed", MapID: uint32(ev.MapID)})
	})
	event.Subscribe(bus, func(ev world.GridCreatedEvent) {
		o.broadcast(Frame{Kind: "grid_created", MapID: uint32(ev.MapID), GridID: uint32(ev.GridID)})
	})
	event.Subscribe(bus, func(ev world.GridRemovedEvent) {
		o.broadcast(Frame{Kind: "grid_removed", MapID: uint32(ev.MapID), GridID: uint32(ev.GridID)})
	})
	event.Subscribe(bus, func(ev world.GridChangedEvent) {
		o.broadcast(Frame{Kind: "grid_changed", GridID: uint32(ev.GridID), Changes: len(ev.Modified)})
	})

	return o
}

// Start begins serving in its own goroutine.
func (o *Observer) Start() {
	go func() {
		if err := o.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.log.Error("observer server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the endpoint and disconnects all clients.
func (o *Observer) Shutdown(ctx context.Context) {
	_ = o.srv.Shutdown(ctx)
	o.mu.Lock()
	for c := range o.clients {
		close(c.send)
		delete(o.clients, c)
	}
	o.mu.Unlock()
}

func (o *Observer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.log.Warn("observer upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 256)}

	o.mu.Lock()
	o.clients[c] = struct{}{}
	o.mu.Unlock()
	o.log.Info("observer connected", zap.String("remote", conn.RemoteAddr().String()))

	go o.writeLoop(c)
	go o.readLoop(c)
}

func (o *Observer) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			o.drop(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards inbound messages; the feed is one-way. It exists to
// notice disconnects.
func (o *Observer) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			o.drop(c)
			return
		}
	}
}

func (o *Observer) drop(c *client) {
	o.mu.Lock()
	if _, ok := o.clients[c]; ok {
		delete(o.clients, c)
		close(c.send)
	}
	o.mu.Unlock()
}

func (o *Observer) broadcast(f Frame) {
	msg, err := msgpack.Marshal(f)
	if err != nil {
		o.log.Error("observer encode failed", zap.Error(err))
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for c := range o.clients {
		select {
		case c.send <- msg:
		default:
			// Client buffer full: drop it rather than block the tick.
			delete(o.clients, c)
			close(c.send)
		}
	}
}
