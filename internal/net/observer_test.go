package net

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridforge/server/internal/core/event"
	"github.com/gridforge/server/internal/world"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

func (o *Observer) clientCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.clients)
}

func waitForClients(t *testing.T, o *Observer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.clientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("observer has %d clients, want %d", o.clientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestObserverBroadcastsLifecycleFrames(t *testing.T) {
	bus := event.NewBus()
	o := NewObserver("127.0.0.1:0", bus, zap.NewNop())
	srv := httptest.NewServer(o.srv.Handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitForClients(t, o, 1)

	event.Publish(bus, world.MapCreatedEvent{MapID: 3})
	event.Publish(bus, world.GridChangedEvent{
		GridID:   9,
		Modified: []world.TileChange{{X: 1, Y: 2}, {X: 3, Y: 4}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", kind)
	}
	var f Frame
	if err := msgpack.Unmarshal(msg, &f); err != nil {
		t.Fatal(err)
	}
	if f.Kind != "map_created" || f.MapID != 3 {
		t.Fatalf("first frame = %+v", f)
	}

	if _, msg, err = conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	if err := msgpack.Unmarshal(msg, &f); err != nil {
		t.Fatal(err)
	}
	if f.Kind != "grid_changed" || f.GridID != 9 || f.Changes != 2 {
		t.Fatalf("second frame = %+v", f)
	}
}

func TestSlowClientIsDroppedNotBlocked(t *testing.T) {
	bus := event.NewBus()
	o := NewObserver("127.0.0.1:0", bus, zap.NewNop())

	// A client with a full buffer and no reader.
	c := &client{send: make(chan []byte, 1)}
	o.mu.Lock()
	o.clients[c] = struct{}{}
	o.mu.Unlock()

	event.Publish(bus, world.MapCreatedEvent{MapID: 1}) // fills the buffer
	event.Publish(bus, world.MapCreatedEvent{MapID: 2}) // overflows: dropped

	if o.clientCount() != 0 {
		t.Fatal("slow client should be dropped on overflow")
	}
	select {
	case _, ok := <-c.send:
		if !ok {
			t.Fatal("buffered frame should still be readable before close")
		}
	default:
		t.Fatal("expected a buffered frame")
	}
	if _, ok := <-c.send; ok {
		t.Fatal("send channel should be closed after the drop")
	}
}
