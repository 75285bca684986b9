package booking

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"prodstudio/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1024

	maxSnapshotReads = 3
)

// subscriber is one websocket watching a single date.
type subscriber struct {
	date string
	conn *websocket.Conn
	send chan []byte

	mu sync.Mutex
	// ready is set once the initial snapshot is queued; stale is set when a
	// change arrived before that.
	ready bool
	stale bool
}

// deliver queues data unless the subscriber is still reading its snapshot.
func (sub *subscriber) deliver(data []byte) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.ready {
		sub.stale = true
		return
	}
	select {
	case sub.send <- data:
	default:
		// slow client, it will get the next snapshot
	}
}

// prime queues the initial snapshot. It reports false when a change arrived
// while the snapshot was read, in which case the snapshot must be read again.
func (sub *subscriber) prime(data []byte, force bool) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stale && !force {
		sub.stale = false
		return false
	}
	sub.ready = true
	sub.send <- data
	return true
}

// Hub fans occupied-slot snapshots out to websocket clients grouped by date.
type Hub struct {
	mu       sync.RWMutex
	byDate   map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

// NewHub accepts websocket upgrades from requests without an Origin header or from one of origins.
func NewHub(origins []string) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		byDate: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Hub) Watching(date string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byDate[date]) > 0
}

func (h *Hub) Broadcast(date string, slots []domain.OccupiedSlot) {
	data, err := encodeSlots(date, slots)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.byDate[date] {
		sub.deliver(data)
	}
}

// Serve upgrades the request and blocks until the client goes away. The
// subscriber is registered before snapshot runs, and snapshot is read again
// when a change lands meanwhile, so the first message is never older than a
// committed change.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, date string, snapshot func() ([]domain.OccupiedSlot, error)) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := &subscriber{date: date, conn: conn, send: make(chan []byte, 16)}
	h.register(sub)

	for attempt := 1; ; attempt++ {
		slots, err := snapshot()
		if err == nil {
			var data []byte
			data, err = encodeSlots(date, slots)
			if err == nil && sub.prime(data, attempt == maxSnapshotReads) {
				break
			}
		}
		if err != nil {
			log.Printf("slot_feed_snapshot_error date=%s error=%v", date, err)
			h.unregister(sub)
			conn.Close()
			return nil
		}
	}

	go h.writePump(sub)
	h.readPump(sub)
	return nil
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.byDate[sub.date]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.byDate[sub.date] = subs
	}
	subs[sub] = struct{}{}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.byDate[sub.date]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.byDate, sub.date)
	}
	close(sub.send)
}

// readPump only drains control frames; the feed is server to client.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.unregister(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxMsgSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("slot_feed_read_error date=%s error=%v", sub.date, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeSlots(date string, slots []domain.OccupiedSlot) ([]byte, error) {
	if slots == nil {
		slots = []domain.OccupiedSlot{}
	}
	return json.Marshal(SlotEvent{Type: EventOccupiedSlots, Date: date, OccupiedSlots: slots})
}
