package services

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/metrics"
)

const (
	// Buffered events per subscriber before it is considered stuck.
	subscriberBuffer = 64

	writeTimeout = 10 * time.Second
)

// EventHub fans engine events out to websocket subscribers at GET /events.
// It implements auction.Notifier; Notify never blocks the engine, and a
// subscriber that cannot keep up is dropped.
type EventHub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan auction.Event]struct{}
}

// NewEventHub creates an event hub.
func NewEventHub(log *slog.Logger) *EventHub {
	if log == nil {
		log = slog.Default()
	}
	return &EventHub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Events are public notifications; any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribers: make(map[chan auction.Event]struct{}),
	}
}

// RegisterRoutes registers the event stream endpoint with the router.
func (h *EventHub) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

// Notify delivers an event to all subscribers without blocking.
func (h *EventHub) Notify(ev auction.Event) {
	if ev.Type == auction.EventAuctionExtended {
		metrics.AuctionsExtended.Inc()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop it rather than stall the engine.
			delete(h.subscribers, ch)
			close(ch)
		}
	}
}

func (h *EventHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so no event emitted after
	// the client's dial returns can be missed.
	ch := h.subscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.unsubscribe(ch)
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}
	h.log.Debug("event subscriber connected", "remote", conn.RemoteAddr())

	// Reader goroutine: detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.unsubscribe(ch)
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *EventHub) subscribe() chan auction.Event {
	ch := make(chan auction.Event, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan auction.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}
