package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// FeedItem is the wire form of a notification on the live feed.
type FeedItem struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claimId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"isRead"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFeedItem(n activity.Notification) FeedItem {
	return FeedItem{
		ID:        n.ID,
		ClaimID:   n.ClaimID,
		UserID:    n.ActorID,
		Message:   n.Message.RenderHTML(),
		Text:      n.Message.RenderText(),
		IsRead:    n.Read,
		Timestamp: n.CreatedAt,
	}
}

type Event struct {
	Type string   `json:"type"`
	Data FeedItem `json:"data"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans notifications out to websocket clients. Slow clients drop events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	upgrader    websocket.Upgrader
}

var _ ports.NotificationPublisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, 64)}
	h.subscribers[sub] = struct{}{}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers, sub)
			close(sub.ch)
		})
	}
	return sub.ch, unsub
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) Publish(_ context.Context, notifications []activity.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, n := range notifications {
		event := Event{Type: "notification", Data: NewFeedItem(n)}
		for sub := range h.subscribers {
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// ServeWS upgrades the request and streams events until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithAttrs(r.Context(), slog.String("component", "notify.hub"))
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(ctx, "websocket upgrade failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	defer conn.Close()

	events, unsub := h.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logging.Debug(ctx, "websocket write failed", slog.Any("err", errs.Loggable(err)))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
