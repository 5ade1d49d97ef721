package http

import (
	"context"
	"sync"

	"course-quiz-bot/internal/domain"
)

const recentNotices = 20

// Hub fans engine notices out to connected operator feeds. A slow subscriber
// loses its oldest pending notice instead of blocking the engine.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Notice]struct{}
	recent      []domain.Notice
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan domain.Notice]struct{})}
}

// Notify implements app.Notifier.
func (h *Hub) Notify(_ context.Context, n domain.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, n)
	if len(h.recent) > recentNotices {
		h.recent = h.recent[len(h.recent)-recentNotices:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}

// Subscribe returns a channel of notices plus the recent backlog.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan domain.Notice, []domain.Notice, func()) {
	ch := make(chan domain.Notice, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	backlog := make([]domain.Notice, len(h.recent))
	copy(backlog, h.recent)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, backlog, cancel
}

// Subscribers reports the number of connected feeds.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
