package ws

import (
	"context"
	"sync"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

// Finder loads the initial contents of a subscription.
type Finder interface {
	Find(ctx context.Context, filter domain.TaskFilter, opts domain.FindOptions) ([]*domain.Task, error)
}

// Hub fans committed task mutations out to the subscriptions of every
// connected client.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	store    Finder
	pageSize int
	relay    Relay
}

// Relay carries task events between instances. Run blocks until the
// subscription ends.
type Relay interface {
	Publish(ctx context.Context, ev domain.TaskEvent) error
	Run(ctx context.Context, deliver func(domain.TaskEvent))
}

func NewHub(store Finder, pageSize int) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		store:    store,
		pageSize: pageSize,
	}
}

// UseRelay routes published events through Redis so that every instance
// sharing the channel delivers them. Call before serving connections.
// Once Run returns, events are delivered locally again.
func (h *Hub) UseRelay(ctx context.Context, r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()

	go func() {
		r.Run(ctx, h.Dispatch)

		h.mu.Lock()
		if h.relay == r {
			h.relay = nil
		}
		h.mu.Unlock()
		if ctx.Err() == nil {
			logger.Warn("ws relay stopped, delivering events locally")
		}
	}()
}

func (h *Hub) currentRelay() Relay {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.relay
}

// Publish implements service.TaskNotifier.
func (h *Hub) Publish(ctx context.Context, ev domain.TaskEvent) {
	if relay := h.currentRelay(); relay != nil {
		err := relay.Publish(ctx, ev)
		if err == nil {
			return
		}
		logger.WithContext(ctx).Warn("redis relay publish failed, delivering locally", "task_id", ev.TaskID(), "error", err)
	}
	h.Dispatch(ev)
}

// Dispatch delivers ev to the clients connected to this instance.
func (h *Hub) Dispatch(ev domain.TaskEvent) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.deliver(ev)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	wsConnections.Inc()
	logger.Debug("ws client registered", "user_id", c.UserID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		wsConnections.Dec()
		logger.Debug("ws client unregistered", "user_id", c.UserID)
	}
}

func (h *Hub) snapshot(ctx context.Context, sub *Subscription) ([]*domain.Task, error) {
	if h.store == nil {
		return nil, nil
	}
	return h.store.Find(ctx, sub.Filter, domain.FindOptions{
		Sort:       sub.Sort,
		Limit:      sub.Limit,
		Projection: sub.Projection,
	})
}
