package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	snapshotTimeout = 5 * time.Second
)

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte

	hub    *Hub
	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    hub,
		subs:   make(map[string]*Subscription),
	}
}

// Run serves the connection until the peer goes away.
func (c *Client) Run() {
	c.hub.register(c)
	go c.writePump()
	c.queue(MsgReady, nil)
	c.readPump()
}

// read
func (c *Client) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("ws write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.queue(MsgError, ErrorPayload{Message: "invalid message"})
		return
	}

	switch env.Type {
	case MsgSubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.queue(MsgError, ErrorPayload{Message: "invalid subscribe payload"})
			return
		}
		c.subscribe(p)
	case MsgUnsubscribe:
		var p UnsubscribePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.queue(MsgError, ErrorPayload{Message: "invalid unsubscribe payload"})
			return
		}
		c.mu.Lock()
		delete(c.subs, p.ID)
		c.mu.Unlock()
	case MsgPing:
		c.queue(MsgPong, nil)
	default:
		c.queue(MsgError, ErrorPayload{Message: "unknown message type"})
	}
}

// subscribe registers the live query, then sends its current contents as
// added messages. A mutation committed in between may be seen twice.
// Limit bounds the snapshot only: later added and changed messages are
// sent for any matching task, and clients trim to their window using the
// subscription's sort.
func (c *Client) subscribe(p SubscribePayload) {
	sub, err := newSubscription(c.UserID, p, c.hub.pageSize)
	if err != nil {
		c.queue(MsgError, ErrorPayload{Message: err.Error(), ID: p.ID})
		return
	}

	c.mu.Lock()
	if _, exists := c.subs[sub.ID]; !exists && len(c.subs) >= maxSubscriptions {
		c.mu.Unlock()
		c.queue(MsgError, ErrorPayload{Message: errTooManySubscriptions.Error(), ID: sub.ID})
		return
	}
	c.subs[sub.ID] = sub
	c.mu.Unlock()

	c.queue(MsgSubscribed, SubscribedPayload{ID: sub.ID, Topic: sub.Topic})

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	tasks, err := c.hub.snapshot(ctx, sub)
	if err != nil {
		logger.Error("ws snapshot failed", "user_id", c.UserID, "topic", sub.Topic, "error", err)
		msg := "failed to load tasks"
		if errors.Is(err, domain.ErrValidation) {
			msg = err.Error()
		}
		c.queue(MsgError, ErrorPayload{Message: msg, ID: sub.ID})
		return
	}
	for _, t := range tasks {
		c.queue(MsgAdded, TaskChangePayload{Subscription: sub.ID, TaskID: t.ID, Task: t})
	}
}

// deliver queues one message per subscription that sees ev.
func (c *Client) deliver(ev domain.TaskEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, sub := range c.subs {
		msgType, payload, ok := sub.change(ev)
		if !ok {
			continue
		}
		b, err := encode(msgType, payload)
		if err != nil {
			logger.Error("ws encode failed", "error", err)
			continue
		}
		c.push(msgType, b)
	}
}

func (c *Client) queue(msgType string, payload any) {
	b, err := encode(msgType, payload)
	if err != nil {
		logger.Error("ws encode failed", "type", msgType, "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.push(msgType, b)
}

// push must be called with c.mu held.
func (c *Client) push(msgType string, b []byte) {
	select {
	case c.Send <- b:
		wsMessages.WithLabelValues(msgType).Inc()
	default:
		wsDropped.Inc()
		logger.Warn("ws send buffer full, dropping message", "user_id", c.UserID, "type", msgType)
	}
}

func (c *Client) close() {
	c.hub.unregister(c)
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
	c.mu.Unlock()
}
