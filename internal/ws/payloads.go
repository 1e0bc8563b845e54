package ws

import (
	"encoding/json"

	"todo_webapp/internal/domain"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client → server
type SubscribePayload struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

type UnsubscribePayload struct {
	ID string `json:"id"`
}

// server → client
type SubscribedPayload struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

type TaskChangePayload struct {
	Subscription string       `json:"subscription"`
	TaskID       string       `json:"task_id"`
	Task         *domain.Task `json:"task,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = b
	}
	return json.Marshal(env)
}
