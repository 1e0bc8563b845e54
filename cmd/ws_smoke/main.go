package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"todo_webapp/internal/db"
	"todo_webapp/internal/domain"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	service.InitJWT(jwtSecret, 0)
	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(users, nil)
	ctx := context.Background()

	// A watches, B writes
	uA := ensureUser(ctx, users, auth, "smoke-a@todo.local", "smokeA")
	uB := ensureUser(ctx, users, auth, "smoke-b@todo.local", "smokeB")

	tokenA, err := service.GenerateJWT(uA.ID)
	if err != nil {
		log.Fatalf("gen token A: %v", err)
	}
	tokenB, err := service.GenerateJWT(uB.ID)
	if err != nil {
		log.Fatalf("gen token B: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("127.0.0.1:%s", port)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws?token="+tokenA, nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer conn.Close()

	// a timed out read breaks the connection, so one goroutine reads
	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	sub := `{"type":"subscribe","payload":{"id":"smoke","topic":"tasks.list","category":"work"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	waitFor(msgs, "subscribed", 2*time.Second)
	drain(msgs)

	stamp := time.Now().Format("150405")
	createTask(base, tokenB, map[string]any{"title": "smoke public " + stamp, "category": "work"})
	createTask(base, tokenB, map[string]any{"title": "smoke personal " + stamp, "category": "work", "is_personal": true})

	added := 0
	deadline := time.After(3 * time.Second)
collect:
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				break collect
			}
			log.Printf("A got: %s", string(msg))
			if bytes.Contains(msg, []byte(`"type":"added"`)) {
				added++
			}
		case <-deadline:
			break collect
		}
	}

	if added != 1 {
		log.Fatalf("expected exactly one added event (personal task must stay hidden), got %d", added)
	}
	log.Println("smoke test finished")
}

func ensureUser(ctx context.Context, users *repository.UserRepository, auth *service.AuthService, email, name string) *domain.User {
	u, err := users.GetByEmail(ctx, email)
	if err == nil {
		return u
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Fatalf("lookup %s: %v", email, err)
	}
	u, _, err = auth.SignUp(ctx, service.SignUpInput{Email: email, Username: name, Password: "smoke-password"})
	if err != nil {
		log.Fatalf("create %s: %v", email, err)
	}
	return u
}

func createTask(base, token string, body map[string]any) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, "http://"+base+"/api/v1/tasks", bytes.NewReader(b))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("create task: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		log.Fatalf("create task: status %d", res.StatusCode)
	}
}

func waitFor(msgs <-chan []byte, msgType string, timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				log.Fatalf("connection closed waiting for %s", msgType)
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			if t, ok := obj["type"].(string); ok && t == msgType {
				return
			}
		case <-deadline:
			log.Fatalf("timeout waiting for %s", msgType)
		}
	}
}

// drain discards the initial snapshot.
func drain(msgs <-chan []byte) {
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
		case <-time.After(300 * time.Millisecond):
			return
		}
	}
}
