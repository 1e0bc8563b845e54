package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"todo_webapp/internal/db"
	"todo_webapp/internal/domain"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"
)

func main() {
	email := flag.String("email", "tester@todo.local", "account email")
	password := flag.String("password", "tester-password", "account password")
	seed := flag.Bool("seed", true, "create sample tasks for the account")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret, 0)

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(users, nil)

	u, err := users.GetByEmail(ctx, *email)
	switch {
	case err == nil:
		log.Printf("user already exists id=%d\n", u.ID)
	case errors.Is(err, domain.ErrNotFound):
		u, _, err = auth.SignUp(ctx, service.SignUpInput{Email: *email, Username: "tester", Password: *password})
		if err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	default:
		log.Fatalf("lookup user failed: %v", err)
	}

	if *seed {
		tasks := service.NewTaskService(repository.NewTaskRepository(pool), service.TaskServiceConfig{})
		n, err := tasks.CreateSampleTasks(ctx, u.ID)
		if err != nil {
			log.Fatalf("seed tasks failed: %v", err)
		}
		log.Printf("sample tasks created=%d\n", n)
	}

	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
