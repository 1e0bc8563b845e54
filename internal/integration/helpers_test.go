package integration

import (
	"context"
	"os"
	"testing"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/migrations"
	"todo_webapp/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupDB connects to DATABASE_URL, applies the migrations and empties the
// tables. Tests using it are skipped when the variable is unset.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if err := migrations.Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(context.Background(), `TRUNCATE tasks, audit_logs, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *pgxpool.Pool, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Username: email, PasswordHash: "x"}
	if err := repository.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}
