package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret", time.Hour)

	token, err := GenerateJWT(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	uid, err := ParseJWT(token)
	if err != nil || uid != 42 {
		t.Fatalf("parse: uid=%d err=%v", uid, err)
	}

	if _, err := ParseJWT(token + "x"); err == nil {
		t.Fatalf("tampered token must be rejected")
	}
}

func TestJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	InitJWT("test-secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	s, _ := expired.SignedString([]byte("test-secret"))
	if _, err := ParseJWT(s); err == nil {
		t.Fatalf("expired token must be rejected")
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, _ = foreign.SignedString([]byte("other-secret"))
	if _, err := ParseJWT(s); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1})
	s, _ = noExp.SignedString([]byte("test-secret"))
	if _, err := ParseJWT(s); err == nil {
		t.Fatalf("token without exp must be rejected")
	}
}
