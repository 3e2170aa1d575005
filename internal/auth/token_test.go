package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	p := NewTokenParser("test-secret")
	actor := Actor{ID: uuid.New(), Role: RoleAdmin}

	raw, err := p.Sign(actor, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != actor {
		t.Fatalf("Parse = %+v, want %+v", got, actor)
	}
	if !got.IsAdmin() {
		t.Fatal("expected admin actor")
	}
}

func TestTokenRejects(t *testing.T) {
	p := NewTokenParser("test-secret")

	expired, _ := p.Sign(Actor{ID: uuid.New(), Role: RoleTutor}, -time.Minute)
	otherKey, _ := NewTokenParser("other").Sign(Actor{ID: uuid.New(), Role: RoleTutor}, time.Minute)
	systemRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "system",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "not-a-uuid",
		"role": "tutor",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name string
		raw  string
	}{
		{"expired", expired},
		{"wrong key", otherKey},
		{"system role cannot be claimed", systemRole},
		{"sub not uuid", badSub},
		{"garbage", "abc.def.ghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Parse(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoActor) {
		t.Fatalf("expected ErrNoActor, got %v", err)
	}

	a := Actor{ID: uuid.New(), Role: RoleProfessional}
	got, err := FromContext(WithActor(context.Background(), a))
	if err != nil || got != a {
		t.Fatalf("FromContext = %+v, %v", got, err)
	}
}
