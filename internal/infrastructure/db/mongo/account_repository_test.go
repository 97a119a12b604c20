package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/decorhub/storefront/internal/core/domain"
)

func TestMongoAccount_RoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	acc := &domain.Account{
		Email:          "  Nadia@Example.com ",
		PasswordHash:   "$2a$10$hash",
		DisplayName:    "Nadia",
		SessionVersion: 3,
		CreatedAt:      created,
	}

	doc := toMongoAccount(acc)
	if doc.Email != "nadia@example.com" {
		t.Errorf("email must be stored normalized, got %q", doc.Email)
	}
	if doc.LastSignInAt != 0 {
		t.Errorf("zero time must be stored as 0, got %d", doc.LastSignInAt)
	}

	doc.ID = primitive.NewObjectID()
	back := doc.toDomain()
	if back.ID != doc.ID.Hex() {
		t.Errorf("expected hex id %q, got %q", doc.ID.Hex(), back.ID)
	}
	if !back.CreatedAt.Equal(created) {
		t.Errorf("created_at: want %v, got %v", created, back.CreatedAt)
	}
	if !back.LastSignInAt.IsZero() {
		t.Errorf("last_sign_in_at must stay zero, got %v", back.LastSignInAt)
	}
	if back.SessionVersion != 3 || back.PasswordHash != acc.PasswordHash {
		t.Errorf("unexpected account %+v", back)
	}
}
