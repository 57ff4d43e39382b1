package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/repository/sqlite"
)

var alice = auth.Identity{UserID: 1, Name: "Alice", SessionID: "sid-alice"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestCatalog(t *testing.T) (*CatalogService, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	return NewCatalogService(db, NewValidator(), discardLogger(), 3), db
}

func newTestAuth(t *testing.T) (*AuthService, *sqlite.DB, *auth.MemorySessionStore) {
	t.Helper()
	db := newTestStore(t)
	tokens, err := auth.NewTokenService("service-test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	sessions := auth.NewMemorySessionStore()
	svc := NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), sessions, NewValidator(), discardLogger())
	return svc, db, sessions
}
