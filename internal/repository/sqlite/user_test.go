package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
)

func strPtr(s string) *string { return &s }

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "Test " + username,
		Username:     strPtr(username),
		PasswordHash: strPtr("$2a$04$hash"),
		Email:        strPtr(username + "@example.com"),
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "alice")

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_OAuthOnlyUserHasNullColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two users without username or email: NULLs never collide on UNIQUE.
	for _, name := range []string{"First", "Second"} {
		if err := db.CreateUser(ctx, &model.User{Name: name}); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}

	got, err := db.GetUserByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Username != nil || got.PasswordHash != nil || got.Email != nil {
		t.Errorf("nullable columns = %v %v %v, want all nil", got.Username, got.PasswordHash, got.Email)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	err := db.CreateUser(context.Background(), &model.User{Name: "Other", Username: strPtr("alice")})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	want := createTestUser(t, db, "bob")

	byID, err := db.GetUserByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Name != want.Name || *byID.Username != "bob" {
		t.Errorf("GetUserByID() = %+v", byID)
	}

	byUsername, err := db.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if byUsername.ID != want.ID {
		t.Errorf("GetUserByUsername() ID = %d, want %d", byUsername.ID, want.ID)
	}

	byEmail, err := db.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != want.ID {
		t.Errorf("GetUserByEmail() ID = %d, want %d", byEmail.ID, want.ID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUserByID(ctx, 42); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByUsername(ctx, "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}
