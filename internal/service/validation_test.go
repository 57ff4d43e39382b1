package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/item-catalog/internal/model"
)

func TestIsReservedName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"create", true},
		{"Delete", true},
		{"  EDIT ", true},
		{"editor", false},
		{"Soccer", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReservedName(tt.name))
		})
	}
}

func TestValidatorStruct_Messages(t *testing.T) {
	v := NewValidator()

	errs := v.Struct(&ItemInput{Name: "", Description: ""})
	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "Name is required.", errs[0].Message)
	assert.Equal(t, "description", errs[1].Field)

	errs = v.Struct(&CategoryInput{Name: strings.Repeat("x", MaxNameLength+1)})
	require.Len(t, errs, 1)
	assert.Equal(t, "Name must be at most 64 characters.", errs[0].Message)

	errs = v.Struct(&CategoryInput{Name: "Create"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "reserved word")

	assert.Empty(t, v.Struct(&CategoryInput{Name: strings.Repeat("x", MaxNameLength)}))
}

func TestValidateCategory(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	v := NewValidator()

	soccer := &model.Category{Name: "Soccer"}
	require.NoError(t, db.CreateCategory(ctx, soccer))

	t.Run("trims and accepts a new name", func(t *testing.T) {
		in := &CategoryInput{Name: "  Hockey  "}
		errs, err := v.ValidateCategory(ctx, db, in, nil)
		require.NoError(t, err)
		assert.Empty(t, errs)
		assert.Equal(t, "Hockey", in.Name)
	})

	t.Run("rejects a taken name", func(t *testing.T) {
		errs, err := v.ValidateCategory(ctx, db, &CategoryInput{Name: "Soccer"}, nil)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, "A category with that name already exists.", errs[0].Message)
	})

	t.Run("edit may keep its own name", func(t *testing.T) {
		errs, err := v.ValidateCategory(ctx, db, &CategoryInput{Name: "Soccer"}, soccer)
		require.NoError(t, err)
		assert.Empty(t, errs)
	})

	t.Run("blank after trim is required", func(t *testing.T) {
		errs, err := v.ValidateCategory(ctx, db, &CategoryInput{Name: "   "}, nil)
		require.NoError(t, err)
		assert.True(t, errs.Has("name"))
	})
}

func TestValidateItem_UniqueAcrossCategories(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	v := NewValidator()

	c := &model.Category{Name: "Soccer"}
	require.NoError(t, db.CreateCategory(ctx, c))
	ball := &model.Item{Name: "Ball", Description: "round", CategoryID: c.ID}
	require.NoError(t, db.CreateItem(ctx, ball))

	errs, err := v.ValidateItem(ctx, db, &ItemInput{Name: "Ball", Description: "another"}, nil)
	require.NoError(t, err)
	assert.True(t, errs.Has("name"))

	errs, err = v.ValidateItem(ctx, db, &ItemInput{Name: "Ball", Description: "updated"}, ball)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateRegistration(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	v := NewValidator()

	taken, email := "alice", "alice@example.com"
	require.NoError(t, db.CreateUser(ctx, &model.User{Name: "Alice", Username: &taken, Email: &email}))

	errs, err := v.ValidateRegistration(ctx, db, &RegistrationInput{
		Name: "Alice Two", Username: "alice", Email: "alice@example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	assert.True(t, errs.Has("username"))
	assert.True(t, errs.Has("email"))

	errs, err = v.ValidateRegistration(ctx, db, &RegistrationInput{
		Name: "Bob", Username: "bob", Email: "not-an-email", Password: "short",
	})
	require.NoError(t, err)
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("password"))
	assert.False(t, errs.Has("username"))

	errs, err = v.ValidateRegistration(ctx, db, &RegistrationInput{
		Name: "Bob", Username: "bob", Password: "long-enough",
	})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidationErrorsErr(t *testing.T) {
	assert.NoError(t, ValidationErrors(nil).Err())
}
