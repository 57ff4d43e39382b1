package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateItem(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Soccer")

	item := createTestItem(t, db, c, "Ball")
	if item.ID == 0 {
		t.Error("CreateItem() did not set ID")
	}
	if item.CreatedAt.IsZero() {
		t.Error("CreateItem() did not set CreatedAt")
	}
}

func TestCreateItem_NameUniqueAcrossCategories(t *testing.T) {
	db := newTestDB(t)
	soccer := createTestCategory(t, db, "Soccer")
	hockey := createTestCategory(t, db, "Hockey")
	createTestItem(t, db, soccer, "Jersey")

	err := db.CreateItem(context.Background(), &model.Item{Name: "Jersey", Description: "x", CategoryID: hockey.ID})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateItem() error = %v, want ErrConflict", err)
	}
}

func TestCreateItem_RequiresExistingCategory(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateItem(context.Background(), &model.Item{Name: "Orphan", Description: "x", CategoryID: 404})
	if err == nil {
		t.Error("CreateItem() with unknown category succeeded, want foreign key failure")
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestGetItemInCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	soccer := createTestCategory(t, db, "Soccer")
	createTestCategory(t, db, "Hockey")
	createTestItem(t, db, soccer, "Ball")

	got, err := db.GetItemInCategory(ctx, "Soccer", "Ball")
	if err != nil {
		t.Fatalf("GetItemInCategory() error = %v", err)
	}
	if got.CategoryName != "Soccer" || got.Description != "about Ball" {
		t.Errorf("GetItemInCategory() = %+v", got)
	}

	if _, err := db.GetItemInCategory(ctx, "Hockey", "Ball"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("item under wrong category: err = %v, want ErrNotFound", err)
	}
}

func TestListItemsByCategory_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	soccer := createTestCategory(t, db, "Soccer")
	hockey := createTestCategory(t, db, "Hockey")
	createTestItem(t, db, soccer, "Ball")
	createTestItem(t, db, hockey, "Stick")
	createTestItem(t, db, soccer, "Goal")

	got, err := db.ListItemsByCategory(context.Background(), soccer.ID)
	if err != nil {
		t.Fatalf("ListItemsByCategory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Goal" || got[1].Name != "Ball" {
		t.Errorf("order = [%s %s], want [Goal Ball]", got[0].Name, got[1].Name)
	}
}

func TestListItems_Limit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := createTestCategory(t, db, "Soccer")
	for _, name := range []string{"A", "B", "C", "D"} {
		createTestItem(t, db, c, name)
	}

	latest, err := db.ListItems(ctx, repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(latest) != 2 || latest[0].Name != "D" || latest[1].Name != "C" {
		t.Errorf("latest = %+v, want [D C]", latest)
	}

	all, err := db.ListItems(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len(all) = %d, want 4", len(all))
	}
	if all[3].Name != "A" {
		t.Errorf("oldest = %q, want A", all[3].Name)
	}
}

func TestCountItemsByCategory(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Soccer")
	createTestItem(t, db, c, "Ball")
	createTestItem(t, db, c, "Goal")

	n, err := db.CountItemsByCategory(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("CountItemsByCategory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUpdateItem_KeepsCreatedAt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	soccer := createTestCategory(t, db, "Soccer")
	hockey := createTestCategory(t, db, "Hockey")
	item := createTestItem(t, db, soccer, "Jersey")

	before, err := db.GetItemByName(ctx, "Jersey")
	if err != nil {
		t.Fatalf("GetItemByName() error = %v", err)
	}

	item.Name = "Hockey Jersey"
	item.Description = "warm"
	item.CategoryID = hockey.ID
	if err := db.UpdateItem(ctx, item); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}

	after, err := db.GetItemInCategory(ctx, "Hockey", "Hockey Jersey")
	if err != nil {
		t.Fatalf("moved item not found: %v", err)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", before.CreatedAt, after.CreatedAt)
	}
	if after.Description != "warm" {
		t.Errorf("Description = %q, want warm", after.Description)
	}
}

func TestUpdateItem_Conflict(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Soccer")
	createTestItem(t, db, c, "Ball")
	goal := createTestItem(t, db, c, "Goal")

	goal.Name = "Ball"
	if err := db.UpdateItem(context.Background(), goal); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("UpdateItem() error = %v, want ErrConflict", err)
	}
}

func TestDeleteItem(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := createTestCategory(t, db, "Soccer")
	item := createTestItem(t, db, c, "Ball")

	if err := db.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}

	remaining, err := db.ListItemsByCategory(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListItemsByCategory() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %d, want 0", len(remaining))
	}

	if err := db.DeleteItem(ctx, item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteItem() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteItemsByCategory(t *testing.T) {
	db := newTestDB(t)
	c := createTestCategory(t, db, "Soccer")
	createTestItem(t, db, c, "Ball")
	createTestItem(t, db, c, "Goal")

	n, err := db.DeleteItemsByCategory(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("DeleteItemsByCategory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}
