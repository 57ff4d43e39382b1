package model

import "time"

// Category is a named grouping of Items. Name is globally unique.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is a catalog entry. Name is globally unique, CategoryID is required
// and CreatedAt is set once on insert.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	CategoryID  int64     `json:"categoryId"`

	// CategoryName is filled by queries that join categories. It is not a
	// column of the items table.
	CategoryName string `json:"-"`
}

// CategoryWithItems is the shape served by /items.json.
type CategoryWithItems struct {
	Name  string         `json:"name"`
	Items []ExportedItem `json:"items"`
}

// ExportedItem is the public projection of an Item.
type ExportedItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
