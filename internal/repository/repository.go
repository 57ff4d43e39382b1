// Package repository declares the persistence contracts used by the
// service layer. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/item-catalog/internal/model"
)

// ListOptions bounds a listing. A zero Limit means no limit.
type ListOptions struct {
	Limit int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type OAuthRepository interface {
	CreateOAuthCredential(ctx context.Context, cred *model.OAuthCredential) error
	GetOAuthCredential(ctx context.Context, provider, providerUserID string) (*model.OAuthCredential, error)
	// UpdateOAuthCredential persists Token and UserID.
	UpdateOAuthCredential(ctx context.Context, cred *model.OAuthCredential) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	GetItemByName(ctx context.Context, name string) (*model.Item, error)
	GetItemInCategory(ctx context.Context, categoryName, itemName string) (*model.Item, error)
	// ListItems returns items of every category, newest first.
	ListItems(ctx context.Context, opts ListOptions) ([]model.Item, error)
	ListItemsByCategory(ctx context.Context, categoryID int64) ([]model.Item, error)
	CountItemsByCategory(ctx context.Context, categoryID int64) (int, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteItemsByCategory(ctx context.Context, categoryID int64) (int64, error)
}

// Store is the full persistence surface. WithTx runs fn against a Store
// bound to a single transaction, committing when fn returns nil.
type Store interface {
	UserRepository
	OAuthRepository
	CategoryRepository
	ItemRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}
