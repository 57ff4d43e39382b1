package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/metrics"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

const DefaultLatestItems = 10

// CatalogService holds the category/item business logic.
//
// Reads go straight to the store. Every mutation runs validation and the
// write in one transaction, and requires a non-zero auth.Identity passed in
// by the caller.
type CatalogService struct {
	store       repository.Store
	validator   *Validator
	logger      *slog.Logger
	latestLimit int
}

func NewCatalogService(store repository.Store, validator *Validator, logger *slog.Logger, latestLimit int) *CatalogService {
	if latestLimit <= 0 {
		latestLimit = DefaultLatestItems
	}
	return &CatalogService{
		store:       store,
		validator:   validator,
		logger:      logger,
		latestLimit: latestLimit,
	}
}

func requireIdentity(id auth.Identity) error {
	if id.IsZero() {
		return apperror.Unauthorized("you must be logged in to change the catalog")
	}
	return nil
}

// =========================================================================
// READS
// =========================================================================

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// LatestItems returns the most recently created items across all categories.
func (s *CatalogService) LatestItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.store.ListItems(ctx, repository.ListOptions{Limit: s.latestLimit})
	if err != nil {
		return nil, fmt.Errorf("listing latest items: %w", err)
	}
	return items, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, name string) (*model.Category, error) {
	return s.store.GetCategoryByName(ctx, name)
}

// CategoryItems returns the named category and its items, newest first.
func (s *CatalogService) CategoryItems(ctx context.Context, name string) (*model.Category, []model.Item, error) {
	category, err := s.store.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.ListItemsByCategory(ctx, category.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items of %q: %w", name, err)
	}
	return category, items, nil
}

// CategoryItemCount returns the named category and how many items a delete
// would remove with it.
func (s *CatalogService) CategoryItemCount(ctx context.Context, name string) (*model.Category, int, error) {
	category, err := s.store.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, 0, err
	}

	n, err := s.store.CountItemsByCategory(ctx, category.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("counting items of %q: %w", name, err)
	}
	return category, n, nil
}

// GetItem finds an item by (category name, item name).
func (s *CatalogService) GetItem(ctx context.Context, categoryName, itemName string) (*model.Item, error) {
	return s.store.GetItemInCategory(ctx, categoryName, itemName)
}

// Export returns every category with its items. Categories without items
// are included with an empty list.
func (s *CatalogService) Export(ctx context.Context) ([]model.CategoryWithItems, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting categories: %w", err)
	}
	items, err := s.store.ListItems(ctx, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("exporting items: %w", err)
	}

	byCategory := make(map[int64][]model.ExportedItem, len(categories))
	for _, item := range items {
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], model.ExportedItem{
			Name:        item.Name,
			Description: item.Description,
		})
	}

	out := make([]model.CategoryWithItems, 0, len(categories))
	for _, c := range categories {
		exported := byCategory[c.ID]
		if exported == nil {
			exported = []model.ExportedItem{}
		}
		out = append(out, model.CategoryWithItems{Name: c.Name, Items: exported})
	}
	return out, nil
}

// =========================================================================
// CATEGORY MUTATIONS
// =========================================================================

func (s *CatalogService) CreateCategory(ctx context.Context, id auth.Identity, in CategoryInput) (*model.Category, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var category *model.Category
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		errs, err := s.validator.ValidateCategory(ctx, tx, &in, nil)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		category = &model.Category{Name: in.Name}
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, s.mutationFailed("category", "create", in.Name, err)
	}

	metrics.CatalogMutations.WithLabelValues("category", "create").Inc()
	s.logger.Info("category created",
		slog.Int64("id", category.ID),
		slog.String("name", category.Name),
		slog.Int64("user_id", id.UserID),
	)
	return category, nil
}

// RenameCategory renames the category currently called name.
func (s *CatalogService) RenameCategory(ctx context.Context, id auth.Identity, name string, in CategoryInput) (*model.Category, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var category *model.Category
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.GetCategoryByName(ctx, name)
		if err != nil {
			return err
		}

		errs, err := s.validator.ValidateCategory(ctx, tx, &in, current)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		current.Name = in.Name
		category = current
		return tx.UpdateCategory(ctx, current)
	})
	if err != nil {
		return nil, s.mutationFailed("category", "rename", name, err)
	}

	metrics.CatalogMutations.WithLabelValues("category", "rename").Inc()
	s.logger.Info("category renamed",
		slog.Int64("id", category.ID),
		slog.String("from", name),
		slog.String("to", category.Name),
		slog.Int64("user_id", id.UserID),
	)
	return category, nil
}

// DeleteCategory removes the category and all of its items, returning the
// number of items removed.
func (s *CatalogService) DeleteCategory(ctx context.Context, id auth.Identity, name string) (int64, error) {
	if err := requireIdentity(id); err != nil {
		return 0, err
	}

	var removed int64
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		category, err := tx.GetCategoryByName(ctx, name)
		if err != nil {
			return err
		}

		if removed, err = tx.DeleteItemsByCategory(ctx, category.ID); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, category.ID)
	})
	if err != nil {
		return 0, s.mutationFailed("category", "delete", name, err)
	}

	metrics.CatalogMutations.WithLabelValues("category", "delete").Inc()
	s.logger.Info("category deleted",
		slog.String("name", name),
		slog.Int64("items_removed", removed),
		slog.Int64("user_id", id.UserID),
	)
	return removed, nil
}

// =========================================================================
// ITEM MUTATIONS
// =========================================================================

func (s *CatalogService) CreateItem(ctx context.Context, id auth.Identity, categoryName string, in ItemInput) (*model.Item, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var item *model.Item
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		category, err := tx.GetCategoryByName(ctx, categoryName)
		if err != nil {
			return err
		}

		errs, err := s.validator.ValidateItem(ctx, tx, &in, nil)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		item = &model.Item{
			Name:         in.Name,
			Description:  in.Description,
			CategoryID:   category.ID,
			CategoryName: category.Name,
		}
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, s.mutationFailed("item", "create", in.Name, err)
	}

	metrics.CatalogMutations.WithLabelValues("item", "create").Inc()
	s.logger.Info("item created",
		slog.Int64("id", item.ID),
		slog.String("name", item.Name),
		slog.String("category", item.CategoryName),
		slog.Int64("user_id", id.UserID),
	)
	return item, nil
}

// UpdateItem changes an item's name and description. The item stays in its
// category and keeps its creation time.
func (s *CatalogService) UpdateItem(ctx context.Context, id auth.Identity, categoryName, itemName string, in ItemInput) (*model.Item, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	var item *model.Item
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.GetItemInCategory(ctx, categoryName, itemName)
		if err != nil {
			return err
		}

		errs, err := s.validator.ValidateItem(ctx, tx, &in, current)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		current.Name = in.Name
		current.Description = in.Description
		item = current
		return tx.UpdateItem(ctx, current)
	})
	if err != nil {
		return nil, s.mutationFailed("item", "update", itemName, err)
	}

	metrics.CatalogMutations.WithLabelValues("item", "update").Inc()
	s.logger.Info("item updated",
		slog.Int64("id", item.ID),
		slog.String("name", item.Name),
		slog.Int64("user_id", id.UserID),
	)
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, id auth.Identity, categoryName, itemName string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		item, err := tx.GetItemInCategory(ctx, categoryName, itemName)
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, item.ID)
	})
	if err != nil {
		return s.mutationFailed("item", "delete", itemName, err)
	}

	metrics.CatalogMutations.WithLabelValues("item", "delete").Inc()
	s.logger.Info("item deleted",
		slog.String("category", categoryName),
		slog.String("name", itemName),
		slog.Int64("user_id", id.UserID),
	)
	return nil
}

// mutationFailed logs unexpected failures and wraps the error. Expected
// outcomes (validation, not found, conflict) pass through unlogged.
func (s *CatalogService) mutationFailed(resource, action, name string, err error) error {
	if !isExpected(err) {
		s.logger.Error("catalog mutation failed",
			slog.String("resource", resource),
			slog.String("action", action),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("%s %s %q: %w", action, resource, name, err)
}
