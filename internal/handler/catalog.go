package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/markup"
	"github.com/sakif/item-catalog/internal/service"
)

// CatalogHandler serves the category and item pages and their forms.
//
// Reads are public. Every mutating route sits behind auth.RequireAuth and
// passes the request's auth.Identity to the service explicitly.
type CatalogHandler struct {
	catalog *service.CatalogService
	markup  *markup.Renderer
	pages   *Renderer
	flashes *Flashes
	logger  *slog.Logger
}

func NewCatalogHandler(
	catalog *service.CatalogService,
	markup *markup.Renderer,
	pages *Renderer,
	flashes *Flashes,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		markup:  markup,
		pages:   pages,
		flashes: flashes,
		logger:  logger,
	}
}

// pathParam returns a decoded chi URL parameter. chi matches against
// RawPath when the request has one, so escaped slashes arrive still
// escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

// formErrors extracts field errors from a failed mutation. A Conflict from
// the database (a racing insert) is reported against conflictField.
func formErrors(err error, conflictField, conflictMsg string) (service.ValidationErrors, bool) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return service.ValidationErrors(apperror.FieldsOf(err)), true
	case errors.Is(err, apperror.ErrConflict):
		return service.ValidationErrors{{Field: conflictField, Message: conflictMsg}}, true
	}
	return nil, false
}

// =========================================================================
// PAGES
// =========================================================================

// HandleIndex shows the latest items.
//
// HTTP: GET /
func (h *CatalogHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.LatestItems(r.Context())
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "home", page{Title: "Latest items", Items: items})
}

// HandleShowCategory lists a category's items, newest first.
//
// HTTP: GET /categories/{category}
func (h *CatalogHandler) HandleShowCategory(w http.ResponseWriter, r *http.Request) {
	category, items, err := h.catalog.CategoryItems(r.Context(), pathParam(r, "category"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "category", page{
		Title:    category.Name,
		Category: category,
		Items:    items,
	})
}

// HandleShowItem renders a single item with its description as HTML.
//
// HTTP: GET /categories/{category}/{item}
func (h *CatalogHandler) HandleShowItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}

	description, err := h.markup.Render(item.Description)
	if err != nil {
		h.logger.Warn("falling back to plain description",
			slog.Int64("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		description = template.HTML("<pre>" + template.HTMLEscapeString(item.Description) + "</pre>")
	}

	h.pages.render(w, r, http.StatusOK, "item", page{
		Title:       item.Name,
		Item:        item,
		Description: description,
	})
}

// =========================================================================
// CATEGORY FORMS
// =========================================================================

// HandleCreateCategory handles the sidebar form. It has no page of its own, so
// errors are flashed and the browser is sent back where it came from.
//
// HTTP: POST /categories/create
func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	in := service.CategoryInput{Name: r.PostFormValue("name")}

	category, err := h.catalog.CreateCategory(r.Context(), auth.IdentityFromContext(r.Context()), in)
	if err != nil {
		errs, ok := formErrors(err, "name", "A category with that name already exists.")
		if !ok {
			h.pages.renderError(w, r, err)
			return
		}
		for _, fe := range errs {
			h.flashes.Add(w, r, FlashError, fe.Message)
		}
		redirect(w, r, localReferer(r, "/"))
		return
	}

	h.flashes.Add(w, r, FlashInfo, "Category created.")
	redirect(w, r, CategoryURL(category.Name))
}

// HandleEditCategory shows the rename form.
//
// HTTP: GET /categories/{category}/edit
func (h *CatalogHandler) HandleEditCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "category_form", page{
		Title:    "Rename " + category.Name,
		Category: category,
		Form:     newForm(map[string]string{"name": category.Name}, nil),
		Cancel:   CategoryURL(category.Name),
	})
}

// HandleUpdateCategory renames a category.
//
// HTTP: POST /categories/{category}/edit
func (h *CatalogHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "category")
	in := service.CategoryInput{Name: r.PostFormValue("name")}

	category, err := h.catalog.RenameCategory(r.Context(), auth.IdentityFromContext(r.Context()), name, in)
	if err != nil {
		errs, ok := formErrors(err, "name", "A category with that name already exists.")
		if !ok {
			h.pages.renderError(w, r, err)
			return
		}
		h.pages.render(w, r, http.StatusUnprocessableEntity, "category_form", page{
			Title:  "Rename " + name,
			Form:   newForm(map[string]string{"name": r.PostFormValue("name")}, errs),
			Cancel: CategoryURL(name),
		})
		return
	}

	h.flashes.Add(w, r, FlashInfo, "Category renamed.")
	redirect(w, r, CategoryURL(category.Name))
}

// HandleConfirmDeleteCategory asks before deleting, showing how many items go
// with the category.
//
// HTTP: GET /categories/{category}/delete
func (h *CatalogHandler) HandleConfirmDeleteCategory(w http.ResponseWriter, r *http.Request) {
	category, n, err := h.catalog.CategoryItemCount(r.Context(), pathParam(r, "category"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "confirm_delete", page{
		Title:     "Delete " + category.Name,
		Category:  category,
		ItemCount: n,
		Cancel:    CategoryURL(category.Name),
	})
}

// HandleDeleteCategory deletes a category and its items.
//
// HTTP: POST /categories/{category}/delete
func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.catalog.DeleteCategory(r.Context(), auth.IdentityFromContext(r.Context()), pathParam(r, "category")); err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.flashes.Add(w, r, FlashInfo, "Category deleted.")
	redirect(w, r, "/")
}

// =========================================================================
// ITEM FORMS
// =========================================================================

// HandleNewItem shows the empty item form for a category.
//
// HTTP: GET /categories/{category}/create
func (h *CatalogHandler) HandleNewItem(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "item_form", page{
		Title:    "New item in " + category.Name,
		Category: category,
		Form:     newForm(nil, nil),
		Cancel:   CategoryURL(category.Name),
	})
}

// HandleCreateItem adds an item to a category.
//
// HTTP: POST /categories/{category}/create
func (h *CatalogHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	categoryName := pathParam(r, "category")
	in := service.ItemInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}

	item, err := h.catalog.CreateItem(r.Context(), auth.IdentityFromContext(r.Context()), categoryName, in)
	if err != nil {
		errs, ok := formErrors(err, "name", "An item with that name already exists.")
		if !ok {
			h.pages.renderError(w, r, err)
			return
		}
		h.pages.render(w, r, http.StatusUnprocessableEntity, "item_form", page{
			Title:  "New item in " + categoryName,
			Form:   newForm(itemValues(r), errs),
			Cancel: CategoryURL(categoryName),
		})
		return
	}

	h.flashes.Add(w, r, FlashInfo, "Item created.")
	redirect(w, r, ItemURL(item.CategoryName, item.Name))
}

// HandleEditItem shows the item form filled with the current values.
//
// HTTP: GET /categories/{category}/{item}/edit
func (h *CatalogHandler) HandleEditItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "item_form", page{
		Title: "Edit " + item.Name,
		Item:  item,
		Form: newForm(map[string]string{
			"name":        item.Name,
			"description": item.Description,
		}, nil),
		Cancel: ItemURL(item.CategoryName, item.Name),
	})
}

// HandleUpdateItem saves the item form.
//
// HTTP: POST /categories/{category}/{item}/edit
func (h *CatalogHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	categoryName, itemName := pathParam(r, "category"), pathParam(r, "item")
	in := service.ItemInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}

	item, err := h.catalog.UpdateItem(r.Context(), auth.IdentityFromContext(r.Context()), categoryName, itemName, in)
	if err != nil {
		errs, ok := formErrors(err, "name", "An item with that name already exists.")
		if !ok {
			h.pages.renderError(w, r, err)
			return
		}
		h.pages.render(w, r, http.StatusUnprocessableEntity, "item_form", page{
			Title:  "Edit " + itemName,
			Form:   newForm(itemValues(r), errs),
			Cancel: ItemURL(categoryName, itemName),
		})
		return
	}

	h.flashes.Add(w, r, FlashInfo, "Item updated.")
	redirect(w, r, ItemURL(item.CategoryName, item.Name))
}

// HandleConfirmDeleteItem asks before deleting an item.
//
// HTTP: GET /categories/{category}/{item}/delete
func (h *CatalogHandler) HandleConfirmDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "confirm_delete", page{
		Title:  "Delete " + item.Name,
		Item:   item,
		Cancel: ItemURL(item.CategoryName, item.Name),
	})
}

// HandleDeleteItem removes an item and returns to its category.
//
// HTTP: POST /categories/{category}/{item}/delete
func (h *CatalogHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	categoryName := pathParam(r, "category")
	if err := h.catalog.DeleteItem(r.Context(), auth.IdentityFromContext(r.Context()), categoryName, pathParam(r, "item")); err != nil {
		h.pages.renderError(w, r, err)
		return
	}
	h.flashes.Add(w, r, FlashInfo, "Item deleted.")
	redirect(w, r, CategoryURL(categoryName))
}

func itemValues(r *http.Request) map[string]string {
	return map[string]string{
		"name":        r.PostFormValue("name"),
		"description": r.PostFormValue("description"),
	}
}
