package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/service"
)

// pages lists every page template. Each is parsed together with base.html
// into its own set so they can all define "content".
var pages = []string{
	"home",
	"category",
	"item",
	"item_form",
	"category_form",
	"confirm_delete",
	"login",
	"register",
	"error",
}

var funcs = template.FuncMap{
	"categoryURL": CategoryURL,
	"itemURL":     ItemURL,
	"loginURL":    auth.LoginURL,
}

// CategoryURL is the canonical URL of a category page.
func CategoryURL(name string) string {
	return "/categories/" + url.PathEscape(name)
}

// ItemURL is the canonical URL of an item page.
func ItemURL(category, item string) string {
	return CategoryURL(category) + "/" + url.PathEscape(item)
}

// form carries submitted values and per-field errors back into a template.
type form struct {
	Values map[string]string
	Errors map[string]string
}

func newForm(values map[string]string, errs service.ValidationErrors) form {
	f := form{Values: values, Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		if _, seen := f.Errors[fe.Field]; !seen {
			f.Errors[fe.Field] = fe.Message
		}
	}
	return f
}

func (f form) Value(name string) string { return f.Values[name] }
func (f form) Error(name string) string { return f.Errors[name] }

// page is the data handed to every template.
type page struct {
	Title         string
	Path          string
	User          auth.Identity
	Flashes       []Flash
	Categories    []model.Category
	Category      *model.Category
	Items         []model.Item
	Item          *model.Item
	ItemCount     int
	Description   template.HTML
	Form          form
	Cancel        string
	Next          string
	GoogleEnabled bool
	Message       string
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	templates map[string]*template.Template
	catalog   *service.CatalogService
	flashes   *Flashes
	logger    *slog.Logger
}

func NewRenderer(fsys fs.FS, catalog *service.CatalogService, flashes *Flashes, logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{
		templates: templates,
		catalog:   catalog,
		flashes:   flashes,
		logger:    logger,
	}, nil
}

// render fills the per-request parts of p and writes the page with status.
// Output is buffered so a template error can still become a clean 500.
func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tmpl, ok := rd.templates[name]
	if !ok {
		rd.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.Path = r.URL.RequestURI()
	p.User = auth.IdentityFromContext(r.Context())
	p.Flashes = rd.flashes.Pop(w, r)
	if p.Categories == nil {
		categories, err := rd.catalog.ListCategories(r.Context())
		if err != nil {
			rd.logger.Error("failed to load categories for layout", slog.String("error", err.Error()))
		}
		p.Categories = categories
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", p); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
