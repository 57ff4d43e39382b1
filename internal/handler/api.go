package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/item-catalog/internal/markup"
	"github.com/sakif/item-catalog/internal/service"
)

// APIHandler serves the machine-readable endpoints.
type APIHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewAPIHandler(catalog *service.CatalogService, logger *slog.Logger) *APIHandler {
	return &APIHandler{catalog: catalog, logger: logger}
}

// HandleExport returns every category with its items.
//
// HTTP: GET /items.json
//
// Response:
//
//	[{"name": "Soccer", "items": [{"name": "Ball", "description": "..."}]}]
func (h *APIHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Export(r.Context())
	if err != nil {
		h.logger.Error("export failed", slog.String("error", err.Error()))
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HighlightCSS serves the stylesheet for highlighted code blocks in item
// descriptions. The CSS is generated once.
func HighlightCSS(m *markup.Renderer) (http.HandlerFunc, error) {
	css, err := m.CSS()
	if err != nil {
		return nil, err
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write([]byte(css))
	}, nil
}
