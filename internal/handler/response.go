// Package handler contains the HTTP handlers. Handlers parse the request,
// call a service with the caller's auth.Identity and turn the result into
// a page, a redirect or JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeJSONError maps err to a status and a JSON body.
func writeJSONError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	msg := "An internal error occurred"
	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}

// classify maps an error to an HTTP status and a machine-readable kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrAuthFailure):
		return http.StatusBadGateway, "auth_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// renderError writes the HTML error page for err. Unauthorized errors
// redirect to the login page instead.
func (rd *Renderer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)

	if status == http.StatusUnauthorized {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	p := page{Title: http.StatusText(status)}
	switch status {
	case http.StatusNotFound:
		p.Message = "We couldn't find what you were looking for."
	case http.StatusInternalServerError:
		rd.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		p.Message = "Something went wrong on our side."
	default:
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			p.Message = appErr.Message
		}
	}
	rd.render(w, r, status, "error", p)
}

// redirect sends a 303 so a POST is followed by a GET.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext returns next if it is a local absolute path, "/" otherwise.
// Protocol-relative and backslash tricks are rejected.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// localReferer returns the path of a same-host Referer, or fallback.
func localReferer(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	return safeNext(u.RequestURI())
}
