package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoIdentity writes the identity OptionalAuth attached, if any.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if id.IsZero() {
		io.WriteString(w, "anonymous")
		return
	}
	io.WriteString(w, id.Name)
})

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return req
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTestTokenService(t)
	sessions := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, "live", 5, time.Hour))
	require.NoError(t, sessions.Create(ctx, "other-user", 6, time.Hour))

	live, _ := tokens.Generate(5, "live", "Alice")
	revoked, _ := tokens.Generate(5, "gone", "Alice")
	mismatch, _ := tokens.Generate(5, "other-user", "Alice")

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"no cookie", "", "anonymous"},
		{"garbage token", "junk", "anonymous"},
		{"live session", live, "Alice"},
		{"revoked session", revoked, "anonymous"},
		{"session of another user", mismatch, "anonymous"},
	}

	h := OptionalAuth(tokens, sessions, discardLogger())(echoIdentity)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithToken(tt.token))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(echoIdentity)

	t.Run("anonymous is redirected with next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/categories/Soccer/create", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fcategories%2FSoccer%2Fcreate", rec.Header().Get("Location"))
	})

	t.Run("anonymous post returns to the referring page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/categories/create", nil)
		req.Header.Set("Referer", "http://"+req.Host+"/categories/Soccer")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fcategories%2FSoccer", rec.Header().Get("Location"))
	})

	t.Run("anonymous post without usable referer drops next", func(t *testing.T) {
		for _, referer := range []string{"", "https://evil.example/categories/Soccer"} {
			req := httptest.NewRequest(http.MethodPost, "/categories/create", nil)
			if referer != "" {
				req.Header.Set("Referer", referer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, LoginPath, rec.Header().Get("Location"), referer)
		}
	})

	t.Run("authenticated passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/categories/Soccer/create", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: 1, Name: "Bob", SessionID: "s"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Bob", rec.Body.String())
	})
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", time.Hour, true)
	ClearSessionCookie(rec, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, -1, cookies[1].MaxAge)
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", LoginURL(""))
	assert.Equal(t, "/login", LoginURL("/"))
	assert.Equal(t, "/login?next=%2Fitems.json", LoginURL("/items.json"))
}
