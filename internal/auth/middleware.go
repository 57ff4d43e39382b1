package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// CookieName is the cookie holding the session token.
const CookieName = "token"

// LoginPath is where RequireAuth sends anonymous visitors.
const LoginPath = "/login"

// Identity is the authenticated principal of a request. The zero value
// means anonymous.
type Identity struct {
	UserID    int64
	Name      string
	SessionID string
}

func (i Identity) IsZero() bool {
	return i.UserID == 0
}

// contextKey is unexported so no other package can collide with it.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the request's identity, or the zero Identity.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// OptionalAuth attaches an Identity to the request context when the request
// carries a valid token whose session is still live. Anything else leaves
// the request anonymous; it never rejects.
func OptionalAuth(tokens *TokenService, sessions SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := authenticate(r, tokens, sessions, logger); ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth redirects anonymous requests to the login page, remembering
// the requested path in ?next=. It must run after OptionalAuth.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).IsZero() {
			http.Redirect(w, r, LoginURL(returnPath(r)), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// returnPath is the page to come back to after logging in. For form
// submissions that is the same-origin page the form was posted from, or
// nothing, since the form target itself may not answer GET.
func returnPath(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.RequestURI()
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host == "" || ref.Host != r.Host {
		return ""
	}
	return ref.RequestURI()
}

// LoginURL builds the login page URL that returns to next afterwards.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

func authenticate(r *http.Request, tokens *TokenService, sessions SessionStore, logger *slog.Logger) (Identity, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}

	claims, err := tokens.Validate(cookie.Value)
	if err != nil {
		logger.Debug("rejected session token", "error", err)
		return Identity{}, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, false
	}

	owner, err := sessions.Lookup(r.Context(), claims.ID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			logger.Error("session lookup failed", "error", err)
		}
		return Identity{}, false
	}
	if owner != userID {
		logger.Warn("session owner mismatch", "session_id", claims.ID, "token_user", userID, "session_user", owner)
		return Identity{}, false
	}

	return Identity{UserID: userID, Name: claims.Name, SessionID: claims.ID}, true
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session token cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
