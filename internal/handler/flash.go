package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	flashSessionName = "catalog-flash"

	FlashInfo  = "info"
	FlashError = "error"

	stateKey = "oauth_state"
	nextKey  = "oauth_next"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Flashes keeps short-lived per-browser values in a signed cookie: flash
// messages, and the OAuth state and return path between the redirect to
// the provider and its callback.
type Flashes struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

func NewFlashes(key []byte, secure bool, logger *slog.Logger) *Flashes {
	store := sessions.NewCookieStore(key)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = 3600
	return &Flashes{store: store, logger: logger}
}

// session returns the cookie session, starting a fresh one if the cookie
// is missing or fails verification.
func (f *Flashes) session(r *http.Request) *sessions.Session {
	s, err := f.store.Get(r, flashSessionName)
	if err != nil {
		f.logger.Debug("discarding unreadable flash cookie", slog.String("error", err.Error()))
	}
	return s
}

func (f *Flashes) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) {
	if err := s.Save(r, w); err != nil {
		f.logger.Error("failed to save flash session", slog.String("error", err.Error()))
	}
}

// Add queues a message of the given kind.
func (f *Flashes) Add(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := f.session(r)
	s.AddFlash(message, kind)
	f.save(w, r, s)
}

// Pop returns and clears all queued messages, errors first.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	s := f.session(r)

	var out []Flash
	for _, kind := range []string{FlashError, FlashInfo} {
		for _, v := range s.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		f.save(w, r, s)
	}
	return out
}

// SetOAuthState remembers the state parameter and post-login path.
func (f *Flashes) SetOAuthState(w http.ResponseWriter, r *http.Request, state, next string) {
	s := f.session(r)
	s.Values[stateKey] = state
	s.Values[nextKey] = next
	f.save(w, r, s)
}

// TakeOAuthState returns and clears the remembered state and path.
func (f *Flashes) TakeOAuthState(w http.ResponseWriter, r *http.Request) (state, next string) {
	s := f.session(r)
	state, _ = s.Values[stateKey].(string)
	next, _ = s.Values[nextKey].(string)
	delete(s.Values, stateKey)
	delete(s.Values, nextKey)
	f.save(w, r, s)
	return state, next
}
