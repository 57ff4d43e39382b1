package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/service"
)

const (
	msgGoogleFailed   = "Failed to log in with Google."
	msgUserInfoFailed = "Failed to fetch user info from Google."
	msgGoogleSuccess  = "Successfully signed in with Google."
)

// AuthHandler manages local login, registration, the Google OAuth flow and
// logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginPage / HandleLogin  → local username + password login
//   - HandleRegisterPage / HandleRegister → local sign-up
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → verify state, exchange the code, start a session
//   - HandleLogout         → revoke the session and clear the cookie
//   - HandleMe             → JSON profile of the logged-in user
//
// google is nil when no client id is configured; the Google routes then
// answer 404 and the login page hides the button.
type AuthHandler struct {
	auth    *service.AuthService
	google  auth.Provider
	pages   *Renderer
	flashes *Flashes
	secure  bool
	logger  *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	google auth.Provider,
	pages *Renderer,
	flashes *Flashes,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		google:  google,
		pages:   pages,
		flashes: flashes,
		secure:  secureCookies,
		logger:  logger,
	}
}

// loginPage renders the login form. next is kept only when it is a real
// destination.
func (h *AuthHandler) loginPage(w http.ResponseWriter, r *http.Request, status int, next string, f form) {
	if next = safeNext(next); next == "/" {
		next = ""
	}
	h.pages.render(w, r, status, "login", page{
		Title:         "Log in",
		Form:          f,
		Next:          next,
		GoogleEnabled: h.google != nil,
	})
}

// =========================================================================
// LOCAL LOGIN
// =========================================================================

// HandleLoginPage shows the login form, or skips it for a logged-in user.
//
// HTTP: GET /login?next=/path
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if !auth.IdentityFromContext(r.Context()).IsZero() {
		redirect(w, r, safeNext(next))
		return
	}
	h.loginPage(w, r, http.StatusOK, next, newForm(nil, nil))
}

// HandleLogin verifies the submitted credentials and starts a session.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	next := r.PostFormValue("next")

	result, err := h.auth.LoginLocal(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		var appErr *apperror.AppError
		if !errors.Is(err, apperror.ErrUnauthorized) || !errors.As(err, &appErr) {
			h.pages.renderError(w, r, err)
			return
		}
		f := newForm(map[string]string{"username": username}, service.ValidationErrors{{Message: appErr.Message}})
		h.loginPage(w, r, http.StatusUnauthorized, next, f)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.secure)
	h.flashes.Add(w, r, FlashInfo, "Welcome back, "+result.User.DisplayName()+".")
	redirect(w, r, safeNext(next))
}

// =========================================================================
// REGISTRATION
// =========================================================================

// HandleRegisterPage shows the sign-up form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "register", page{Title: "Register", Form: newForm(nil, nil)})
}

// HandleRegister creates a local account and sends the user to log in.
//
// HTTP: POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in := service.RegistrationInput{
		Name:     r.PostFormValue("name"),
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if _, err := h.auth.Register(r.Context(), in); err != nil {
		errs, ok := formErrors(err, "username", "That username or email is already registered.")
		if !ok {
			h.pages.renderError(w, r, err)
			return
		}
		// The password is never echoed back.
		values := map[string]string{"name": in.Name, "username": in.Username, "email": in.Email}
		h.pages.render(w, r, http.StatusUnprocessableEntity, "register", page{
			Title: "Register",
			Form:  newForm(values, errs),
		})
		return
	}

	h.flashes.Add(w, r, FlashInfo, "Account created. You can now log in.")
	redirect(w, r, "/login")
}

// =========================================================================
// GOOGLE OAUTH
// =========================================================================

// HandleGoogleLogin redirects the user to Google's authorization page.
//
// HTTP: GET /login/google?next=/path
//
// A random state is stored in the signed flash cookie and checked on
// callback, so only a flow started here can complete.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.pages.renderError(w, r, apperror.NotFound("login provider", "google"))
		return
	}

	state := xid.New().String()
	h.flashes.SetOAuthState(w, r, state, safeNext(r.URL.Query().Get("next")))
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /login/google/authorized?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter
//  2. Exchange the code for a token and the Google profile
//  3. Find or create the linked user (AuthService.LoginOAuth)
//  4. Set the session cookie and redirect
//
// Every failure flashes a message and lands on the home page without a
// session.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.pages.renderError(w, r, apperror.NotFound("login provider", "google"))
		return
	}

	query := r.URL.Query()
	state, next := h.flashes.TakeOAuthState(w, r)
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(query.Get("state"))) != 1 {
		h.logger.Warn("google callback: state mismatch")
		h.fail(w, r, msgGoogleFailed)
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		h.fail(w, r, msgGoogleFailed)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, r, msgGoogleFailed)
		return
	}

	profile, token, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("google callback: exchange failed", slog.String("error", err.Error()))
		if errors.Is(err, auth.ErrUserInfo) {
			h.fail(w, r, msgUserInfoFailed)
		} else {
			h.fail(w, r, msgGoogleFailed)
		}
		return
	}

	result, err := h.auth.LoginOAuth(r.Context(), h.google.Name(), profile, token)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			h.fail(w, r, "An account with that email already exists. Log in with your password instead.")
		case errors.Is(err, apperror.ErrAuthFailure):
			h.logger.Warn("google callback: unusable profile", slog.Any("error", err))
			h.fail(w, r, msgUserInfoFailed)
		default:
			h.pages.renderError(w, r, err)
		}
		return
	}

	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.secure)
	h.flashes.Add(w, r, FlashInfo, msgGoogleSuccess)
	redirect(w, r, safeNext(next))
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, msg string) {
	h.flashes.Add(w, r, FlashError, msg)
	redirect(w, r, "/")
}

// =========================================================================
// SESSION
// =========================================================================

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.IdentityFromContext(r.Context())); err != nil {
		h.logger.Error("logout: revoking session failed", slog.String("error", err.Error()))
	}
	auth.ClearSessionCookie(w, h.secure)
	h.flashes.Add(w, r, FlashInfo, "You have been logged out.")
	redirect(w, r, "/")
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
