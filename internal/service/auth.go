package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/metrics"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

// AuthService authenticates users and manages their sessions.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	sessions  auth.SessionStore
	validator *Validator
	logger    *slog.Logger
}

func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessions auth.SessionStore,
	validator *Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		sessions:  sessions,
		validator: validator,
		logger:    logger,
	}
}

// AuthResult is a freshly established session.
type AuthResult struct {
	User      *model.User
	Token     string
	SessionID string
}

// invalidCredentials is shared by every local login failure so the response
// does not reveal whether the username exists.
func invalidCredentials() error {
	return apperror.Unauthorized("Invalid username or password.")
}

// LoginLocal verifies a username and password and starts a session.
func (s *AuthService) LoginLocal(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("local", "failure").Inc()
		return nil, invalidCredentials()
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("local", "failure").Inc()
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading user %q: %w", username, err)
	}

	if user.PasswordHash == nil {
		metrics.LoginAttempts.WithLabelValues("local", "failure").Inc()
		return nil, invalidCredentials()
	}
	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		metrics.LoginAttempts.WithLabelValues("local", "failure").Inc()
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("local login rejected", slog.String("username", username))
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("local", "success").Inc()
	s.logger.Info("user authenticated",
		slog.String("method", "local"),
		slog.Int64("user_id", user.ID),
	)
	return result, nil
}

// Register creates a local account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, in RegistrationInput) (*model.User, error) {
	var user *model.User

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		errs, err := s.validator.ValidateRegistration(ctx, tx, &in)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return err
		}

		user = &model.User{
			Name:         in.Name,
			Username:     &in.Username,
			PasswordHash: &hash,
		}
		if in.Email != "" {
			user.Email = &in.Email
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		if !isExpected(err) {
			s.logger.Error("registration failed", slog.String("username", in.Username), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("service/auth: registering %q: %w", in.Username, err)
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", in.Username))
	return user, nil
}

// LoginOAuth signs in the owner of an external account, creating and
// linking a local user on first sight.
//
// All lookups and writes happen in one transaction. An account whose
// verified email matches an existing user is linked to that user; an
// unverified match is refused with ErrConflict.
func (s *AuthService) LoginOAuth(ctx context.Context, provider string, profile *auth.Profile, token *oauth2.Token) (*AuthResult, error) {
	if profile == nil || profile.ID == "" {
		return nil, apperror.AuthFailure("Failed to fetch user info.", fmt.Errorf("empty %s profile", provider))
	}

	encoded, err := auth.EncodeToken(token)
	if err != nil {
		return nil, err
	}

	var user *model.User
	var created bool

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		cred, err := tx.GetOAuthCredential(ctx, provider, profile.ID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			cred = &model.OAuthCredential{Provider: provider, ProviderUserID: profile.ID, Token: encoded}
			if err := tx.CreateOAuthCredential(ctx, cred); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if cred.Linked() {
			if user, err = tx.GetUserByID(ctx, *cred.UserID); err != nil {
				return err
			}
			cred.Token = encoded
			return tx.UpdateOAuthCredential(ctx, cred)
		}

		user, created, err = s.userForProfile(ctx, tx, profile)
		if err != nil {
			return err
		}
		cred.UserID = &user.ID
		cred.Token = encoded
		return tx.UpdateOAuthCredential(ctx, cred)
	})
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(provider, "failure").Inc()
		if !isExpected(err) {
			s.logger.Error("oauth login failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: oauth login (%s): %w", provider, err)
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues(provider, "success").Inc()
	s.logger.Info("user authenticated",
		slog.String("method", provider),
		slog.Int64("user_id", user.ID),
		slog.Bool("new_user", created),
	)
	return result, nil
}

// userForProfile finds the local user an unlinked external account should
// attach to, or creates one.
func (s *AuthService) userForProfile(ctx context.Context, tx repository.Store, profile *auth.Profile) (*model.User, bool, error) {
	if profile.Email != "" {
		existing, err := tx.GetUserByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			if !profile.VerifiedEmail {
				return nil, false, apperror.Conflict("user", profile.Email)
			}
			return existing, false, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, false, err
		}
	}

	user := &model.User{Name: profile.Name}
	if user.Name == "" {
		user.Name = profile.Email
	}
	if profile.Email != "" {
		email := profile.Email
		user.Email = &email
	}
	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Logout revokes a session. Revoking an unknown session is not an error.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	if id.SessionID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, id.SessionID); err != nil {
		return fmt.Errorf("service/auth: revoking session: %w", err)
	}
	s.logger.Info("user logged out", slog.Int64("user_id", id.UserID))
	return nil
}

// SessionTTL is the lifetime of issued sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	sid := auth.NewSessionID()
	if err := s.sessions.Create(ctx, sid, user.ID, s.tokens.TTL()); err != nil {
		return nil, fmt.Errorf("service/auth: creating session for user %d: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, sid, user.DisplayName())
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token, SessionID: sid}, nil
}

// CurrentUser loads the user behind an identity.
func (s *AuthService) CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	if id.IsZero() {
		return nil, apperror.Unauthorized("not logged in")
	}
	return s.store.GetUserByID(ctx, id.UserID)
}
