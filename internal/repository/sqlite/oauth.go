package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

var _ repository.OAuthRepository = (*DB)(nil)

// CreateOAuthCredential inserts a credential. A second credential for the
// same (provider, provider_user_id) yields apperror.ErrConflict.
func (db *DB) CreateOAuthCredential(ctx context.Context, cred *model.OAuthCredential) error {
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO oauth_credentials (provider, provider_user_id, token, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cred.Provider,
		cred.ProviderUserID,
		cred.Token,
		cred.UserID,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("oauth credential", cred.Provider+":"+cred.ProviderUserID)
		}
		return fmt.Errorf("sqlite: inserting oauth credential %s:%s: %w", cred.Provider, cred.ProviderUserID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading oauth credential id: %w", err)
	}
	cred.ID = id
	return nil
}

func (db *DB) GetOAuthCredential(ctx context.Context, provider, providerUserID string) (*model.OAuthCredential, error) {
	var c model.OAuthCredential

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, provider_user_id, token, user_id, created_at, updated_at
		 FROM oauth_credentials WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID,
	).Scan(
		&c.ID,
		&c.Provider,
		&c.ProviderUserID,
		&c.Token,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("oauth credential", provider+":"+providerUserID)
		}
		return nil, fmt.Errorf("sqlite: getting oauth credential %s:%s: %w", provider, providerUserID, err)
	}

	return &c, nil
}

func (db *DB) UpdateOAuthCredential(ctx context.Context, cred *model.OAuthCredential) error {
	cred.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE oauth_credentials SET token = ?, user_id = ?, updated_at = ? WHERE id = ?`,
		cred.Token,
		cred.UserID,
		cred.UpdatedAt,
		cred.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating oauth credential %d: %w", cred.ID, err)
	}
	return requireAffected(result, "oauth credential", fmt.Sprint(cred.ID))
}
