package model

import "time"

// OAuthCredential links a third-party identity to a local User.
//
// (Provider, ProviderUserID) is unique. UserID is nil until the credential is
// linked, which in practice happens in the same transaction that creates it.
// Token is the provider's token payload, stored as opaque JSON.
type OAuthCredential struct {
	ID             int64
	Provider       string
	ProviderUserID string
	Token          string
	UserID         *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Linked reports whether the credential already belongs to a User.
func (c *OAuthCredential) Linked() bool {
	return c.UserID != nil
}
