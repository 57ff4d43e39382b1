package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Profile is what the catalog needs to know about an external account.
type Profile struct {
	ID            string
	Email         string
	VerifiedEmail bool
	Name          string
}

// Provider is an external OAuth identity provider.
type Provider interface {
	// Name is the stable key stored in oauth_credentials.provider.
	Name() string
	AuthURL(state string) string
	// Exchange trades an authorization code for a token and the account
	// profile. A failure to obtain the token wraps ErrTokenExchange; a
	// failure to read the profile wraps ErrUserInfo.
	Exchange(ctx context.Context, code string) (*Profile, *oauth2.Token, error)
}

var (
	ErrTokenExchange = errors.New("auth: token exchange failed")
	ErrUserInfo      = errors.New("auth: fetching user info failed")
)

// googleUser is the subset of Google's v2 userinfo response we read.
type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleProvider implements Provider against Google's OAuth 2.0 endpoints.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// GoogleOption customises a GoogleProvider. Tests use these to point the
// provider at an httptest server.
type GoogleOption func(*GoogleProvider)

func WithEndpoint(ep oauth2.Endpoint) GoogleOption {
	return func(p *GoogleProvider) { p.config.Endpoint = ep }
}

func WithUserInfoURL(url string) GoogleOption {
	return func(p *GoogleProvider) { p.userInfoURL = url }
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, *oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, token, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, token, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, token, fmt.Errorf("%w: userinfo returned status %d", ErrUserInfo, resp.StatusCode)
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, token, fmt.Errorf("%w: decoding userinfo: %w", ErrUserInfo, err)
	}
	if gu.ID == "" {
		return nil, token, fmt.Errorf("%w: userinfo has no account id", ErrUserInfo)
	}

	return &Profile{
		ID:            gu.ID,
		Email:         gu.Email,
		VerifiedEmail: gu.VerifiedEmail,
		Name:          gu.Name,
	}, token, nil
}

// EncodeToken serialises a token for storage in oauth_credentials.token.
func EncodeToken(token *oauth2.Token) (string, error) {
	if token == nil {
		return "", nil
	}
	b, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("auth: encoding oauth token: %w", err)
	}
	return string(b), nil
}
