package strava

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"powerlab/internal/store"
)

// Provider OAuth endpoints.
const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// rotateAfter is how old a stored token may grow before it is refreshed.
const rotateAfter = 6 * time.Hour

// NewOAuthConfig builds the oauth2 config used for device token refresh.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}

// DeviceTokens serves stored per-device provider tokens, rotating them
// through the OAuth refresh flow when they age out.
type DeviceTokens struct {
	db   *store.DB
	conf *oauth2.Config
	now  func() time.Time
}

// NewDeviceTokens creates a resolver over the token table.
func NewDeviceTokens(db *store.DB, conf *oauth2.Config) *DeviceTokens {
	return &DeviceTokens{db: db, conf: conf, now: time.Now}
}

// Token returns a usable access token for the device. Tokens younger than
// the rotation window come straight from the store; older ones are
// refreshed and the rotated pair is persisted before use.
func (d *DeviceTokens) Token(ctx context.Context, deviceID string) (string, error) {
	stored, err := d.db.GetOAuthToken(deviceID)
	if err != nil {
		return "", err
	}
	if d.now().Sub(stored.UpdateTime) <= rotateAfter {
		return stored.AccessToken, nil
	}

	// An already-passed expiry forces the oauth2 source to refresh.
	src := d.conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       d.now().Add(-time.Minute),
	})
	fresh, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing device token: %w", err)
	}

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = stored.RefreshToken
	}
	if err := d.db.SaveOAuthToken(&store.OAuthToken{
		DeviceID:     deviceID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: refreshToken,
		UpdateTime:   d.now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("persisting rotated token: %w", err)
	}
	return fresh.AccessToken, nil
}
