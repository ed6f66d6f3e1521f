// Package credentials turns the serialized authorized-user token produced by
// Google's OAuth tooling into a live, auto-refreshing session.
package credentials

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"workspace-provision/internal/apperr"
)

// authorizedUser mirrors the token blob written by google-auth's
// Credentials.to_json and by `gcloud auth application-default login`.
type authorizedUser struct {
	Type         string   `json:"type"`
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURI     string   `json:"token_uri"`
	Expiry       string   `json:"expiry"`
	Scopes       []string `json:"scopes"`
}

// Session is an authenticated handle to Google APIs.
type Session struct {
	TokenSource oauth2.TokenSource
	Client      *http.Client
	Scopes      []string
}

// Token returns the current access token, refreshing it when needed.
func (s *Session) Token() (*oauth2.Token, error) {
	return s.TokenSource.Token()
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseExpiry(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range expiryLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Load deserializes blob and returns a session scoped to scopes. An expired
// access token is refreshed before returning when a refresh token is present.
// base is the HTTP client used for the refresh exchange and API calls.
func Load(ctx context.Context, blob string, scopes []string, base *http.Client) (*Session, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, apperr.Configuration("TOKEN_JSON is not set: provide the authorized-user token JSON", nil)
	}

	var au authorizedUser
	if err := json.Unmarshal([]byte(blob), &au); err != nil {
		return nil, apperr.Configuration("TOKEN_JSON contains invalid JSON", err)
	}
	if au.Type != "" && au.Type != "authorized_user" {
		return nil, apperr.Configuration("TOKEN_JSON type "+au.Type+" is not supported, expected authorized_user", nil)
	}

	access := au.Token
	if access == "" {
		access = au.AccessToken
	}
	if access == "" && au.RefreshToken == "" {
		return nil, apperr.Configuration("TOKEN_JSON has neither an access token nor a refresh token", nil)
	}

	expiry, err := parseExpiry(au.Expiry)
	if err != nil {
		return nil, apperr.Configuration("TOKEN_JSON has an unreadable expiry", err)
	}

	endpoint := google.Endpoint
	if au.TokenURI != "" {
		endpoint.TokenURL = au.TokenURI
	}
	oc := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: au.RefreshToken,
		Expiry:       expiry,
	}

	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}

	if !tok.Valid() {
		if tok.RefreshToken == "" {
			return nil, apperr.Configuration("access token expired and no refresh token is available", nil)
		}
		if au.ClientID == "" || au.ClientSecret == "" {
			return nil, apperr.Configuration("TOKEN_JSON lacks client_id/client_secret needed to refresh", nil)
		}
		fresh, err := oc.TokenSource(ctx, tok).Token()
		if err != nil {
			var re *oauth2.RetrieveError
			if errors.As(err, &re) {
				return nil, apperr.Configuration("token refresh rejected: "+re.ErrorCode, err)
			}
			return nil, apperr.Configuration("token refresh failed", err)
		}
		tok = fresh
	}

	ts := oauth2.ReuseTokenSource(tok, oc.TokenSource(ctx, tok))
	return &Session{
		TokenSource: ts,
		Client:      oauth2.NewClient(ctx, ts),
		Scopes:      scopes,
	}, nil
}
