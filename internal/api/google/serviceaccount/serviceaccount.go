// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package serviceaccount provides functions for working with Google service accounts.
//
// See https://developers.google.com/identity/protocols/oauth2/service-account.
package serviceaccount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/courtapp/releasetools/internal/request"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DefaultTokenURI is used when a key does not specify token_uri.
const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// ReadKeyFile loads service account key from the JSON file at path.
func ReadKeyFile(path string) (*Key, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}
	k, err := LoadKey(b)
	if err != nil {
		return nil, fmt.Errorf("loading service account key %s: %w", path, err)
	}
	return k, nil
}

// LoadKey loads service account key from JSON byte slice.
func LoadKey(b []byte) (*Key, error) {
	var key Key
	if err := json.Unmarshal(b, &key); err != nil {
		return nil, err
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("client_email and private_key are required")
	}
	if key.TokenURI == "" {
		key.TokenURI = DefaultTokenURI
	}
	return &key, nil
}

// Key represents a service account key.
type Key struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// AccessToken obtains an access token for service account identified by this
// key that is valid for one hour.
func (k *Key) AccessToken(ctx context.Context, client *http.Client, scopes ...string) (*oauth2.Token, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(k.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key of %s: %w", k.ClientEmail, err)
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   k.ClientEmail,
		"sub":   k.ClientEmail,
		"aud":   k.TokenURI,
		"scope": strings.Join(scopes, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	if k.PrivateKeyID != "" {
		tok.Header["kid"] = k.PrivateKeyID
	}
	sig, err := tok.SignedString(key)
	if err != nil {
		return nil, err
	}

	type response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	resp, err := request.MakeJSON[response](ctx, request.Params{
		Method: http.MethodPost,
		URL:    k.TokenURI,
		Body: url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {sig},
		},
		HTTPClient: client,
		Scrubber:   strings.NewReplacer(sig, "[EXPUNGED]"),
	})
	if err != nil {
		return nil, fmt.Errorf("exchanging assertion for access token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access_token")
	}

	t := &oauth2.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		t.Expiry = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return t, nil
}

// TokenSource returns an [oauth2.TokenSource] that obtains access tokens with
// AccessToken and reuses them until they expire.
func (k *Key) TokenSource(ctx context.Context, client *http.Client, scopes ...string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{
		ctx:    ctx,
		key:    k,
		client: client,
		scopes: scopes,
	})
}

// Client returns an HTTP client that authorizes requests as this service
// account. Requests, including token exchanges, are sent through base and
// share its timeout.
func (k *Key) Client(ctx context.Context, base *http.Client, scopes ...string) *http.Client {
	if base == nil {
		base = request.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, k.TokenSource(ctx, base, scopes...))
	c.Timeout = base.Timeout
	return c
}

type tokenSource struct {
	ctx    context.Context
	key    *Key
	client *http.Client
	scopes []string
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	return ts.key.AccessToken(ts.ctx, ts.client, ts.scopes...)
}
