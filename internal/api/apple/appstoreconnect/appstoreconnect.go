// Package appstoreconnect reads build information from the App Store Connect
// API.
//
// See https://developer.apple.com/documentation/appstoreconnectapi.
package appstoreconnect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courtapp/releasetools/internal/bump"
	"github.com/courtapp/releasetools/internal/logger"
	"github.com/courtapp/releasetools/internal/request"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultBaseURL is the App Store Connect API base URL.
	DefaultBaseURL = "https://api.appstoreconnect.apple.com"
	// Audience is the aud claim App Store Connect expects.
	Audience = "appstoreconnect-v1"
	// TokenLifetime is how long a token minted by Credentials.Token is valid.
	// App Store Connect rejects tokens living longer than 20 minutes.
	TokenLifetime = 20 * time.Minute
)

// ErrNoBuilds is returned when an app has no builds.
var ErrNoBuilds = errors.New("no builds")

// Credentials identify an App Store Connect API key.
type Credentials struct {
	KeyID      string
	IssuerID   string
	PrivateKey string // PEM-encoded PKCS #8 ES256 key, as in the downloaded .p8 file
}

// NormalizePrivateKey replaces literal \n escape sequences with newlines.
// Keys stored in single-line environment variables or CI secrets usually look
// like that.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// Token returns a signed token valid for TokenLifetime from now.
func (c Credentials) Token(now time.Time) (string, error) {
	if c.KeyID == "" || c.IssuerID == "" {
		return "", errors.New("key ID and issuer ID are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(NormalizePrivateKey(c.PrivateKey)))
	if err != nil {
		return "", fmt.Errorf("parsing private key %s: %w", c.KeyID, err)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.IssuerID,
		"exp": now.Add(TokenLifetime).Unix(),
		"aud": Audience,
	})
	tok.Header["kid"] = c.KeyID
	return tok.SignedString(key)
}

// Client talks to the App Store Connect API.
type Client struct {
	Credentials Credentials
	// BaseURL replaces DefaultBaseURL if not empty.
	BaseURL string
	// HTTPClient is used instead of request.DefaultClient if not nil.
	HTTPClient *http.Client

	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time
}

// Build is a single build of an app.
type Build struct {
	ID         string `json:"id"`
	Attributes struct {
		Version      string `json:"version"`
		UploadedDate string `json:"uploadedDate"`
	} `json:"attributes"`
}

// LatestBuildVersion returns the version of the first build App Store Connect
// lists for appID, which is the most recent one.
func (c *Client) LatestBuildVersion(ctx context.Context, appID string) (string, error) {
	if appID == "" {
		return "", errors.New("app ID is required")
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	token, err := c.Credentials.Token(now())
	if err != nil {
		return "", err
	}

	base := DefaultBaseURL
	if c.BaseURL != "" {
		base = strings.TrimSuffix(c.BaseURL, "/")
	}
	u := base + "/v1/builds?" + url.Values{"filter[app]": {appID}}.Encode()

	type response struct {
		Data []Build `json:"data"`
	}

	logger.Get(ctx).Debug("listing builds", "app", appID)
	resp, err := request.MakeJSON[response](ctx, request.Params{
		Method: http.MethodGet,
		URL:    u,
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
		},
		HTTPClient: c.HTTPClient,
		Scrubber:   strings.NewReplacer(token, "[EXPUNGED]"),
	})
	if err != nil {
		return "", fmt.Errorf("listing builds of app %s: %w", appID, err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("app %s: %w", appID, ErrNoBuilds)
	}

	b := resp.Data[0]
	logger.Get(ctx).Debug("latest build", "app", appID, "build", b.ID, "version", b.Attributes.Version, "uploaded", b.Attributes.UploadedDate)
	return b.Attributes.Version, nil
}

// NextBuildVersion returns the version of the latest build of appID and the
// one following it.
func (c *Client) NextBuildVersion(ctx context.Context, appID string) (bump.Version, error) {
	s, err := c.LatestBuildVersion(ctx, appID)
	if err != nil {
		return bump.Version{}, err
	}
	v, err := bump.Parse(s)
	if err != nil {
		return bump.Version{}, fmt.Errorf("latest build of app %s: %w", appID, err)
	}
	next, err := bump.From(v)
	if err != nil {
		return bump.Version{}, fmt.Errorf("latest build of app %s: %w", appID, err)
	}
	return next, nil
}
