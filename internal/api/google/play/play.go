// Package play reads release information from the Google Play Android
// Publisher API.
//
// See https://developers.google.com/android-publisher.
package play

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/courtapp/releasetools/internal/bump"
	"github.com/courtapp/releasetools/internal/logger"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

// Scope is the OAuth 2.0 scope needed to read edits and tracks.
const Scope = androidpublisher.AndroidpublisherScope

// DefaultTrack is the release track version codes are read from.
const DefaultTrack = "internal"

// deleteTimeout bounds the edit cleanup, which outlives the caller's context.
const deleteTimeout = 10 * time.Second

// ErrNoReleases is returned when a track has no release with a version code.
var ErrNoReleases = errors.New("no releases with version codes")

// Client talks to the Android Publisher API.
type Client struct {
	svc *androidpublisher.Service
}

// NewClient returns a Client sending requests through httpc, which must
// already authorize them (see serviceaccount.Key.Client). If endpoint is not
// empty, it replaces the default API base URL.
func NewClient(ctx context.Context, httpc *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpc)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Android Publisher client: %w", err)
	}
	return &Client{svc: svc}, nil
}

// LatestVersionCode returns the first version code of the first release on
// the given track of packageName.
//
// Tracks can only be read inside an edit, so LatestVersionCode opens one and
// always deletes it before returning. It never commits anything.
func (c *Client) LatestVersionCode(ctx context.Context, packageName, track string) (code int64, err error) {
	log := logger.Get(ctx)

	edit, err := c.svc.Edits.Insert(packageName, &androidpublisher.AppEdit{}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("creating edit for %s: %w", packageName, err)
	}
	log.Debug("created edit", "package", packageName, "edit", edit.Id)

	defer func() {
		// The request context may already be done; the edit should still go.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
		defer cancel()
		derr := c.svc.Edits.Delete(packageName, edit.Id).Context(dctx).Do()
		if derr != nil {
			log.Warn("failed to delete edit", "package", packageName, "edit", edit.Id, "err", derr)
			return
		}
		log.Debug("deleted edit", "package", packageName, "edit", edit.Id)
	}()

	t, err := c.svc.Edits.Tracks.Get(packageName, edit.Id, track).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("reading track %q of %s: %w", track, packageName, err)
	}
	if len(t.Releases) == 0 || len(t.Releases[0].VersionCodes) == 0 {
		return 0, fmt.Errorf("track %q of %s: %w", track, packageName, ErrNoReleases)
	}

	code = t.Releases[0].VersionCodes[0]
	log.Debug("read track", "package", packageName, "track", track, "release", t.Releases[0].Name, "version_code", code)
	return code, nil
}

// NextVersionCode returns the latest version code on track and the one
// following it.
func (c *Client) NextVersionCode(ctx context.Context, packageName, track string) (bump.Version, error) {
	code, err := c.LatestVersionCode(ctx, packageName, track)
	if err != nil {
		return bump.Version{}, err
	}
	next, err := bump.From(code)
	if err != nil {
		return bump.Version{}, fmt.Errorf("track %q of %s: %w", track, packageName, err)
	}
	return next, nil
}
