// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/courtapp/releasetools/internal/api/google/play"
	"github.com/courtapp/releasetools/internal/api/google/serviceaccount"
	"github.com/courtapp/releasetools/internal/cli"
	"github.com/courtapp/releasetools/internal/cli/envflag"
	"github.com/courtapp/releasetools/internal/request"
)

func main() { cli.Main(new(app)) }

type app struct {
	packageName *string
	keyFile     *string
	track       *string
	bare        *bool

	// used in tests
	httpc    *http.Client
	endpoint string
}

func (a *app) Flags(fs *flag.FlagSet, env *cli.Env) {
	a.packageName = envflag.Value(fs, env.Getenv, "package", "PLAY_PACKAGE_NAME", "org.courtapp.dev", "Application package `name`.")
	a.keyFile = envflag.Value(fs, env.Getenv, "key", "PLAY_SERVICE_ACCOUNT_KEY", "./key.json", "Service account key `file`.")
	a.track = envflag.Value(fs, env.Getenv, "track", "PLAY_TRACK", play.DefaultTrack, "Release `track` to read the version code from.")
	a.bare = envflag.Value(fs, env.Getenv, "bare", "PLAY_BARE", false, "Print only the next version code.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) > 0 {
		return fmt.Errorf("%w: playversion takes no arguments, got %q", cli.ErrInvalidArgs, env.Args)
	}

	key, err := serviceaccount.ReadKeyFile(*a.keyFile)
	if err != nil {
		return err
	}

	httpc := key.Client(ctx, cmp.Or(a.httpc, request.DefaultClient), play.Scope)
	c, err := play.NewClient(ctx, httpc, a.endpoint)
	if err != nil {
		return err
	}

	v, err := c.NextVersionCode(ctx, *a.packageName, *a.track)
	if err != nil {
		return fmt.Errorf("fetching latest version code of %s: %w", *a.packageName, err)
	}

	if *a.bare {
		fmt.Fprintln(env.Stdout, v.Next)
		return nil
	}
	fmt.Fprintf(env.Stdout, "Latest version code from Google Play: %d\n", v.Current)
	fmt.Fprintf(env.Stdout, "New version code: %d\n", v.Next)
	return nil
}
