// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/courtapp/releasetools/internal/api/apple/appstoreconnect"
	"github.com/courtapp/releasetools/internal/cli"
	"github.com/courtapp/releasetools/internal/cli/envflag"
	"github.com/courtapp/releasetools/internal/logger"

	"github.com/joho/godotenv"
)

func main() { cli.Main(new(app)) }

// Environment variables holding the configuration.
const (
	envKeyID      = "APP_STORE_CONNECT_API_KEY_ID"
	envIssuerID   = "APP_STORE_CONNECT_ISSUER_ID"
	envPrivateKey = "APP_STORE_CONNECT_API_PRIVATE_KEY"
	envAppID      = "APP_ID"
)

type app struct {
	envFile *string
	appID   *string

	// used in tests
	baseURL string
	httpc   *http.Client
}

func (a *app) Flags(fs *flag.FlagSet, env *cli.Env) {
	a.envFile = envflag.Value(fs, env.Getenv, "env-file", "ASCVERSION_ENV_FILE", ".env", "Dotenv `file` to read missing variables from.")
	a.appID = envflag.Value(fs, env.Getenv, "app", envAppID, "", "Apple `ID` of the app.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) > 0 {
		return fmt.Errorf("%w: ascversion takes no arguments, got %q", cli.ErrInvalidArgs, env.Args)
	}

	getenv, err := dotenvFallback(ctx, env.Getenv, *a.envFile)
	if err != nil {
		return err
	}

	creds := appstoreconnect.Credentials{
		KeyID:      getenv(envKeyID),
		IssuerID:   getenv(envIssuerID),
		PrivateKey: getenv(envPrivateKey),
	}
	appID := cmp.Or(*a.appID, getenv(envAppID))

	var missing []string
	for name, val := range map[string]string{
		envKeyID:      creds.KeyID,
		envIssuerID:   creds.IssuerID,
		envPrivateKey: creds.PrivateKey,
		envAppID:      appID,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", cli.ErrInvalidArgs, strings.Join(missing, ", "))
	}

	c := &appstoreconnect.Client{
		Credentials: creds,
		BaseURL:     a.baseURL,
		HTTPClient:  a.httpc,
	}
	v, err := c.NextBuildVersion(ctx, appID)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Stdout, v.Next)
	return nil
}

// dotenvFallback returns a getenv function that looks up variables in
// getenv first and in the dotenv file at path second. A missing file is not
// an error.
func dotenvFallback(ctx context.Context, getenv func(string) string, path string) (func(string) string, error) {
	if path == "" {
		return getenv, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Get(ctx).Debug("no dotenv file", "path", path)
		return getenv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	logger.Get(ctx).Debug("loaded dotenv file", "path", path, "vars", len(vars))
	return func(key string) string {
		return cmp.Or(getenv(key), vars[key])
	}, nil
}
