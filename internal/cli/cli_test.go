package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/courtapp/releasetools/internal/logger"
	"github.com/courtapp/releasetools/internal/testutil"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err        error
		wantCode   int
		wantStderr string
	}{
		"success": {
			err:      nil,
			wantCode: 0,
		},
		"version": {
			err:      ErrExitVersion,
			wantCode: 0,
		},
		"help": {
			err:      &unprintableError{flag.ErrHelp},
			wantCode: 1,
		},
		"printable error": {
			err:        fmt.Errorf("reading service account key: %w", fs.ErrNotExist),
			wantCode:   1,
			wantStderr: "reading service account key: file does not exist\n",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			testutil.AssertEqual(t, exitCode(tc.err, &stderr), tc.wantCode)
			testutil.AssertEqual(t, stderr.String(), tc.wantStderr)
		})
	}
}

type flagApp struct {
	name    string
	gotName string
	debug   bool
}

func (a *flagApp) Flags(fs *flag.FlagSet, env *Env) {
	fs.StringVar(&a.name, "name", env.Getenv("NAME"), "Name.")
}

func (a *flagApp) Run(ctx context.Context) error {
	a.gotName = a.name
	a.debug = logger.Get(ctx).Enabled(ctx, slog.LevelDebug)
	fmt.Fprintln(GetEnv(ctx).Stdout, strings.Join(GetEnv(ctx).Args, ","))
	return nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		args       []string
		getenv     func(string) string
		wantErr    error
		wantName   string
		wantDebug  bool
		wantStdout string
	}{
		"flag from environment": {
			getenv:     func(k string) string { return map[string]string{"NAME": "env"}[k] },
			wantName:   "env",
			wantStdout: "\n",
		},
		"flag overrides environment": {
			args:       []string{"-name", "flag", "rest"},
			getenv:     func(k string) string { return map[string]string{"NAME": "env"}[k] },
			wantName:   "flag",
			wantStdout: "rest\n",
		},
		"verbose": {
			args:       []string{"-v"},
			wantDebug:  true,
			wantStdout: "\n",
		},
		"version": {
			args:    []string{"-version"},
			wantErr: ErrExitVersion,
		},
		"help": {
			args:    []string{"-h"},
			wantErr: flag.ErrHelp,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			getenv := tc.getenv
			if getenv == nil {
				getenv = func(string) string { return "" }
			}
			var stdout, stderr bytes.Buffer
			app := new(flagApp)
			err := Run(WithEnv(context.Background(), &Env{
				Args:   tc.args,
				Getenv: getenv,
				Stdout: &stdout,
				Stderr: &stderr,
			}), app)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, app.gotName, tc.wantName)
			testutil.AssertEqual(t, app.debug, tc.wantDebug)
			testutil.AssertEqual(t, stdout.String(), tc.wantStdout)
		})
	}
}

func TestParseDocComment(t *testing.T) {
	t.Parallel()

	src := []byte(`// Header.

/*
Playversion prints things.

	$ playversion
*/
package main

/*
ignored
*/
`)
	want := "Playversion prints things.\n\n\t$ playversion\n"
	testutil.AssertEqual(t, parseDocComment(src), want)
}
