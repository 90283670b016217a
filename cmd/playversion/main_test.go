// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/courtapp/releasetools/internal/api/google/play"
	"github.com/courtapp/releasetools/internal/api/google/play/playtest"
	"github.com/courtapp/releasetools/internal/cli"
	"github.com/courtapp/releasetools/internal/cli/clitest"
)

func TestRun(t *testing.T) {
	t.Parallel()

	srv := playtest.NewServer(t)
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.json")
	if err := os.WriteFile(keyFile, srv.Key(), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if open := srv.OpenEdits(); len(open) > 0 {
			t.Errorf("edits left open: %v", open)
		}
	})

	clitest.Run(t, func(t *testing.T) *app {
		return &app{
			httpc:    srv.Client(),
			endpoint: srv.Endpoint(),
		}
	}, map[string]clitest.Case[*app]{
		"prints usage with help flag": {
			Args:    []string{"-h"},
			WantErr: flag.ErrHelp,
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
		"unexpected arguments": {
			Args:    []string{"-key", keyFile, "org.courtapp.dev"},
			WantErr: cli.ErrInvalidArgs,
		},
		"latest and new version code": {
			Args:       []string{"-key", keyFile},
			WantStdout: "Latest version code from Google Play: 42\nNew version code: 43\n",
		},
		"key from environment": {
			Env:        map[string]string{"PLAY_SERVICE_ACCOUNT_KEY": keyFile},
			WantStdout: "Latest version code from Google Play: 42\nNew version code: 43\n",
		},
		"bare": {
			Args:       []string{"-key", keyFile, "-bare"},
			WantStdout: "43\n",
		},
		"bare from environment": {
			Args:       []string{"-key", keyFile},
			Env:        map[string]string{"PLAY_BARE": "true"},
			WantStdout: "43\n",
		},
		"verbose logs edit lifecycle": {
			Args:         []string{"-key", keyFile, "-v"},
			WantInStdout: "New version code: 43",
			WantInStderr: "deleted edit",
		},
		"missing key file": {
			Args:            []string{"-key", filepath.Join(dir, "nonexistent.json")},
			WantErr:         fs.ErrNotExist,
			WantNotInStdout: "New version code",
		},
		"track without releases": {
			Args:            []string{"-key", keyFile, "-track", "alpha"},
			WantErr:         play.ErrNoReleases,
			WantNotInStdout: "New version code",
		},
		"track from environment": {
			Args:    []string{"-key", keyFile},
			Env:     map[string]string{"PLAY_TRACK": "beta"},
			WantErr: play.ErrNoReleases,
		},
	})
}
