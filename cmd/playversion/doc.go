// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Playversion prints the version code to use for the next Android release.

It reads the latest version code published on a Google Play track through
the Android Publisher API and prints it together with the incremented one.
The edit opened to read the track is always deleted before exiting, nothing
is committed.

# Usage

	$ playversion [flags...]

Authentication uses a service account key file with access to the app in the
Play Console (./key.json by default).

With -bare only the next version code is printed, which is handy in scripts:

	$ VERSION_CODE=$(playversion -bare)

On failure nothing is printed to standard output, the reason is printed to
standard error and playversion exits with a non-zero status.
*/
package main

import (
	_ "embed"

	"github.com/courtapp/releasetools/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
