// © 2024 The Courtapp Authors. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Ascversion prints the build number to use for the next iOS release.

It lists the builds of an app through the App Store Connect API, takes the
version of the most recent one and prints it incremented by one. Only the
number is printed, so the output can be fed straight into a build:

	$ agvtool new-version -all $(ascversion)

# Usage

	$ ascversion [flags...]

The API key and the app are read from these environment variables:

	APP_STORE_CONNECT_API_KEY_ID       key ID
	APP_STORE_CONNECT_ISSUER_ID        issuer ID
	APP_STORE_CONNECT_API_PRIVATE_KEY  contents of the .p8 key file; newlines
	                                   may be written as \n
	APP_ID                             Apple ID of the app (or use -app)

Variables missing from the environment are looked up in a dotenv file (.env in
the current directory by default, see -env-file). Values from the environment
take precedence.

On failure nothing is printed to standard output, the reason is printed to
standard error and ascversion exits with a non-zero status.
*/
package main

import (
	_ "embed"

	"github.com/courtapp/releasetools/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
