// Package testutil contains common testing helpers.
package testutil

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// AssertEqual compares two values and if they differ, fails the test and
// prints the difference between them.
func AssertEqual(t *testing.T, got, want any) {
	t.Helper()
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("(-got +want):\n%s", diff)
	}
}

// ParseTxtar parses an embedded txtar archive and returns its files keyed by
// name.
func ParseTxtar(b []byte) map[string][]byte {
	ar := txtar.Parse(b)
	m := make(map[string][]byte, len(ar.Files))
	for _, f := range ar.Files {
		m[f.Name] = f.Data
	}
	return m
}

// ServeJSON writes b as a JSON response body with status 200.
func ServeJSON(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
