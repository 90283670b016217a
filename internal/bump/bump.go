// Package bump computes the next release counter from the latest published
// one.
package bump

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned by Parse for values that are not
// non-negative base-10 integers, and by From for counters that have no
// successor.
var ErrInvalidVersion = errors.New("invalid version")

// Version is the latest published release counter and the one to use for the
// next release.
type Version struct {
	Current int64 `json:"current"`
	Next    int64 `json:"next"`
}

// From returns the Version following current.
func From(current int64) (Version, error) {
	if current < 0 || current == math.MaxInt64 {
		return Version{}, fmt.Errorf("%w %d: no next version", ErrInvalidVersion, current)
	}
	return Version{Current: current, Next: current + 1}, nil
}

// Parse parses a release counter reported as a string, such as an App Store
// Connect build version.
func Parse(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidVersion, s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w %q: negative", ErrInvalidVersion, s)
	}
	return v, nil
}
