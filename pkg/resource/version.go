package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions performs a best-effort ordinal comparison of dotted
// version strings, returning -1, 0, or 1. It tries semver first (which
// coerces partial versions like "22.04"), then falls back to a plain
// numeric dot-tuple comparison. An error means the strings cannot be
// compared and the caller must degrade to a warning rather than silently
// passing or failing.
func CompareVersions(a, b string) (int, error) {
	va, errA := semver.NewVersion(strings.TrimSpace(a))
	vb, errB := semver.NewVersion(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return va.Compare(vb), nil
	}

	ta, errA := parseDotTuple(a)
	tb, errB := parseDotTuple(b)
	if errA != nil {
		return 0, fmt.Errorf("unparseable version %q: %w", a, errA)
	}
	if errB != nil {
		return 0, fmt.Errorf("unparseable version %q: %w", b, errB)
	}

	for i := 0; i < len(ta) || i < len(tb); i++ {
		x, y := 0, 0
		if i < len(ta) {
			x = ta[i]
		}
		if i < len(tb) {
			y = tb[i]
		}
		if x != y {
			if x < y {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func parseDotTuple(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}
	parts := strings.Split(s, ".")
	tuple := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("non-numeric segment %q", p)
		}
		tuple = append(tuple, n)
	}
	return tuple, nil
}
