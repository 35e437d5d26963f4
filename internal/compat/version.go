package compat

import "strings"

// Compare orders two kernel or OS version strings by numeric dot-component
// comparison: "5.10.144-127.601" splits into [5 10 144 127 601]. A string
// that is a strict numeric prefix of the other orders before it, matching
// sort -V. Distribution suffixes such as ".amzn2.x86_64" or ".el9_3" are cut
// at the first alphabetic character before comparing, so only the upstream
// version and build components participate.
//
// Returns -1 when a < b, 0 when equal, 1 when a > b.
func Compare(a, b string) int {
	ca, cb := components(a), components(b)

	n := len(ca)
	if len(cb) > n {
		n = len(cb)
	}
	for i := 0; i < n; i++ {
		va, vb := 0, 0
		if i < len(ca) {
			va = ca[i]
		}
		if i < len(cb) {
			vb = cb[i]
		}
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// AtLeast reports whether version v satisfies the minimum min.
func AtLeast(v, min string) bool {
	return Compare(v, min) >= 0
}

// components extracts the numeric runs of v, stopping at the first letter.
func components(v string) []int {
	var out []int
	cur := -1
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			if cur < 0 {
				cur = 0
			}
			cur = cur*10 + int(r-'0')
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			if cur >= 0 {
				out = append(out, cur)
			}
			return out
		default:
			if cur >= 0 {
				out = append(out, cur)
				cur = -1
			}
		}
	}
	if cur >= 0 {
		out = append(out, cur)
	}
	return out
}

// HasSeriesPrefix reports whether kernel belongs to the release series
// identified by prefix: the prefix must match on a component boundary, so
// "4.18.0-51" does not match a "4.18.0-513.24.1" kernel.
func HasSeriesPrefix(kernel, prefix string) bool {
	if !strings.HasPrefix(kernel, prefix) {
		return false
	}
	rest := kernel[len(prefix):]
	if rest == "" {
		return true
	}
	c := rest[0]
	return c < '0' || c > '9'
}

// Major returns the leading dotted component of a version string:
// Major("8.7") == "8", Major("2023") == "2023".
func Major(v string) string {
	if i := strings.IndexAny(v, ".-"); i >= 0 {
		return v[:i]
	}
	return v
}
