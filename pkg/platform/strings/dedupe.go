// Package strings provides small string helpers used by request normalization.
package strings

import (
	"strings"
)

// DedupeAndTrim drops blanks and duplicates after trimming. Order is preserved.
// Used for document URL lists and filter values coming from query strings.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folding.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}

// SplitCSV expands repeated and comma-separated query values into one list:
// ?level=UG&level=PG,Diploma -> [UG PG Diploma].
func SplitCSV(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return DedupeAndTrim(out)
}

// TrimPtr trims optional strings in place, leaving nils untouched.
func TrimPtr(ps ...*string) {
	for _, p := range ps {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}
