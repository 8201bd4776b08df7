package utils

import (
	"regexp"
	"strings"
)

var multiSlash = regexp.MustCompile(`/+`)

// SanitizeRelativePath reduces a peer-supplied relative path to a value
// that can only ever describe a logical folder structure for display.
// Separators are normalized and empty, "." and ".." segments stripped, so
// the result cannot escape any scope it is joined under.
func SanitizeRelativePath(pathValue string) string {
	if pathValue == "" {
		return ""
	}

	normalized := strings.TrimSpace(strings.ReplaceAll(pathValue, `\`, "/"))
	normalized = multiSlash.ReplaceAllString(normalized, "/")

	parts := strings.Split(normalized, "/")
	safe := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".", "..":
			continue
		default:
			safe = append(safe, part)
		}
	}
	return strings.Join(safe, "/")
}
