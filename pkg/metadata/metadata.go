// Package metadata provides pure, stateless introspection of uploaded
// content for preview purposes. Extraction failures never propagate: a
// best-effort "error" entry is returned instead, because preview details
// are cosmetic and must not break a transfer.
package metadata

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"
	"unicode/utf8"
)

var pdfPagePattern = regexp.MustCompile(`/Type\s*/Page[^s]`)

// Extract inspects decoded file content and returns preview details keyed
// by attribute name. The shape depends on the file category; unknown
// categories return an empty map.
func Extract(content []byte, fileType, mimeType string) map[string]any {
	switch {
	case fileType == "image":
		return imageMetadata(content)
	case mimeType == "application/pdf":
		return pdfMetadata(content)
	case fileType == "text" || fileType == "code":
		return textMetadata(content)
	default:
		return map[string]any{}
	}
}

func imageMetadata(content []byte) map[string]any {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("error extracting image metadata: %v", err)}
	}
	return map[string]any{
		"width":  cfg.Width,
		"height": cfg.Height,
		"format": format,
	}
}

func pdfMetadata(content []byte) map[string]any {
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return map[string]any{"error": "error extracting PDF metadata: not a PDF document"}
	}
	// Counting page objects is approximate for exotic encodings but
	// matches the common uncompressed object layout.
	pages := len(pdfPagePattern.FindAll(content, -1))
	out := map[string]any{"pages": pages}
	if version, ok := pdfVersion(content); ok {
		out["version"] = version
	}
	return out
}

func pdfVersion(content []byte) (string, bool) {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx > 0 {
		line = content[:idx]
	}
	header := strings.TrimSpace(string(line))
	if !strings.HasPrefix(header, "%PDF-") {
		return "", false
	}
	return strings.TrimPrefix(header, "%PDF-"), true
}

func textMetadata(content []byte) map[string]any {
	if !utf8.Valid(content) {
		return map[string]any{"error": "error extracting text metadata: not valid UTF-8"}
	}
	text := string(content)
	lines := strings.Count(text, "\n")
	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		lines++
	}
	return map[string]any{
		"lines":      lines,
		"characters": utf8.RuneCountInString(text),
	}
}
