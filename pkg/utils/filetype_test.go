package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"photo.JPG", "image"},
		{"clip.mp4", "video"},
		{"song.flac", "audio"},
		{"report.pdf", "document"},
		{"main.go", "code"},
		{"notes.txt", "text"},
		{"bundle.tar", "archive"},
		{"setup.exe", "executable"},
		{"mystery.xyz", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileType(tt.filename))
		})
	}
}

func TestMimeTypeOrDefault(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeTypeOrDefault("doc.pdf"))
	assert.Equal(t, "image/png", MimeTypeOrDefault("pic.png"))
	assert.Equal(t, "application/octet-stream", MimeTypeOrDefault("mystery.zzz"))
}

func TestSanitizeRelativePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "photo.jpg", "photo.jpg"},
		{"nested path", "vacation/day1/photo.jpg", "vacation/day1/photo.jpg"},
		{"backslashes normalized", `folder\sub\file.txt`, "folder/sub/file.txt"},
		{"parent traversal stripped", "../../etc/passwd", "etc/passwd"},
		{"dot segments stripped", "./a/./b", "a/b"},
		{"repeated slashes collapsed", "a//b///c", "a/b/c"},
		{"empty", "", ""},
		{"only traversal", "../..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeRelativePath(tt.input))
		})
	}
}
