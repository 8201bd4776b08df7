package metadata

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 7))))

	details := Extract(buf.Bytes(), "image", "image/png")
	assert.Equal(t, 12, details["width"])
	assert.Equal(t, 7, details["height"])
	assert.Equal(t, "png", details["format"])
}

func TestExtractImageCorrupt(t *testing.T) {
	details := Extract([]byte("definitely not an image"), "image", "image/png")
	assert.Contains(t, details, "error")
}

func TestExtractPDF(t *testing.T) {
	doc := []byte("%PDF-1.4\n" +
		"1 0 obj << /Type /Pages /Kids [2 0 R 3 0 R] >> endobj\n" +
		"2 0 obj << /Type /Page /Parent 1 0 R >> endobj\n" +
		"3 0 obj << /Type /Page /Parent 1 0 R >> endobj\n" +
		"%%EOF\n")

	details := Extract(doc, "document", "application/pdf")
	assert.Equal(t, 2, details["pages"])
	assert.Equal(t, "1.4", details["version"])
}

func TestExtractPDFNotAPDF(t *testing.T) {
	details := Extract([]byte("hello"), "document", "application/pdf")
	assert.Contains(t, details, "error")
}

func TestExtractText(t *testing.T) {
	details := Extract([]byte("line one\nline two\n"), "text", "text/plain")
	assert.Equal(t, 2, details["lines"])
	assert.Equal(t, 18, details["characters"])
}

func TestExtractTextNoTrailingNewline(t *testing.T) {
	details := Extract([]byte("a\nb"), "code", "text/x-go")
	assert.Equal(t, 2, details["lines"])
}

func TestExtractTextBinary(t *testing.T) {
	details := Extract([]byte{0xff, 0xfe, 0x00, 0x80}, "text", "text/plain")
	assert.Contains(t, details, "error")
}

func TestExtractUnknownCategory(t *testing.T) {
	details := Extract([]byte("anything"), "archive", "application/zip")
	assert.Empty(t, details)
}
