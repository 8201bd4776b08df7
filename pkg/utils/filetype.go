package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// previewType groups the extensions and MIME types of one display category.
type previewType struct {
	extensions []string
	mimeTypes  []string
}

var previewTypes = map[string]previewType{
	"image": {
		extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg", ".ico"},
		mimeTypes:  []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp", "image/svg+xml", "image/x-icon"},
	},
	"video": {
		extensions: []string{".mp4", ".webm", ".ogv", ".avi", ".mov", ".mkv", ".flv", ".wmv"},
		mimeTypes:  []string{"video/mp4", "video/webm", "video/ogg", "video/x-msvideo", "video/quicktime", "video/x-matroska", "video/x-flv", "video/x-ms-wmv"},
	},
	"audio": {
		extensions: []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac"},
		mimeTypes:  []string{"audio/mpeg", "audio/wav", "audio/ogg", "audio/mp4", "audio/flac", "audio/aac"},
	},
	"document": {
		extensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"},
		mimeTypes: []string{
			"application/pdf", "application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		},
	},
	"code": {
		extensions: []string{".py", ".js", ".html", ".css", ".json", ".xml", ".java", ".cpp", ".c", ".cs", ".php", ".rb", ".go", ".ts", ".jsx", ".tsx"},
		mimeTypes:  []string{"text/x-python", "text/javascript", "text/html", "text/css", "application/json", "text/xml", "text/x-go"},
	},
	"text": {
		extensions: []string{".txt", ".md", ".csv", ".log", ".ini", ".conf", ".yml", ".yaml"},
		mimeTypes:  []string{"text/plain", "text/markdown", "text/csv"},
	},
	"archive": {
		extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz", ".bz2"},
		mimeTypes:  []string{"application/zip", "application/x-rar-compressed", "application/x-7z-compressed", "application/x-tar", "application/gzip", "application/x-bzip2"},
	},
	"executable": {
		extensions: []string{".exe", ".msi", ".app", ".dmg", ".deb", ".rpm"},
		mimeTypes:  []string{"application/x-msdownload", "application/x-msi", "application/x-executable"},
	},
}

// FileType classifies a filename into a display category, first by
// extension and then by guessed MIME type. Unknown files are "other".
func FileType(filename string) string {
	if filename == "" {
		return "other"
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for fileType, info := range previewTypes {
		for _, e := range info.extensions {
			if e == ext {
				return fileType
			}
		}
	}

	if mimeType := GuessMimeType(filename); mimeType != "" {
		for fileType, info := range previewTypes {
			for _, m := range info.mimeTypes {
				if m == mimeType {
					return fileType
				}
			}
		}
	}
	return "other"
}

// GuessMimeType resolves a MIME type from the filename extension, without
// any charset parameters. Empty when unknown.
func GuessMimeType(filename string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if mimeType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		return parsed
	}
	return mimeType
}

// MimeTypeOrDefault resolves a MIME type, falling back to a generic binary
// type when the extension is unknown.
func MimeTypeOrDefault(filename string) string {
	if mimeType := GuessMimeType(filename); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
