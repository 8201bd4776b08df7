package types

import (
	"time"
)

type FileID string
type RoomCode string
type ConnectionID string

// ChunkSize is the fixed process-wide chunk size. It is deliberately not
// configurable per call so that sender and receiver always hash the same
// byte ranges.
const ChunkSize = 64 * 1024

// MaxDevicesPerRoom caps concurrent devices in a single room.
const MaxDevicesPerRoom = 10

// Chunk describes one contiguous slice of a file's bytes.
type Chunk struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
	Hash   string `json:"hash"`
}

// Manifest is the ordered chunk list plus file-level metadata describing
// how a file was split. Chunks partition [0, TotalSize) contiguously.
type Manifest struct {
	FileID    FileID  `json:"file_id"`
	ChunkSize int64   `json:"chunk_size"`
	TotalSize int64   `json:"total_size"`
	Chunks    []Chunk `json:"chunks"`
}

// DeviceInfo is the client-supplied identity of a connected device.
type DeviceInfo struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// Device is one connected participant in a room, owned exclusively by
// that room and removed on disconnect or explicit leave.
type Device struct {
	ConnectionID ConnectionID `json:"connection_id"`
	Info         DeviceInfo   `json:"device_info"`
	JoinedAt     time.Time    `json:"joined_at"`
}

// FileRecord is an in-memory shared file. Content is held base64-encoded,
// exactly as it travels on the wire, and decoded on demand. Records are
// never mutated after creation.
type FileRecord struct {
	ID                FileID
	Filename          string
	MimeType          string
	FileType          string
	Size              int64
	Content           string // base64-encoded raw bytes
	CreatedAt         time.Time
	UploadedBy        string // uploader device label
	SafePath          string // sanitized logical relative path
	Manifest          Manifest
	ManifestSignature string
	RoomCode          RoomCode
}
