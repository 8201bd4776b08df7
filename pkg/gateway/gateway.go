package gateway

import (
	"ropix/pkg/types"
)

// Client → server events.
const (
	EventJoinRoom         = "join_room"
	EventLeaveRoom        = "leave_room"
	EventRequestFile      = "request_file"
	EventUploadStart      = "upload_start"
	EventUploadProgress   = "upload_progress"
	EventUploadComplete   = "upload_complete"
	EventDismissReceiving = "dismiss_receiving"
)

// Server → client events.
const (
	EventRoomJoined        = "room_joined"
	EventDevicesUpdated    = "devices_updated"
	EventFileAvailable     = "file_available"
	EventFileManifest      = "file_manifest"
	EventFileChunk         = "file_chunk"
	EventTransferComplete  = "file_transfer_complete"
	EventReceivingFile     = "receiving_file"
	EventReceivingProgress = "receiving_progress"
	EventReceivingComplete = "receiving_complete"
	EventCancelUpload      = "cancel_upload"
	EventFileDeleted       = "file_deleted"
	EventFilesCleared      = "files_cleared"
	EventFileError         = "file_error"
	EventRoomError         = "room_error"
)

// Gateway is the contract the core requires from its transport. Delivery is
// fire-and-forget: callers never block waiting for an acknowledgement.
type Gateway interface {
	// EmitTo makes an exactly-once delivery attempt to one connection.
	EmitTo(conn types.ConnectionID, event string, payload any)
	// EmitToRoom delivers best-effort to all current members of a room
	// except the excluded connections.
	EmitToRoom(room types.RoomCode, event string, payload any, exclude ...types.ConnectionID)
}

// MemberResolver answers which connections currently belong to a room.
// The room registry implements it.
type MemberResolver interface {
	Members(room types.RoomCode) []types.ConnectionID
}

// Handler receives connection lifecycle and inbound message callbacks.
type Handler interface {
	OnConnect(conn types.ConnectionID)
	OnMessage(conn types.ConnectionID, event string, data []byte)
	OnDisconnect(conn types.ConnectionID)
}

type RoomJoinedPayload struct {
	RoomCode    types.RoomCode `json:"room_code"`
	FileCount   int            `json:"file_count"`
	DeviceCount int            `json:"device_count"`
}

type DevicesUpdatedPayload struct {
	Devices []*types.Device `json:"devices"`
	Count   int             `json:"count"`
}

type FileAvailablePayload struct {
	FileID      types.FileID `json:"file_id"`
	Filename    string       `json:"filename"`
	FileType    string       `json:"file_type"`
	MimeType    string       `json:"mime_type"`
	Size        int64        `json:"size"`
	SizeDisplay string       `json:"size_display"`
	DeviceInfo  string       `json:"device_info"`
	SafePath    string       `json:"safe_path"`
	Chunks      int          `json:"chunks"`
	UploadedAt  string       `json:"uploaded_at"`
}

type FileManifestPayload struct {
	FileID            types.FileID   `json:"file_id"`
	Filename          string         `json:"filename"`
	MimeType          string         `json:"mime_type"`
	Size              int64          `json:"size"`
	Manifest          types.Manifest `json:"manifest"`
	ManifestSignature string         `json:"manifest_signature"`
}

type FileChunkPayload struct {
	FileID     types.FileID `json:"file_id"`
	ChunkIndex int          `json:"chunk_index"`
	Size       int64        `json:"size"`
	Hash       string       `json:"hash"`
	Content    string       `json:"content"` // base64
}

type TransferCompletePayload struct {
	FileID types.FileID `json:"file_id"`
}

type ReceivingFilePayload struct {
	Filename   string           `json:"filename"`
	Size       int64            `json:"size"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
	Progress   int              `json:"progress"`
}

type ReceivingProgressPayload struct {
	Filename   string           `json:"filename"`
	Progress   int              `json:"progress"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
}

type ReceivingCompletePayload struct {
	Filename   string           `json:"filename"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
}

type CancelUploadPayload struct {
	Reason string `json:"reason"`
}

type FileDeletedPayload struct {
	FileID     types.FileID `json:"file_id"`
	Filename   string       `json:"filename"`
	DeviceInfo string       `json:"device_info"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
