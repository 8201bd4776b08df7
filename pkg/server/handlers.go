package server

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ropix/pkg/chunker"
	"ropix/pkg/gateway"
	"ropix/pkg/metadata"
	"ropix/pkg/room"
	"ropix/pkg/transfer"
	"ropix/pkg/types"
	"ropix/pkg/utils"
)

// multipartMemoryLimit bounds how much of an upload is buffered in memory
// by the multipart parser before spilling to temp files.
const multipartMemoryLimit = 32 * 1024 * 1024

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	code, err := s.registry.CreateRoom()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_code": code})
}

// handleJoinCheck is the HTTP counterpart of the websocket join: it
// enforces the same existence and device-cap rules for clients that
// validate a code before opening their socket.
func (s *Server) handleJoinCheck(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	files, devices, ok := s.registry.Counts(code)
	if !ok {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}
	if devices >= s.cfg.MaxDevicesPerRoom {
		writeDomainError(w, room.ErrRoomFull)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_code":    code,
		"file_count":   files,
		"device_count": devices,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.registry.Exists(code) {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or oversized upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "Empty file")
		return
	}

	deviceLabel := r.FormValue("device_info")
	if deviceLabel == "" {
		deviceLabel = "Unknown Device"
	}
	safePath := utils.SanitizeRelativePath(r.FormValue("path"))
	if safePath == "" {
		safePath = header.Filename
	}

	fileID := types.FileID(uuid.NewString())
	manifest := chunker.Split(fileID, content)
	signature := chunker.Sign(manifest)
	fileType := utils.FileType(header.Filename)

	record := &types.FileRecord{
		ID:                fileID,
		Filename:          header.Filename,
		MimeType:          utils.MimeTypeOrDefault(header.Filename),
		FileType:          fileType,
		Size:              int64(len(content)),
		Content:           base64.StdEncoding.EncodeToString(content),
		CreatedAt:         time.Now(),
		UploadedBy:        deviceLabel,
		SafePath:          safePath,
		Manifest:          manifest,
		ManifestSignature: signature,
		RoomCode:          code,
	}
	s.registry.AddFile(code, record)

	s.logger.Info("file uploaded",
		zap.String("room", string(code)),
		zap.String("file", string(fileID)),
		zap.String("filename", record.Filename),
		zap.Int64("size", record.Size),
		zap.Int("chunks", len(manifest.Chunks)))

	s.hub.EmitToRoom(code, gateway.EventFileAvailable, fileAvailablePayload(record))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"file_id":  fileID,
		"filename": record.Filename,
		"type":     fileType,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.registry.Exists(code) {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	records := s.registry.Files(code)
	files := make([]gateway.FileAvailablePayload, 0, len(records))
	for _, record := range records {
		files = append(files, fileAvailablePayload(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	record, content, err := s.resolveContent(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", record.Size))
	_, _ = w.Write(content)
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	record, err := s.resolveRecord(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":         record.Filename,
		"type":         record.FileType,
		"mime_type":    record.MimeType,
		"size":         record.Size,
		"size_display": utils.FormatDataSize(record.Size),
		"created":      record.CreatedAt.Format(time.RFC3339),
		"device_info":  record.UploadedBy,
		"safe_path":    record.SafePath,
		"integrity": map[string]any{
			"chunks":             len(record.Manifest.Chunks),
			"chunk_size":         record.Manifest.ChunkSize,
			"manifest_signature": record.ManifestSignature,
		},
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	record, content, err := s.resolveContent(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	details := metadata.Extract(content, record.FileType, record.MimeType)
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": record.Filename,
		"base_info": map[string]any{
			"type":      record.FileType,
			"mime_type": record.MimeType,
			"size":      utils.FormatDataSize(record.Size),
			"uploaded":  record.CreatedAt.Format(time.RFC3339),
		},
		"details": details,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	record, content, err := s.resolveContent(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if record.FileType == "text" || record.FileType == "code" {
		if !utf8.Valid(content) {
			writeError(w, http.StatusBadRequest, "File contains binary data and cannot be previewed as text")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"content": string(content),
			"type":    record.FileType,
			"info": map[string]any{
				"name":         record.Filename,
				"type":         record.FileType,
				"mime_type":    record.MimeType,
				"size":         record.Size,
				"size_display": utils.FormatDataSize(record.Size),
				"created":      record.CreatedAt.Format(time.RFC3339),
			},
		})
		return
	}

	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", record.Filename))
	_, _ = w.Write(content)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	fileID := types.FileID(mux.Vars(r)["id"])

	record, ok := s.registry.RemoveFile(code, fileID)
	if !ok {
		writeDomainError(w, room.ErrFileNotFound)
		return
	}

	deviceLabel := r.FormValue("device_info")
	if deviceLabel == "" {
		deviceLabel = record.UploadedBy
	}

	s.logger.Info("file deleted",
		zap.String("room", string(code)),
		zap.String("file", string(fileID)))

	s.hub.EmitToRoom(code, gateway.EventFileDeleted, gateway.FileDeletedPayload{
		FileID:     fileID,
		Filename:   record.Filename,
		DeviceInfo: deviceLabel,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.registry.Exists(code) {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, record := range s.registry.Files(code) {
		content, err := base64.StdEncoding.DecodeString(record.Content)
		if err != nil {
			s.logger.Error("skipping undecodable file in archive",
				zap.String("file", string(record.ID)), zap.Error(err))
			continue
		}
		entry, err := zw.Create(record.Filename)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to build archive")
			return
		}
		if _, err := entry.Write(content); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to build archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("ropix-%s.zip", code)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	code, err := s.roomCode(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.registry.Exists(code) {
		writeDomainError(w, room.ErrRoomNotFound)
		return
	}

	removed := s.registry.ClearFiles(code)
	s.logger.Info("room cleared", zap.String("room", string(code)), zap.Int("files", removed))
	s.hub.EmitToRoom(code, gateway.EventFilesCleared, nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) roomCode(r *http.Request) (types.RoomCode, error) {
	return room.NormalizeCode(mux.Vars(r)["code"])
}

func (s *Server) resolveRecord(r *http.Request) (*types.FileRecord, error) {
	code, err := s.roomCode(r)
	if err != nil {
		return nil, err
	}
	return s.registry.ResolveFile(types.FileID(mux.Vars(r)["id"]), code)
}

func (s *Server) resolveContent(r *http.Request) (*types.FileRecord, []byte, error) {
	record, err := s.resolveRecord(r)
	if err != nil {
		return nil, nil, err
	}
	content, err := base64.StdEncoding.DecodeString(record.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", transfer.ErrDecodeFailure, err)
	}
	return record, content, nil
}

func fileAvailablePayload(record *types.FileRecord) gateway.FileAvailablePayload {
	return gateway.FileAvailablePayload{
		FileID:      record.ID,
		Filename:    record.Filename,
		FileType:    record.FileType,
		MimeType:    record.MimeType,
		Size:        record.Size,
		SizeDisplay: utils.FormatDataSize(record.Size),
		DeviceInfo:  record.UploadedBy,
		SafePath:    record.SafePath,
		Chunks:      len(record.Manifest.Chunks),
		UploadedAt:  record.CreatedAt.Format(time.RFC3339),
	}
}
