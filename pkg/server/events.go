package server

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"ropix/pkg/gateway"
	"ropix/pkg/room"
	"ropix/pkg/transfer"
	"ropix/pkg/types"
)

// Inbound event payloads.

type joinRoomRequest struct {
	RoomCode   string           `json:"room_code"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
}

type leaveRoomRequest struct {
	RoomCode string `json:"room_code"`
}

type requestFileRequest struct {
	FileID   string `json:"file_id"`
	RoomCode string `json:"room_code"`
}

type uploadStartRequest struct {
	RoomCode   string           `json:"room_code"`
	Filename   string           `json:"filename"`
	Size       int64            `json:"size"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
}

type uploadProgressRequest struct {
	RoomCode string `json:"room_code"`
	Filename string `json:"filename"`
	Progress int    `json:"progress"`
}

type uploadCompleteRequest struct {
	RoomCode   string           `json:"room_code"`
	Filename   string           `json:"filename"`
	DeviceInfo types.DeviceInfo `json:"device_info"`
}

type dismissReceivingRequest struct {
	RoomCode string `json:"room_code"`
}

// OnConnect satisfies gateway.Handler. Membership only begins at
// join_room, so a fresh connection just gets logged.
func (s *Server) OnConnect(conn types.ConnectionID) {
	s.logger.Debug("client connected", zap.String("connection", string(conn)))
}

// OnDisconnect removes the device from its room exactly once and lets the
// remaining members know.
func (s *Server) OnDisconnect(conn types.ConnectionID) {
	code, ok := s.registry.Leave(conn)
	if !ok {
		return
	}
	s.sessions.HandleDisconnect(code, conn)
	s.broadcastDevices(code)
}

// OnMessage routes one inbound realtime event. Failures are reported as a
// named error event to the requesting connection only, never broadcast.
func (s *Server) OnMessage(conn types.ConnectionID, event string, data []byte) {
	switch event {
	case gateway.EventJoinRoom:
		s.onJoinRoom(conn, data)
	case gateway.EventLeaveRoom:
		s.onLeaveRoom(conn)
	case gateway.EventRequestFile:
		s.onRequestFile(conn, data)
	case gateway.EventUploadStart:
		s.onUploadStart(conn, data)
	case gateway.EventUploadProgress:
		s.onUploadProgress(conn, data)
	case gateway.EventUploadComplete:
		s.onUploadComplete(conn, data)
	case gateway.EventDismissReceiving:
		s.onDismissReceiving(conn, data)
	default:
		s.logger.Debug("unknown event",
			zap.String("connection", string(conn)),
			zap.String("event", event))
	}
}

func (s *Server) onJoinRoom(conn types.ConnectionID, data []byte) {
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.emitRoomError(conn, "Malformed join_room payload")
		return
	}

	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		s.emitRoomError(conn, "Invalid room code")
		return
	}

	// A connection belongs to at most one room; re-joining moves it.
	if previous, ok := s.registry.Leave(conn); ok && previous != code {
		s.sessions.HandleDisconnect(previous, conn)
		s.broadcastDevices(previous)
	}

	if err := s.registry.Join(code, conn, req.DeviceInfo); err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			s.emitRoomError(conn, "Room not found")
		case errors.Is(err, room.ErrRoomFull):
			s.emitRoomError(conn, "Room is full")
		default:
			s.emitRoomError(conn, err.Error())
		}
		return
	}

	files, devices, _ := s.registry.Counts(code)
	s.hub.EmitTo(conn, gateway.EventRoomJoined, gateway.RoomJoinedPayload{
		RoomCode:    code,
		FileCount:   files,
		DeviceCount: devices,
	})
	s.broadcastDevices(code)

	// Catch the newcomer up on everything already shared in the room.
	for _, record := range s.registry.Files(code) {
		s.hub.EmitTo(conn, gateway.EventFileAvailable, fileAvailablePayload(record))
	}
}

func (s *Server) onLeaveRoom(conn types.ConnectionID) {
	code, ok := s.registry.Leave(conn)
	if !ok {
		return
	}
	s.sessions.HandleDisconnect(code, conn)
	s.broadcastDevices(code)
}

func (s *Server) onRequestFile(conn types.ConnectionID, data []byte) {
	var req requestFileRequest
	if err := json.Unmarshal(data, &req); err != nil || req.FileID == "" {
		s.emitFileError(conn, "Missing file_id")
		return
	}

	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		s.emitFileError(conn, "Invalid room code")
		return
	}

	// File access is room-scoped: only a member of the owning room may
	// request its files.
	if member, ok := s.registry.RoomOf(conn); !ok || member != code {
		s.emitFileError(conn, "Not a member of this room")
		return
	}

	record, err := s.registry.ResolveFile(types.FileID(req.FileID), code)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrCorruptRecord):
			s.emitFileError(conn, "Missing manifest data")
		default:
			s.emitFileError(conn, "File not found")
		}
		return
	}

	// Chunk emission is CPU-bound hashing and base64 work; a dedicated
	// goroutine per transfer keeps one large file from starving other
	// rooms' events. Per-connection ordering is preserved by the hub.
	go func() {
		_ = transfer.StreamFile(s.hub, conn, record, s.logger)
	}()
}

func (s *Server) onUploadStart(conn types.ConnectionID, data []byte) {
	var req uploadStartRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.emitRoomError(conn, "Malformed upload_start payload")
		return
	}
	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		s.emitRoomError(conn, "Invalid room code")
		return
	}

	_, devices, ok := s.registry.Counts(code)
	if !ok {
		s.emitRoomError(conn, "Room not found")
		return
	}
	s.sessions.Start(code, conn, req.Filename, req.Size, req.DeviceInfo, devices-1)
}

func (s *Server) onUploadProgress(conn types.ConnectionID, data []byte) {
	var req uploadProgressRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		return
	}
	info := s.deviceInfo(code, conn)
	s.sessions.Progress(code, conn, req.Filename, req.Progress, info)
}

func (s *Server) onUploadComplete(conn types.ConnectionID, data []byte) {
	var req uploadCompleteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		return
	}
	s.sessions.Complete(code, conn, req.Filename, req.DeviceInfo)
}

func (s *Server) onDismissReceiving(conn types.ConnectionID, data []byte) {
	var req dismissReceivingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	code, err := room.NormalizeCode(req.RoomCode)
	if err != nil {
		return
	}
	s.sessions.Dismiss(code)
}

func (s *Server) broadcastDevices(code types.RoomCode) {
	devices := s.registry.Devices(code)
	s.hub.EmitToRoom(code, gateway.EventDevicesUpdated, gateway.DevicesUpdatedPayload{
		Devices: devices,
		Count:   len(devices),
	})
}

func (s *Server) deviceInfo(code types.RoomCode, conn types.ConnectionID) types.DeviceInfo {
	for _, device := range s.registry.Devices(code) {
		if device.ConnectionID == conn {
			return device.Info
		}
	}
	return types.DeviceInfo{}
}

func (s *Server) emitRoomError(conn types.ConnectionID, message string) {
	s.hub.EmitTo(conn, gateway.EventRoomError, gateway.ErrorPayload{Error: message})
}

func (s *Server) emitFileError(conn types.ConnectionID, message string) {
	s.hub.EmitTo(conn, gateway.EventFileError, gateway.ErrorPayload{Error: message})
}
