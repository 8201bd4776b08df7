package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ropix/pkg/room"
	"ropix/pkg/transfer"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: expected
// absences and caller mistakes become 4xx, invariant violations 5xx.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, room.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, room.ErrInvalidRoomCode):
		writeError(w, http.StatusBadRequest, "Invalid room code")
	case errors.Is(err, room.ErrRoomFull):
		writeError(w, http.StatusConflict, "Room is full")
	case errors.Is(err, room.ErrCorruptRecord), errors.Is(err, transfer.ErrDecodeFailure):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
