package transfer

import (
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ropix/pkg/gateway"
	"ropix/pkg/types"
)

// ErrDecodeFailure means stored content could not be decoded back to bytes
// before chunk emission. It indicates a corrupted record, not a caller
// mistake.
var ErrDecodeFailure = errors.New("stored content cannot be decoded")

// StreamFile emits a file to one connection: the manifest first, then every
// chunk in ascending index order, then a terminal transfer-complete event.
// On the first error the stream is abandoned: no further chunk events are
// emitted and the requester alone is told what went wrong.
//
// Callers run this on its own goroutine per request; the gateway's
// per-connection write queue preserves the emission order.
func StreamFile(gw gateway.Gateway, conn types.ConnectionID, record *types.FileRecord, logger *zap.Logger) error {
	gw.EmitTo(conn, gateway.EventFileManifest, gateway.FileManifestPayload{
		FileID:            record.ID,
		Filename:          record.Filename,
		MimeType:          record.MimeType,
		Size:              record.Size,
		Manifest:          record.Manifest,
		ManifestSignature: record.ManifestSignature,
	})

	raw, err := base64.StdEncoding.DecodeString(record.Content)
	if err != nil {
		logger.Error("chunk stream aborted: undecodable content",
			zap.String("file", string(record.ID)), zap.Error(err))
		gw.EmitTo(conn, gateway.EventFileError, gateway.ErrorPayload{
			Error: fmt.Sprintf("corrupted file content: %v", err),
		})
		return ErrDecodeFailure
	}

	for _, chunk := range record.Manifest.Chunks {
		start, end := chunk.Offset, chunk.Offset+chunk.Size
		if end > int64(len(raw)) {
			logger.Error("chunk stream aborted: manifest exceeds content",
				zap.String("file", string(record.ID)), zap.Int("chunk", chunk.Index))
			gw.EmitTo(conn, gateway.EventFileError, gateway.ErrorPayload{
				Error: "corrupted file content: manifest exceeds stored bytes",
			})
			return ErrDecodeFailure
		}
		gw.EmitTo(conn, gateway.EventFileChunk, gateway.FileChunkPayload{
			FileID:     record.ID,
			ChunkIndex: chunk.Index,
			Size:       chunk.Size,
			Hash:       chunk.Hash,
			Content:    base64.StdEncoding.EncodeToString(raw[start:end]),
		})
	}

	gw.EmitTo(conn, gateway.EventTransferComplete, gateway.TransferCompletePayload{
		FileID: record.ID,
	})

	logger.Debug("file streamed",
		zap.String("file", string(record.ID)),
		zap.String("connection", string(conn)),
		zap.Int("chunks", len(record.Manifest.Chunks)))
	return nil
}
