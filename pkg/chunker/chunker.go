package chunker

import (
	"crypto/sha256"
	"encoding/hex"

	"ropix/pkg/types"
)

// Split divides data into fixed-size hashed chunks and returns the manifest.
// It is deterministic: identical input bytes always yield identical chunk
// hashes and offsets. Zero-length input yields zero chunks; callers must
// reject empty files before invoking Split, because a receiver cannot tell
// an empty manifest apart from a degenerate one.
func Split(fileID types.FileID, data []byte) types.Manifest {
	totalSize := int64(len(data))
	chunkCount := int((totalSize + types.ChunkSize - 1) / types.ChunkSize)
	chunks := make([]types.Chunk, 0, chunkCount)

	var offset int64
	for index := 0; offset < totalSize; index++ {
		end := offset + types.ChunkSize
		if end > totalSize {
			end = totalSize
		}
		sum := sha256.Sum256(data[offset:end])
		chunks = append(chunks, types.Chunk{
			Index:  index,
			Offset: offset,
			Size:   end - offset,
			Hash:   hex.EncodeToString(sum[:]),
		})
		offset = end
	}

	return types.Manifest{
		FileID:    fileID,
		ChunkSize: types.ChunkSize,
		TotalSize: totalSize,
		Chunks:    chunks,
	}
}
