package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"ropix/pkg/types"
)

// Sign derives a deterministic signature over a manifest so a receiver can
// verify the chunk list was not tampered with in transit. The payload is a
// plain string of the form
//
//	file_id:total_size:chunk_count:hash1|hash2|...|hashN
//
// rather than a serialized structure, so a receiver in any language can
// rebuild the exact byte sequence without depending on a particular
// serialization library or key ordering. The separators ':' and '|' never
// appear in hex output.
func Sign(m types.Manifest) string {
	hashes := make([]string, len(m.Chunks))
	for i, c := range m.Chunks {
		hashes[i] = c.Hash
	}

	var b strings.Builder
	b.WriteString(string(m.FileID))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(m.TotalSize, 10))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(m.Chunks)))
	b.WriteByte(':')
	b.WriteString(strings.Join(hashes, "|"))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the signature from the received manifest and compares
// for exact equality. Any mismatch means the manifest must not be trusted
// and the transfer aborted before accepting a single chunk.
func Verify(m types.Manifest, signature string) bool {
	return Sign(m) == signature
}
