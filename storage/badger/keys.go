package badger

import (
	"encoding/binary"

	"github.com/poiesic/tenderqa/core"
)

const (
	embeddingPrefix = "embvec:"
)

// makeEmbeddingKey generates a key for a cached vector by content ID.
// Format: prefix + 8 byte big-endian ID
func makeEmbeddingKey(id core.ID) []byte {
	buf := make([]byte, len(embeddingPrefix)+8)
	offset := copy(buf, embeddingPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// parseEmbeddingKey extracts the content ID from an embedding key.
func parseEmbeddingKey(key []byte) (core.ID, bool) {
	if len(key) != len(embeddingPrefix)+8 || string(key[:len(embeddingPrefix)]) != embeddingPrefix {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(embeddingPrefix):])), true
}
