package badger

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/mailvec/core"
)

// Key prefixes for different data types. Iteration always includes the
// trailing separator, which keeps families like mail and mailchk disjoint.
const (
	emailRecordPrefix = "mail"
	chunkRecordPrefix = "chunk"
	chunkOrderPrefix  = "mailchk"
	vectorEntryPrefix = "chkvec"
	participantPrefix = "mailpart"
	dimensionKeyName  = "chkdim"
	emailIDSeq        = "mailseq"
	chunkIDSeq        = "chkseq"
)

// makeEmailKey generates a key for an email record by ID.
func makeEmailKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", emailRecordPrefix, id))
}

// makeChunkKey generates a key for a chunk record by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// parseChunkKey extracts the chunk ID from a chunk record key.
func parseChunkKey(key []byte) (core.ID, error) {
	s, ok := strings.CutPrefix(string(key), chunkRecordPrefix+":")
	if !ok {
		return 0, fmt.Errorf("not a chunk record key: %q", key)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed chunk record key %q: %w", key, err)
	}
	return core.ID(id), nil
}

// makeChunkOrderKey generates a composite key for the per-email order
// index. Format: prefix:emailID:orderIndex, both BigEndian so iteration
// over an email's entries yields chunks in order-index order.
func makeChunkOrderKey(emailID core.ID, orderIndex uint64) []byte {
	buf := makePartialChunkOrderKey(emailID)
	out := make([]byte, len(buf)+8)
	offset := copy(out, buf)
	binary.BigEndian.PutUint64(out[offset:], orderIndex)
	return out
}

// makePartialChunkOrderKey generates the order-index prefix for one email.
// Format: prefix:emailID
func makePartialChunkOrderKey(emailID core.ID) []byte {
	prefix := chunkOrderPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(emailID))
	return buf
}

// makeVectorEntryKey generates a key for a chunk's vector index entry.
// Format: prefix:chunkID
func makeVectorEntryKey(chunkID core.ID) []byte {
	prefix := vectorEntryPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// parseVectorEntryKey extracts the chunk ID from a vector index key.
func parseVectorEntryKey(key []byte) (core.ID, error) {
	prefixLen := len(vectorEntryPrefix) + 1
	if len(key) != prefixLen+8 {
		return 0, fmt.Errorf("malformed vector index key %q", key)
	}
	return core.ID(binary.BigEndian.Uint64(key[prefixLen:])), nil
}

// makeParticipantKey generates a composite key for the participant index.
// The identity is hashed so keys stay fixed-width regardless of address
// length. Format: prefix:identityHash:emailID
func makeParticipantKey(identity string, emailID core.ID) []byte {
	buf := makePartialParticipantKey(identity)
	out := make([]byte, len(buf)+8)
	offset := copy(out, buf)
	binary.BigEndian.PutUint64(out[offset:], uint64(emailID))
	return out
}

// makePartialParticipantKey generates the participant-index prefix for one
// identity. Format: prefix:identityHash
func makePartialParticipantKey(identity string) []byte {
	prefix := participantPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(identity)))
	return buf
}

// parseParticipantKey extracts the email ID from a participant index key.
func parseParticipantKey(key []byte) (core.ID, error) {
	prefixLen := len(participantPrefix) + 1
	if len(key) != prefixLen+16 {
		return 0, fmt.Errorf("malformed participant index key %q", key)
	}
	return core.ID(binary.BigEndian.Uint64(key[prefixLen+8:])), nil
}

// makeDimensionKey generates the key holding the store's established
// vector dimensionality.
func makeDimensionKey() []byte {
	return []byte(dimensionKeyName)
}
