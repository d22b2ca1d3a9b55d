package session

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/intentdb/core"
)

// Key prefixes for different data types
const (
	sessionPrefix = "sess"
	turnPrefix    = "sesstrn"
	sessionIDSeq  = "sessseq"
	turnIDSeq     = "sesstrnseq"
)

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", sessionPrefix, id))
}

// makeTurnKey generates a composite key for a turn.
// Format: prefix:sessionID:turnID
func makeTurnKey(sessionID, turnID core.ID) []byte {
	prefix := turnPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for sessionID + 8 bytes for turnID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(sessionID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(turnID))
	return buf
}

// makePartialTurnKey generates a partial key for iterating one session's turns.
// Format: prefix:sessionID
func makePartialTurnKey(sessionID core.ID) []byte {
	prefix := turnPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for sessionID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(sessionID))
	return buf
}
