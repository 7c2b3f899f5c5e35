package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	indexPrefix      = "docidx"
	statusPrefix     = "docstat"
	threadPrefix     = "thread"
	threadDocPrefix  = "threaddoc"
	messagePrefix    = "msg"
	messageSeqPrefix = "msgseq"
)

// makeIndexKey generates a key for a document's index artifact.
func makeIndexKey(documentID string) []byte {
	return []byte(indexPrefix + ":" + documentID)
}

// makeStatusKey generates a key for a document's index status record.
func makeStatusKey(documentID string) []byte {
	return []byte(statusPrefix + ":" + documentID)
}

// makeThreadKey generates a key for a thread by its id.
func makeThreadKey(threadID string) []byte {
	return []byte(threadPrefix + ":" + threadID)
}

// makeThreadDocKey generates a key for the document -> thread mapping.
// Overwritten on duplicate creation so the most recent thread wins.
func makeThreadDocKey(documentID string) []byte {
	return []byte(threadDocPrefix + ":" + documentID)
}

// makeMessageKey generates a composite key for a message.
// Format: prefix:threadID:createdAt:seq, with the timestamp and sequence
// written BigEndian so lexicographic iteration yields creation order.
func makeMessageKey(threadID string, createdAt time.Time, seq uint64) []byte {
	prefix := []byte(messagePrefix + ":" + threadID + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeMessageIterPrefix generates the iteration prefix for a thread's messages.
func makeMessageIterPrefix(threadID string) []byte {
	return []byte(messagePrefix + ":" + threadID + ":")
}

// makeMessageSeqName generates the badger sequence name for message ordering.
func makeMessageSeqName() string {
	return messageSeqPrefix
}
