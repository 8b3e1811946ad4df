package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/pagesift/core"
)

// Key prefixes for different data types
const (
	spanPrefix       = "spn:"
	spanSourcePrefix = "spnsrc:"
	spanDatePrefix   = "spndt:"
	checkpointPrefix = "chkpt:"
	spanIDSeq        = "spnseq"
)

// makeSpanKey generates a key for a span by ID.
// IDs are written BigEndian so a prefix scan returns spans in insertion order.
func makeSpanKey(id core.ID) []byte {
	buf := make([]byte, len(spanPrefix)+8)
	offset := copy(buf, spanPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialSpanSourceKey generates the prefix of every index entry for one source.
// Format: prefix:source\x00
func makePartialSpanSourceKey(sourceID string) []byte {
	buf := make([]byte, len(spanSourcePrefix)+len(sourceID)+1)
	offset := copy(buf, spanSourcePrefix)
	offset += copy(buf[offset:], sourceID)
	buf[offset] = 0
	return buf
}

// makeSpanSourceKey generates a composite key for the source index.
// Format: prefix:source\x00id
func makeSpanSourceKey(sourceID string, id core.ID) []byte {
	partial := makePartialSpanSourceKey(sourceID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// dateOrdinal maps a time to an unsigned value that sorts like the signed Unix seconds,
// so dates before 1970 still order correctly.
func dateOrdinal(t time.Time) uint64 {
	return uint64(t.Unix()) ^ (1 << 63)
}

// makePartialSpanDateKey generates a partial key for date range queries.
// Format: prefix:date
func makePartialSpanDateKey(t time.Time) []byte {
	buf := make([]byte, len(spanDatePrefix)+8)
	offset := copy(buf, spanDatePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], dateOrdinal(t))
	return buf
}

// makeSpanDateKey generates a composite key for the date index.
// Format: prefix:date:id
func makeSpanDateKey(t time.Time, id core.ID) []byte {
	buf := make([]byte, len(spanDatePrefix)+16)
	offset := copy(buf, spanDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], dateOrdinal(t))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeCheckpointKey generates a key for an ingestion checkpoint.
func makeCheckpointKey(source string) []byte {
	return []byte(checkpointPrefix + source)
}
