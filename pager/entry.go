package pager

import (
	"encoding/binary"
	"fmt"
)

// entryHeaderSize is the fixed-width prefix of every encoded Entry: one tag
// byte plus three big-endian uint64 fields (time, key_len, value_len).
const entryHeaderSize = 1 + 8 + 8 + 8

// Tag identifies what kind of log record an Entry is.
type Tag byte

const (
	// TagPut records a live key/value pair.
	TagPut Tag = 0
	// TagDelete is a tombstone: it carries a key and no value.
	TagDelete Tag = 1
)

// Entry is one logical log record: a tagged, timestamped key/value pair.
// Encoded form is exactly the concatenation of its fields, all integers
// big-endian: tag(1) + time(8) + key_len(8) + value_len(8) + key + value.
type Entry struct {
	Tag   Tag
	Time  uint64
	Key   []byte
	Value []byte
}

// NewPutEntry builds a live Put record.
func NewPutEntry(key, value []byte, time uint64) Entry {
	return Entry{Tag: TagPut, Time: time, Key: key, Value: value}
}

// NewDeleteEntry builds a tombstone record for key.
func NewDeleteEntry(key []byte, time uint64) Entry {
	return Entry{Tag: TagDelete, Time: time, Key: key, Value: nil}
}

// Size returns the exact number of bytes Encode would produce.
func (e Entry) Size() int {
	return entryHeaderSize + len(e.Key) + len(e.Value)
}

// Encode serializes e into its on-page byte representation.
func (e Entry) Encode() []byte {
	buf := make([]byte, e.Size())
	buf[0] = byte(e.Tag)
	binary.BigEndian.PutUint64(buf[1:9], e.Time)
	binary.BigEndian.PutUint64(buf[9:17], uint64(len(e.Key)))
	binary.BigEndian.PutUint64(buf[17:25], uint64(len(e.Value)))
	copy(buf[25:25+len(e.Key)], e.Key)
	copy(buf[25+len(e.Key):], e.Value)
	return buf
}

// DecodeEntry decodes one Entry from the front of b. It returns the entry
// and how many bytes it consumed. ErrCorrupt is returned if the tag is
// invalid or declared lengths run past the end of b.
func DecodeEntry(b []byte) (Entry, int, error) {
	if len(b) < entryHeaderSize {
		return Entry{}, 0, fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(b))
	}
	tag := Tag(b[0])
	if tag != TagPut && tag != TagDelete {
		return Entry{}, 0, fmt.Errorf("%w: invalid tag %d", ErrCorrupt, b[0])
	}
	time := binary.BigEndian.Uint64(b[1:9])
	keyLen := binary.BigEndian.Uint64(b[9:17])
	valueLen := binary.BigEndian.Uint64(b[17:25])
	total := entryHeaderSize + keyLen + valueLen
	if uint64(len(b)) < total {
		return Entry{}, 0, fmt.Errorf("%w: declared length %d exceeds available %d", ErrCorrupt, total, len(b))
	}
	key := make([]byte, keyLen)
	copy(key, b[25:25+keyLen])
	var value []byte
	if valueLen > 0 {
		value = make([]byte, valueLen)
		copy(value, b[25+keyLen:total])
	}
	return Entry{Tag: tag, Time: time, Key: key, Value: value}, int(total), nil
}

// isEndOfPageSentinel reports whether b begins with the implicit
// end-of-page marker: a zero tag byte together with a zero key length.
// Empty keys are otherwise forbidden, so this combination can only occur
// in the zero-initialized, unwritten tail of a page. It also reports true
// when b is shorter than an entry header, whatever its bytes.
func isEndOfPageSentinel(b []byte) bool {
	if len(b) < entryHeaderSize {
		return true
	}
	return Tag(b[0]) == TagPut && binary.BigEndian.Uint64(b[9:17]) == 0
}
