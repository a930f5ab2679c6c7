package pager

import (
	"sync/atomic"
)

// PageID is the persisted identity of a page: a page of id p lives at byte
// offset p*PAGE_SIZE in the data file. IDs are dense and monotonically
// increasing from 0.
type PageID uint32

// Page is a fixed-size byte buffer holding a tightly packed sequence of
// Entries, plus the bookkeeping needed to append to and read from it. Bytes
// [0, Len) are well-formed entries; bytes [Len, PageSize) are unspecified
// (zero on allocation, so an end-of-page sentinel decode halts scanning).
type Page struct {
	ID   PageID
	data []byte
	// len is the append bump pointer: bytes occupied. Advanced atomically
	// so a reader holding only a pinned Handle, with no lock, observes a
	// consistent value while the writer appends past it.
	len  atomic.Uint64
	pins atomic.Uint32
}

// newPage allocates a zeroed page of the given size.
func newPage(id PageID, size int) *Page {
	p := &Page{ID: id, data: make([]byte, size)}
	return p
}

// Len returns the number of occupied bytes.
func (p *Page) Len() int {
	return int(p.len.Load())
}

// WriteEntry appends e to the page, returning the offset it was written at.
// Returns errNotEnoughSpace without mutating the page if e does not fit in
// the remaining space.
func (p *Page) WriteEntry(e Entry) (int, error) {
	size := e.Size()
	cur := int(p.len.Load())
	if cur+size > len(p.data) {
		return 0, errNotEnoughSpace
	}
	copy(p.data[cur:cur+size], e.Encode())
	p.len.Store(uint64(cur + size))
	return cur, nil
}

// ReadEntry decodes the entry previously written at offset. A malformed
// offset (out of range, or pointing at garbage) returns ErrCorrupt rather
// than panicking.
func (p *Page) ReadEntry(offset int) (Entry, error) {
	end := p.Len()
	if offset < 0 || offset >= end {
		return Entry{}, ErrCorrupt
	}
	e, _, err := DecodeEntry(p.data[offset:end])
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Pin increments the outstanding-read-reference count.
func (p *Page) Pin() {
	p.pins.Add(1)
}

// Unpin decrements the outstanding-read-reference count. It returns true on
// the 1->0 transition, signaling the caller that the page has become
// evictable.
func (p *Page) Unpin() bool {
	for {
		cur := p.pins.Load()
		if cur == 0 {
			return false
		}
		if p.pins.CompareAndSwap(cur, cur-1) {
			return cur-1 == 0
		}
	}
}

// Pins returns the current outstanding-read-reference count.
func (p *Page) Pins() uint32 {
	return p.pins.Load()
}

// bytes returns the full backing buffer, for disk writes and for rebuilding
// len during bootstrap scans.
func (p *Page) bytes() []byte {
	return p.data
}

// scanLen reconstructs len by walking entries forward from the start of the
// page until an end-of-page sentinel, a decode error, or the page boundary
// is reached. It reports whether the scan stopped on a decode error rather
// than a clean sentinel/boundary, so callers can tell truncation (tolerated
// only on the log's final page, §7) apart from a page that simply ends
// there by design.
func (p *Page) scanLen() (truncated bool) {
	off := 0
	for off < len(p.data) {
		if isEndOfPageSentinel(p.data[off:]) {
			break
		}
		_, n, err := DecodeEntry(p.data[off:])
		if err != nil {
			truncated = true
			break
		}
		off += n
	}
	p.len.Store(uint64(off))
	return truncated
}
