package pager

import "fmt"

// disk owns the data file and exposes page-granular random access (§4.1).
// writePage writes exactly pageSize bytes at offset id*pageSize, extending
// the file as needed. readPage reads exactly pageSize bytes at the same
// offset and reconstructs the page's len by scanning entries forward,
// tolerating a short read as a truncated trailing page.
type disk struct {
	store    storage
	pageSize int
}

func newDisk(store storage, pageSize int) *disk {
	return &disk{store: store, pageSize: pageSize}
}

// writePage persists p's full backing buffer at its page offset.
func (d *disk) writePage(p *Page) error {
	off := int64(p.ID) * int64(d.pageSize)
	if _, err := d.store.WriteAt(p.bytes(), off); err != nil {
		return fmt.Errorf("pager: writePage %d: %w", p.ID, err)
	}
	return nil
}

// readPage reads the page at id from disk, reconstructing len by scanning
// forward. It reports whether the scan found a truncated (undecodable)
// entry; it is the caller's job to decide whether that is tolerable (only
// true for the log's final page, §7) or a corruption error.
func (d *disk) readPage(id PageID) (p *Page, truncated bool, err error) {
	p = newPage(id, d.pageSize)
	off := int64(id) * int64(d.pageSize)
	n, err := d.store.ReadAt(p.data, off)
	if err != nil && n == 0 {
		return nil, false, fmt.Errorf("pager: readPage %d: %w", id, err)
	}
	if n < len(p.data) {
		// Short read: scan only the bytes actually read, so a partially
		// written trailing entry is reported as truncated rather than
		// decoded against the zero-filled rest of the buffer, and clear
		// its leftover bytes past the last intact entry.
		read := &Page{ID: id, data: p.data[:n]}
		truncated = read.scanLen()
		p.len.Store(uint64(read.Len()))
		clear(p.data[read.Len():])
		return p, truncated, nil
	}
	truncated = p.scanLen()
	return p, truncated, nil
}

// pageCount returns ceil(file_size / pageSize).
func (d *disk) pageCount() (int, error) {
	size, err := d.store.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	return int((size + int64(d.pageSize) - 1) / int64(d.pageSize)), nil
}
