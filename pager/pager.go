// Package pager implements the storage engine's buffer pool: a single
// mutable current (append-tail) page plus a fixed-size pool of read-only
// frames populated on demand and evicted by an LRU-K replacer.
package pager

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

const (
	// DefaultPageSize is PAGE_SIZE when a caller does not override it.
	DefaultPageSize = 4096
	// DefaultReadSize is READ_SIZE, the number of read-only frames.
	DefaultReadSize = 64
	// DefaultLRUK is the K parameter of the LRU-K replacer.
	DefaultLRUK = 2
)

type locationKind int

const (
	locationWrite locationKind = iota
	locationRead
)

// location is the page_table's value type: either the current (write)
// page, or a slot index into the read frame array.
type location struct {
	kind locationKind
	slot int
}

// frame is one read-only buffer pool slot. mu serializes population
// (eviction write-back of a fresh page) against concurrent readers of
// page; it is not held for the lifetime of a pinned handle, since pins and
// the replacer's evictable bit already prevent an evicted frame's content
// from being swapped while anyone holds a handle to it.
type frame struct {
	mu       sync.RWMutex
	id       PageID
	page     *Page
	occupied bool
}

// Config configures a Manager's storage backend and buffer pool sizing.
type Config struct {
	// UseMemory runs the pager against an in-memory buffer instead of a
	// file, for tests.
	UseMemory bool
	// Path is the data file path; defaults to DBFileName.
	Path string
	// PageSize is PAGE_SIZE; defaults to DefaultPageSize.
	PageSize int
	// ReadSize is READ_SIZE; defaults to DefaultReadSize.
	ReadSize int
	// LRUK is the replacer's K; defaults to DefaultLRUK.
	LRUK int
}

// Manager is the page manager (§4.5): the center of the storage engine.
type Manager struct {
	disk     *disk
	pageSize int
	readSize int

	// mu guards pageTable, free, and replacer state. A frame's id, page
	// and occupied fields are written under the frame's own RWMutex;
	// FetchPage still takes mu briefly to look up pageTable and to record
	// the access, even for already-resident pages.
	mu        sync.Mutex
	pageTable map[PageID]location
	frames    []*frame
	free      []int
	replacer  *lrukReplacer
	nextID    atomic.Uint32

	// currentMu guards swapping the current page on rotation; readers
	// take RLock to read it (and pin it), the single writer path
	// (Append/rotate) takes Lock.
	currentMu sync.RWMutex
	current   *Page

	// bootstrapPages holds every page read in id order during New, so
	// keydir bootstrap (§4.7) can rebuild its index without a second
	// pass over disk. Nil if the data file was empty.
	bootstrapPages []*Page
}

// New opens (or creates) the data file described by cfg and loads buffer
// pool state, identifying the tail page as the initial current page.
func New(cfg Config) (*Manager, error) {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.ReadSize == 0 {
		cfg.ReadSize = DefaultReadSize
	}
	if cfg.LRUK == 0 {
		cfg.LRUK = DefaultLRUK
	}

	var store storage
	var err error
	if cfg.UseMemory {
		store = newMemoryStorage()
	} else {
		store, err = newFileStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		disk:      newDisk(store, cfg.PageSize),
		pageSize:  cfg.PageSize,
		readSize:  cfg.ReadSize,
		pageTable: make(map[PageID]location),
		frames:    make([]*frame, cfg.ReadSize),
		replacer:  newLrukReplacer(cfg.ReadSize, cfg.LRUK),
	}
	for i := range m.frames {
		m.frames[i] = &frame{}
		m.free = append(m.free, i)
	}

	if err := m.bootstrapCurrent(); err != nil {
		return nil, fmt.Errorf("pager: bootstrap: %w", err)
	}
	return m, nil
}

// bootstrapCurrent scans every existing page (§4.7 step 1-3), keeping them
// for BootstrapPages, and establishes the tail as the initial current page.
func (m *Manager) bootstrapCurrent() error {
	count, err := m.disk.pageCount()
	if err != nil {
		return err
	}
	if count == 0 {
		m.current = newPage(0, m.pageSize)
		m.pageTable[0] = location{kind: locationWrite}
		m.nextID.Store(1)
		return nil
	}

	pages := make([]*Page, count)
	for id := 0; id < count; id++ {
		p, truncated, err := m.disk.readPage(PageID(id))
		if err != nil {
			return err
		}
		// Only the final page may end in a partially written entry (the
		// process crashed or was killed mid-append); a truncated entry
		// anywhere earlier in the log means a page was corrupted after
		// being written, which is not recoverable (§7 mid-log corruption
		// aborts startup).
		if truncated && id != count-1 {
			return fmt.Errorf("pager: page %d: %w", id, ErrCorrupt)
		}
		pages[id] = p
	}
	m.bootstrapPages = pages
	m.current = pages[count-1]
	m.pageTable[m.current.ID] = location{kind: locationWrite}
	m.nextID.Store(uint32(count))
	return nil
}

// BootstrapPages returns every page observed at open, in page-id order, for
// the keydir bootstrap scan (§4.7). It is nil if the data file was empty.
func (m *Manager) BootstrapPages() []*Page {
	return m.bootstrapPages
}

// PageSize returns PAGE_SIZE.
func (m *Manager) PageSize() int { return m.pageSize }

// Append writes e to the current page (§4.5 append), rotating to a fresh
// page on NotEnoughSpace and retrying once. Returns the page and offset the
// entry was written at.
func (m *Manager) Append(e Entry) (PageID, int, error) {
	if e.Size() > m.pageSize {
		return 0, 0, ErrEntryTooLarge
	}

	m.currentMu.Lock()
	defer m.currentMu.Unlock()

	offset, err := m.current.WriteEntry(e)
	if err == nil {
		return m.current.ID, offset, nil
	}
	if !errors.Is(err, errNotEnoughSpace) {
		return 0, 0, err
	}

	if err := m.rotateCurrentLocked(); err != nil {
		return 0, 0, err
	}
	offset, err = m.current.WriteEntry(e)
	if err != nil {
		return 0, 0, fmt.Errorf("pager: entry does not fit a fresh page: %w", err)
	}
	return m.current.ID, offset, nil
}

// rotateCurrentLocked flushes the current page to disk and replaces it
// with a fresh zeroed page. Caller must hold currentMu.
func (m *Manager) rotateCurrentLocked() error {
	old := m.current
	if err := m.disk.writePage(old); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.pageTable, old.ID)
	id := PageID(m.nextID.Add(1) - 1)
	m.pageTable[id] = location{kind: locationWrite}
	m.mu.Unlock()
	m.current = newPage(id, m.pageSize)
	return nil
}

// FlushCurrent persists the current page. Called exactly once on shutdown
// (§4.5, §5); idempotent when the page is empty.
func (m *Manager) FlushCurrent() error {
	m.currentMu.Lock()
	defer m.currentMu.Unlock()
	if m.current.Len() == 0 {
		return nil
	}
	return m.disk.writePage(m.current)
}

// Handle is a pinned read reference to a page, returned by FetchPage and
// NewPage. Callers must call Release exactly once when done reading.
type Handle struct {
	manager *Manager
	page    *Page
	frame   *frame // nil when the handle refers to the current page
	slot    int
	once    sync.Once
}

// Page returns the referenced page. Valid until Release.
func (h *Handle) Page() *Page { return h.page }

// Release unpins the page. On the pin's 1->0 transition for a read-frame
// page, the frame becomes eligible for eviction.
func (h *Handle) Release() {
	h.once.Do(func() {
		becameUnpinned := h.page.Unpin()
		if h.frame != nil && becameUnpinned {
			h.manager.mu.Lock()
			h.manager.replacer.setEvictable(h.slot, true)
			h.manager.mu.Unlock()
		}
	})
}

// FetchPage returns a pinned handle on the page with the given id (§4.5
// fetch_page): the current page if it is the write page, the already
// resident read frame if cached, or a freshly loaded frame (possibly
// evicting another) otherwise.
func (m *Manager) FetchPage(id PageID) (*Handle, error) {
	for {
		m.mu.Lock()
		loc, ok := m.pageTable[id]
		m.mu.Unlock()

		if ok && loc.kind == locationWrite {
			m.currentMu.RLock()
			if m.current.ID != id {
				// Rotated out from under us between the lookup and the
				// lock; the id is now disk-resident, retry.
				m.currentMu.RUnlock()
				continue
			}
			m.current.Pin()
			h := &Handle{manager: m, page: m.current}
			m.currentMu.RUnlock()
			return h, nil
		}

		if ok && loc.kind == locationRead {
			fr := m.frames[loc.slot]
			fr.mu.RLock()
			if !fr.occupied || fr.id != id {
				fr.mu.RUnlock()
				continue // evicted concurrently; retry from the top
			}
			page := fr.page
			page.Pin()
			m.mu.Lock()
			m.replacer.recordAccess(loc.slot)
			m.mu.Unlock()
			fr.mu.RUnlock()
			return &Handle{manager: m, page: page, frame: fr, slot: loc.slot}, nil
		}

		return m.fetchAbsent(id)
	}
}

// fetchAbsent loads id from disk into a claimed frame slot, evicting a
// victim if no slot is free.
func (m *Manager) fetchAbsent(id PageID) (*Handle, error) {
	m.mu.Lock()
	slot, err := m.claimSlotLocked()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	fr := m.frames[slot]
	m.mu.Unlock()

	fr.mu.Lock()
	// Truncation is only meaningful at bootstrap time (§7); every page
	// fetched here was already validated by bootstrapCurrent or written by
	// this process itself, so the truncated flag is not consulted again.
	page, _, err := m.disk.readPage(id)
	if err != nil {
		fr.mu.Unlock()
		m.mu.Lock()
		delete(m.pageTable, id)
		m.free = append(m.free, slot)
		m.mu.Unlock()
		return nil, err
	}
	fr.id = id
	fr.page = page
	fr.occupied = true
	fr.mu.Unlock()

	page.Pin()
	m.mu.Lock()
	m.pageTable[id] = location{kind: locationRead, slot: slot}
	m.replacer.recordAccess(slot)
	m.replacer.setEvictable(slot, false)
	m.mu.Unlock()

	return &Handle{manager: m, page: page, frame: fr, slot: slot}, nil
}

// claimSlotLocked pops a free slot, or asks the replacer to evict one.
// Caller must hold m.mu. On eviction it is the evicted frame's prior
// occupant id that is removed from page_table, not the id being fetched
// (§9 open question (b)).
func (m *Manager) claimSlotLocked() (int, error) {
	if n := len(m.free); n > 0 {
		slot := m.free[n-1]
		m.free = m.free[:n-1]
		return slot, nil
	}
	victim, ok := m.replacer.evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	fr := m.frames[victim]
	delete(m.pageTable, fr.id)
	return victim, nil
}

// NewPage allocates a fresh, persisted, pinned page in a read frame. Not on
// the hot GET/PUT path and not used by rotation, which allocates its new
// current page directly; only tests call it (§9 open question (a): read
// frames are never write targets on the hot path).
func (m *Manager) NewPage() (*Handle, error) {
	m.mu.Lock()
	slot, err := m.claimSlotLocked()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := PageID(m.nextID.Add(1) - 1)
	m.pageTable[id] = location{kind: locationRead, slot: slot}
	m.mu.Unlock()

	fr := m.frames[slot]
	page := newPage(id, m.pageSize)
	if err := m.disk.writePage(page); err != nil {
		return nil, err
	}

	fr.mu.Lock()
	fr.id = id
	fr.page = page
	fr.occupied = true
	fr.mu.Unlock()

	page.Pin()
	m.mu.Lock()
	m.replacer.recordAccess(slot)
	m.replacer.setEvictable(slot, false)
	m.mu.Unlock()
	return &Handle{manager: m, page: page, frame: fr, slot: slot}, nil
}

// UnpinPage unpins the page with the given id directly, without a Handle.
// A no-op for the current page, which is always conceptually pinned.
func (m *Manager) UnpinPage(id PageID) {
	m.mu.Lock()
	loc, ok := m.pageTable[id]
	m.mu.Unlock()
	if !ok || loc.kind != locationRead {
		return
	}
	fr := m.frames[loc.slot]
	if fr.page.Unpin() {
		m.mu.Lock()
		m.replacer.setEvictable(loc.slot, true)
		m.mu.Unlock()
	}
}

// Close flushes the current page and syncs the underlying storage. Both
// steps are independent failure points (a short write, a disk-full fsync),
// so their errors are aggregated with multierr rather than one hiding the
// other (§10.1, §10.5 shutdown path).
func (m *Manager) Close() error {
	var err error
	err = multierr.Append(err, m.FlushCurrent())
	err = multierr.Append(err, m.disk.store.Sync())
	return err
}

// CurrentID returns the id of the current append-tail page.
func (m *Manager) CurrentID() PageID {
	m.currentMu.RLock()
	defer m.currentMu.RUnlock()
	return m.current.ID
}
