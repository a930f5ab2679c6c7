// Package engine translates the three external commands (§4.8) into calls
// against the page manager and keydir. It declares ErrNotFound; the other
// sentinel errors mapped to wire responses (§7, §10.1) are the pager's.
//
// kv/kv.go wraps every operation in an explicit BeginRead/EndRead or
// BeginWrite/EndWrite pair around its B-tree. There is no B-tree here to
// protect that way: the keydir's own RWMutex and the page manager's
// per-frame locks already bound each operation, so Engine stays a thin
// translation layer rather than reintroducing a second transaction
// boundary around them.
package engine

import (
	"errors"
	"fmt"

	"github.com/dkvs/hashdb/keydir"
	"github.com/dkvs/hashdb/pager"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Get when the key has no live mapping in
	// the keydir.
	ErrNotFound = errors.New("engine: key not found")
)

// Clock supplies the caller-assigned timestamp recorded on each entry
// (§3). It is a collaborator rather than a direct time.Now() call so
// tests can supply deterministic, monotone sequences.
type Clock interface {
	Now() uint64
}

// Engine wraps a page manager and a keydir to implement GET/PUT/DELETE.
type Engine struct {
	pages *pager.Manager
	index *keydir.KeyDir
	clock Clock
	log   *zap.SugaredLogger
}

// New wires an Engine around an already-bootstrapped page manager and
// keydir.
func New(pages *pager.Manager, index *keydir.KeyDir, clock Clock, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{pages: pages, index: index, clock: clock, log: log}
}

// Get looks up key, reads its value off the owning page, and releases the
// page handle before returning (§4.8 GET).
func (e *Engine) Get(key []byte) ([]byte, error) {
	data, ok := e.index.Get(string(key))
	if !ok {
		return nil, ErrNotFound
	}

	h, err := e.pages.FetchPage(data.Page)
	if err != nil {
		return nil, fmt.Errorf("engine: fetching page %d for key %q: %w", data.Page, key, err)
	}
	defer h.Release()

	entry, err := h.Page().ReadEntry(data.Offset)
	if err != nil {
		return nil, fmt.Errorf("engine: reading entry for key %q: %w", key, err)
	}
	return entry.Value, nil
}

// Put appends a Put entry and then records its location in the keydir
// (§4.6, §4.8 PUT): the index update happens strictly after the bytes are
// durably in a page buffer.
func (e *Engine) Put(key, value []byte) error {
	entry := pager.NewPutEntry(key, value, e.clock.Now())
	id, offset, err := e.pages.Append(entry)
	if err != nil {
		return fmt.Errorf("engine: appending put for key %q: %w", key, err)
	}
	e.index.Record(string(key), keydir.KeyData{
		Page:     id,
		Offset:   offset,
		ValueLen: len(value),
		Time:     entry.Time,
	})
	return nil
}

// Delete appends a tombstone and removes key from the keydir. Returns nil
// even if the key was already absent (§4.8, §8 DEL idempotence).
func (e *Engine) Delete(key []byte) error {
	entry := pager.NewDeleteEntry(key, e.clock.Now())
	if _, _, err := e.pages.Append(entry); err != nil {
		return fmt.Errorf("engine: appending delete for key %q: %w", key, err)
	}
	e.index.Remove(string(key))
	return nil
}
