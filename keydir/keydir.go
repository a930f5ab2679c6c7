// Package keydir implements the in-memory index mapping each live key to
// the location of its newest record (§4.6), and the startup scan that
// rebuilds it from the log (§4.7).
package keydir

import (
	"sync"

	"github.com/dkvs/hashdb/pager"
)

// KeyData is the location of a key's newest record: which page it lives
// on, its byte offset within that page, the length of its value, and the
// timestamp it was written with.
type KeyData struct {
	Page     pager.PageID
	Offset   int
	ValueLen int
	Time     uint64
}

// KeyDir is the live key index. All operations are under a single
// reader-writer lock (§4.6): the hot GET path only ever takes the read
// lock, while PUT/DELETE take the write lock after their entry has already
// been durably appended, so the keydir never advertises a record that
// isn't backed by bytes on a page.
type KeyDir struct {
	mu   sync.RWMutex
	data map[string]KeyData
}

// New returns an empty KeyDir.
func New() *KeyDir {
	return &KeyDir{data: make(map[string]KeyData)}
}

// Get looks up key's current location.
func (kd *KeyDir) Get(key string) (KeyData, bool) {
	kd.mu.RLock()
	defer kd.mu.RUnlock()
	d, ok := kd.data[key]
	return d, ok
}

// Record upserts key's location, built directly from a just-appended entry
// (original_source entry.rs's add_to_key_dir) rather than re-decoding it.
func (kd *KeyDir) Record(key string, d KeyData) {
	kd.mu.Lock()
	defer kd.mu.Unlock()
	kd.data[key] = d
}

// Remove deletes key's mapping, if any. A no-op if the key is already
// absent, matching DELETE's idempotence law (§8).
func (kd *KeyDir) Remove(key string) {
	kd.mu.Lock()
	defer kd.mu.Unlock()
	delete(kd.data, key)
}

// Len reports the number of live keys.
func (kd *KeyDir) Len() int {
	kd.mu.RLock()
	defer kd.mu.RUnlock()
	return len(kd.data)
}
