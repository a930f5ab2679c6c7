package pager

import "sync"

// infiniteDistance represents the +Inf K-distance assigned to a slot with
// fewer than K recorded accesses: such slots are always preferred eviction
// victims over ones with a full history.
const infiniteDistance = ^uint64(0)

// lrukReplacer selects an eviction victim among a fixed set of frame slots
// using the K-distance policy: the slot whose K-th most recent access is
// furthest in the past (or that has fewer than K accesses at all) is
// evicted first. Ties are broken by the smallest least-recent access
// timestamp, matching classical LRU-K.
type lrukReplacer struct {
	mu sync.Mutex
	k  int
	// now is the replacer's own monotone logical clock. It advances once
	// per recordAccess call; it has nothing to do with wall-clock time.
	now       uint64
	history   [][]uint64 // per-slot ring of up to k most recent access stamps
	evictable []bool
}

// newLrukReplacer creates a replacer over numSlots frames with history
// depth k.
func newLrukReplacer(numSlots, k int) *lrukReplacer {
	return &lrukReplacer{
		k:         k,
		history:   make([][]uint64, numSlots),
		evictable: make([]bool, numSlots),
	}
}

// recordAccess appends a fresh logical timestamp to slot i's history,
// retaining only the most recent k stamps.
func (r *lrukReplacer) recordAccess(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now++
	h := append(r.history[i], r.now)
	if len(h) > r.k {
		h = h[len(h)-r.k:]
	}
	r.history[i] = h
}

// setEvictable marks slot i as eligible (or ineligible) for eviction.
func (r *lrukReplacer) setEvictable(i int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictable[i] = evictable
}

// evict chooses the evictable slot with the largest K-distance, clears its
// history and evictable bit, and returns it. Returns ok=false if no slot is
// evictable.
func (r *lrukReplacer) evict() (slot int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := -1
	var bestDistance uint64
	var bestLeastRecent uint64
	for i, evictable := range r.evictable {
		if !evictable {
			continue
		}
		distance, leastRecent := r.kDistance(i)
		if best == -1 ||
			distance > bestDistance ||
			(distance == bestDistance && leastRecent < bestLeastRecent) {
			best = i
			bestDistance = distance
			bestLeastRecent = leastRecent
		}
	}
	if best == -1 {
		return 0, false
	}
	r.history[best] = nil
	r.evictable[best] = false
	return best, true
}

// kDistance returns slot i's K-distance (now - kth_most_recent_access, or
// +Inf if fewer than k accesses are recorded) and its least-recent
// timestamp, used to break ties.
func (r *lrukReplacer) kDistance(i int) (distance uint64, leastRecent uint64) {
	h := r.history[i]
	if len(h) == 0 {
		return infiniteDistance, 0
	}
	if len(h) < r.k {
		return infiniteDistance, h[0]
	}
	kth := h[0] // oldest of the retained k stamps
	return r.now - kth, h[0]
}
