package pager

import "errors"

var (
	// ErrCorrupt indicates a malformed entry tag, an impossible declared
	// length, or a decode that ran past the end of its page.
	ErrCorrupt = errors.New("pager: corrupt entry")
	// ErrEntryTooLarge indicates an entry does not fit a page even when
	// alone.
	ErrEntryTooLarge = errors.New("pager: entry too large for a page")
	// ErrNoFreeFrame indicates every read frame is pinned and none can be
	// evicted to satisfy a fetch.
	ErrNoFreeFrame = errors.New("pager: no free frame")
	// errNotEnoughSpace is an internal signal from Page.WriteEntry telling
	// the manager to rotate the current page; it never escapes this
	// package.
	errNotEnoughSpace = errors.New("pager: not enough space in page")
)
