package keydir

import "github.com/dkvs/hashdb/pager"

// Bootstrap rebuilds a KeyDir by scanning pages in page-id order (§4.7).
// Entries are applied strictly in scan order — page id, then in-page
// offset — so the last entry seen for a key always wins. §9's design
// notes flag a tension between timestamp order and page-scan order when
// they disagree; this implementation resolves it by never consulting
// timestamps for ordering at all; they are carried in KeyData purely as
// informational metadata. Scan order is already the authoritative
// sequence (§4.7 "page-order-last-wins"), so there is nothing left for
// timestamp comparison to decide.
//
// §7's corruption policy — mid-log corruption aborts startup, only the
// final page may trail off mid-entry — is enforced earlier, by
// pager.Manager's own bootstrap scan: every Page handed to Bootstrap here
// already has Len() trimmed to its last well-formed entry, so scanPage's
// loop bound (off < p.Len()) never walks into corrupted bytes. Bootstrap
// itself returns no error; that decision has already been made.
func Bootstrap(pages []*pager.Page) *KeyDir {
	kd := New()
	for _, p := range pages {
		scanPage(kd, p)
	}
	return kd
}

func scanPage(kd *KeyDir, p *pager.Page) {
	off := 0
	for off < p.Len() {
		e, err := p.ReadEntry(off)
		if err != nil {
			break
		}
		apply(kd, p.ID, off, e)
		off += e.Size()
	}
}

func apply(kd *KeyDir, id pager.PageID, offset int, e pager.Entry) {
	key := string(e.Key)
	switch e.Tag {
	case pager.TagPut:
		kd.Record(key, KeyData{Page: id, Offset: offset, ValueLen: len(e.Value), Time: e.Time})
	case pager.TagDelete:
		kd.Remove(key)
	}
}
