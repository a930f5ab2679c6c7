package pager

import "testing"

func TestPageWriteReadEntry(t *testing.T) {
	p := newPage(1, 64)

	e1 := NewPutEntry([]byte("k1"), []byte("v1"), 1)
	off1, err := p.WriteEntry(e1)
	if err != nil {
		t.Fatal(err)
	}
	if off1 != 0 {
		t.Errorf("first offset %d, want 0", off1)
	}

	e2 := NewPutEntry([]byte("k2"), []byte("v2"), 2)
	off2, err := p.WriteEntry(e2)
	if err != nil {
		t.Fatal(err)
	}
	if off2 != e1.Size() {
		t.Errorf("second offset %d, want %d", off2, e1.Size())
	}

	if p.Len() != e1.Size()+e2.Size() {
		t.Errorf("len %d, want %d", p.Len(), e1.Size()+e2.Size())
	}

	got1, err := p.ReadEntry(off1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got1.Key) != "k1" || string(got1.Value) != "v1" {
		t.Errorf("got %+v", got1)
	}

	got2, err := p.ReadEntry(off2)
	if err != nil {
		t.Fatal(err)
	}
	if string(got2.Key) != "k2" || string(got2.Value) != "v2" {
		t.Errorf("got %+v", got2)
	}
}

func TestPageNotEnoughSpace(t *testing.T) {
	p := newPage(1, 30)
	e := NewPutEntry([]byte("key"), []byte("value-too-big-for-page"), 1)
	_, err := p.WriteEntry(e)
	if err != errNotEnoughSpace {
		t.Errorf("got %v, want errNotEnoughSpace", err)
	}
	if p.Len() != 0 {
		t.Errorf("len %d, want 0 after a rejected write", p.Len())
	}
}

func TestPagePinUnpin(t *testing.T) {
	p := newPage(1, 64)
	if p.Pins() != 0 {
		t.Fatal("new page should start unpinned")
	}
	p.Pin()
	p.Pin()
	if p.Pins() != 2 {
		t.Errorf("pins %d, want 2", p.Pins())
	}
	if p.Unpin() {
		t.Error("transition from 2 to 1 should not report becoming unpinned")
	}
	if !p.Unpin() {
		t.Error("transition from 1 to 0 should report becoming unpinned")
	}
}

func TestPageScanLenTruncated(t *testing.T) {
	e1 := NewPutEntry([]byte("k1"), []byte("v1"), 1)
	e2 := NewPutEntry([]byte("key2"), []byte("value2-is-longer"), 2)
	truncated := entryHeaderSize + len(e2.Key)/2
	p := newPage(1, e1.Size()+truncated)

	off1, err := p.WriteEntry(e1)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a disk read truncated partway through e2: only the header
	// and half its key bytes made it to disk, and the scanned buffer ends
	// where that read stopped, so e2's declared length runs past its end.
	encoded2 := e2.Encode()
	copy(p.data[off1+e1.Size():], encoded2[:truncated])
	p.len.Store(uint64(len(p.data)))

	gotTruncated := p.scanLen()
	if !gotTruncated {
		t.Error("scanLen should report truncated for a partially written trailing entry")
	}
	want := off1 + e1.Size()
	if p.Len() != want {
		t.Errorf("scanLen recovered %d, want %d (truncated trailing entry dropped)", p.Len(), want)
	}
}
