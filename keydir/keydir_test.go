package keydir

import (
	"testing"

	"github.com/dkvs/hashdb/pager"
	"github.com/google/go-cmp/cmp"
)

func TestRecordAndGetRoundTrip(t *testing.T) {
	kd := New()
	want := KeyData{Page: 2, Offset: 40, ValueLen: 3, Time: 7}
	kd.Record("k", want)

	got, ok := kd.Get("k")
	if !ok {
		t.Fatal("expected key to be present")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("KeyData mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordOverwritesPreviousLocation(t *testing.T) {
	kd := New()
	kd.Record("k", KeyData{Page: 0, Offset: 0, ValueLen: 1, Time: 1})
	want := KeyData{Page: 1, Offset: 25, ValueLen: 2, Time: 2}
	kd.Record("k", want)

	got, ok := kd.Get("k")
	if !ok {
		t.Fatal("expected key to be present")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overwrite did not take effect (-want +got):\n%s", diff)
	}
}

func TestRemoveThenGetMissing(t *testing.T) {
	kd := New()
	kd.Record("k", KeyData{Page: pager.PageID(0)})
	kd.Remove("k")
	if _, ok := kd.Get("k"); ok {
		t.Error("expected key to be absent after Remove")
	}
	kd.Remove("k") // idempotent
	if kd.Len() != 0 {
		t.Errorf("Len() = %d, want 0", kd.Len())
	}
}
