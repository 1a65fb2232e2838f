package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testClock hands out strictly increasing timestamps one second apart.
type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	clock := &testClock{current: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	return store, clock
}

func TestPushPopOldestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"first", "second", "third"} {
		overwrote, err := store.Push(id, Payload{"title": id})
		if err != nil {
			t.Fatalf("Push %s failed: %v", id, err)
		}
		if overwrote {
			t.Fatalf("Push %s reported overwrite of a fresh id", id)
		}
	}
	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 3 {
		t.Fatalf("Size = %d, want 3", size)
	}
	for _, want := range []string{"first", "second", "third"} {
		rec, found, err := store.Pop()
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if !found {
			t.Fatal("Pop reported empty queue")
		}
		if rec.ID != want {
			t.Fatalf("Pop returned %s, want %s", rec.ID, want)
		}
	}
	if _, found, err := store.Pop(); err != nil || found {
		t.Fatalf("Pop on empty queue = (found=%v, err=%v), want (false, nil)", found, err)
	}
}

func TestPushOverwriteKeepsOneRecord(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("dup", Payload{"rev": "one"}); err != nil {
		t.Fatalf("first Push failed: %v", err)
	}
	overwrote, err := store.Push("dup", Payload{"rev": "two"})
	if err != nil {
		t.Fatalf("second Push failed: %v", err)
	}
	if !overwrote {
		t.Fatal("expected overwrite signal")
	}
	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1 {
		t.Fatalf("Size = %d, want 1", size)
	}
	rec, found, err := store.Pop()
	if err != nil || !found {
		t.Fatalf("Pop failed: found=%v err=%v", found, err)
	}
	if rec.Payload["rev"] != "two" {
		t.Fatalf("Pop returned payload %v, want latest revision", rec.Payload)
	}
}

func TestRepushMovesRecordBehindExisting(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("a", Payload{"rev": "first"}); err != nil {
		t.Fatalf("Push a failed: %v", err)
	}
	if _, err := store.Push("b", Payload{}); err != nil {
		t.Fatalf("Push b failed: %v", err)
	}
	// Re-pushing an existing id restamps its enqueue time, so it yields its
	// place at the head of the queue.
	overwrote, err := store.Push("a", Payload{"rev": "second"})
	if err != nil {
		t.Fatalf("re-Push a failed: %v", err)
	}
	if !overwrote {
		t.Fatal("expected overwrite signal")
	}

	rec, found, err := store.Pop()
	if err != nil || !found {
		t.Fatalf("Pop failed: found=%v err=%v", found, err)
	}
	if rec.ID != "b" {
		t.Fatalf("Pop returned %s, want b first after re-push", rec.ID)
	}
	rec, found, err = store.Pop()
	if err != nil || !found {
		t.Fatalf("second Pop failed: found=%v err=%v", found, err)
	}
	if rec.ID != "a" || rec.Payload["rev"] != "second" {
		t.Fatalf("second Pop = %s payload %v, want re-pushed a", rec.ID, rec.Payload)
	}
}

func TestPopOrdersByEnqueueTimestampNotModTime(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("old", Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if _, err := store.Push("new", Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	// Touch the older record so filesystem metadata says it is the newest.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(store.recordPath("old"), future, future); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	rec, found, err := store.Pop()
	if err != nil || !found {
		t.Fatalf("Pop failed: found=%v err=%v", found, err)
	}
	if rec.ID != "old" {
		t.Fatalf("Pop returned %s, want old (envelope timestamp ordering)", rec.ID)
	}
}

func TestPopBreaksTimestampTiesByID(t *testing.T) {
	store, _ := newTestStore(t)
	frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.Push(id, Payload{}); err != nil {
			t.Fatalf("Push %s failed: %v", id, err)
		}
	}
	for _, want := range []string{"alpha", "mid", "zeta"} {
		rec, found, err := store.Pop()
		if err != nil || !found {
			t.Fatalf("Pop failed: found=%v err=%v", found, err)
		}
		if rec.ID != want {
			t.Fatalf("Pop returned %s, want %s", rec.ID, want)
		}
	}
}

func TestPopAbortsOnUnreadableRecordAndLeavesFile(t *testing.T) {
	store, _ := newTestStore(t)
	damaged := store.recordPath("damaged")
	if err := os.WriteFile(damaged, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write damaged record: %v", err)
	}
	// Unreadable records sort on modification time; age the damaged file so
	// it is selected ahead of the healthy record.
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(damaged, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if _, err := store.Push("healthy", Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	_, found, err := store.Pop()
	if err == nil {
		t.Fatal("expected Pop to abort on the unreadable record")
	}
	if found {
		t.Fatal("Pop reported a record alongside the error")
	}
	var unreadable *UnreadableRecordError
	if !errors.As(err, &unreadable) {
		t.Fatalf("expected UnreadableRecordError, got %v", err)
	}
	if unreadable.ID != "damaged" {
		t.Fatalf("error names record %s, want damaged", unreadable.ID)
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt in chain, got %v", err)
	}
	if _, statErr := os.Stat(damaged); statErr != nil {
		t.Fatalf("damaged record should remain on disk: %v", statErr)
	}

	// Remove is the repair path: it deletes the damaged file so the queue
	// drains again.
	payload, removed, err := store.Remove("damaged")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("Remove did not find the damaged record")
	}
	if payload != nil {
		t.Fatalf("Remove returned payload %v for undecodable record", payload)
	}
	rec, found, err := store.Pop()
	if err != nil || !found {
		t.Fatalf("Pop after repair failed: found=%v err=%v", found, err)
	}
	if rec.ID != "healthy" {
		t.Fatalf("Pop returned %s, want healthy", rec.ID)
	}
}

func TestOldestIsNonDestructive(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := store.Push(id, Payload{}); err != nil {
			t.Fatalf("Push %s failed: %v", id, err)
		}
	}
	records, err := store.Oldest(2)
	if err != nil {
		t.Fatalf("Oldest failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "b" {
		t.Fatalf("Oldest(2) = %v, want [a b]", records)
	}
	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 4 {
		t.Fatalf("Size after Oldest = %d, want 4", size)
	}
	all, err := store.Oldest(0)
	if err != nil {
		t.Fatalf("Oldest(0) failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Oldest(0) returned %d records, want 4", len(all))
	}
}

func TestExistsAndRemove(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("present", Payload{"title": "kept"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	exists, err := store.Exists("present")
	if err != nil || !exists {
		t.Fatalf("Exists(present) = (%v, %v), want (true, nil)", exists, err)
	}
	exists, err = store.Exists("absent")
	if err != nil || exists {
		t.Fatalf("Exists(absent) = (%v, %v), want (false, nil)", exists, err)
	}
	payload, found, err := store.Remove("present")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !found || payload["title"] != "kept" {
		t.Fatalf("Remove = (%v, %v), want payload back", payload, found)
	}
	_, found, err = store.Remove("present")
	if err != nil || found {
		t.Fatalf("second Remove = (found=%v, err=%v), want (false, nil)", found, err)
	}
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Push(id, Payload{}); err != nil {
			t.Fatalf("Push %s failed: %v", id, err)
		}
	}
	removed, err := store.Clear()
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("Clear removed %d, want 3", removed)
	}
	size, err := store.Size()
	if err != nil || size != 0 {
		t.Fatalf("Size after Clear = (%d, %v), want (0, nil)", size, err)
	}
}

func TestListIncludesUnreadableRecords(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("good", Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := os.WriteFile(store.recordPath("bad"), []byte("<xml/>"), 0o644); err != nil {
		t.Fatalf("write damaged record: %v", err)
	}
	items, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List returned %d items, want 2", len(items))
	}
	byID := map[string]Item{}
	for _, item := range items {
		byID[item.ID] = item
	}
	if byID["good"].Err != nil {
		t.Fatalf("good record carried error: %v", byID["good"].Err)
	}
	if byID["bad"].Err == nil {
		t.Fatal("damaged record listed without error")
	}
}

func TestSizeIgnoresForeignFiles(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Push("only", Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(store.Root(), "sub.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1 {
		t.Fatalf("Size = %d, want 1", size)
	}
}

func TestPushRejectsPathLikeIDs(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := store.Push(id, Payload{}); err == nil {
			t.Fatalf("Push(%q) succeeded, want error", id)
		}
	}
}
