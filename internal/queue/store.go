package queue

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const recordSuffix = ".json"

// Store is a queue rooted at a single directory.
type Store struct {
	root string
	now  func() time.Time
}

// Open resolves root, creates it if necessary, and returns a store for it.
func Open(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("open queue: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve queue root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create queue root: %w", err)
	}
	return &Store{root: abs, now: time.Now}, nil
}

// Root returns the queue's identity, its root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.root, id+recordSuffix)
}

func validateID(id string) error {
	if id == "" {
		return errors.New("record id is required")
	}
	if strings.ContainsAny(id, `/\`) || id != filepath.Base(id) || id == "." || id == ".." {
		return fmt.Errorf("record id %q must be a bare file name", id)
	}
	return nil
}

// Push stores payload under id, replacing any existing record. The returned
// flag reports whether an existing record was overwritten. The record file
// is written to a temp file and renamed into place so readers never observe
// a partial record.
func (s *Store) Push(id string, payload Payload) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	rec := Record{ID: id, EnqueuedAt: s.now().UTC(), Payload: payload}
	data, err := EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	path := s.recordPath(id)
	overwrote := false
	if _, err := os.Stat(path); err == nil {
		overwrote = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat record %s: %w", id, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, fmt.Errorf("write record %s: %w", id, err)
	}
	return overwrote, nil
}

// Pop removes and returns the oldest record. The found flag is false when
// the queue is empty. When the oldest record cannot be read or decoded Pop
// aborts with an UnreadableRecordError and leaves the file in place; a
// damaged record is never silently dropped.
func (s *Store) Pop() (Record, bool, error) {
	entries, err := s.snapshot()
	if err != nil {
		return Record{}, false, err
	}
	if len(entries) == 0 {
		return Record{}, false, nil
	}
	head := entries[0]
	if head.readErr != nil {
		return Record{}, false, &UnreadableRecordError{ID: head.id, Path: head.path, Err: head.readErr}
	}
	if err := os.Remove(head.path); err != nil {
		return Record{}, false, fmt.Errorf("remove record %s: %w", head.id, err)
	}
	return head.rec, true, nil
}

// Oldest returns up to n records in queue order without removing them.
// n <= 0 returns every record. An unreadable record within the requested
// window aborts with an UnreadableRecordError so a batch drain never
// silently passes over a damaged record.
func (s *Store) Oldest(n int) ([]Record, error) {
	entries, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	records := make([]Record, 0, len(entries))
	for _, ent := range entries {
		if ent.readErr != nil {
			return nil, &UnreadableRecordError{ID: ent.id, Path: ent.path, Err: ent.readErr}
		}
		records = append(records, ent.rec)
	}
	return records, nil
}

// Exists reports whether a record with the given id is queued.
func (s *Store) Exists(id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.recordPath(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat record %s: %w", id, err)
}

// Remove deletes the record for id and returns its payload. The found flag
// is false when no such record exists. Remove doubles as the repair path for
// unreadable records: the file is deleted even when its contents cannot be
// decoded, in which case the returned payload is nil.
func (s *Store) Remove(id string) (Payload, bool, error) {
	if err := validateID(id); err != nil {
		return nil, false, err
	}
	path := s.recordPath(id)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read record %s: %w", id, err)
	}
	var payload Payload
	if rec, decErr := DecodeRecord(data); decErr == nil {
		payload = rec.Payload
	}
	if err := os.Remove(path); err != nil {
		return nil, false, fmt.Errorf("remove record %s: %w", id, err)
	}
	return payload, true, nil
}

// Size counts queued records from the directory listing alone.
func (s *Store) Size() (int, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("list queue %s: %w", s.root, err)
	}
	count := 0
	for _, de := range dirents {
		if isRecordName(de) {
			count++
		}
	}
	return count, nil
}

// Clear deletes every record and reports how many were removed.
func (s *Store) Clear() (int, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("list queue %s: %w", s.root, err)
	}
	removed := 0
	for _, de := range dirents {
		if !isRecordName(de) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, de.Name())); err != nil {
			return removed, fmt.Errorf("remove record %s: %w", de.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Item describes one record file for inspection. Err is non-nil when the
// record could not be read or decoded; inspection still lists it so damaged
// records stay visible.
type Item struct {
	Record
	Path string
	Err  error
}

// List returns every record file in queue order, including unreadable ones.
func (s *Store) List() ([]Item, error) {
	entries, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, ent := range entries {
		item := Item{Path: ent.path, Err: ent.readErr}
		if ent.readErr != nil {
			item.ID = ent.id
		} else {
			item.Record = ent.rec
		}
		items = append(items, item)
	}
	return items, nil
}

type snapshotEntry struct {
	id      string
	path    string
	rec     Record
	readErr error
	at      time.Time
}

// snapshot lists and loads every record, sorted oldest first by the
// enqueue timestamp stored in the envelope, ties broken by id. Unreadable
// records sort on file modification time so they still surface near their
// age instead of being skipped.
func (s *Store) snapshot() ([]snapshotEntry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list queue %s: %w", s.root, err)
	}
	entries := make([]snapshotEntry, 0, len(dirents))
	for _, de := range dirents {
		if !isRecordName(de) {
			continue
		}
		ent := snapshotEntry{
			id:   strings.TrimSuffix(de.Name(), recordSuffix),
			path: filepath.Join(s.root, de.Name()),
		}
		data, err := os.ReadFile(ent.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			ent.readErr = err
		default:
			rec, decErr := DecodeRecord(data)
			if decErr != nil {
				if corrupt, ok := decErr.(*CorruptRecordError); ok {
					corrupt.Path = ent.path
				}
				ent.readErr = decErr
			} else {
				ent.rec = rec
				ent.at = rec.EnqueuedAt
			}
		}
		if ent.readErr != nil {
			if info, infoErr := de.Info(); infoErr == nil {
				ent.at = info.ModTime()
			}
		}
		entries = append(entries, ent)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].id < entries[j].id
	})
	return entries, nil
}

func isRecordName(de fs.DirEntry) bool {
	return !de.IsDir() && strings.HasSuffix(de.Name(), recordSuffix)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
