package dedup_test

import (
	"os"
	"path/filepath"
	"testing"

	"conveyor/internal/dedup"
	"conveyor/internal/queue"
)

func openQueue(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestAlreadySeenQueueMembership(t *testing.T) {
	captions := openQueue(t)
	resting := openQueue(t)
	if _, err := resting.Push("abc123", queue.Payload{}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	seen, err := dedup.AlreadySeen("abc123", []*queue.Store{captions, resting}, nil)
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if !seen {
		t.Fatal("expected queued id to be seen")
	}
	seen, err = dedup.AlreadySeen("zzz999", []*queue.Store{captions, resting}, nil)
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if seen {
		t.Fatal("unknown id reported as seen")
	}
}

func TestAlreadySeenArtifactSubstring(t *testing.T) {
	outputDir := t.TempDir()
	nested := filepath.Join(outputDir, "conveyor-job-captions-1a2b3c4d")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	artifact := filepath.Join(nested, "abc123.en.json3")
	if err := os.WriteFile(artifact, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	seen, err := dedup.AlreadySeen("abc123", nil, []string{outputDir})
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if !seen {
		t.Fatal("expected artifact substring match")
	}
	seen, err = dedup.AlreadySeen("abc124", nil, []string{outputDir})
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if seen {
		t.Fatal("non-matching id reported as seen")
	}
}

func TestAlreadySeenMissingOutputDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-created")
	seen, err := dedup.AlreadySeen("abc123", nil, []string{missing})
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if seen {
		t.Fatal("missing directory should count as unseen")
	}
}

func TestAlreadySeenDirectoryNamesDoNotMatch(t *testing.T) {
	outputDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(outputDir, "abc123-dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	seen, err := dedup.AlreadySeen("abc123", nil, []string{outputDir})
	if err != nil {
		t.Fatalf("AlreadySeen failed: %v", err)
	}
	if seen {
		t.Fatal("directory name matched; only file names should count")
	}
}
