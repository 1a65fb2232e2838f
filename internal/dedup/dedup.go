// Package dedup decides whether a video id has already entered the pipeline.
// The check spans live queues and the artifact directories that completed
// work leaves behind, so a video is never re-fetched after its record has
// moved on or been harvested.
package dedup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"conveyor/internal/queue"
)

// AlreadySeen reports whether id is queued in any of the given queues or has
// left an artifact under any of the output directories. Queue membership is
// an exact record match. Output directories are walked recursively and match
// when any file name contains id as a substring, which covers derived names
// such as "abc123.en.json3". A missing output directory counts as unseen.
func AlreadySeen(id string, queues []*queue.Store, outputDirs []string) (bool, error) {
	if id == "" {
		return false, errors.New("dedup: id is required")
	}
	for _, q := range queues {
		exists, err := q.Exists(id)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}
	for _, dir := range outputDirs {
		found, err := artifactExists(dir, id)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func artifactExists(root, id string) (bool, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("stat output dir %s: %w", root, err)
	}
	found := false
	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if de.IsDir() {
			return nil
		}
		if strings.Contains(de.Name(), id) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scan output dir %s: %w", root, err)
	}
	return found, nil
}
