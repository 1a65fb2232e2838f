package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type json3Document struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// FlattenTranscript reads a json3 caption file and joins its text segments
// into one whitespace-normalized string. An empty result means the file held
// no speech segments.
func FlattenTranscript(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	var doc json3Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse transcript %s: %w", path, err)
	}
	var parts []string
	for _, event := range doc.Events {
		for _, seg := range event.Segs {
			if text := strings.TrimSpace(seg.UTF8); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " "), nil
}
