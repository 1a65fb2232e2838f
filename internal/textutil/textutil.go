// Package textutil holds small text helpers for channel names.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Slug converts a channel name or URL into a filesystem-safe directory name:
// lowercase, runs of non-alphanumerics collapsed to single underscores.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// DisplayName renders a slug back into a human-facing label, e.g.
// "simon_squibb" becomes "Simon Squibb".
func DisplayName(slug string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(slug, "_", " "))
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}
