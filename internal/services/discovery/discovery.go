// Package discovery enumerates channel uploads through yt-dlp.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"conveyor/internal/logging"
	"conveyor/internal/services"
)

// Entry is one video in a channel listing.
type Entry struct {
	ID          string
	URL         string
	Title       string
	Description string
	ViewCount   int64
}

// Lister enumerates a channel's videos, newest first.
type Lister interface {
	ChannelVideos(ctx context.Context, channel string) ([]Entry, error)
}

// Config holds the subprocess settings for the yt-dlp lister.
type Config struct {
	Binary             string
	CookiesFromBrowser string
}

// YtDlpLister shells out to yt-dlp with a flat playlist dump. The videos tab
// of a channel lists newest uploads first, which is the order fetch relies
// on.
type YtDlpLister struct {
	binary  string
	cookies string
	logger  *slog.Logger

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYtDlpLister builds a lister from config.
func NewYtDlpLister(cfg Config, logger *slog.Logger) *YtDlpLister {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpLister{
		binary:  binary,
		cookies: strings.TrimSpace(cfg.CookiesFromBrowser),
		logger:  logging.NewComponentLogger(logger, "discovery"),
		run:     runCommand,
	}
}

type flatPlaylist struct {
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ViewCount   int64  `json:"view_count"`
}

// ChannelVideos lists the uploads of a channel. The channel value may be a
// full URL or a bare handle; handles are expanded to the channel videos tab.
func (l *YtDlpLister) ChannelVideos(ctx context.Context, channel string) ([]Entry, error) {
	target := channelURL(channel)
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	if l.cookies != "" {
		args = append(args, "--cookies-from-browser", l.cookies)
	}
	args = append(args, target)

	l.logger.Debug("listing channel uploads", logging.String("channel", channel))
	output, err := l.run(ctx, l.binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "list channel", channel, err)
	}

	var playlist flatPlaylist
	if err := json.Unmarshal(output, &playlist); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "parse channel listing", channel, err)
	}

	entries := make([]Entry, 0, len(playlist.Entries))
	for _, raw := range playlist.Entries {
		if raw.ID == "" {
			continue
		}
		entry := Entry{
			ID:          raw.ID,
			URL:         raw.URL,
			Title:       raw.Title,
			Description: raw.Description,
			ViewCount:   raw.ViewCount,
		}
		if entry.URL == "" {
			entry.URL = "https://www.youtube.com/watch?v=" + raw.ID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func channelURL(channel string) string {
	trimmed := strings.TrimSpace(channel)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	handle := strings.TrimPrefix(trimmed, "@")
	return "https://www.youtube.com/@" + handle + "/videos"
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, firstLine(detail))
	}
	return stdout.Bytes(), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
