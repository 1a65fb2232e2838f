package workflow

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"conveyor/internal/config"
	"conveyor/internal/dedup"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/queue"
	"conveyor/internal/services/discovery"
	"conveyor/internal/stage"
	"conveyor/internal/textutil"
)

// Discoverer scans the configured channels and enqueues videos the pipeline
// has not seen before.
type Discoverer struct {
	cfg      *config.Config
	lister   discovery.Lister
	queues   Queues
	notifier notifications.Service
	logger   *slog.Logger

	jitter func(ctx context.Context, max time.Duration) error
}

// NewDiscoverer builds the fetch stage.
func NewDiscoverer(cfg *config.Config, lister discovery.Lister, queues Queues, notifier notifications.Service, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		cfg:      cfg,
		lister:   lister,
		queues:   queues,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "fetch"),
		jitter:   jitterSleep,
	}
}

// Run scans every configured channel once. A channel that fails to list is
// counted and skipped so one dead channel cannot starve the rest. Processed
// counts newly enqueued videos, Skipped counts duplicates.
func (d *Discoverer) Run(ctx context.Context) (stage.Result, error) {
	var res stage.Result
	channels := d.cfg.Discovery.Channels
	for i, channel := range channels {
		if i > 0 {
			maxJitter := time.Duration(d.cfg.Discovery.JitterMaxSeconds) * time.Second
			if err := d.jitter(ctx, maxJitter); err != nil {
				return res, err
			}
		}
		added, skipped, err := d.scanChannel(ctx, channel)
		res.Processed += added
		res.Skipped += skipped
		if err != nil {
			res.Failed++
			d.logger.Error("channel scan failed",
				logging.String("channel", channel),
				logging.Error(err))
		}
	}

	size, err := d.queues.Captions.Size()
	if err != nil {
		return res, err
	}
	if err := d.notifier.FetchCompleted(ctx, notifications.FetchSummary{
		Channels:  len(channels),
		Added:     res.Processed,
		Skipped:   res.Skipped,
		QueueSize: size,
	}); err != nil {
		d.logger.Warn("notification failed", logging.Error(err))
	}
	return res, nil
}

func (d *Discoverer) scanChannel(ctx context.Context, channel string) (added, skipped int, err error) {
	slug := textutil.Slug(channel)
	d.logger.Info("scanning channel", logging.String("channel", textutil.DisplayName(slug)))

	entries, err := d.lister.ChannelVideos(ctx, channel)
	if err != nil {
		return 0, 0, err
	}

	seen := func(id string) (bool, error) {
		return dedup.AlreadySeen(id, d.queues.All(), d.outputDirs())
	}
	limit := d.cfg.Discovery.MaxNewVideos
	for _, entry := range entries {
		if limit > 0 && added >= limit {
			break
		}
		payload := queue.Payload{
			"url":         entry.URL,
			"video_id":    entry.ID,
			"title":       entry.Title,
			"description": entry.Description,
			"view_count":  entry.ViewCount,
			"channel":     slug,
		}
		pushed, err := stage.Ingest(d.queues.Captions, entry.ID, payload, seen)
		if err != nil {
			return added, skipped, err
		}
		if pushed {
			added++
			d.logger.Debug("video enqueued", logging.String(logging.FieldJobID, entry.ID))
		} else {
			skipped++
		}
	}
	return added, skipped, nil
}

func (d *Discoverer) outputDirs() []string {
	return []string{d.cfg.Paths.CaptionsOutputDir, d.cfg.Paths.InfoOutputDir}
}

// jitterSleep waits a random duration up to max, spreading channel listings
// out so they do not hit the site in a burst.
func jitterSleep(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(rand.Int63n(int64(max))))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
