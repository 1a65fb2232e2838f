package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"conveyor/internal/analysis"
	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/queue"
	"conveyor/internal/stage"
)

const analysisAnnotationKey = "analysis"

// captionLanguage is the caption track the transcript kernels download.
const captionLanguage = "en"

const analysisSystemPrompt = `You are a careful technical editor. You receive the transcript of a
software engineering video. Extract each distinct technique or idea the
speaker actually teaches and wrap it in tags:

<topic_block>
<topic>Short name of the technique</topic>
<problem_it_solves>The concrete problem it addresses</problem_it_solves>
<how_it_works>How the technique works, in two or three sentences</how_it_works>
<when_to_use>Situations where it applies</when_to_use>
<when_not_to_use>Situations where it backfires</when_not_to_use>
<example>One concrete example taken from the transcript</example>
</topic_block>

Emit one topic_block per technique and nothing outside the blocks. Skip
greetings, sponsor reads, and filler.`

// Completer produces a chat completion for a transcript.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Analyzer runs the transcript model over the oldest resting record that has
// not been analyzed yet. One record per invocation keeps a single cron slot
// from monopolizing the completion quota.
type Analyzer struct {
	cfg      *config.Config
	resting  *queue.Store
	client   Completer
	notifier notifications.Service
	logger   *slog.Logger

	now func() time.Time
}

// NewAnalyzer builds the analyze stage.
func NewAnalyzer(cfg *config.Config, queues Queues, client Completer, notifier notifications.Service, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		resting:  queues.Resting,
		client:   client,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "analyze"),
		now:      time.Now,
	}
}

// Run analyzes the oldest pending record. Records whose transcript is
// missing or empty are skipped, not failed: their captions may still be in
// flight, and the next invocation sees them again.
func (a *Analyzer) Run(ctx context.Context) (stage.Result, error) {
	records, err := a.resting.Oldest(0)
	if err != nil {
		return stage.Result{}, err
	}

	var res stage.Result
	for _, rec := range records {
		if _, done := rec.Payload[analysisAnnotationKey]; done {
			continue
		}
		transcript, path, err := a.loadTranscript(rec)
		if err != nil {
			res.Skipped++
			a.logger.Warn("transcript unavailable",
				logging.String(logging.FieldJobID, rec.ID),
				logging.Error(err))
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		content, err := a.client.Complete(ctx, analysisSystemPrompt, transcript)
		if err != nil {
			res.Failed++
			return res, err
		}
		topics := analysis.ParseTopics(content)
		digest := analysis.FormatDigest(topics)

		annotated := rec.Payload.Clone()
		if annotated == nil {
			annotated = queue.Payload{}
		}
		annotated[analysisAnnotationKey] = queue.Payload{
			"model":       a.cfg.LLM.Model,
			"content":     content,
			"topic_count": len(topics),
			"analyzed_at": a.now().UTC().Format(time.RFC3339),
		}
		if _, err := a.resting.Push(rec.ID, annotated); err != nil {
			res.Failed++
			return res, fmt.Errorf("record analysis for %s: %w", rec.ID, err)
		}
		res.Processed++

		title := stringField(rec.Payload, "title")
		if title == "" {
			title = rec.ID
		}
		if err := a.notifier.AnalysisReady(ctx, title, digest); err != nil {
			a.logger.Warn("notification failed", logging.Error(err))
		}
		a.logger.Info("transcript analyzed",
			logging.String(logging.FieldJobID, rec.ID),
			logging.String("transcript", path),
			logging.Int("topics", len(topics)))
		break
	}
	return res, nil
}

// loadTranscript resolves the transcript file the caption kernel harvested
// for this record and flattens it to plain text.
func (a *Analyzer) loadTranscript(rec queue.Record) (string, string, error) {
	batch := mapField(rec.Payload, captionsAnnotationKey)
	if batch == nil {
		return "", "", errors.New("record has no caption batch annotation")
	}
	outputDir, _ := batch["output_dir"].(string)
	if outputDir == "" {
		return "", "", errors.New("caption batch annotation has no output dir")
	}
	path := filepath.Join(outputDir, rec.ID+"."+captionLanguage+".json3")
	text, err := analysis.FlattenTranscript(path)
	if err != nil {
		return "", "", err
	}
	if text == "" {
		return "", "", fmt.Errorf("transcript %s has no speech segments", path)
	}
	return text, path, nil
}

func stringField(p queue.Payload, key string) string {
	value, _ := p[key].(string)
	return value
}

// mapField tolerates both the decoded form (map[string]any) and the in-memory
// form (queue.Payload) of a nested annotation.
func mapField(p queue.Payload, key string) map[string]any {
	switch value := p[key].(type) {
	case map[string]any:
		return value
	case queue.Payload:
		return value
	}
	return nil
}
