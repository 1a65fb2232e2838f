package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/queue"
	"conveyor/internal/services/kaggle"
	"conveyor/internal/stage"
)

// Annotation keys attached to records as they move between queues.
const (
	captionsAnnotationKey = "caption_batch"
	infoAnnotationKey     = "info_batch"
)

// BatchSubmitter drains one batch from its source queue, submits the batch
// as a single remote kernel, and commits the records to the next queue
// annotated with the submission details.
type BatchSubmitter struct {
	stageName  string
	cfg        *config.Config
	launcher   kaggle.Launcher
	notifier   notifications.Service
	logger     *slog.Logger
	runner     *stage.BatchRunner
	template   string
	outputBase string

	newRunID  func() string
	last      kaggle.Submission
	lastCount int
}

// NewCaptionsSubmitter builds the captions stage: captions queue in, info
// queue out.
func NewCaptionsSubmitter(cfg *config.Config, queues Queues, launcher kaggle.Launcher, notifier notifications.Service, logger *slog.Logger) *BatchSubmitter {
	return newSubmitter("captions", cfg, queues.Captions, queues.Info,
		cfg.Kaggle.CaptionsTemplate, cfg.Paths.CaptionsOutputDir, captionsAnnotationKey,
		launcher, notifier, logger)
}

// NewInfoSubmitter builds the info stage: info queue in, resting queue out.
func NewInfoSubmitter(cfg *config.Config, queues Queues, launcher kaggle.Launcher, notifier notifications.Service, logger *slog.Logger) *BatchSubmitter {
	return newSubmitter("info", cfg, queues.Info, queues.Resting,
		cfg.Kaggle.InfoTemplate, cfg.Paths.InfoOutputDir, infoAnnotationKey,
		launcher, notifier, logger)
}

func newSubmitter(name string, cfg *config.Config, source, dest *queue.Store, template, outputBase, annotationKey string, launcher kaggle.Launcher, notifier notifications.Service, logger *slog.Logger) *BatchSubmitter {
	s := &BatchSubmitter{
		stageName:  name,
		cfg:        cfg,
		launcher:   launcher,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, name),
		template:   template,
		outputBase: outputBase,
		newRunID:   uuid.NewString,
	}
	s.runner = &stage.BatchRunner{
		Source:        source,
		Dest:          dest,
		BatchSize:     cfg.Kaggle.BatchSize,
		AnnotationKey: annotationKey,
		Work:          s.submit,
		Logger:        s.logger,
	}
	return s
}

// Run executes one batch and reports the outcome through the notifier.
func (s *BatchSubmitter) Run(ctx context.Context) (stage.Result, error) {
	res, err := s.runner.Run(ctx)
	switch {
	case err != nil && res.Requeued > 0:
		s.notify(s.notifier.BatchRequeued(ctx, s.stageName, res.Requeued, err))
	case err == nil && res.Empty():
		s.notify(s.notifier.BatchEmpty(ctx, s.stageName))
	case err == nil:
		s.notify(s.notifier.BatchSubmitted(ctx, s.stageName, notifications.BatchInfo{
			KernelName: s.last.KernelName,
			Link:       s.last.Link,
			OutputDir:  s.last.OutputDir,
			VideoCount: s.lastCount,
		}))
	}
	return res, err
}

func (s *BatchSubmitter) notify(err error) {
	if err != nil {
		s.logger.Warn("notification failed", logging.Error(err))
	}
}

// submit is the batch work function: render the stage template over the
// drained video ids, run it as one kernel, and return the annotation every
// committed record carries.
func (s *BatchSubmitter) submit(ctx context.Context, batch []queue.Record) (queue.Payload, error) {
	ids := make([]string, 0, len(batch))
	for _, rec := range batch {
		ids = append(ids, rec.ID)
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode video ids: %w", err)
	}
	script, err := kaggle.RenderTemplate(s.template, map[string]string{
		"minutes_to_use": strconv.Itoa(s.cfg.Kaggle.MinutesQuota),
		"video_ids_list": string(idsJSON),
	})
	if err != nil {
		return nil, err
	}

	kernelName := fmt.Sprintf("conveyor-job-%s-%s", s.stageName, s.newRunID()[:8])
	outputDir := filepath.Join(s.outputBase, kernelName)

	// Keep a copy of the rendered script for postmortems. Losing the copy
	// does not fail the batch.
	if dir := s.cfg.Paths.ScriptDir; dir != "" {
		if err := os.WriteFile(filepath.Join(dir, kernelName+".py"), []byte(script), 0o644); err != nil {
			s.logger.Warn("script copy not written", logging.Error(err))
		}
	}

	s.logger.Info("submitting batch",
		logging.String("kernel", kernelName),
		logging.Int("videos", len(batch)))
	sub, err := s.launcher.Submit(ctx, kaggle.SubmitRequest{
		KernelName: kernelName,
		Script:     script,
		OutputDir:  outputDir,
		Timeout:    time.Duration(s.cfg.Kaggle.TimeoutMinutes) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	s.last = sub
	s.lastCount = len(batch)

	return queue.Payload{
		"kernel_name": sub.KernelName,
		"kernel_link": sub.Link,
		"output_dir":  sub.OutputDir,
		"video_count": len(batch),
	}, nil
}
