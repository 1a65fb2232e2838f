// Package kaggle submits generated scripts as remote kernels through the
// kaggle command line client and harvests their output.
package kaggle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"conveyor/internal/logging"
	"conveyor/internal/services"
)

// SubmitRequest describes one kernel submission.
type SubmitRequest struct {
	KernelName string
	Script     string
	OutputDir  string
	Timeout    time.Duration
}

// Submission describes a completed kernel run. Its fields are exactly what
// committed queue records are annotated with.
type Submission struct {
	KernelName string
	Slug       string
	Link       string
	OutputDir  string
}

// Launcher runs one kernel to completion.
type Launcher interface {
	Submit(ctx context.Context, req SubmitRequest) (Submission, error)
}

// CLIConfig holds the settings for the kaggle CLI launcher.
type CLIConfig struct {
	User         string
	Binary       string
	PollInterval time.Duration
}

// CLILauncher stages the script with kernel metadata, pushes it, polls the
// kernel status until it completes, and downloads the output.
type CLILauncher struct {
	user         string
	binary       string
	pollInterval time.Duration
	logger       *slog.Logger

	run   func(ctx context.Context, name string, args ...string) (string, error)
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCLILauncher builds a launcher from config.
func NewCLILauncher(cfg CLIConfig, logger *slog.Logger) *CLILauncher {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "kaggle"
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &CLILauncher{
		user:         strings.TrimSpace(cfg.User),
		binary:       binary,
		pollInterval: interval,
		logger:       logging.NewComponentLogger(logger, "kaggle"),
		run:          runCombined,
		sleep:        sleepContext,
	}
}

type kernelMetadata struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CodeFile       string `json:"code_file"`
	Language       string `json:"language"`
	KernelType     string `json:"kernel_type"`
	IsPrivate      bool   `json:"is_private"`
	EnableGPU      bool   `json:"enable_gpu"`
	EnableInternet bool   `json:"enable_internet"`
}

// Submit runs the kernel to completion and downloads its output into
// req.OutputDir.
func (l *CLILauncher) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	if l.user == "" {
		return Submission{}, services.Wrap(services.ErrConfiguration, "kaggle", "submit", "kaggle.user must be set", nil)
	}
	if req.KernelName == "" {
		return Submission{}, services.Wrap(services.ErrValidation, "kaggle", "submit", "kernel name is required", nil)
	}
	slug := l.user + "/" + req.KernelName

	staging, err := l.stage(req, slug)
	if err != nil {
		return Submission{}, err
	}
	defer os.RemoveAll(staging)

	l.logger.Info("pushing kernel", logging.String("slug", slug))
	if _, err := l.run(ctx, l.binary, "kernels", "push", "-p", staging); err != nil {
		return Submission{}, services.Wrap(services.ErrExternalTool, "kaggle", "push kernel", slug, err)
	}

	if err := l.await(ctx, slug, req.Timeout); err != nil {
		return Submission{}, err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Submission{}, fmt.Errorf("create output dir: %w", err)
	}
	if _, err := l.run(ctx, l.binary, "kernels", "output", slug, "-p", req.OutputDir); err != nil {
		return Submission{}, services.Wrap(services.ErrExternalTool, "kaggle", "download output", slug, err)
	}

	return Submission{
		KernelName: req.KernelName,
		Slug:       slug,
		Link:       "https://www.kaggle.com/code/" + slug,
		OutputDir:  req.OutputDir,
	}, nil
}

func (l *CLILauncher) stage(req SubmitRequest, slug string) (string, error) {
	staging, err := os.MkdirTemp("", "conveyor-kernel-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	scriptFile := req.KernelName + ".py"
	if err := os.WriteFile(filepath.Join(staging, scriptFile), []byte(req.Script), 0o644); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("write kernel script: %w", err)
	}
	metadata, err := json.MarshalIndent(kernelMetadata{
		ID:             slug,
		Title:          req.KernelName,
		CodeFile:       scriptFile,
		Language:       "python",
		KernelType:     "script",
		IsPrivate:      true,
		EnableInternet: true,
	}, "", "  ")
	if err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("encode kernel metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "kernel-metadata.json"), metadata, 0o644); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("write kernel metadata: %w", err)
	}
	return staging, nil
}

// await polls kernel status until it reports complete. A status containing
// "error" or "cancel" fails immediately; exceeding the timeout fails with
// ErrTimeout so the batch is requeued rather than abandoned mid-flight.
func (l *CLILauncher) await(ctx context.Context, slug string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		output, err := l.run(ctx, l.binary, "kernels", "status", slug)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "kaggle", "kernel status", slug, err)
		}
		status := strings.ToLower(output)
		switch {
		case strings.Contains(status, "complete"):
			return nil
		case strings.Contains(status, "error"), strings.Contains(status, "cancel"):
			return services.Wrap(services.ErrExternalTool, "kaggle", "kernel run", slug+": "+strings.TrimSpace(output), nil)
		}
		if timeout > 0 && time.Now().After(deadline) {
			return services.Wrap(services.ErrTimeout, "kaggle", "kernel run", slug, nil)
		}
		l.logger.Debug("kernel still running", logging.String("slug", slug))
		if err := l.sleep(ctx, l.pollInterval); err != nil {
			return err
		}
	}
}

func runCombined(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	output := combined.String()
	if err != nil {
		detail := strings.TrimSpace(output)
		if detail == "" {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return "", fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return output, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
