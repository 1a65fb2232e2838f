package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"conveyor/internal/config"
	"conveyor/internal/logging"
)

const defaultEndpoint = "https://slack.com/api/chat.postMessage"

// FetchSummary describes the outcome of one discovery run.
type FetchSummary struct {
	Channels  int
	Added     int
	Skipped   int
	QueueSize int
}

// BatchInfo describes one remote kernel submission.
type BatchInfo struct {
	KernelName string
	Link       string
	OutputDir  string
	VideoCount int
}

// Service publishes pipeline outcome events.
type Service interface {
	FetchCompleted(ctx context.Context, summary FetchSummary) error
	BatchSubmitted(ctx context.Context, stage string, info BatchInfo) error
	BatchEmpty(ctx context.Context, stage string) error
	BatchRequeued(ctx context.Context, stage string, count int, cause error) error
	AnalysisReady(ctx context.Context, title, digest string) error
	Error(ctx context.Context, stage string, err error) error
	Test(ctx context.Context) error
}

// NewService builds a Slack-backed service, or a no-op service when the bot
// token or channel id is not configured.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil || cfg.Slack.BotToken == "" || cfg.Slack.ChannelID == "" {
		return NewNop()
	}
	timeout := time.Duration(cfg.Slack.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &slackService{
		token:           cfg.Slack.BotToken,
		channel:         cfg.Slack.ChannelID,
		analysisChannel: cfg.Slack.AnalysisChannelID,
		endpoint:        defaultEndpoint,
		client:          &http.Client{Timeout: timeout},
		logger:          logging.NewComponentLogger(logger, "notifications"),
	}
}

type slackService struct {
	token           string
	channel         string
	analysisChannel string
	endpoint        string
	client          *http.Client
	logger          *slog.Logger
}

func (s *slackService) FetchCompleted(ctx context.Context, summary FetchSummary) error {
	body := fmt.Sprintf("Scanned %d channels.\nAdded: %d\nSkipped as duplicates: %d\nCaption queue size: %d",
		summary.Channels, summary.Added, summary.Skipped, summary.QueueSize)
	return s.send(ctx, s.channel, "conveyor fetch", body)
}

func (s *slackService) BatchSubmitted(ctx context.Context, stage string, info BatchInfo) error {
	body := fmt.Sprintf("Submitted %d videos as %s.\nKernel: %s\nOutput: %s",
		info.VideoCount, info.KernelName, info.Link, info.OutputDir)
	return s.send(ctx, s.channel, "conveyor "+stage, body)
}

func (s *slackService) BatchEmpty(ctx context.Context, stage string) error {
	return s.send(ctx, s.channel, "conveyor "+stage, "Queue is empty; nothing to submit.")
}

func (s *slackService) BatchRequeued(ctx context.Context, stage string, count int, cause error) error {
	body := fmt.Sprintf("Submission failed; %d videos remain queued.\nCause: %v", count, cause)
	return s.send(ctx, s.channel, "conveyor "+stage, body)
}

func (s *slackService) AnalysisReady(ctx context.Context, title, digest string) error {
	channel := s.analysisChannel
	if channel == "" {
		channel = s.channel
	}
	return s.send(ctx, channel, "analysis: "+title, digest)
}

func (s *slackService) Error(ctx context.Context, stage string, err error) error {
	return s.send(ctx, s.channel, "conveyor "+stage+" error", fmt.Sprintf("%v", err))
}

func (s *slackService) Test(ctx context.Context) error {
	return s.send(ctx, s.channel, "conveyor test", "Notification delivery works.")
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *slackService) send(ctx context.Context, channel, header, body string) error {
	payload, err := json.Marshal(postMessageRequest{
		Channel: channel,
		Text:    formatMessage(header, body),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send notification: unexpected status %d", resp.StatusCode)
	}
	var decoded postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode notification response: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("send notification: slack error %q", decoded.Error)
	}
	return nil
}

const headerWidth = 100

// formatMessage boxes the header in a padded rule so messages stand out in a
// busy channel.
func formatMessage(header, body string) string {
	label := " " + strings.TrimSpace(header) + " "
	pad := headerWidth - len(label)
	if pad < 2 {
		pad = 2
	}
	left := pad / 2
	right := pad - left
	rule := strings.Repeat("=", left) + label + strings.Repeat("=", right)
	return rule + "\n" + body
}

type noopService struct{}

// NewNop returns a service that drops every event.
func NewNop() Service { return noopService{} }

func (noopService) FetchCompleted(context.Context, FetchSummary) error { return nil }

func (noopService) BatchSubmitted(context.Context, string, BatchInfo) error { return nil }

func (noopService) BatchEmpty(context.Context, string) error { return nil }

func (noopService) BatchRequeued(context.Context, string, int, error) error { return nil }

func (noopService) AnalysisReady(context.Context, string, string) error { return nil }

func (noopService) Error(context.Context, string, error) error { return nil }

func (noopService) Test(context.Context) error { return nil }
