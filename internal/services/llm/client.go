// Package llm talks to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"conveyor/internal/logging"
	"conveyor/internal/services"
)

// Config holds connection settings for the completion endpoint. BaseURL is
// the full chat completions URL.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// Client issues chat completion requests with bounded retry on rate limits
// and upstream failures.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client from config.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "llm"),
		sleep:      sleepContext,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system and user prompt and returns the first choice's
// message content.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "llm.api_key must be set", nil)
	}
	if strings.TrimSpace(c.cfg.Model) == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "llm.model must be set", nil)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelay(attempt, lastErr)); err != nil {
				return "", err
			}
		}
		content, retryable, err := c.completeOnce(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		c.logger.Warn("completion attempt failed",
			logging.Int("attempt", attempt+1),
			logging.Error(err))
	}
	return "", services.Wrap(services.ErrTransient, "llm", "complete", "retries exhausted", lastErr)
}

type retryAfterError struct {
	delay time.Duration
	err   error
}

func (e *retryAfterError) Error() string { return e.err.Error() }

func (e *retryAfterError) Unwrap() error { return e.err }

func (c *Client) completeOnce(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		statusErr := fmt.Errorf("completion status %d: %s", resp.StatusCode, snippet(body))
		if delay := parseRetryAfter(resp.Header.Get("Retry-After")); delay > 0 {
			return "", true, &retryAfterError{delay: delay, err: statusErr}
		}
		return "", true, statusErr
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, services.Wrap(services.ErrExternalTool, "llm", "complete",
			fmt.Sprintf("status %d: %s", resp.StatusCode, snippet(body)), nil)
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false, fmt.Errorf("decode completion response: %w", err)
	}
	if decoded.Error != nil {
		return "", false, services.Wrap(services.ErrExternalTool, "llm", "complete", decoded.Error.Message, nil)
	}
	for _, choice := range decoded.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, false, nil
		}
	}
	return "", false, services.Wrap(services.ErrExternalTool, "llm", "complete", "empty completion", nil)
}

func backoffDelay(attempt int, lastErr error) time.Duration {
	var retryAfter *retryAfterError
	if errors.As(lastErr, &retryAfter) {
		return retryAfter.delay
	}
	delay := time.Duration(1<<uint(attempt-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
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
