package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"conveyor/internal/config"
	"conveyor/internal/logging"
)

type capturedMessage struct {
	auth    string
	request postMessageRequest
}

func newCaptureServer(t *testing.T, reply string) (*httptest.Server, *[]capturedMessage) {
	t.Helper()
	var captured []capturedMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		var req postMessageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		captured = append(captured, capturedMessage{auth: r.Header.Get("Authorization"), request: req})
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func newTestService(endpoint string) *slackService {
	return &slackService{
		token:           "xoxb-test",
		channel:         "C0GENERAL",
		analysisChannel: "C0ANALYSIS",
		endpoint:        endpoint,
		client:          http.DefaultClient,
		logger:          logging.NewNop(),
	}
}

func TestFetchCompletedPostsBoxedMessage(t *testing.T) {
	server, captured := newCaptureServer(t, `{"ok": true}`)
	svc := newTestService(server.URL)

	err := svc.FetchCompleted(context.Background(), FetchSummary{Channels: 3, Added: 2, Skipped: 5, QueueSize: 7})
	if err != nil {
		t.Fatalf("FetchCompleted failed: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("captured %d messages, want 1", len(*captured))
	}
	msg := (*captured)[0]
	if msg.auth != "Bearer xoxb-test" {
		t.Fatalf("Authorization = %q", msg.auth)
	}
	if msg.request.Channel != "C0GENERAL" {
		t.Fatalf("channel = %q", msg.request.Channel)
	}
	lines := strings.SplitN(msg.request.Text, "\n", 2)
	if !strings.Contains(lines[0], " conveyor fetch ") || !strings.HasPrefix(lines[0], "=") {
		t.Fatalf("header rule = %q", lines[0])
	}
	if len(lines[0]) != headerWidth {
		t.Fatalf("header rule width = %d, want %d", len(lines[0]), headerWidth)
	}
	if !strings.Contains(lines[1], "Added: 2") {
		t.Fatalf("body = %q", lines[1])
	}
}

func TestAnalysisReadyUsesAnalysisChannel(t *testing.T) {
	server, captured := newCaptureServer(t, `{"ok": true}`)
	svc := newTestService(server.URL)

	if err := svc.AnalysisReady(context.Background(), "Some Video", "digest text"); err != nil {
		t.Fatalf("AnalysisReady failed: %v", err)
	}
	if (*captured)[0].request.Channel != "C0ANALYSIS" {
		t.Fatalf("channel = %q, want analysis channel", (*captured)[0].request.Channel)
	}
}

func TestSendSurfacesSlackError(t *testing.T) {
	server, _ := newCaptureServer(t, `{"ok": false, "error": "channel_not_found"}`)
	svc := newTestService(server.URL)

	err := svc.Test(context.Background())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected slack error, got %v", err)
	}
}

func TestBatchRequeuedIncludesCause(t *testing.T) {
	server, captured := newCaptureServer(t, `{"ok": true}`)
	svc := newTestService(server.URL)

	cause := errors.New("kernel push rejected")
	if err := svc.BatchRequeued(context.Background(), "captions", 5, cause); err != nil {
		t.Fatalf("BatchRequeued failed: %v", err)
	}
	text := (*captured)[0].request.Text
	if !strings.Contains(text, "5 videos remain queued") || !strings.Contains(text, "kernel push rejected") {
		t.Fatalf("text = %q", text)
	}
}

func TestNewServiceFallsBackToNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Slack.BotToken = ""
	svc := NewService(&cfg, slog.New(logging.NoopHandler{}))
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("noop Test returned error: %v", err)
	}
}
