package workflow

import (
	"context"
	"sync"

	"conveyor/internal/notifications"
	"conveyor/internal/services/discovery"
	"conveyor/internal/services/kaggle"
)

type fakeLister struct {
	videos map[string][]discovery.Entry
	errs   map[string]error
	calls  []string
}

func (l *fakeLister) ChannelVideos(_ context.Context, channel string) ([]discovery.Entry, error) {
	l.calls = append(l.calls, channel)
	if err := l.errs[channel]; err != nil {
		return nil, err
	}
	return l.videos[channel], nil
}

type fakeLauncher struct {
	err      error
	requests []kaggle.SubmitRequest
}

func (l *fakeLauncher) Submit(_ context.Context, req kaggle.SubmitRequest) (kaggle.Submission, error) {
	l.requests = append(l.requests, req)
	if l.err != nil {
		return kaggle.Submission{}, l.err
	}
	return kaggle.Submission{
		KernelName: req.KernelName,
		Slug:       "tester/" + req.KernelName,
		Link:       "https://www.kaggle.com/code/tester/" + req.KernelName,
		OutputDir:  req.OutputDir,
	}, nil
}

type fakeCompleter struct {
	content string
	err     error
	prompts []string
}

func (c *fakeCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	c.prompts = append(c.prompts, userPrompt)
	if c.err != nil {
		return "", c.err
	}
	return c.content, nil
}

// recordingNotifier captures every event so tests can assert on the notifier
// boundary without a network.
type recordingNotifier struct {
	mu        sync.Mutex
	fetches   []notifications.FetchSummary
	submitted []notifications.BatchInfo
	empty     []string
	requeued  []int
	analyses  []string
	digests   []string
}

func (n *recordingNotifier) FetchCompleted(_ context.Context, summary notifications.FetchSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fetches = append(n.fetches, summary)
	return nil
}

func (n *recordingNotifier) BatchSubmitted(_ context.Context, _ string, info notifications.BatchInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, info)
	return nil
}

func (n *recordingNotifier) BatchEmpty(_ context.Context, stage string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.empty = append(n.empty, stage)
	return nil
}

func (n *recordingNotifier) BatchRequeued(_ context.Context, _ string, count int, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requeued = append(n.requeued, count)
	return nil
}

func (n *recordingNotifier) AnalysisReady(_ context.Context, title, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.analyses = append(n.analyses, title)
	n.digests = append(n.digests, digest)
	return nil
}

func (n *recordingNotifier) Error(context.Context, string, error) error { return nil }

func (n *recordingNotifier) Test(context.Context) error { return nil }
