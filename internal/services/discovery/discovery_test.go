package discovery

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/logging"
	"conveyor/internal/services"
)

const listingFixture = `{
  "id": "UC123",
  "entries": [
    {"id": "vid-new", "url": "https://www.youtube.com/watch?v=vid-new", "title": "Newest", "description": "d1", "view_count": 100},
    {"id": "vid-old", "title": "Older", "view_count": 5},
    {"title": "no id, skipped"}
  ]
}`

func newFixtureLister(t *testing.T, output string, fail error) (*YtDlpLister, *[][]string) {
	t.Helper()
	lister := NewYtDlpLister(Config{Binary: "yt-dlp", CookiesFromBrowser: "firefox"}, logging.NewNop())
	var calls [][]string
	lister.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		if fail != nil {
			return nil, fail
		}
		return []byte(output), nil
	}
	return lister, &calls
}

func TestChannelVideosParsesFlatListing(t *testing.T) {
	lister, calls := newFixtureLister(t, listingFixture, nil)
	entries, err := lister.ChannelVideos(context.Background(), "SomeChannel")
	if err != nil {
		t.Fatalf("ChannelVideos failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (id-less entry skipped)", len(entries))
	}
	if entries[0].ID != "vid-new" || entries[0].Title != "Newest" || entries[0].ViewCount != 100 {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].URL != "https://www.youtube.com/watch?v=vid-old" {
		t.Fatalf("missing url not defaulted: %q", entries[1].URL)
	}

	if len(*calls) != 1 {
		t.Fatalf("run called %d times, want 1", len(*calls))
	}
	args := (*calls)[0]
	wantArgs := map[string]bool{"--flat-playlist": false, "-J": false, "--cookies-from-browser": false}
	for _, arg := range args {
		if _, tracked := wantArgs[arg]; tracked {
			wantArgs[arg] = true
		}
	}
	for arg, present := range wantArgs {
		if !present {
			t.Fatalf("missing argument %s in %v", arg, args)
		}
	}
	if args[len(args)-1] != "https://www.youtube.com/@SomeChannel/videos" {
		t.Fatalf("target = %q", args[len(args)-1])
	}
}

func TestChannelVideosKeepsFullURLs(t *testing.T) {
	lister, calls := newFixtureLister(t, `{"entries": []}`, nil)
	url := "https://www.youtube.com/@Other/videos"
	if _, err := lister.ChannelVideos(context.Background(), url); err != nil {
		t.Fatalf("ChannelVideos failed: %v", err)
	}
	args := (*calls)[0]
	if args[len(args)-1] != url {
		t.Fatalf("target = %q, want %q unchanged", args[len(args)-1], url)
	}
}

func TestChannelVideosWrapsToolFailure(t *testing.T) {
	toolErr := errors.New("exit status 1")
	lister, _ := newFixtureLister(t, "", toolErr)
	_, err := lister.ChannelVideos(context.Background(), "SomeChannel")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
}

func TestChannelVideosRejectsMalformedJSON(t *testing.T) {
	lister, _ := newFixtureLister(t, "WARNING: not json", nil)
	if _, err := lister.ChannelVideos(context.Background(), "SomeChannel"); err == nil {
		t.Fatal("expected parse error")
	}
}
