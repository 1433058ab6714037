package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"hamsterguard/internal/classify"
	"hamsterguard/internal/domain"
	"hamsterguard/internal/extract"
	"hamsterguard/internal/openrouter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeVision records calls and returns a scripted verdict.
type fakeVision struct {
	result bool
	calls  []string
}

func (f *fakeVision) Classify(ctx context.Context, url string) bool {
	f.calls = append(f.calls, url)
	return f.result
}

// fakeExecutor records moderated messages.
type fakeExecutor struct {
	result domain.ModerationResult
	calls  []domain.MessageEvent
}

func (f *fakeExecutor) Execute(ctx context.Context, msg domain.MessageEvent) domain.ModerationResult {
	f.calls = append(f.calls, msg)
	return f.result
}

func testGuard(t *testing.T, vision *fakeVision, exec *fakeExecutor) *Guard {
	t.Helper()
	rs := classify.DefaultRuleset()
	return New(Config{
		Extractor: extract.New(rs.ImageExtensions, rs.VideoExtensions),
		Metadata:  classify.NewMetadata(rs),
		Vision:    vision,
		Executor:  exec,
		Logger:    testLogger(),
	})
}

func TestScan_MetadataPositiveSkipsVision(t *testing.T) {
	vision := &fakeVision{result: false}
	exec := &fakeExecutor{result: domain.ModerationResult{Deleted: true, Notified: true}}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1", ChannelID: "c1", AuthorID: "u1", AuthorName: "someone",
		Attachments: []domain.Attachment{
			{URL: "https://cdn/x", Filename: "hammy.jpg", ContentType: "image/jpeg"},
		},
	}

	outcome, res := g.Scan(context.Background(), msg)
	if !outcome.Positive || outcome.Source != domain.SourceMetadata {
		t.Fatalf("expected positive metadata outcome, got %+v", outcome)
	}
	if len(vision.calls) != 0 {
		t.Error("metadata fast path must preempt the vision call")
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one moderation action, got %d", len(exec.calls))
	}
	if res == nil || !res.Deleted || !res.Notified {
		t.Errorf("expected {deleted:true notified:true}, got %+v", res)
	}
}

// Cost avoidance: non-image media never reaches the vision API.
func TestScan_VideoNeverCallsVision(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1",
		Attachments: []domain.Attachment{
			{URL: "https://cdn/clip", ContentType: "video/mp4", Filename: "clip.mp4"},
		},
	}

	outcome, res := g.Scan(context.Background(), msg)
	if outcome.Positive {
		t.Fatalf("expected negative outcome, got %+v", outcome)
	}
	if outcome.Source != domain.SourceSkipped {
		t.Errorf("expected skipped source, got %s", outcome.Source)
	}
	if len(vision.calls) != 0 {
		t.Error("video candidate must never trigger a vision call")
	}
	if res != nil || len(exec.calls) != 0 {
		t.Error("message must be left untouched")
	}
}

func TestScan_VisionPositiveForImage(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{result: domain.ModerationResult{Deleted: true, Notified: true}}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1",
		Embeds: []domain.Embed{
			{Kind: domain.EmbedRich, ImageURL: "https://x/cat.png"},
		},
	}

	outcome, _ := g.Scan(context.Background(), msg)
	if !outcome.Positive || outcome.Source != domain.SourceVision {
		t.Fatalf("expected positive vision outcome, got %+v", outcome)
	}
	if len(vision.calls) != 1 || vision.calls[0] != "https://x/cat.png" {
		t.Errorf("vision calls: %v", vision.calls)
	}
}

func TestScan_VisionNegativeLeavesMessage(t *testing.T) {
	vision := &fakeVision{result: false}
	exec := &fakeExecutor{}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1",
		Embeds: []domain.Embed{
			{Kind: domain.EmbedRich, ImageURL: "https://x/cat.png"},
		},
	}

	outcome, res := g.Scan(context.Background(), msg)
	if outcome.Positive || res != nil || len(exec.calls) != 0 {
		t.Fatalf("expected untouched message, got outcome %+v res %+v", outcome, res)
	}
	if outcome.Source != domain.SourceVision {
		t.Errorf("expected vision source on consulted-but-negative, got %s", outcome.Source)
	}
}

// The first positive stops the walk: later candidates are never examined and
// at most one moderation action runs per message.
func TestScan_ShortCircuitsOnFirstPositive(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{result: domain.ModerationResult{Deleted: true}}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1",
		Attachments: []domain.Attachment{
			{URL: "https://cdn/first.png", ContentType: "image/png"},
			{URL: "https://cdn/second.png", ContentType: "image/png"},
		},
	}

	g.Scan(context.Background(), msg)
	if len(vision.calls) != 1 {
		t.Errorf("expected exactly one vision call, got %v", vision.calls)
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected exactly one moderation action, got %d", len(exec.calls))
	}
}

func TestScan_OrderMetadataBeforeVision(t *testing.T) {
	vision := &fakeVision{result: false}
	exec := &fakeExecutor{result: domain.ModerationResult{Deleted: true}}
	g := testGuard(t, vision, exec)

	// First candidate is metadata-negative image (vision consulted, says no),
	// second is metadata-positive.
	msg := domain.MessageEvent{
		MessageID: "m1",
		Attachments: []domain.Attachment{
			{URL: "https://cdn/cat.png", ContentType: "image/png", Filename: "cat.png"},
			{URL: "https://cdn/h.png", ContentType: "image/png", Filename: "hamster.png"},
		},
	}

	outcome, _ := g.Scan(context.Background(), msg)
	if !outcome.Positive || outcome.Source != domain.SourceMetadata {
		t.Fatalf("expected metadata positive on second candidate, got %+v", outcome)
	}
	if len(vision.calls) != 1 || vision.calls[0] != "https://cdn/cat.png" {
		t.Errorf("expected one vision call for the first candidate, got %v", vision.calls)
	}
}

func TestScan_RejectsAutomatedAuthors(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{}
	g := testGuard(t, vision, exec)

	msg := domain.MessageEvent{
		MessageID: "m1",
		AuthorBot: true,
		Attachments: []domain.Attachment{
			{URL: "https://cdn/h.png", Filename: "hamster.png", ContentType: "image/png"},
		},
	}

	outcome, res := g.Scan(context.Background(), msg)
	if outcome.Positive || res != nil || len(exec.calls) != 0 || len(vision.calls) != 0 {
		t.Fatal("bot-authored messages must be rejected before scanning")
	}
}

func TestScan_RejectsOwnMessages(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{}
	g := testGuard(t, vision, exec)
	g.SetSelfID("self-1")

	msg := domain.MessageEvent{
		MessageID: "m1",
		AuthorID:  "self-1",
		Attachments: []domain.Attachment{
			{URL: "https://cdn/h.png", Filename: "hamster.png", ContentType: "image/png"},
		},
	}

	outcome, _ := g.Scan(context.Background(), msg)
	if outcome.Positive || len(exec.calls) != 0 {
		t.Fatal("own messages must be rejected before scanning")
	}
}

// End to end with the real vision classifier: a rich embed with no keyword
// metadata goes to the vision API; a NO answer leaves the message untouched.
func TestScan_EndToEndVisionNo(t *testing.T) {
	var visionCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visionCalls++
		w.Write([]byte(`{"choices":[{"message":{"content":"NO"}}]}`))
	}))
	t.Cleanup(srv.Close)

	rs := classify.DefaultRuleset()
	vision := classify.NewVision(classify.VisionConfig{
		Client: openrouter.New(openrouter.Config{
			APIKey: "k", APIBase: srv.URL, Client: srv.Client(), Logger: testLogger(),
		}),
		Model:  "m",
		Prompt: rs.VisionPrompt,
		Logger: testLogger(),
	})
	exec := &fakeExecutor{}
	g := New(Config{
		Extractor: extract.New(rs.ImageExtensions, rs.VideoExtensions),
		Metadata:  classify.NewMetadata(rs),
		Vision:    vision,
		Executor:  exec,
		Logger:    testLogger(),
	})

	msg := domain.MessageEvent{
		MessageID: "m1", ChannelID: "c1", AuthorID: "u1",
		Embeds: []domain.Embed{
			{Kind: domain.EmbedRich, ImageURL: "https://x/cat.png"},
		},
	}

	outcome, res := g.Scan(context.Background(), msg)
	if visionCalls != 1 {
		t.Errorf("expected one vision call, got %d", visionCalls)
	}
	if outcome.Positive || res != nil || len(exec.calls) != 0 {
		t.Fatalf("message must be left untouched, got outcome %+v res %+v", outcome, res)
	}
}

func TestScan_NoCandidates(t *testing.T) {
	vision := &fakeVision{result: true}
	exec := &fakeExecutor{}
	g := testGuard(t, vision, exec)

	outcome, res := g.Scan(context.Background(), domain.MessageEvent{MessageID: "m1", Content: "plain text"})
	if outcome.Positive || outcome.Source != domain.SourceSkipped || res != nil {
		t.Fatalf("expected skipped outcome for text-only message, got %+v", outcome)
	}
}
