// Package guard wires extraction, classification, and moderation into the
// per-message decision procedure.
package guard

import (
	"context"
	"log/slog"
	"sync"

	"hamsterguard/internal/domain"
	"hamsterguard/internal/metrics"
)

type extractor interface {
	Extract(msg domain.MessageEvent) []domain.MediaCandidate
}

type metadataClassifier interface {
	Classify(texts []string) bool
}

type visionClassifier interface {
	Classify(ctx context.Context, url string) bool
}

type moderationExecutor interface {
	Execute(ctx context.Context, msg domain.MessageEvent) domain.ModerationResult
}

// Guard runs one message at a time through extract → classify → moderate.
// Candidates are evaluated strictly in extraction order, the metadata fast
// path always precedes the vision check, and the first positive candidate
// triggers at most one moderation action.
type Guard struct {
	extractor extractor
	metadata  metadataClassifier
	vision    visionClassifier
	executor  moderationExecutor
	logger    *slog.Logger

	mu     sync.RWMutex
	selfID string
}

type Config struct {
	Extractor extractor
	Metadata  metadataClassifier
	Vision    visionClassifier
	Executor  moderationExecutor
	Logger    *slog.Logger
}

func New(cfg Config) *Guard {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Guard{
		extractor: cfg.Extractor,
		metadata:  cfg.Metadata,
		vision:    cfg.Vision,
		executor:  cfg.Executor,
		logger:    cfg.Logger,
	}
}

// SetSelfID records the bot's own identity once the session is ready, so its
// own messages are rejected before scanning begins.
func (g *Guard) SetSelfID(id string) {
	g.mu.Lock()
	g.selfID = id
	g.mu.Unlock()
}

// Scan runs one message through the pipeline. It returns the deciding
// classification outcome and, when moderation ran, its result. Safe to call
// concurrently for different messages; work within one call is sequential.
func (g *Guard) Scan(ctx context.Context, msg domain.MessageEvent) (domain.ClassificationOutcome, *domain.ModerationResult) {
	outcome := domain.ClassificationOutcome{Source: domain.SourceSkipped}

	g.mu.RLock()
	selfID := g.selfID
	g.mu.RUnlock()
	if msg.AuthorBot || (selfID != "" && msg.AuthorID == selfID) {
		return outcome, nil
	}

	metrics.MessagesScanned.Inc()
	metrics.ActiveScans.Inc()
	defer metrics.ActiveScans.Dec()

	candidates := g.extractor.Extract(msg)
	metrics.CandidatesTotal.Add(int64(len(candidates)))
	if len(candidates) == 0 {
		return outcome, nil
	}

	g.logger.Debug("scanning message", "message_id", msg.MessageID,
		"author", msg.AuthorName, "candidates", len(candidates))

	for _, cand := range candidates {
		switch {
		case g.metadata.Classify(cand.MetadataText):
			metrics.MetadataHits.Inc()
			outcome = domain.ClassificationOutcome{Positive: true, Source: domain.SourceMetadata}
		case cand.MediaType == domain.MediaImage:
			// Non-image media never goes to the vision API.
			metrics.VisionRequests.Inc()
			if g.vision.Classify(ctx, cand.URL) {
				metrics.VisionPositives.Inc()
				outcome = domain.ClassificationOutcome{Positive: true, Source: domain.SourceVision}
			} else {
				outcome.Source = domain.SourceVision
			}
		}

		if outcome.Positive {
			g.logger.Info("prohibited media detected",
				"message_id", msg.MessageID,
				"author", msg.AuthorName,
				"url", cand.URL,
				"source", outcome.Source.String(),
			)
			res := g.executor.Execute(ctx, msg)
			g.logger.Info("moderation done", "message_id", msg.MessageID,
				"deleted", res.Deleted, "notified", res.Notified)
			return outcome, &res
		}
	}

	return outcome, nil
}
