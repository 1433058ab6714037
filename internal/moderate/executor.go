// Package moderate executes the moderation action for a positively
// classified message: delete, then notify. The two steps fail independently
// and neither failure propagates to the caller.
package moderate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hamsterguard/internal/domain"
	"hamsterguard/internal/metrics"
)

type Executor struct {
	platform  domain.ChatPlatform
	template  string
	overrides map[string]string
	logger    *slog.Logger
}

type Config struct {
	Platform domain.ChatPlatform
	// NoticeTemplate's single %s receives the author reference.
	NoticeTemplate string
	// NoticeOverrides replaces the template for specific authors, matched by
	// exact display name.
	NoticeOverrides map[string]string
	Logger          *slog.Logger
}

func New(cfg Config) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Executor{
		platform:  cfg.Platform,
		template:  cfg.NoticeTemplate,
		overrides: cfg.NoticeOverrides,
		logger:    cfg.Logger,
	}
}

// Execute deletes msg and posts the channel notice. Deletion is the primary
// goal: a not-found failure counts as deleted (the message is already gone),
// the notice is only attempted after a successful delete, and a failed
// notice never rolls anything back.
func (e *Executor) Execute(ctx context.Context, msg domain.MessageEvent) domain.ModerationResult {
	var res domain.ModerationResult

	err := e.platform.DeleteMessage(ctx, msg.ChannelID, msg.MessageID)
	switch {
	case err == nil:
		res.Deleted = true
		metrics.Deletions.Inc()
	case errors.Is(err, domain.ErrNotFound):
		// Raced with someone else; the goal is satisfied.
		e.logger.Info("message already deleted", "message_id", msg.MessageID, "channel_id", msg.ChannelID)
		res.Deleted = true
	case errors.Is(err, domain.ErrForbidden):
		e.logger.Error("cannot delete message: missing permissions",
			"message_id", msg.MessageID, "channel_id", msg.ChannelID)
		metrics.ModerationFailures.Inc()
	default:
		e.logger.Error("delete failed", "message_id", msg.MessageID,
			"channel_id", msg.ChannelID, "err", err)
		metrics.ModerationFailures.Inc()
	}

	if !res.Deleted {
		return res
	}

	notice := fmt.Sprintf(e.noticeWording(msg.AuthorName), authorRef(msg))
	if err := e.platform.SendMessage(ctx, msg.ChannelID, notice); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			e.logger.Warn("cannot send notice: missing permissions", "channel_id", msg.ChannelID)
		} else {
			e.logger.Warn("notice failed", "channel_id", msg.ChannelID, "err", err)
		}
		metrics.ModerationFailures.Inc()
		return res
	}

	res.Notified = true
	metrics.Notices.Inc()
	return res
}

func (e *Executor) noticeWording(authorName string) string {
	if w, ok := e.overrides[authorName]; ok {
		return w
	}
	return e.template
}

// authorRef prefers a platform mention so the notice pings the author.
func authorRef(msg domain.MessageEvent) string {
	if msg.AuthorID != "" {
		return "<@" + msg.AuthorID + ">"
	}
	return msg.AuthorName
}
