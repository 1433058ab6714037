package domain

import (
	"context"
	"errors"
)

// Sentinel errors the channel adapter maps platform API failures onto.
// Callers branch with errors.Is; everything else is an opaque delivery error.
var (
	ErrForbidden = errors.New("platform: forbidden")
	ErrNotFound  = errors.New("platform: not found")
)

// ChatPlatform is the write surface the moderation pipeline consumes.
// Implementations are safe for concurrent use across message goroutines.
type ChatPlatform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendMessage(ctx context.Context, channelID, content string) error
}

// HistoryMessage is one line of channel history, consumed by the summarizer.
type HistoryMessage struct {
	AuthorName string
	Content    string
}

// SummaryPlatform is the read/write surface the companion summarizer needs:
// a placeholder reply it can edit in place, and recent channel history
// (newest first, up to limit messages before the given message ID).
type SummaryPlatform interface {
	SendPlaceholder(ctx context.Context, channelID, content string) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	ChannelHistory(ctx context.Context, channelID, beforeID string, limit int) ([]HistoryMessage, error)
}
