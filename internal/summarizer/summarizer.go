// Package summarizer is the companion bot: when its role is mentioned it
// reads recent channel history and replies with an LLM summary, or answers a
// prompt supplied alongside the mention.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"hamsterguard/internal/domain"
	"hamsterguard/internal/openrouter"
)

const (
	defaultHistoryLimit = 30
	defaultTimeout      = 15 * time.Second

	summarySystemPrompt = "Read the following chat history and provide a concise, readable summary " +
		"of the conversation. Focus on the main topics and any conclusions reached in 3 sentences max."
	answerSystemPrompt = "Accurately answer the user's prompt in 1-3 sentences, concisely."
)

type Summarizer struct {
	platform     domain.SummaryPlatform
	client       *openrouter.Client
	model        string
	roleID       string
	historyLimit int
	timeout      time.Duration
	logger       *slog.Logger
}

type Config struct {
	Platform     domain.SummaryPlatform
	Client       *openrouter.Client
	Model        string
	RoleID       string
	HistoryLimit int
	Timeout      time.Duration
	Logger       *slog.Logger
}

func New(cfg Config) *Summarizer {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Summarizer{
		platform:     cfg.Platform,
		client:       cfg.Client,
		model:        cfg.Model,
		roleID:       cfg.RoleID,
		historyLimit: cfg.HistoryLimit,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}
}

// Handle processes one message; it returns false when the message does not
// mention the summarizer role. Failures degrade to an apologetic edit of the
// placeholder reply and never propagate.
func (s *Summarizer) Handle(ctx context.Context, msg domain.MessageEvent) bool {
	if s.roleID == "" || !slices.Contains(msg.MentionRoles, s.roleID) {
		return false
	}

	prompt := strings.TrimSpace(strings.ReplaceAll(msg.Content, "<@&"+s.roleID+">", ""))

	loading := "Thinking... ⏳"
	if prompt == "" {
		loading = fmt.Sprintf("Reading the last %d messages... ⏳", s.historyLimit)
	}
	placeholderID, err := s.platform.SendPlaceholder(ctx, msg.ChannelID, loading)
	if err != nil {
		s.logger.Warn("cannot send summary placeholder", "channel_id", msg.ChannelID, "err", err)
		return true
	}

	reply := s.buildReply(ctx, msg, prompt)
	if err := s.platform.EditMessage(ctx, msg.ChannelID, placeholderID, reply); err != nil {
		s.logger.Warn("cannot edit summary reply", "channel_id", msg.ChannelID, "err", err)
	}
	return true
}

func (s *Summarizer) buildReply(ctx context.Context, msg domain.MessageEvent, prompt string) string {
	history, err := s.platform.ChannelHistory(ctx, msg.ChannelID, msg.MessageID, s.historyLimit)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return "⚠️ I don't have permission to read message history in this channel."
		}
		s.logger.Warn("history fetch failed", "channel_id", msg.ChannelID, "err", err)
		return "⚠️ Something went wrong while reading the channel history."
	}

	// History arrives newest first; read it chronologically and skip
	// text-less messages (pure media posts) to save tokens.
	var log strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		if text := strings.TrimSpace(history[i].Content); text != "" {
			fmt.Fprintf(&log, "[%s]: %s\n", history[i].AuthorName, history[i].Content)
		}
	}
	if log.Len() == 0 {
		return "There is no recent text history here."
	}

	response := s.complete(ctx, log.String(), prompt)
	if prompt == "" {
		return "**Summary:**\n\n" + response
	}
	return response
}

// complete calls the text model; every failure maps to a user-facing line.
func (s *Summarizer) complete(ctx context.Context, chatLog, prompt string) string {
	system := summarySystemPrompt
	user := "Here is the recent chat history:\n\n" + chatLog
	if prompt != "" {
		system = answerSystemPrompt
		user = "User's prompt: " + prompt + "\n\nRecent chat history for context:\n\n" + chatLog
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.client.ChatCompletion(ctx, s.model, []openrouter.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	switch {
	case err == nil:
		return strings.TrimSpace(answer)
	case errors.Is(err, context.DeadlineExceeded):
		return "⚠️ The model took too long to respond. Please try again later."
	default:
		var statusErr *openrouter.StatusError
		if errors.As(err, &statusErr) {
			s.logger.Warn("summary request rejected", "status", statusErr.StatusCode)
			return "⚠️ Sorry, I ran into an API error while trying to process that."
		}
		s.logger.Warn("summary request failed", "err", err)
		return "⚠️ An unexpected error occurred while contacting the model."
	}
}
