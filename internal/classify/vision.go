package classify

import (
	"context"
	"errors"
	"log/slog"
	neturl "net/url"
	"strings"
	"time"
	"unicode"

	"hamsterguard/internal/openrouter"
)

const defaultVisionTimeout = 15 * time.Second

// VisionClassifier asks the external vision model whether the media at a URL
// depicts the prohibited subject. Every failure mode resolves to false: an
// uncertain or erroring classification never deletes a message.
type VisionClassifier struct {
	client  *openrouter.Client
	model   string
	prompt  string
	timeout time.Duration
	logger  *slog.Logger
}

type VisionConfig struct {
	Client  *openrouter.Client
	Model   string
	Prompt  string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewVision(cfg VisionConfig) *VisionClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultVisionTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VisionClassifier{
		client:  cfg.Client,
		model:   cfg.Model,
		prompt:  cfg.Prompt,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Classify sends one classification request for url and returns true iff the
// model's answer leads with YES. Errors are logged with a reason tag and
// resolve to false.
func (v *VisionClassifier) Classify(ctx context.Context, url string) bool {
	if v.client == nil || v.model == "" {
		v.logger.Error("vision classification unavailable", "reason", "config_missing", "url", url)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	answer, err := v.client.ChatCompletion(ctx, v.model, []openrouter.Message{
		{
			Role: "user",
			Content: []openrouter.ContentPart{
				openrouter.TextPart(v.prompt),
				openrouter.ImagePart(url),
			},
		},
	})
	if err != nil {
		var statusErr *openrouter.StatusError
		var urlErr *neturl.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			v.logger.Warn("vision classification failed", "reason", "timeout", "url", url)
		case errors.As(err, &statusErr):
			v.logger.Warn("vision classification failed", "reason", "api_status",
				"status", statusErr.StatusCode, "url", url)
		case errors.Is(err, openrouter.ErrMalformedResponse):
			v.logger.Warn("vision classification failed", "reason", "parse_error", "url", url, "err", err)
		case errors.As(err, &urlErr):
			v.logger.Warn("vision classification failed", "reason", "network_error", "url", url, "err", err)
		default:
			v.logger.Warn("vision classification failed", "reason", "unexpected", "url", url, "err", err)
		}
		return false
	}

	positive := leadsWithYes(answer)
	v.logger.Debug("vision answer", "url", url, "answer", answer, "positive", positive)
	return positive
}

// leadsWithYes normalizes the model's answer to upper-case letters, splits on
// everything else, and reports whether the first token is YES. "NO, I don't
// see one" yields token NO; "Yes, clearly" yields YES.
func leadsWithYes(answer string) bool {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToUpper(r)
		}
		return ' '
	}, answer)
	tokens := strings.Fields(normalized)
	return len(tokens) > 0 && tokens[0] == "YES"
}
