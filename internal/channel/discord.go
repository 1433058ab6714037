package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"hamsterguard/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// MessageScanner is the moderation pipeline's entry point.
type MessageScanner interface {
	SetSelfID(id string)
	Scan(ctx context.Context, msg domain.MessageEvent) (domain.ClassificationOutcome, *domain.ModerationResult)
}

// MessageHandler gets first refusal on inbound messages (the summarizer);
// a handled message is not scanned.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.MessageEvent) bool
}

// Discord connects to the gateway, maps inbound messages into domain events,
// and implements the platform write surfaces the pipeline consumes.
type Discord struct {
	token   string
	guildID string
	session *discordgo.Session
	scanner MessageScanner
	handler MessageHandler
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: restrict to one guild
	Scanner MessageScanner
	Handler MessageHandler // optional
	Logger  *slog.Logger
}

// NewDiscord creates a new Discord channel.
func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		scanner: cfg.Scanner,
		handler: cfg.Handler,
		logger:  cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// SetScanner installs the moderation pipeline. The channel is constructed
// before the pipeline because the pipeline's executor writes through it.
func (d *Discord) SetScanner(s MessageScanner) { d.scanner = s }

// SetHandler installs an optional first-refusal handler.
func (d *Discord) SetHandler(h MessageHandler) { d.handler = h }

// Start connects to Discord and dispatches one goroutine per inbound
// message. It blocks until ctx is cancelled, then closes the session.
func (d *Discord) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore the bot's own messages.
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != d.guildID {
			return
		}

		evt := mapMessage(m)

		d.logger.Debug("discord message received",
			"author", evt.AuthorName,
			"channel_id", evt.ChannelID,
			"attachments", len(evt.Attachments),
			"embeds", len(evt.Embeds),
		)

		// Each message gets its own goroutine; work within one message
		// stays sequential.
		go func() {
			if d.handler != nil && d.handler.Handle(ctx, evt) {
				return
			}
			d.scanner.Scan(ctx, evt)
		}()
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	d.scanner.SetSelfID(session.State.User.ID)
	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// DeleteMessage removes a message, mapping 403/404 onto domain sentinels.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

// SendMessage posts content to a channel, chunked to the platform limit.
func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	for _, chunk := range splitMessage(content, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return mapRESTError(err)
		}
	}
	return nil
}

// SendPlaceholder posts content and returns the new message's ID so it can
// be edited in place later.
func (d *Discord) SendPlaceholder(ctx context.Context, channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapRESTError(err)
	}
	return msg.ID, nil
}

// EditMessage replaces a previously sent message's content.
func (d *Discord) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := d.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

// ChannelHistory returns up to limit messages before beforeID, newest first.
func (d *Discord) ChannelHistory(ctx context.Context, channelID, beforeID string, limit int) ([]domain.HistoryMessage, error) {
	msgs, err := d.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError(err)
	}
	out := make([]domain.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Author == nil {
			continue
		}
		out = append(out, domain.HistoryMessage{
			AuthorName: m.Author.Username,
			Content:    m.Content,
		})
	}
	return out, nil
}

// mapRESTError translates discordgo REST failures onto the domain sentinels
// the executor branches on.
func mapRESTError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		}
	}
	return err
}

// mapMessage converts a gateway message into the pipeline's read-only view.
func mapMessage(m *discordgo.MessageCreate) domain.MessageEvent {
	evt := domain.MessageEvent{
		MessageID:    m.ID,
		ChannelID:    m.ChannelID,
		GuildID:      m.GuildID,
		AuthorID:     m.Author.ID,
		AuthorName:   m.Author.Username,
		AuthorBot:    m.Author.Bot,
		Content:      m.Content,
		MentionRoles: m.MentionRoles,
	}

	for _, att := range m.Attachments {
		if att == nil {
			continue
		}
		evt.Attachments = append(evt.Attachments, domain.Attachment{
			URL:         att.URL,
			ProxyURL:    att.ProxyURL,
			Filename:    att.Filename,
			ContentType: att.ContentType,
		})
	}

	for _, emb := range m.Embeds {
		if emb == nil {
			continue
		}
		evt.Embeds = append(evt.Embeds, mapEmbed(emb))
	}

	return evt
}

func mapEmbed(emb *discordgo.MessageEmbed) domain.Embed {
	out := domain.Embed{
		Kind:        mapEmbedKind(emb.Type),
		URL:         emb.URL,
		Title:       emb.Title,
		Description: emb.Description,
	}
	if emb.Image != nil {
		out.ImageURL = emb.Image.URL
	}
	if emb.Thumbnail != nil {
		out.ThumbnailURL = emb.Thumbnail.URL
	}
	if emb.Video != nil {
		out.VideoURL = emb.Video.URL
	}
	if emb.Provider != nil {
		out.ProviderName = emb.Provider.Name
	}
	if emb.Author != nil {
		out.AuthorName = emb.Author.Name
	}
	if emb.Footer != nil {
		out.FooterText = emb.Footer.Text
	}
	if len(emb.Fields) > 0 {
		fields := make([]any, 0, len(emb.Fields))
		for _, f := range emb.Fields {
			if f == nil {
				continue
			}
			fields = append(fields, map[string]any{"name": f.Name, "value": f.Value})
		}
		out.RawFields = map[string]any{"fields": fields}
	}
	return out
}

func mapEmbedKind(t discordgo.EmbedType) domain.EmbedKind {
	switch t {
	case discordgo.EmbedTypeImage:
		return domain.EmbedImage
	case discordgo.EmbedTypeGifv:
		return domain.EmbedGifv
	case discordgo.EmbedTypeVideo:
		return domain.EmbedVideo
	case discordgo.EmbedTypeRich:
		return domain.EmbedRich
	default:
		return domain.EmbedOther
	}
}

// splitMessage splits content into chunks that fit within the max length,
// trying to split on newlines when possible.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
