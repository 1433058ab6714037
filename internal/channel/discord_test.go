package channel

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"hamsterguard/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func TestMapRESTError(t *testing.T) {
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if err := mapRESTError(forbidden); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("403: expected ErrForbidden, got %v", err)
	}

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if err := mapRESTError(notFound); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("404: expected ErrNotFound, got %v", err)
	}

	server := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusInternalServerError}}
	if err := mapRESTError(server); errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("500: must stay opaque, got %v", err)
	}

	plain := errors.New("connection reset")
	if err := mapRESTError(plain); !errors.Is(err, plain) {
		t.Errorf("non-REST error must pass through, got %v", err)
	}

	if err := mapRESTError(nil); err != nil {
		t.Errorf("nil: got %v", err)
	}
}

func TestMapMessage(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:           "m1",
		ChannelID:    "c1",
		GuildID:      "g1",
		Content:      "hello",
		MentionRoles: []string{"r1"},
		Author:       &discordgo.User{ID: "u1", Username: "alice", Bot: true},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn/a.png", ProxyURL: "https://proxy/a.png", Filename: "a.png", ContentType: "image/png"},
			nil,
		},
		Embeds: []*discordgo.MessageEmbed{
			{
				Type:        discordgo.EmbedTypeGifv,
				URL:         "https://tenor/page",
				Title:       "t",
				Description: "d",
				Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "https://tenor/thumb.png"},
				Video:       &discordgo.MessageEmbedVideo{URL: "https://tenor/v.mp4"},
				Provider:    &discordgo.MessageEmbedProvider{Name: "Tenor"},
				Author:      &discordgo.MessageEmbedAuthor{Name: "someone"},
				Footer:      &discordgo.MessageEmbedFooter{Text: "foot"},
				Fields: []*discordgo.MessageEmbedField{
					{Name: "k", Value: "v"},
				},
			},
		},
	}}

	evt := mapMessage(m)
	if evt.MessageID != "m1" || evt.ChannelID != "c1" || evt.GuildID != "g1" {
		t.Errorf("identity fields: %+v", evt)
	}
	if evt.AuthorID != "u1" || evt.AuthorName != "alice" || !evt.AuthorBot {
		t.Errorf("author fields: %+v", evt)
	}
	if len(evt.Attachments) != 1 {
		t.Fatalf("attachments: %+v", evt.Attachments)
	}
	if evt.Attachments[0].ContentType != "image/png" || evt.Attachments[0].ProxyURL != "https://proxy/a.png" {
		t.Errorf("attachment mapping: %+v", evt.Attachments[0])
	}
	if len(evt.Embeds) != 1 {
		t.Fatalf("embeds: %+v", evt.Embeds)
	}
	emb := evt.Embeds[0]
	if emb.Kind != domain.EmbedGifv {
		t.Errorf("embed kind: %s", emb.Kind)
	}
	if emb.ThumbnailURL != "https://tenor/thumb.png" || emb.VideoURL != "https://tenor/v.mp4" {
		t.Errorf("embed media: %+v", emb)
	}
	if emb.ProviderName != "Tenor" || emb.AuthorName != "someone" || emb.FooterText != "foot" {
		t.Errorf("embed text: %+v", emb)
	}
	if emb.RawFields == nil {
		t.Fatal("raw fields missing")
	}
}

func TestMapEmbedKind(t *testing.T) {
	tests := []struct {
		in   discordgo.EmbedType
		want domain.EmbedKind
	}{
		{discordgo.EmbedTypeImage, domain.EmbedImage},
		{discordgo.EmbedTypeGifv, domain.EmbedGifv},
		{discordgo.EmbedTypeVideo, domain.EmbedVideo},
		{discordgo.EmbedTypeRich, domain.EmbedRich},
		{discordgo.EmbedTypeArticle, domain.EmbedOther},
		{discordgo.EmbedTypeLink, domain.EmbedOther},
	}
	for _, tt := range tests {
		if got := mapEmbedKind(tt.in); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 2000); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message: %v", got)
	}

	long := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1500)
	chunks := splitMessage(long, 2000)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 2000 {
			t.Errorf("chunk %d exceeds limit: %d", i, len(c))
		}
	}
	if strings.Join(chunks, "") != long {
		t.Error("chunks must reassemble to the original")
	}
}
