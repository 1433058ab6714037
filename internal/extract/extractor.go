// Package extract turns a raw message event into an ordered, deduplicated
// sequence of media candidates. Extraction is pure: no I/O, no failures;
// malformed or absent fields degrade to "no candidate".
package extract

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"hamsterguard/internal/domain"
)

// Extractor infers media types from the injected extension sets and walks a
// message's attachments and embeds in order.
type Extractor struct {
	imageExts map[string]bool
	videoExts map[string]bool
}

// New builds an Extractor over the given extension sets (lower-case, with
// leading dot, e.g. ".png").
func New(imageExts, videoExts []string) *Extractor {
	e := &Extractor{
		imageExts: make(map[string]bool, len(imageExts)),
		videoExts: make(map[string]bool, len(videoExts)),
	}
	for _, ext := range imageExts {
		e.imageExts[strings.ToLower(ext)] = true
	}
	for _, ext := range videoExts {
		e.videoExts[strings.ToLower(ext)] = true
	}
	return e
}

// Extract walks attachments then embeds in message order and returns the
// deduplicated candidate sequence. First occurrence of a URL wins, so an
// attachment shadows an embed sharing its URL.
func (e *Extractor) Extract(msg domain.MessageEvent) []domain.MediaCandidate {
	var out []domain.MediaCandidate
	seen := make(map[string]bool)

	add := func(c domain.MediaCandidate) {
		if c.URL == "" || seen[c.URL] {
			return
		}
		seen[c.URL] = true
		out = append(out, c)
	}

	for _, att := range msg.Attachments {
		mt := e.inferAttachmentType(att)
		if mt == domain.MediaUnknown {
			continue
		}
		add(domain.MediaCandidate{
			URL:       att.URL,
			MediaType: mt,
			MetadataText: []string{
				msg.Content,
				att.Filename,
				att.Description,
				att.ProxyURL,
				att.ContentType,
			},
		})
	}

	for _, emb := range msg.Embeds {
		switch emb.Kind {
		case domain.EmbedImage, domain.EmbedGifv, domain.EmbedVideo, domain.EmbedRich:
		default:
			continue
		}

		chosen, mt := e.pickEmbedMedia(emb)
		if chosen == "" {
			continue
		}
		add(domain.MediaCandidate{
			URL:       chosen,
			MediaType: mt,
			MetadataText: []string{
				msg.Content,
				emb.Title,
				emb.Description,
				emb.URL,
				string(emb.Kind),
				emb.ProviderName,
				emb.AuthorName,
				emb.FooterText,
				strings.Join(FlattenFields(emb.RawFields), " "),
			},
		})
	}

	return out
}

// pickEmbedMedia selects exactly one URL by priority (image, thumbnail,
// video, embed URL) and derives the media type from the winning field.
func (e *Extractor) pickEmbedMedia(emb domain.Embed) (string, domain.MediaType) {
	var chosen string
	fromVideo, fromImage := false, false

	switch {
	case emb.ImageURL != "":
		chosen, fromImage = emb.ImageURL, true
	case emb.ThumbnailURL != "":
		chosen, fromImage = emb.ThumbnailURL, true
	case emb.VideoURL != "":
		chosen, fromVideo = emb.VideoURL, true
	case emb.URL != "":
		chosen = emb.URL
	default:
		return "", domain.MediaUnknown
	}

	switch {
	case fromVideo || emb.Kind == domain.EmbedGifv:
		return chosen, domain.MediaVideo
	case fromImage:
		return chosen, domain.MediaImage
	default:
		return chosen, e.inferFromURL(chosen)
	}
}

// inferAttachmentType prefers the declared content type. A video/* content
// type always wins, so a playable video URL never ends up in an image-only
// classification request on the strength of its extension.
func (e *Extractor) inferAttachmentType(att domain.Attachment) domain.MediaType {
	ct := strings.ToLower(att.ContentType)
	switch {
	case strings.HasPrefix(ct, "video/"):
		return domain.MediaVideo
	case strings.HasPrefix(ct, "image/"):
		return domain.MediaImage
	}
	return e.inferFromURL(att.URL)
}

// inferFromURL guesses a media type from the URL path's extension, ignoring
// any query string.
func (e *Extractor) inferFromURL(raw string) domain.MediaType {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}

	ext := strings.ToLower(path.Ext(p))
	switch {
	case e.imageExts[ext]:
		return domain.MediaImage
	case e.videoExts[ext]:
		return domain.MediaVideo
	}
	return domain.MediaUnknown
}

// FlattenFields walks an arbitrary nested raw-field payload and collects its
// string leaves in a deterministic order: mapping values by sorted key, list
// elements in order. Non-string scalars carry no text and are skipped. Input
// is assumed acyclic (platform payloads are bounded in depth).
func FlattenFields(fields map[string]any) []string {
	var out []string
	flattenValue(fields, &out)
	return out
}

func flattenValue(v any, out *[]string) {
	switch val := v.(type) {
	case string:
		if val != "" {
			*out = append(*out, val)
		}
	case []any:
		for _, item := range val {
			flattenValue(item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(val[k], out)
		}
	}
}
