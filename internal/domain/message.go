package domain

// MessageEvent is the read-only view of an inbound chat message the pipeline
// consumes. It is built by the channel adapter and lives for one scan.
type MessageEvent struct {
	MessageID    string
	ChannelID    string
	GuildID      string
	AuthorID     string
	AuthorName   string
	AuthorBot    bool // automated author
	Content      string
	MentionRoles []string
	Attachments  []Attachment
	Embeds       []Embed
}

// Attachment is an uploaded file on a message. Every field except URL is
// optional; absent fields degrade to "no candidate", never to an error.
type Attachment struct {
	URL         string
	ProxyURL    string
	Filename    string
	ContentType string
	Description string
}

// EmbedKind mirrors the platform's embed type tag.
type EmbedKind string

const (
	EmbedImage EmbedKind = "image"
	EmbedGifv  EmbedKind = "gifv"
	EmbedVideo EmbedKind = "video"
	EmbedRich  EmbedKind = "rich"
	EmbedOther EmbedKind = "other"
)

// Embed is a platform-rendered preview card. All media fields are optional.
// RawFields holds the platform's arbitrary nested key/value payload; the
// extractor flattens it into metadata text without assuming a shape.
type Embed struct {
	Kind         EmbedKind
	URL          string
	ImageURL     string
	ThumbnailURL string
	VideoURL     string
	Title        string
	Description  string
	ProviderName string
	AuthorName   string
	FooterText   string
	RawFields    map[string]any
}

// MediaType classifies a candidate URL's payload.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaImage
	MediaVideo
)

func (t MediaType) String() string {
	switch t {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// MediaCandidate is one piece of message media eligible for classification.
// MetadataText carries the candidate's associated text in extraction order;
// entries may be empty.
type MediaCandidate struct {
	URL          string
	MediaType    MediaType
	MetadataText []string
}

// ClassificationSource records which check decided a candidate.
type ClassificationSource int

const (
	SourceSkipped ClassificationSource = iota
	SourceMetadata
	SourceVision
)

func (s ClassificationSource) String() string {
	switch s {
	case SourceMetadata:
		return "metadata"
	case SourceVision:
		return "vision"
	default:
		return "skipped"
	}
}

// ClassificationOutcome is the per-candidate verdict.
type ClassificationOutcome struct {
	Positive bool
	Source   ClassificationSource
}

// ModerationResult reports which moderation steps completed. Used for logging
// and telemetry only; never persisted.
type ModerationResult struct {
	Deleted  bool
	Notified bool
}
