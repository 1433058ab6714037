package classify

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Ruleset bundles the immutable detection constants: keyword and token sets
// for the metadata fast path, extension sets for media type inference, the
// vision instruction, and the notice wording. A ruleset is built once at
// startup and injected; it is never mutated afterwards.
type Ruleset struct {
	// Keywords match as substrings of the lower-cased metadata blob. This is
	// deliberately permissive and may fire on longer words containing a
	// keyword; tightening it would change detection recall.
	Keywords []string `yaml:"keywords"`

	// MisspellingTokens match only as whole tokens after non-alphanumeric
	// runs are collapsed to spaces.
	MisspellingTokens []string `yaml:"misspellingTokens"`

	ImageExtensions []string `yaml:"imageExtensions"`
	VideoExtensions []string `yaml:"videoExtensions"`

	// VisionPrompt is the fixed instruction sent with every vision request.
	VisionPrompt string `yaml:"visionPrompt"`

	// NoticeTemplate is the channel notice posted after a deletion; the
	// single %s is the offending author's display name.
	NoticeTemplate string `yaml:"noticeTemplate"`

	// NoticeOverrides replaces the notice wording for specific authors,
	// matched by exact display name.
	NoticeOverrides map[string]string `yaml:"noticeOverrides"`
}

// DefaultRuleset returns the compiled-in detection constants.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Keywords:          []string{"hamster", "hamtaro", "hammy"},
		MisspellingTokens: []string{"hampter"},
		ImageExtensions:   []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"},
		VideoExtensions:   []string{".mp4", ".mov", ".webm", ".mkv", ".avi", ".mpeg", ".mpg"},
		VisionPrompt: "Is there a hamster in this image? Count stylized, cartoon, and " +
			"anthropomorphic hamsters (Hamtaro included), and close-ups of hamster " +
			"features such as stuffed cheek pouches. Answer strictly with one word: YES or NO.",
		NoticeTemplate: "🚨 %s, hamster detected and deleted! 🚨",
		NoticeOverrides: map[string]string{
			// Resident repeat offender gets bespoke wording.
			"Hamtaro": "🚨 Nice try, %s. The hamster is gone. 🚨",
		},
	}
}

// LoadRuleset reads a YAML ruleset file and merges it over the defaults;
// fields left empty in the file keep their default values.
func LoadRuleset(path string, logger *slog.Logger) (*Ruleset, error) {
	rs := DefaultRuleset()
	if path == "" {
		return rs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}

	var file Ruleset
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
	}

	if len(file.Keywords) > 0 {
		rs.Keywords = file.Keywords
	}
	if len(file.MisspellingTokens) > 0 {
		rs.MisspellingTokens = file.MisspellingTokens
	}
	if len(file.ImageExtensions) > 0 {
		rs.ImageExtensions = file.ImageExtensions
	}
	if len(file.VideoExtensions) > 0 {
		rs.VideoExtensions = file.VideoExtensions
	}
	if file.VisionPrompt != "" {
		rs.VisionPrompt = file.VisionPrompt
	}
	if file.NoticeTemplate != "" {
		rs.NoticeTemplate = file.NoticeTemplate
	}
	if len(file.NoticeOverrides) > 0 {
		rs.NoticeOverrides = file.NoticeOverrides
	}

	logger.Info("loaded detection ruleset", "path", path,
		"keywords", len(rs.Keywords), "overrides", len(rs.NoticeOverrides))
	return rs, nil
}
