package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/textextract"
	"github.com/sells-group/profile-cli/pkg/anthropic"
)

// File is an uploaded document.
type File struct {
	Name string
	Data []byte
}

// Extractor turns a document into a partial profile.
type Extractor interface {
	Extract(ctx context.Context, file File) (model.ExtractionResult, error)
}

// Config tunes the document extractor.
type Config struct {
	Model     string
	MaxTokens int64
	// MaxChars caps the document text sent to the provider.
	MaxChars int
}

// DocumentExtractor runs text extraction, then the Anthropic call, then
// JSON decoding and summarizing.
type DocumentExtractor struct {
	text textextract.Extractor
	ai   anthropic.Client
	cfg  Config
}

// NewExtractor creates a DocumentExtractor. A nil ai client makes every
// extraction fail with no_api_key.
func NewExtractor(text textextract.Extractor, ai anthropic.Client, cfg Config) *DocumentExtractor {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 100_000
	}
	return &DocumentExtractor{text: text, ai: ai, cfg: cfg}
}

// Extract implements Extractor.
func (e *DocumentExtractor) Extract(ctx context.Context, file File) (model.ExtractionResult, error) {
	log := zap.L().With(zap.String("file", file.Name))

	if !e.text.Supported(file.Name) {
		return model.ExtractionResult{}, coded(model.ErrUnsupportedFileType,
			eris.Errorf("extraction: unsupported file type %q", textextract.Ext(file.Name)))
	}

	text, err := e.text.Extract(ctx, file.Name, file.Data)
	if err != nil {
		return model.ExtractionResult{}, coded(model.ErrParse, eris.Wrap(err, "extraction: read document"))
	}
	if text == "" {
		return model.ExtractionResult{}, coded(model.ErrParse, eris.New("extraction: document contains no text"))
	}
	if len(text) > e.cfg.MaxChars {
		log.Info("extraction: truncating document text", zap.Int("chars", len(text)), zap.Int("max_chars", e.cfg.MaxChars))
		text = truncate(text, e.cfg.MaxChars)
	}

	if e.ai == nil {
		return model.ExtractionResult{}, coded(model.ErrNoAPIKey, eris.New("extraction: anthropic api key not configured"))
	}

	temp := 0.0
	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: "Document: " + file.Name + "\n\n" + text}},
		Temperature: &temp,
	})
	if err != nil {
		return model.ExtractionResult{}, coded(classifyAPIError(err), eris.Wrap(err, "extraction: provider call"))
	}
	resp.Usage.LogCost(e.cfg.Model, "extraction")

	extracted, err := parseProfile(resp.Text())
	if err != nil {
		return model.ExtractionResult{}, coded(model.ErrParse, err)
	}

	return model.ExtractionResult{
		Extracted: extracted,
		Summary:   Summarize(extracted),
		FileName:  file.Name,
	}, nil
}

func classifyAPIError(err error) model.ErrorCode {
	switch status := anthropic.StatusCode(err); {
	case status == http.StatusTooManyRequests || status == 529:
		return model.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.ErrNoAPIKey
	case status == 0 && !resilience.IsTransient(err) && !resilience.IsTimeout(err):
		return model.ErrProvider
	default:
		return model.ErrNetwork
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parseProfile decodes a provider reply into a normalized profile.
func parseProfile(reply string) (model.Profile, error) {
	cleaned := cleanJSON(reply)
	if cleaned == "" {
		return model.Profile{}, eris.New("extraction: empty provider reply")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return model.Profile{}, eris.Wrap(err, "extraction: reply is not a JSON object")
	}
	p, err := profile.FromMap(raw)
	if err != nil {
		return model.Profile{}, eris.Wrap(err, "extraction: reply does not match profile schema")
	}
	return p, nil
}

// cleanJSON strips markdown fences and surrounding prose from a reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
