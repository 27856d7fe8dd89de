// Package translate provides the text translation service used by the
// render stage. The production implementation drives an OpenAI-compatible
// chat model; the pipeline only sees the Translator interface and treats
// every call as slow and fallible.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"pdf-layout-translator/internal/logger"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o"
	// DefaultTimeout bounds a single translation call.
	DefaultTimeout = 120 * time.Second
	// MaxRetries is the number of attempts for retryable errors.
	MaxRetries = 3
	// BaseRetryDelay is the delay before the first retry; it grows
	// linearly with the attempt number.
	BaseRetryDelay = 2 * time.Second
)

// Request is one block's translation unit.
type Request struct {
	// Text is the source text, whitespace already normalized.
	Text string
	// TargetLang names the output language, e.g. "Chinese".
	TargetLang string
	// Context carries the page's previously translated blocks so
	// terminology stays consistent within a page.
	Context string
}

// Translator turns source text into target-language text. Implementations
// must honor ctx cancellation and deadlines.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// Config configures the chat-model translator.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ErrNoAPIKey is returned when the translator is constructed without
// credentials.
var ErrNoAPIKey = errors.New("translate: API key is not configured")

// chatTranslator implements Translator over an OpenAI-compatible endpoint.
type chatTranslator struct {
	cm    *openai.ChatModel
	model string
}

// New creates a chat-model translator.
func New(ctx context.Context, cfg Config) (Translator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("translate: create chat model: %w", err)
	}
	return &chatTranslator{cm: cm, model: cfg.Model}, nil
}

const systemPrompt = `You are a professional translator for academic and technical documents.
Translate the user's text into the requested language.

Rules:
- Output ONLY the translated text. No explanations, no labels, no quotes.
- Preserve paragraph breaks (blank lines) exactly.
- Keep numbers, identifiers, and inline formulas unchanged.
- Use punctuation conventions of the target language.`

func buildUserPrompt(req Request) string {
	var sb strings.Builder
	if req.Context != "" {
		sb.WriteString("Earlier text on the same page, for terminology consistency (do NOT translate it again):\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Translate the following text into %s:\n\n%s", req.TargetLang, req.Text)
	return sb.String()
}

// Translate performs the chat call with retry on transient failures.
func (t *chatTranslator) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(req)),
	}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		resp, err := t.cm.Generate(ctx, messages)
		if err == nil {
			out := CleanResponse(resp.Content)
			logger.Debug("translation succeeded",
				logger.String("model", t.model),
				logger.Int("sourceChars", len(req.Text)),
				logger.Int("resultChars", len(out)))
			return out, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			logger.Error("non-retryable translation error", err)
			return "", err
		}
		logger.Warn("translation attempt failed",
			logger.Int("attempt", attempt), logger.Err(err))

		if attempt < MaxRetries {
			delay := BaseRetryDelay * time.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("translate: failed after %d attempts: %w", MaxRetries, lastErr)
}

// isRetryable classifies transient API failures: network errors, rate
// limits, and server-side errors. Client errors (bad request, auth) are
// permanent.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return true
	case strings.Contains(msg, "connection"), strings.Contains(msg, "eof"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	}
	return false
}
