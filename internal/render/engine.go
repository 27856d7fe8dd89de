package render

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/governor"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/translate"
)

// Config tunes translated-text insertion.
type Config struct {
	// TargetLang is the translation output language.
	TargetLang string `json:"target_lang"`
	// FontStep is how much the font size shrinks per auto-fit iteration.
	FontStep float64 `json:"font_step"`
	// MinFontSize is the auto-fit floor. A block that still overflows at
	// the floor is drawn anyway rather than dropped.
	MinFontSize float64 `json:"min_font_size"`
	// TranslateTimeout bounds one translation call.
	TranslateTimeout time.Duration `json:"translate_timeout"`
	// MaxContextChars caps the page-local context passed to the
	// translator.
	MaxContextChars int `json:"max_context_chars"`
}

// DefaultConfig returns the standard render settings.
func DefaultConfig() Config {
	return Config{
		TargetLang:       "Chinese",
		FontStep:         1.0,
		MinFontSize:      6.0,
		TranslateTimeout: 120 * time.Second,
		MaxContextChars:  2000,
	}
}

// Engine translates surviving blocks and draws the results into their
// wipe rectangles.
type Engine struct {
	cfg        Config
	translator translate.Translator
	gov        *governor.Governor
}

// NewEngine creates a render engine. The governor serializes access to
// the shared translation backend.
func NewEngine(cfg Config, tr translate.Translator, gov *governor.Governor) *Engine {
	return &Engine{cfg: cfg, translator: tr, gov: gov}
}

// Render processes each block in order: derive style, translate with
// page-local context, insert with auto-fit. Translation failure for one
// block falls back to re-inserting that block's original text; it never
// leaves a blank region and never fails the page.
func (e *Engine) Render(ctx context.Context, page doc.Page, blocks []*layout.Block) error {
	var pageContext strings.Builder

	for _, b := range blocks {
		if b.Kind.Protected() || b.Skipped || len(b.Spans) == 0 {
			continue
		}

		raw := b.OriginalText()
		original := CollapseSoftWraps(NormalizeSource(raw))
		if original == "" {
			continue
		}
		style := DeriveStyle(b.Spans)

		translated, err := e.translateBlock(ctx, original, pageContext.String())
		text := translated
		if err != nil || strings.TrimSpace(translated) == "" {
			// The original glyphs are already wiped; put the source text
			// back verbatim so the page never shows a hole.
			logger.Warn("translation failed, re-inserting original text",
				logger.Int("page", page.Number()), logger.Err(err))
			text = raw
		}

		if err := e.insertWithFit(page, b, text, style); err != nil {
			return fmt.Errorf("render: page %d: %w", page.Number(), err)
		}

		if text == translated {
			appendContext(&pageContext, translated, e.cfg.MaxContextChars)
		}
	}
	return nil
}

func (e *Engine) translateBlock(ctx context.Context, text, pageContext string) (string, error) {
	var out string
	err := e.gov.Do(ctx, governor.BackendTranslator, e.cfg.TranslateTimeout, func(ctx context.Context) error {
		var err error
		out, err = e.translator.Translate(ctx, translate.Request{
			Text:       text,
			TargetLang: e.cfg.TargetLang,
			Context:    pageContext,
		})
		return err
	})
	return out, err
}

// insertWithFit draws text into the block's wipe rectangle, shrinking the
// font by FontStep until it fits. At the floor size the text is drawn
// force-fit; translated content is never silently dropped.
func (e *Engine) insertWithFit(page doc.Page, b *layout.Block, text string, style doc.TextStyle) error {
	size := style.Size
	if size <= 0 {
		size = 11
	}
	step := e.cfg.FontStep
	if step <= 0 {
		step = 1.0
	}
	for size > e.cfg.MinFontSize {
		style.Size = size
		fit, err := page.InsertTextBox(b.WipeRect, text, style, false)
		if err != nil {
			return err
		}
		if fit {
			return nil
		}
		size -= step
	}

	// One unforced try at the floor, so text that fits exactly there is
	// not misreported as force-fit.
	style.Size = e.cfg.MinFontSize
	fit, err := page.InsertTextBox(b.WipeRect, text, style, false)
	if err != nil {
		return err
	}
	if fit {
		return nil
	}

	logger.Debug("block drawn at floor size",
		logger.Int("page", page.Number()),
		logger.Float64("size", style.Size))
	_, err = page.InsertTextBox(b.WipeRect, text, style, true)
	return err
}

func appendContext(sb *strings.Builder, text string, max int) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(text)
	if max > 0 && sb.Len() > max {
		tail := sb.String()[sb.Len()-max:]
		for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
			tail = tail[1:]
		}
		sb.Reset()
		sb.WriteString(tail)
	}
}
