// Package ocr models text recognition as an ordered list of strategies that
// are attempted in turn until one produces text. Strategies stay
// transport-agnostic: one may call a remote vision model, another a local
// engine, without callers knowing the difference.
package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrUnavailable signals a strategy cannot run in this deployment (missing
// credential, engine not installed) and the next strategy should be tried.
var ErrUnavailable = errors.New("ocr strategy unavailable")

// Image is a bitmap handed to OCR strategies.
type Image struct {
	Data     []byte
	MIMEType string
	// Context describes the image origin for prompts and logs, e.g. "page 1 of 3".
	Context string
	// APIKey optionally overrides the configured credential for remote strategies.
	APIKey string
}

// Strategy attempts to extract text from a bitmap.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, img Image) (string, error)
}

// Result is the outcome of running a chain over one image.
type Result struct {
	Text   string
	Method string
}

// Ok reports whether any strategy produced text.
func (r Result) Ok() bool {
	return r.Method != "" && strings.TrimSpace(r.Text) != ""
}

// Chain runs strategies in order until one returns non-empty text.
type Chain struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// NewChain constructs a chain over the given strategies.
func NewChain(logger zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{
		strategies: strategies,
		logger:     logger.With().Str("component", "ocr_chain").Logger(),
	}
}

// Run attempts each strategy in turn. A zero-valued Result means every
// strategy failed or was unavailable.
func (c *Chain) Run(ctx context.Context, img Image) Result {
	for _, strategy := range c.strategies {
		text, err := strategy.Attempt(ctx, img)
		if err != nil {
			event := c.logger.Warn()
			if errors.Is(err, ErrUnavailable) {
				event = c.logger.Debug()
			}
			event.Err(err).Str("strategy", strategy.Name()).Str("context", img.Context).Msg("ocr strategy failed")
			continue
		}

		if strings.TrimSpace(text) == "" {
			c.logger.Debug().Str("strategy", strategy.Name()).Str("context", img.Context).Msg("ocr strategy returned no text")
			continue
		}

		return Result{Text: strings.TrimSpace(text), Method: strategy.Name()}
	}

	return Result{}
}
