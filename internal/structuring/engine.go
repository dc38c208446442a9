// Package structuring applies the extraction prompt to the language model and
// turns its answer into a StructuredRecord. Structure always yields a
// renderable record.
package structuring

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/fallback"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
)

// Generator invokes the language model with a complete prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the tagged outcome of Structure. Record is never nil.
type Result struct {
	Record   *models.StructuredRecord
	Fallback bool
	Reason   error
}

// Engine runs the structuring step.
type Engine struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a single model invocation. Zero leaves the deadline to
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an Engine using generator.
func NewEngine(generator Generator, opts ...Option) *Engine {
	e := &Engine{generator: generator, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Structure fills tmpl with rawText, calls the model and parses the answer.
// Any failure, including a panic in the generator, yields the fallback record.
func (e *Engine) Structure(ctx context.Context, jobID, rawText string, tmpl prompt.Template) Result {
	logCtx := e.logger.With("jobId", jobID, "stage", "structure")
	fullPrompt := tmpl.Fill(rawText)

	chain := fallback.New("fallback-record", models.FallbackRecord,
		fallback.Strategy[*models.StructuredRecord]{
			Name: "model",
			Run: func(ctx context.Context) (*models.StructuredRecord, error) {
				if e.timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, e.timeout)
					defer cancel()
				}
				text, err := e.generator.Generate(ctx, fullPrompt)
				if err != nil {
					return nil, err
				}
				return ParseRecord(text)
			},
		},
	)

	out := chain.Run(ctx)
	if out.Degraded() {
		logCtx.Warn("Structuring failed, using fallback record.", "error", out.Err(), "promptChars", len(fullPrompt))
		return Result{Record: out.Value, Fallback: true, Reason: out.Err()}
	}
	logCtx.Info("Structured record from model.",
		"sections", len(out.Value.UnderwritingSections),
		"redFlags", len(out.Value.Summary.RedFlags),
	)
	return Result{Record: out.Value}
}
