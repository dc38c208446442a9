// Package prompt resolves the extraction prompt template. Resolution never
// fails: when every configured asset is missing, the built-in template is used.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/fallback"
)

// DefaultObjectKey is where the template lives in the template bucket.
const DefaultObjectKey = "templates/underwriting_prompt.txt"

// DefaultLocalPaths are the bundled template locations, tried in order.
var DefaultLocalPaths = []string{"/opt/templates/underwriting_prompt.txt", "underwriting_prompt.txt"}

// Source names reported in Template.Source.
const (
	SourceBuiltin = "builtin"
)

var (
	// ErrEmptyTemplate is returned for a template asset with no content.
	ErrEmptyTemplate = errors.New("prompt: template is empty")
	// ErrNoPlaceholder is returned for a template lacking the placeholder.
	ErrNoPlaceholder = errors.New("prompt: template has no placeholder")
)

// Template is a resolved prompt template.
type Template struct {
	Text string
	// Source names the tier the template came from, e.g. "file:/opt/...",
	// "object:gs://..." or "builtin".
	Source string
}

// Fill substitutes rawText for every placeholder occurrence.
func (t Template) Fill(rawText string) string {
	return strings.ReplaceAll(t.Text, Placeholder, rawText)
}

// Builtin returns the hard-coded template.
func Builtin() Template {
	return Template{Text: BuiltinTemplate, Source: SourceBuiltin}
}

// ResolverConfig locates the template assets.
type ResolverConfig struct {
	LocalPaths []string
	ObjectKey  string
}

// Resolver walks the template tiers.
type Resolver struct {
	store  blob.Store
	config ResolverConfig
	logger *slog.Logger
}

// NewResolver returns a resolver. store may be nil, which skips the object
// store tier.
func NewResolver(store blob.Store, config ResolverConfig, logger *slog.Logger) *Resolver {
	if config.LocalPaths == nil {
		config.LocalPaths = DefaultLocalPaths
	}
	if config.ObjectKey == "" {
		config.ObjectKey = DefaultObjectKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, config: config, logger: logger}
}

// Resolve returns the first usable template: local files, then the object
// store, then the built-in template.
func (r *Resolver) Resolve(ctx context.Context) Template {
	var strategies []fallback.Strategy[Template]
	for _, p := range r.config.LocalPaths {
		p := p
		strategies = append(strategies, fallback.Strategy[Template]{
			Name: "file:" + p,
			Run: func(context.Context) (Template, error) {
				b, err := os.ReadFile(p)
				if err != nil {
					return Template{}, err
				}
				return validate(string(b), "file:"+p)
			},
		})
	}
	if r.store != nil {
		uri := r.store.URI(r.config.ObjectKey)
		strategies = append(strategies, fallback.Strategy[Template]{
			Name: "object:" + uri,
			Run: func(ctx context.Context) (Template, error) {
				b, err := r.store.Read(ctx, r.config.ObjectKey)
				if err != nil {
					return Template{}, err
				}
				return validate(string(b), "object:"+uri)
			},
		})
	}

	out := fallback.New(SourceBuiltin, Builtin, strategies...).Run(ctx)
	for _, f := range out.Failures {
		r.logger.Debug("Template tier unavailable.", "tier", f.Strategy, "error", f.Err)
	}
	if out.Strategy == SourceBuiltin {
		r.logger.Warn("No template asset found, using built-in template.", "stage", "template", "error", out.Err())
	} else {
		r.logger.Info("Resolved prompt template.", "stage", "template", "source", out.Strategy)
	}
	return out.Value
}

func validate(text, source string) (Template, error) {
	if strings.TrimSpace(text) == "" {
		return Template{}, ErrEmptyTemplate
	}
	if !strings.Contains(text, Placeholder) {
		return Template{}, fmt.Errorf("%s: %w", source, ErrNoPlaceholder)
	}
	return Template{Text: text, Source: source}, nil
}
