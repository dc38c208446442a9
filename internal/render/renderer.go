// Package render turns a StructuredRecord into the underwriting summary
// document. Rendering degrades from the Word document to a formatted workbook,
// then to plain text and finally to a raw JSON dump, so some document is
// always produced.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/fallback"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// Backend produces one document format.
type Backend interface {
	Name() string
	Ext() string
	ContentType() string
	Render(rec *models.StructuredRecord) ([]byte, error)
}

// Raw backend identity, used for the terminal fallback.
const (
	RawName        = "raw"
	RawExt         = "txt"
	RawContentType = "text/plain; charset=utf-8"
)

// Document is a rendered summary. Fallback is set when anything other than
// the first backend produced it.
type Document struct {
	Bytes       []byte
	Ext         string
	ContentType string
	Backend     string
	Fallback    bool
	Failures    []fallback.Failure
	// Path is set by RenderFile to the file actually written.
	Path string
}

// Renderer tries its backends in order.
type Renderer struct {
	backends []Backend
	logger   *slog.Logger
}

// DefaultBackends is the Word document, then the workbook, then plain text.
func DefaultBackends() []Backend {
	return []Backend{DOCXBackend{}, XLSXBackend{}, TextBackend{}}
}

// NewRenderer returns a renderer over backends, or DefaultBackends when none
// are given.
func NewRenderer(logger *slog.Logger, backends ...Backend) *Renderer {
	if len(backends) == 0 {
		backends = DefaultBackends()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{backends: backends, logger: logger}
}

// Render never fails. A nil record renders as the fallback record.
func (r *Renderer) Render(jobID string, rec *models.StructuredRecord) Document {
	if rec == nil {
		rec = models.FallbackRecord()
	}
	logCtx := r.logger.With("jobId", jobID, "stage", "render")

	strategies := make([]fallback.Strategy[Document], 0, len(r.backends))
	for _, b := range r.backends {
		b := b
		strategies = append(strategies, fallback.Strategy[Document]{
			Name: b.Name(),
			Run: func(context.Context) (Document, error) {
				out, err := b.Render(rec)
				if err != nil {
					return Document{}, err
				}
				return Document{Bytes: out, Ext: b.Ext(), ContentType: b.ContentType(), Backend: b.Name()}, nil
			},
		})
	}
	raw := func() Document {
		return Document{Bytes: rawDocument(rec), Ext: RawExt, ContentType: RawContentType, Backend: RawName}
	}

	out := fallback.New(RawName, raw, strategies...).Run(context.Background())
	doc := out.Value
	doc.Fallback = out.Degraded()
	doc.Failures = out.Failures
	for _, f := range out.Failures {
		logCtx.Warn("Render backend failed, falling back.", "backend", f.Strategy, "error", f.Err)
	}
	logCtx.Info("Rendered summary document.", "backend", doc.Backend, "bytes", len(doc.Bytes))
	return doc
}

// RenderFile renders rec and writes it to path, with the extension replaced
// by the producing backend's. If the rendered document cannot be written, the
// raw JSON document is written instead; an error is returned only when no file
// could be written at all.
func (r *Renderer) RenderFile(jobID string, rec *models.StructuredRecord, path string) (Document, error) {
	doc := r.Render(jobID, rec)
	doc.Path = withExt(path, doc.Ext)
	err := os.WriteFile(doc.Path, doc.Bytes, 0o644)
	if err == nil {
		return doc, nil
	}
	r.logger.Error("Failed to write rendered document, writing raw fallback.", "jobId", jobID, "path", doc.Path, "error", err)

	if rec == nil {
		rec = models.FallbackRecord()
	}
	raw := Document{
		Bytes: rawDocument(rec), Ext: RawExt, ContentType: RawContentType, Backend: RawName, Fallback: true,
		Failures: append(doc.Failures, fallback.Failure{Strategy: doc.Backend, Err: err}),
		Path:     withExt(path, RawExt),
	}
	if werr := os.WriteFile(raw.Path, raw.Bytes, 0o644); werr != nil {
		return raw, fmt.Errorf("failed to write summary document %s: %w", raw.Path, werr)
	}
	return raw, nil
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}
