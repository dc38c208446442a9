// Package ocr turns paginated OCR results into the raw text blob fed to the
// structuring model, and stores those results for the page recognizer.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

var (
	// ErrRepeatedToken is returned when a source hands back a continuation
	// token it already returned, which would otherwise loop forever.
	ErrRepeatedToken = errors.New("ocr: continuation token repeated")
	// ErrTokenOutOfJob is returned for a token that does not belong to the job.
	ErrTokenOutOfJob = errors.New("ocr: continuation token does not belong to job")
)

// PageSource fetches one page of results for a completed OCR job. An empty
// token requests the first page.
type PageSource interface {
	Page(ctx context.Context, jobID, token string) (*models.ResultPage, error)
}

// Extractor concatenates the line-level text of every result page.
type Extractor struct {
	source PageSource
	logger *slog.Logger
}

// NewExtractor returns an Extractor reading from source.
func NewExtractor(source PageSource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{source: source, logger: logger}
}

// Extract fetches every page in order and returns the LINE block texts joined
// by newlines. Retrieval errors are returned as-is; there is no retry.
func (e *Extractor) Extract(ctx context.Context, jobID string) (string, error) {
	logCtx := e.logger.With("jobId", jobID, "stage", "extract")

	var lines []string
	seen := make(map[string]struct{})
	token, pages := "", 0
	for {
		page, err := e.source.Page(ctx, jobID, token)
		if err != nil {
			return "", fmt.Errorf("failed to get OCR results page %d for job %s: %w", pages+1, jobID, err)
		}
		pages++
		lines = append(lines, Lines(page)...)

		if page.NextToken == "" {
			break
		}
		if _, dup := seen[page.NextToken]; dup {
			return "", fmt.Errorf("job %s page %d: %w", jobID, pages, ErrRepeatedToken)
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}

	logCtx.Info("Extracted raw text.", "pages", pages, "lines", len(lines))
	return strings.Join(lines, "\n"), nil
}

// Lines returns the text of the LINE blocks of page, in order.
func Lines(page *models.ResultPage) []string {
	if page == nil {
		return nil
	}
	var out []string
	for _, b := range page.Blocks {
		if b.BlockType == models.BlockTypeLine {
			out = append(out, b.Text)
		}
	}
	return out
}
