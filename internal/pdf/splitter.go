// Package pdf prepares uploaded PDFs for page recognition with pdfcpu.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Splitter validates and optimizes a PDF, then splits it into single-page
// PDFs. pdfcpu works on files, so each call uses its own temp directory.
type Splitter struct {
	// TempDir is the parent of the working directories; empty means os.TempDir.
	TempDir string
}

// Split returns the pages of data in order, each as a standalone PDF.
func (s Splitter) Split(ctx context.Context, data []byte) ([][]byte, error) {
	workDir, err := os.MkdirTemp(s.TempDir, "pdf-split-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	source := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(source, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage source PDF: %w", err)
	}
	optimized := filepath.Join(workDir, "optimized.pdf")
	if err := optimizePDF(source, optimized); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, nil
	}
	if pageCount == 1 {
		b, err := os.ReadFile(optimized)
		if err != nil {
			return nil, fmt.Errorf("failed to read page 1: %w", err)
		}
		return [][]byte{b}, nil
	}

	if err := api.SplitFile(optimized, workDir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}
	base := strings.TrimSuffix(optimized, filepath.Ext(optimized))
	pages := make([][]byte, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", base, i))
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, b)
	}
	return pages, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
