package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// ShardKey is the object key of the n-th (1-based) result page of a job.
func ShardKey(prefix, jobID string, n int) string {
	return path.Join(prefix, jobID, fmt.Sprintf("%05d.json", n))
}

// BlobPageSource reads result pages stored as one JSON object per page. The
// continuation token of a page is the key of the next page object.
type BlobPageSource struct {
	store  blob.Store
	prefix string
}

// NewBlobPageSource reads shards below prefix in store.
func NewBlobPageSource(store blob.Store, prefix string) *BlobPageSource {
	return &BlobPageSource{store: store, prefix: prefix}
}

// Page implements PageSource.
func (s *BlobPageSource) Page(ctx context.Context, jobID, token string) (*models.ResultPage, error) {
	key := token
	if key == "" {
		key = ShardKey(s.prefix, jobID, 1)
	} else if !strings.HasPrefix(key, path.Join(s.prefix, jobID)+"/") {
		return nil, fmt.Errorf("%q: %w", token, ErrTokenOutOfJob)
	}

	b, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var page models.ResultPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("failed to decode result page %s: %w", s.store.URI(key), err)
	}
	return &page, nil
}

// ShardWriter stores recognized pages in the layout BlobPageSource reads.
type ShardWriter struct {
	store  blob.Store
	prefix string
}

// NewShardWriter writes shards below prefix in store.
func NewShardWriter(store blob.Store, prefix string) *ShardWriter {
	return &ShardWriter{store: store, prefix: prefix}
}

// Write stores the recognized lines of every page, one shard per page,
// chaining each shard to the next through NextToken. pages[i] holds the lines
// of page i+1. A job with no pages still gets one empty shard so the first
// page is always readable.
func (w *ShardWriter) Write(ctx context.Context, jobID string, pages [][]string) error {
	if len(pages) == 0 {
		pages = [][]string{nil}
	}
	for i, lines := range pages {
		n := i + 1
		page := BuildPage(jobID, n, lines)
		if n < len(pages) {
			page.NextToken = ShardKey(w.prefix, jobID, n+1)
		}
		b, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to encode page %d: %w", n, err)
		}
		key := ShardKey(w.prefix, jobID, n)
		if err := w.store.Write(ctx, key, b, blob.WithContentType("application/json"), blob.IfAbsent()); err != nil {
			return fmt.Errorf("failed to save page %d: %w", n, err)
		}
	}
	return nil
}

// BuildPage converts recognized lines into PAGE, LINE and WORD blocks.
func BuildPage(jobID string, pageNumber int, lines []string) *models.ResultPage {
	blocks := []models.Block{{
		ID:        fmt.Sprintf("p%d", pageNumber),
		BlockType: models.BlockTypePage,
		Page:      pageNumber,
	}}
	for li, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, models.Block{
			ID:        fmt.Sprintf("p%d-l%d", pageNumber, li+1),
			BlockType: models.BlockTypeLine,
			Text:      line,
			Page:      pageNumber,
		})
		for wi, word := range strings.Fields(line) {
			blocks = append(blocks, models.Block{
				ID:        fmt.Sprintf("p%d-l%d-w%d", pageNumber, li+1, wi+1),
				BlockType: models.BlockTypeWord,
				Text:      word,
				Page:      pageNumber,
			})
		}
	}
	return &models.ResultPage{
		JobID:     jobID,
		JobStatus: models.JobStatusSucceeded,
		Blocks:    blocks,
	}
}
