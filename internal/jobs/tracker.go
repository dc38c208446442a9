// Package jobs is the OCR job registry: job status, the pipeline stage
// reached, and the job -> source document mapping.
package jobs

import (
	"context"
	"errors"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// ErrNotFound is returned when no job matches.
var ErrNotFound = errors.New("jobs: job not found")

// Pipeline stages, in order.
const (
	StageJobReceived       = "JobReceived"
	StageTextExtracted     = "TextExtracted"
	StageRecordStructured  = "RecordStructured"
	StageRecordPersisted   = "RecordPersisted"
	StageDocumentRendered  = "DocumentRendered"
	StageDocumentPersisted = "DocumentPersisted"
	StageSourceRelocated   = "SourceRelocated"
	StageComplete          = "Complete"
)

// Tracker persists job records.
type Tracker interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, jobID string) (*models.Job, error)
	FindByHash(ctx context.Context, fileHash string) (*models.Job, error)
	SetStatus(ctx context.Context, jobID, status, errDetails string) error
	SetStage(ctx context.Context, jobID, stage string) error
	AddDegraded(ctx context.Context, jobID string, reasons ...string) error
}

// Nop is a Tracker that remembers nothing.
type Nop struct{}

func (Nop) Create(context.Context, *models.Job) error { return nil }
func (Nop) Get(context.Context, string) (*models.Job, error) {
	return nil, ErrNotFound
}
func (Nop) FindByHash(context.Context, string) (*models.Job, error) {
	return nil, ErrNotFound
}
func (Nop) SetStatus(context.Context, string, string, string) error { return nil }
func (Nop) SetStage(context.Context, string, string) error          { return nil }
func (Nop) AddDegraded(context.Context, string, ...string) error    { return nil }
