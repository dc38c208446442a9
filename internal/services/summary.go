package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/gcp"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/jobs"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/ocr"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/relocate"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/render"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/structuring"
)

// ErrJobNotSucceeded is returned for notices of OCR jobs that did not succeed.
var ErrJobNotSucceeded = errors.New("ocr job did not succeed")

// SuccessMessage is the response body of every successful run.
const SuccessMessage = "Files uploaded successfully!"

// Degradation tags reported in SummaryResponse.Degraded.
const (
	DegradedTemplateBuiltin    = "template:builtin"
	DegradedFallbackRecord     = "structuring:fallback-record"
	DegradedRenderPrefix       = "render:"
	DegradedRelocateFailed     = "relocate:failed"
	DegradedRelocateMostRecent = "relocate:most-recent"
)

// SummaryConfig holds configuration for the underwriting summary service.
type SummaryConfig struct {
	ProjectID       string
	Bucket          string
	Prefix          string
	TemplateBucket  string
	TemplateKey     string
	TemplatePaths   []string
	OCRPrefix       string
	IncomingPrefix  string
	ProcessedPrefix string
	Region          string
	ModelName       string
	CollectionName  string
	ModelTimeout    time.Duration
}

// LoadSummaryConfig reads the service configuration from the environment.
func LoadSummaryConfig() (SummaryConfig, error) {
	config := SummaryConfig{
		ProjectID:       gcp.GetEnv("PROJECT_ID", ""),
		Bucket:          gcp.GetEnv("BUCKET_NAME", ""),
		Prefix:          gcp.GetEnv("PREFIX", "output"),
		TemplateKey:     gcp.GetEnv("TEMPLATE_KEY", prompt.DefaultObjectKey),
		TemplatePaths:   gcp.GetEnvList("TEMPLATE_PATHS", prompt.DefaultLocalPaths),
		OCRPrefix:       gcp.GetEnv("OCR_PREFIX", "ocr"),
		IncomingPrefix:  gcp.GetEnv("INCOMING_PREFIX", relocate.DefaultIncomingPrefix),
		ProcessedPrefix: gcp.GetEnv("PROCESSED_PREFIX", relocate.DefaultProcessedPrefix),
		Region:          gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelName:       gcp.GetEnv("MODEL_NAME", "gemini-1.5-pro"),
		CollectionName:  gcp.GetEnv("FIRESTORE_COLLECTION", jobs.DefaultCollection),
	}
	if config.Bucket == "" {
		return config, fmt.Errorf("BUCKET_NAME environment variable must be set")
	}
	config.TemplateBucket = gcp.GetEnv("TEMPLATE_BUCKET", config.Bucket)
	if raw := gcp.GetEnv("MODEL_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return config, fmt.Errorf("invalid MODEL_TIMEOUT %q: %w", raw, err)
		}
		config.ModelTimeout = d
	}
	return config, nil
}

// SummaryDeps are the collaborators of a SummaryFunction. Tracker and Logger
// are optional.
type SummaryDeps struct {
	Storage   blob.Opener
	Generator structuring.Generator
	Tracker   jobs.Tracker
	Backends  []render.Backend
	Logger    *slog.Logger
}

// SummaryFunction turns a finished OCR job into the structured record and
// the underwriting summary document.
type SummaryFunction struct {
	config    SummaryConfig
	storage   blob.Opener
	outputs   blob.Store
	extractor *ocr.Extractor
	resolver  *prompt.Resolver
	engine    *structuring.Engine
	renderer  *render.Renderer
	relocator *relocate.Relocator
	tracker   jobs.Tracker
	logger    *slog.Logger
	closers   []func() error
}

// NewSummary creates a SummaryFunction wired to Cloud Storage, Vertex AI and
// the Firestore job registry.
func NewSummary(ctx context.Context) (*SummaryFunction, error) {
	config, err := LoadSummaryConfig()
	if err != nil {
		return nil, err
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	gcs, storageClient, err := gcp.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.Region, config.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	f, err := NewSummaryWithDeps(config, SummaryDeps{
		Storage:   gcs,
		Generator: vertexClient,
		Tracker:   jobs.NewFirestoreTracker(firestoreClient, config.CollectionName),
	})
	if err != nil {
		return nil, err
	}
	f.closers = []func() error{vertexClient.Close, firestoreClient.Close, storageClient.Close}
	slog.Info("Underwriting summary logic initialized.", "bucket", config.Bucket, "model", config.ModelName)
	return f, nil
}

// NewSummaryWithDeps builds a SummaryFunction from explicit collaborators.
func NewSummaryWithDeps(config SummaryConfig, deps SummaryDeps) (*SummaryFunction, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("summary: bucket must be set")
	}
	if deps.Storage == nil || deps.Generator == nil {
		return nil, fmt.Errorf("summary: storage and generator are required")
	}
	if config.TemplateBucket == "" {
		config.TemplateBucket = config.Bucket
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = jobs.Nop{}
	}

	outputs := deps.Storage.Bucket(config.Bucket)
	engineOpts := []structuring.Option{structuring.WithLogger(logger)}
	if config.ModelTimeout > 0 {
		engineOpts = append(engineOpts, structuring.WithTimeout(config.ModelTimeout))
	}

	return &SummaryFunction{
		config:    config,
		storage:   deps.Storage,
		outputs:   outputs,
		extractor: ocr.NewExtractor(ocr.NewBlobPageSource(outputs, config.OCRPrefix), logger),
		resolver: prompt.NewResolver(deps.Storage.Bucket(config.TemplateBucket), prompt.ResolverConfig{
			LocalPaths: config.TemplatePaths,
			ObjectKey:  config.TemplateKey,
		}, logger),
		engine:   structuring.NewEngine(deps.Generator, engineOpts...),
		renderer: render.NewRenderer(logger, deps.Backends...),
		relocator: relocate.NewRelocator(relocate.Config{
			IncomingPrefix:  config.IncomingPrefix,
			ProcessedPrefix: config.ProcessedPrefix,
		}, logger),
		tracker: tracker,
		logger:  logger,
	}, nil
}

// RecordKey is the object key of the persisted structured record.
func (f *SummaryFunction) RecordKey(jobID string) string {
	return path.Join(f.config.Prefix, jobID+".json")
}

// DocumentKey is the object key of the rendered summary document.
func (f *SummaryFunction) DocumentKey(jobID, ext string) string {
	return path.Join(f.config.Prefix, fmt.Sprintf("%s_Underwriting_Summary.%s", jobID, ext))
}

// Process runs the pipeline for one completed OCR job. Text extraction is
// terminal, and so is a failed write of the record or the document: either
// aborts the run and marks the job FAILED. Every other stage degrades and is
// reported in the response's Degraded list.
func (f *SummaryFunction) Process(ctx context.Context, notice *models.CompletionNotice) (*models.SummaryResponse, error) {
	if notice == nil || notice.JobID == "" {
		return nil, fmt.Errorf("completion notice is missing a job id")
	}
	jobID := notice.JobID
	logCtx := f.logger.With("jobId", jobID)
	if notice.Status != models.JobStatusSucceeded {
		logCtx.Warn("Ignoring notice for unsuccessful OCR job.", "status", notice.Status)
		return nil, fmt.Errorf("job %s has status %q: %w", jobID, notice.Status, ErrJobNotSucceeded)
	}
	logCtx.Info("Processing completed OCR job.")
	f.stage(ctx, logCtx, jobID, jobs.StageJobReceived)

	// --- 1. Extract text ---
	rawText, err := f.extractor.Extract(ctx, jobID)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to extract text", err)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageTextExtracted)

	var degraded []string

	// --- 2. Structure ---
	tmpl := f.resolver.Resolve(ctx)
	if tmpl.Source == prompt.SourceBuiltin {
		degraded = append(degraded, DegradedTemplateBuiltin)
	}
	result := f.engine.Structure(ctx, jobID, rawText, tmpl)
	if result.Fallback {
		degraded = append(degraded, DegradedFallbackRecord)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageRecordStructured)

	// --- 3. Persist the record before rendering ---
	recordJSON, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to encode structured record", err)
	}
	recordKey := f.RecordKey(jobID)
	if err := f.outputs.Write(ctx, recordKey, recordJSON, blob.WithContentType("application/json")); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to save structured record", err)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageRecordPersisted)

	// --- 4. Render and persist the document ---
	doc := f.renderer.Render(jobID, result.Record)
	if doc.Fallback {
		degraded = append(degraded, DegradedRenderPrefix+doc.Backend)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageDocumentRendered)

	docKey := f.DocumentKey(jobID, doc.Ext)
	if err := f.outputs.Write(ctx, docKey, doc.Bytes, blob.WithContentType(doc.ContentType)); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to save summary document", err)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageDocumentPersisted)

	// --- 5. Relocate the source document ---
	bucket, key := f.sourceOf(ctx, logCtx, notice)
	moved := f.relocator.Relocate(ctx, f.storage.Bucket(bucket), jobID, key)
	switch {
	case !moved.Moved:
		degraded = append(degraded, DegradedRelocateFailed)
	case moved.Guessed:
		degraded = append(degraded, DegradedRelocateMostRecent)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageSourceRelocated)

	// --- 6. Finish ---
	if len(degraded) > 0 {
		if err := f.tracker.AddDegraded(ctx, jobID, degraded...); err != nil {
			logCtx.Warn("Failed to record degradations.", "error", err)
		}
	}
	if err := f.tracker.SetStatus(ctx, jobID, models.JobStatusComplete, ""); err != nil {
		logCtx.Warn("Failed to mark job complete.", "error", err)
	}
	f.stage(ctx, logCtx, jobID, jobs.StageComplete)

	logCtx.Info("Underwriting summary complete.", "record", recordKey, "document", docKey, "backend", doc.Backend, "degraded", degraded)
	return &models.SummaryResponse{
		StatusCode:     http.StatusOK,
		Status:         "success",
		Body:           SuccessMessage,
		JobID:          jobID,
		RecordGCSUri:   f.outputs.URI(recordKey),
		DocumentGCSUri: f.outputs.URI(docKey),
		Degraded:       degraded,
	}, nil
}

// sourceOf returns the bucket and key of the job's source document. The
// notice wins over the registry; an empty key leaves the choice to the
// relocator.
func (f *SummaryFunction) sourceOf(ctx context.Context, logCtx *slog.Logger, notice *models.CompletionNotice) (string, string) {
	if loc := notice.DocumentLocation; loc != nil && loc.Name != "" {
		bucket := loc.Bucket
		if bucket == "" {
			bucket = f.config.Bucket
		}
		return bucket, loc.Name
	}
	job, err := f.tracker.Get(ctx, notice.JobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrNotFound) {
			logCtx.Warn("Failed to look up job source.", "error", err)
		}
		return f.config.Bucket, ""
	}
	bucket := job.SourceBucket
	if bucket == "" {
		bucket = f.config.Bucket
	}
	return bucket, job.SourceKey
}

func (f *SummaryFunction) stage(ctx context.Context, logCtx *slog.Logger, jobID, stage string) {
	if err := f.tracker.SetStage(ctx, jobID, stage); err != nil && !errors.Is(err, jobs.ErrNotFound) {
		logCtx.Warn("Failed to record stage.", "stage", stage, "error", err)
	}
}

func (f *SummaryFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	fullError := fmt.Errorf("%s: %w", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.tracker.SetStatus(ctx, jobID, models.JobStatusFailed, fullError.Error()); err != nil && !errors.Is(err, jobs.ErrNotFound) {
		logCtx.Error("Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fullError
}

// Close releases the clients opened by NewSummary.
func (f *SummaryFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
