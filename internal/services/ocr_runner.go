package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/gcp"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/jobs"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/ocr"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/pdf"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/relocate"
)

// PageSplitter turns a PDF into single-page PDFs.
type PageSplitter interface {
	Split(ctx context.Context, data []byte) ([][]byte, error)
}

// PageRecognizer transcribes a single-page PDF into text lines.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, page []byte) ([]string, error)
}

// Launcher hands a completion notice to the summary pipeline.
type Launcher interface {
	Launch(ctx context.Context, notice *models.CompletionNotice) (string, error)
}

type OCRRunnerConfig struct {
	ProjectID        string
	Bucket           string
	OCRPrefix        string
	IncomingPrefix   string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	Region           string
	ModelName        string
	Concurrency      int
}

type OCRRunnerDeps struct {
	Storage    blob.Opener
	Splitter   PageSplitter
	Recognizer PageRecognizer
	Tracker    jobs.Tracker
	Launcher   Launcher
	Logger     *slog.Logger
}

// OCRRunnerFunction recognizes uploaded application PDFs and starts the
// summary workflow for each finished job.
type OCRRunnerFunction struct {
	config     OCRRunnerConfig
	storage    blob.Opener
	splitter   PageSplitter
	recognizer PageRecognizer
	tracker    jobs.Tracker
	launcher   Launcher
	logger     *slog.Logger

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
	closers   []func() error
}

func NewOCRRunner(ctx context.Context) (*OCRRunnerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := OCRRunnerConfig{
		ProjectID:        projectID,
		Bucket:           gcp.GetEnv("BUCKET_NAME", ""),
		OCRPrefix:        gcp.GetEnv("OCR_PREFIX", "ocr"),
		IncomingPrefix:   gcp.GetEnv("INCOMING_PREFIX", relocate.DefaultIncomingPrefix),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", jobs.DefaultCollection),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "underwriting-summary-orchestrator"),
		Region:           gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelName:        gcp.GetEnv("MODEL_NAME", "gemini-1.5-pro"),
		Concurrency:      10,
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	gcs, storageClient, err := gcp.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	executionsClient, err := gcp.NewExecutionsClient(ctx)
	if err != nil {
		return nil, err
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.Region, config.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	f := NewOCRRunnerWithDeps(config, OCRRunnerDeps{
		Storage:    gcs,
		Splitter:   pdf.Splitter{},
		Recognizer: vertexClient,
		Tracker:    jobs.NewFirestoreTracker(firestoreClient, config.CollectionName),
		Launcher:   gcp.NewWorkflowLauncher(executionsClient, config.ProjectID, config.WorkflowLocation, config.WorkflowID),
	})
	f.closers = []func() error{vertexClient.Close, executionsClient.Close, firestoreClient.Close, storageClient.Close}
	slog.Info("OCR runner logic initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// NewOCRRunnerWithDeps builds a runner from explicit collaborators. A nil
// Tracker disables duplicate detection and job registration.
func NewOCRRunnerWithDeps(config OCRRunnerConfig, deps OCRRunnerDeps) *OCRRunnerFunction {
	if config.IncomingPrefix == "" {
		config.IncomingPrefix = relocate.DefaultIncomingPrefix
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = jobs.Nop{}
	}
	return &OCRRunnerFunction{
		config:     config,
		storage:    deps.Storage,
		splitter:   deps.Splitter,
		recognizer: deps.Recognizer,
		tracker:    tracker,
		launcher:   deps.Launcher,
		logger:     logger,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Process runs OCR over one uploaded object. Objects outside the incoming
// area, non-PDFs and files with a RUNNING, SUCCEEDED or COMPLETE job are
// skipped without error; a file whose job FAILED is processed again.
// It returns the job id, or "" when the object was skipped.
func (f *OCRRunnerFunction) Process(ctx context.Context, e models.GCSEvent) (string, error) {
	logCtx := f.logger.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasPrefix(e.Name, f.config.IncomingPrefix) || !strings.HasSuffix(strings.ToLower(e.Name), relocate.DefaultExtension) {
		logCtx.Info("Object is not an incoming PDF. Skipping.")
		return "", nil
	}
	logCtx.Info("Processing new GCS object.")

	data, err := f.storage.Bucket(e.Bucket).Read(ctx, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return "", fmt.Errorf("failed to download source PDF: %w", err)
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])
	logCtx = logCtx.With("fileHash", fileHash)

	// A FAILED job is retried under its own id; any other registered job is
	// a duplicate.
	var retryJobID string
	existing, err := f.tracker.FindByHash(ctx, fileHash)
	switch {
	case err == nil && existing.Status == models.JobStatusFailed:
		logCtx.Info("Retrying previously failed job.", "existingJobId", existing.JobID)
		retryJobID = existing.JobID
	case err == nil:
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing.JobID, "status", existing.Status)
		return "", nil
	case !errors.Is(err, jobs.ErrNotFound):
		logCtx.Error("Failed to check for duplicate", "error", err)
		return "", err
	}

	pages, err := f.splitter.Split(ctx, data)
	if err != nil {
		logCtx.Error("Failed to prepare PDF", "error", err)
		return "", err
	}
	logCtx.Info("PDF optimized and split.", "pageCount", len(pages))

	jobID := retryJobID
	if jobID != "" {
		logCtx = logCtx.With("jobId", jobID)
		if err := f.tracker.SetStatus(ctx, jobID, models.JobStatusRunning, ""); err != nil {
			logCtx.Error("Failed to reset job status", "error", err)
			return "", err
		}
	} else {
		jobID = f.newJobID()
		logCtx = logCtx.With("jobId", jobID)
		job := &models.Job{
			JobID:        jobID,
			Status:       models.JobStatusRunning,
			SourceBucket: e.Bucket,
			SourceKey:    e.Name,
			FileHash:     fileHash,
			PageCount:    len(pages),
		}
		if err := f.tracker.Create(ctx, job); err != nil {
			logCtx.Error("Failed to register job", "error", err)
			return "", err
		}
	}

	lines, err := f.recognizeAll(ctx, logCtx, pages)
	if err != nil {
		return "", f.handleError(ctx, logCtx, jobID, "one or more pages failed to recognize", err)
	}

	bucket := f.config.Bucket
	if bucket == "" {
		bucket = e.Bucket
	}
	if err := ocr.NewShardWriter(f.storage.Bucket(bucket), f.config.OCRPrefix).Write(ctx, jobID, lines); err != nil {
		return "", f.handleError(ctx, logCtx, jobID, "failed to save OCR results", err)
	}
	if err := f.tracker.SetStatus(ctx, jobID, models.JobStatusSucceeded, ""); err != nil {
		return "", f.handleError(ctx, logCtx, jobID, "failed to update status to SUCCEEDED", err)
	}

	notice := &models.CompletionNotice{
		JobID:            jobID,
		Status:           models.JobStatusSucceeded,
		DocumentLocation: &models.DocumentLocation{Bucket: e.Bucket, Name: e.Name},
		Timestamp:        time.Now().UnixMilli(),
	}
	if f.launcher != nil {
		execution, err := f.launcher.Launch(ctx, notice)
		if err != nil {
			return "", f.handleError(ctx, logCtx, jobID, "failed to hand off to workflow", err)
		}
		logCtx = logCtx.With("execution", execution)
	}
	logCtx.Info("Hand-off to workflow complete.")
	return jobID, nil
}

func (f *OCRRunnerFunction) recognizeAll(ctx context.Context, logCtx *slog.Logger, pages [][]byte) ([][]string, error) {
	logCtx.Info("Starting concurrent page recognition.", "pageCount", len(pages))
	out := make([][]string, len(pages))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.Concurrency)
	for i, page := range pages {
		i, page := i, page
		eg.Go(func() error {
			lines, err := f.recognizer.RecognizePage(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			out[i] = lines
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All pages recognized.")
	return out, nil
}

func (f *OCRRunnerFunction) newJobID() string {
	f.entropyMu.Lock()
	defer f.entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), f.entropy).String()
}

func (f *OCRRunnerFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	fullError := fmt.Errorf("%s: %w", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.tracker.SetStatus(ctx, jobID, models.JobStatusFailed, fullError.Error()); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fullError
}

// Close releases the clients opened by NewOCRRunner.
func (f *OCRRunnerFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
