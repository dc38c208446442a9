package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/jobs"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/ocr"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
)

const johnDoe = `{
  "applicant": {"name": "John Doe", "dob": "01/02/1980", "state": "TX"},
  "underwritingSections": [
    {"section": "BMI", "findings": [{"text": "Height 6'0\", weight 190 lbs"}]},
    {"section": "Tobacco", "findings": [{"text": "N/A"}]}
  ],
  "summary": {
    "disclosureSummary": [{"heading": "Medical", "bullets": [{"text": "Hypertension, controlled"}]}],
    "redFlags": [{"text": "Recent DUI"}]
  }
}`

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *fakeGenerator) Generate(_ context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	return g.response, g.err
}

type fixture struct {
	root    string
	store   blob.Store
	tracker *jobs.Memory
	gen     *fakeGenerator
	fn      *SummaryFunction
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()
	root := t.TempDir()
	opener := blob.Root{Dir: root}
	tracker := jobs.NewMemory()
	fn, err := NewSummaryWithDeps(SummaryConfig{
		Bucket:        "uw",
		Prefix:        "output",
		OCRPrefix:     "ocr",
		TemplatePaths: []string{},
	}, SummaryDeps{Storage: opener, Generator: gen, Tracker: tracker})
	require.NoError(t, err)
	return &fixture{root: root, store: opener.Bucket("uw"), tracker: tracker, gen: gen, fn: fn}
}

func (fx *fixture) seedJob(t *testing.T, jobID string, pages [][]string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fx.tracker.Create(ctx, &models.Job{JobID: jobID, Status: models.JobStatusSucceeded}))
	require.NoError(t, ocr.NewShardWriter(fx.store, "ocr").Write(ctx, jobID, pages))
}

func (fx *fixture) exists(key string) bool {
	_, err := os.Stat(filepath.Join(fx.root, "uw", filepath.FromSlash(key)))
	return err == nil
}

func succeeded(jobID, source string) *models.CompletionNotice {
	n := &models.CompletionNotice{JobID: jobID, Status: models.JobStatusSucceeded}
	if source != "" {
		n.DocumentLocation = &models.DocumentLocation{Bucket: "uw", Name: source}
	}
	return n
}

func TestProcess_EndToEnd(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeGenerator{response: "```json\n" + johnDoe + "\n```"})
	fx.seedJob(t, "job-1", [][]string{{"Name: John Doe", "DOB: 01/02/1980"}, {"State: TX"}})
	require.NoError(t, fx.store.Write(ctx, prompt.DefaultObjectKey, []byte("Extract:\n"+prompt.Placeholder)))
	require.NoError(t, fx.store.Write(ctx, "incoming/app.pdf", []byte("%PDF-1.4")))

	res, err := fx.fn.Process(ctx, succeeded("job-1", "incoming/app.pdf"))
	require.NoError(t, err)

	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, SuccessMessage, res.Body)
	assert.Empty(t, res.Degraded)
	assert.True(t, strings.HasSuffix(res.RecordGCSUri, "output/job-1.json"))
	assert.True(t, strings.HasSuffix(res.DocumentGCSUri, "output/job-1_Underwriting_Summary.docx"))

	require.Len(t, fx.gen.prompts, 1)
	assert.Equal(t, "Extract:\nName: John Doe\nDOB: 01/02/1980\nState: TX", fx.gen.prompts[0])

	b, err := fx.store.Read(ctx, "output/job-1.json")
	require.NoError(t, err)
	var rec models.StructuredRecord
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "John Doe", rec.Applicant.Name)
	assert.Equal(t, "TX", rec.Applicant.State)
	require.Len(t, rec.UnderwritingSections, 2)

	docBytes, err := fx.store.Read(ctx, "output/job-1_Underwriting_Summary.docx")
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(docBytes), int64(len(docBytes)))
	require.NoError(t, err)
	part, err := zr.Open("word/document.xml")
	require.NoError(t, err)
	body, err := io.ReadAll(part)
	require.NoError(t, err)
	joined := string(body)
	assert.Contains(t, joined, "Underwriting Summary")
	assert.Contains(t, joined, "• Recent DUI")
	assert.NotContains(t, joined, "• N/A")

	assert.False(t, fx.exists("incoming/app.pdf"))
	assert.True(t, fx.exists("processed/app.pdf"))

	job, err := fx.tracker.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, []string{
		jobs.StageJobReceived, jobs.StageTextExtracted, jobs.StageRecordStructured,
		jobs.StageRecordPersisted, jobs.StageDocumentRendered, jobs.StageDocumentPersisted,
		jobs.StageSourceRelocated, jobs.StageComplete,
	}, fx.tracker.Stages("job-1"))
}

func TestProcess_DegradesWithoutFailing(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeGenerator{err: errors.New("quota exceeded")})
	fx.seedJob(t, "job-2", [][]string{{"Name: Jane Roe"}})

	res, err := fx.fn.Process(ctx, succeeded("job-2", ""))
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, SuccessMessage, res.Body)
	assert.Equal(t, []string{DegradedTemplateBuiltin, DegradedFallbackRecord, DegradedRelocateFailed}, res.Degraded)

	b, err := fx.store.Read(ctx, "output/job-2.json")
	require.NoError(t, err)
	var rec models.StructuredRecord
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, *models.FallbackRecord(), rec)
	assert.Contains(t, string(b), `"redFlags": []`)
	assert.True(t, fx.exists("output/job-2_Underwriting_Summary.docx"))

	job, err := fx.tracker.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, res.Degraded, job.Degraded)
}

func TestProcess_SourceFromRegistry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeGenerator{response: johnDoe})
	require.NoError(t, fx.tracker.Create(ctx, &models.Job{JobID: "job-3", SourceBucket: "uw", SourceKey: "incoming/mine.pdf"}))
	require.NoError(t, ocr.NewShardWriter(fx.store, "ocr").Write(ctx, "job-3", [][]string{{"x"}}))
	require.NoError(t, fx.store.Write(ctx, "incoming/mine.pdf", []byte("a")))
	require.NoError(t, fx.store.Write(ctx, "incoming/other.pdf", []byte("b")))

	res, err := fx.fn.Process(ctx, succeeded("job-3", ""))
	require.NoError(t, err)

	assert.NotContains(t, res.Degraded, DegradedRelocateFailed)
	assert.True(t, fx.exists("processed/mine.pdf"))
	assert.True(t, fx.exists("incoming/other.pdf"))
}

func TestProcess_GuessesSourceByRecency(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeGenerator{response: johnDoe})
	require.NoError(t, ocr.NewShardWriter(fx.store, "ocr").Write(ctx, "job-4", [][]string{{"x"}}))
	require.NoError(t, fx.store.Write(ctx, "incoming/only.pdf", []byte("a")))

	res, err := fx.fn.Process(ctx, succeeded("job-4", ""))
	require.NoError(t, err)

	assert.Contains(t, res.Degraded, DegradedRelocateMostRecent)
	assert.True(t, fx.exists("processed/only.pdf"))
}

func TestProcess_ExtractionFailureAborts(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{response: johnDoe}
	fx := newFixture(t, gen)
	require.NoError(t, fx.tracker.Create(ctx, &models.Job{JobID: "job-5"}))

	_, err := fx.fn.Process(ctx, succeeded("job-5", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrNotExist)

	assert.Empty(t, gen.prompts)
	assert.False(t, fx.exists("output/job-5.json"))
	job, err := fx.tracker.Get(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorDetails, "failed to extract text")
}

// outputFailingOpener fails every write under the output prefix.
type outputFailingOpener struct{ blob.Opener }

func (o outputFailingOpener) Bucket(name string) blob.Store {
	return outputFailingStore{o.Opener.Bucket(name)}
}

type outputFailingStore struct{ blob.Store }

func (s outputFailingStore) Write(ctx context.Context, key string, data []byte, opts ...blob.WriteOption) error {
	if strings.HasPrefix(key, "output/") {
		return errors.New("bucket is read-only")
	}
	return s.Store.Write(ctx, key, data, opts...)
}

func TestProcess_PersistenceFailureAborts(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeGenerator{response: johnDoe})
	fx.seedJob(t, "job-8", [][]string{{"Name: John Doe"}})
	require.NoError(t, fx.store.Write(ctx, "incoming/app.pdf", []byte("pdf")))

	fn, err := NewSummaryWithDeps(SummaryConfig{Bucket: "uw", Prefix: "output", OCRPrefix: "ocr", TemplatePaths: []string{}},
		SummaryDeps{Storage: outputFailingOpener{blob.Root{Dir: fx.root}}, Generator: fx.gen, Tracker: fx.tracker})
	require.NoError(t, err)

	res, err := fn.Process(ctx, succeeded("job-8", "incoming/app.pdf"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "failed to save structured record")

	job, err := fx.tracker.Get(ctx, "job-8")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorDetails, "bucket is read-only")
	assert.True(t, fx.exists("incoming/app.pdf"))
}

func TestProcess_RejectsUnsuccessfulJobs(t *testing.T) {
	fx := newFixture(t, &fakeGenerator{response: johnDoe})

	_, err := fx.fn.Process(context.Background(), &models.CompletionNotice{JobID: "job-6", Status: models.JobStatusFailed})
	assert.ErrorIs(t, err, ErrJobNotSucceeded)

	_, err = fx.fn.Process(context.Background(), &models.CompletionNotice{Status: models.JobStatusSucceeded})
	assert.Error(t, err)
}

func TestProcess_ReprocessingOverwrites(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("down")}
	fx := newFixture(t, gen)
	fx.seedJob(t, "job-7", [][]string{{"Name: John Doe"}})

	_, err := fx.fn.Process(ctx, succeeded("job-7", ""))
	require.NoError(t, err)

	gen.err, gen.response = nil, johnDoe
	_, err = fx.fn.Process(ctx, succeeded("job-7", ""))
	require.NoError(t, err)

	b, err := fx.store.Read(ctx, "output/job-7.json")
	require.NoError(t, err)
	assert.Contains(t, string(b), "John Doe")
}

func TestNewSummaryWithDeps_Validation(t *testing.T) {
	_, err := NewSummaryWithDeps(SummaryConfig{}, SummaryDeps{Storage: blob.Root{Dir: t.TempDir()}, Generator: &fakeGenerator{}})
	assert.Error(t, err)
	_, err = NewSummaryWithDeps(SummaryConfig{Bucket: "b"}, SummaryDeps{})
	assert.Error(t, err)
}

func TestLoadSummaryConfig(t *testing.T) {
	t.Setenv("BUCKET_NAME", "uw-bucket")
	t.Setenv("TEMPLATE_PATHS", " a.txt, ,b.txt")
	t.Setenv("MODEL_TIMEOUT", "45s")

	config, err := LoadSummaryConfig()
	require.NoError(t, err)
	assert.Equal(t, "uw-bucket", config.Bucket)
	assert.Equal(t, "uw-bucket", config.TemplateBucket)
	assert.Equal(t, "output", config.Prefix)
	assert.Equal(t, []string{"a.txt", "b.txt"}, config.TemplatePaths)
	assert.Equal(t, "45s", config.ModelTimeout.String())

	t.Setenv("BUCKET_NAME", "")
	_, err = LoadSummaryConfig()
	assert.Error(t, err)
}
