package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// DefaultCollection is the Firestore collection holding job records.
const DefaultCollection = "underwritingJobs"

// FirestoreTracker stores one document per job, keyed by job id.
type FirestoreTracker struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreTracker returns a tracker over collection.
func NewFirestoreTracker(client *firestore.Client, collection string) *FirestoreTracker {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreTracker{client: client, collection: collection}
}

func (t *FirestoreTracker) doc(jobID string) *firestore.DocumentRef {
	return t.client.Collection(t.collection).Doc(jobID)
}

func (t *FirestoreTracker) Create(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if _, err := t.doc(job.JobID).Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.JobID, err)
	}
	return nil
}

func (t *FirestoreTracker) Get(ctx context.Context, jobID string) (*models.Job, error) {
	snap, err := t.doc(jobID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

func (t *FirestoreTracker) FindByHash(ctx context.Context, fileHash string) (*models.Job, error) {
	docs, err := t.client.Collection(t.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var job models.Job
	if err := docs[0].DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", docs[0].Ref.ID, err)
	}
	return &job, nil
}

func (t *FirestoreTracker) SetStatus(ctx context.Context, jobID, jobStatus, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: jobStatus},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	return t.update(ctx, jobID, updates)
}

func (t *FirestoreTracker) SetStage(ctx context.Context, jobID, stage string) error {
	return t.update(ctx, jobID, []firestore.Update{
		{Path: "stage", Value: stage},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *FirestoreTracker) AddDegraded(ctx context.Context, jobID string, reasons ...string) error {
	if len(reasons) == 0 {
		return nil
	}
	values := make([]interface{}, len(reasons))
	for i, r := range reasons {
		values[i] = r
	}
	return t.update(ctx, jobID, []firestore.Update{
		{Path: "degraded", Value: firestore.ArrayUnion(values...)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *FirestoreTracker) update(ctx context.Context, jobID string, updates []firestore.Update) error {
	if _, err := t.doc(jobID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s: %w", jobID, ErrNotFound)
		}
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}
