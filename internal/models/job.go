package models

import "time"

// Job is the registry record for one OCR job in Firestore. It carries the
// job -> source document mapping used when relocating the source file.
type Job struct {
	JobID        string    `firestore:"jobId,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	Stage        string    `firestore:"stage,omitempty"`
	SourceBucket string    `firestore:"sourceBucket,omitempty"`
	SourceKey    string    `firestore:"sourceKey,omitempty"`
	FileHash     string    `firestore:"fileHash,omitempty"`
	PageCount    int       `firestore:"pageCount,omitempty"`
	Degraded     []string  `firestore:"degraded,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}
