package models

// Block types emitted by the page recognizer. Only LINE blocks carry the
// text the pipeline consumes; WORD blocks duplicate it at a finer grain.
const (
	BlockTypePage = "PAGE"
	BlockTypeLine = "LINE"
	BlockTypeWord = "WORD"
)

// Job statuses shared by the OCR runner, the job registry and notices.
const (
	JobStatusRunning   = "RUNNING"
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
	JobStatusComplete  = "COMPLETE"
)

// Block is one recognized unit on a page.
type Block struct {
	ID         string  `json:"id"`
	BlockType  string  `json:"blockType"`
	Text       string  `json:"text,omitempty"`
	Page       int     `json:"page"`
	Confidence float32 `json:"confidence,omitempty"`
}

// ResultPage is one page of OCR results. NextToken is empty on the last page.
type ResultPage struct {
	JobID     string  `json:"jobId"`
	JobStatus string  `json:"jobStatus"`
	Blocks    []Block `json:"blocks"`
	NextToken string  `json:"nextToken,omitempty"`
}

// DocumentLocation identifies the source document an OCR job ran over.
type DocumentLocation struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// CompletionNotice is published once an OCR job finishes. It is the trigger
// payload for the summary pipeline.
type CompletionNotice struct {
	JobID            string            `json:"jobId"`
	Status           string            `json:"status"`
	DocumentLocation *DocumentLocation `json:"documentLocation,omitempty"`
	Timestamp        int64             `json:"timestamp,omitempty"`
}
