package models

// These structs define the JSON payloads exchanged with the summary function
// when it is invoked over HTTP by the Cloud Workflow.

// SummaryResponse is the output of the underwriting-summary function.
// Status does not distinguish clean from degraded success; Degraded lists
// every fallback the run took.
type SummaryResponse struct {
	StatusCode     int      `json:"statusCode"`
	Status         string   `json:"status"`
	Body           string   `json:"body"`
	JobID          string   `json:"jobId"`
	RecordGCSUri   string   `json:"recordGcsUri"`
	DocumentGCSUri string   `json:"documentGcsUri"`
	Degraded       []string `json:"degraded,omitempty"`
}

// GCSEvent is the payload of a Cloud Storage object event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// PubSubMessage is the data of a Pub/Sub "message published" CloudEvent.
// Data arrives base64 encoded and is decoded by encoding/json into []byte.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
		MessageID  string            `json:"messageId,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription,omitempty"`
}
