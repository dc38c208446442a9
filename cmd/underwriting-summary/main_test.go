package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

func pubSubEvent(t *testing.T, data string) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("evt-1")
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub.googleapis.com/projects/p/topics/ocr-complete")
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, []byte(data)))
	return e
}

func wrapped(payload string) string {
	return fmt.Sprintf(`{"message":{"data":%q}}`, base64.StdEncoding.EncodeToString([]byte(payload)))
}

func TestDecodeNotice(t *testing.T) {
	e := pubSubEvent(t, wrapped(`{"jobId":"job-1","status":"SUCCEEDED","documentLocation":{"bucket":"uw","name":"incoming/a.pdf"}}`))

	notice, ok := decodeNotice(e)
	require.True(t, ok)
	assert.Equal(t, "job-1", notice.JobID)
	assert.Equal(t, models.JobStatusSucceeded, notice.Status)
	assert.Equal(t, &models.DocumentLocation{Bucket: "uw", Name: "incoming/a.pdf"}, notice.DocumentLocation)
}

func TestSummarizeCompletedJob_AcknowledgesUndecodableEvents(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "envelope", data: `not json`},
		{name: "notice", data: wrapped(`not json`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := pubSubEvent(t, tt.data)
			_, ok := decodeNotice(e)
			assert.False(t, ok)
			assert.NoError(t, summarizeCompletedJob(context.Background(), e))
		})
	}
}
