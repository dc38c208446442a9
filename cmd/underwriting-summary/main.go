package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/services"
)

var (
	summaryInstance *services.SummaryFunction
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The workflow calls the HTTP entry point; the Pub/Sub entry point serves
	// completion notices published directly to a topic.
	functions.HTTP("HandleUnderwritingSummary", handleUnderwritingSummary)
	functions.CloudEvent("SummarizeCompletedJob", summarizeCompletedJob)
}

func main() {}

func instance() (*services.SummaryFunction, error) {
	once.Do(func() {
		summaryInstance, initErr = services.NewSummary(context.Background())
	})
	return summaryInstance, initErr
}

// handleUnderwritingSummary is the HTTP handler for the summary service.
func handleUnderwritingSummary(w http.ResponseWriter, r *http.Request) {
	fn, err := instance()
	if err != nil {
		slog.Error("Critical: Summary initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var notice models.CompletionNotice
	if err := json.NewDecoder(r.Body).Decode(&notice); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := fn.Process(r.Context(), &notice)
	if errors.Is(err, services.ErrJobNotSucceeded) {
		http.Error(w, "Unprocessable Entity: OCR job did not succeed", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		// Error is already logged with context in the Process method.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "jobId", notice.JobID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

// summarizeCompletedJob is the Pub/Sub CloudEvent entry point.
func summarizeCompletedJob(ctx context.Context, e cloudevents.Event) error {
	notice, ok := decodeNotice(e)
	if !ok {
		return nil
	}

	fn, err := instance()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}
	if _, err := fn.Process(ctx, notice); err != nil {
		if errors.Is(err, services.ErrJobNotSucceeded) {
			return nil
		}
		// Returning the error marks the invocation failed so Pub/Sub redelivers.
		return err
	}
	return nil
}

// decodeNotice extracts the completion notice from a Pub/Sub event. An event
// that cannot be decoded will never decode, so it is logged and acknowledged.
func decodeNotice(e cloudevents.Event) (*models.CompletionNotice, bool) {
	var msg models.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		slog.Error("Failed to decode event data", "error", err, "eventId", e.ID())
		return nil, false
	}
	var notice models.CompletionNotice
	if err := json.Unmarshal(msg.Message.Data, &notice); err != nil {
		slog.Error("Failed to unmarshal completion notice", "error", err, "eventId", e.ID(), "data", string(msg.Message.Data))
		return nil, false
	}
	return &notice, true
}
