package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/services"
)

var (
	ocrRunnerInstance *services.OCRRunnerFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("RecognizeUpload", recognizeUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// recognizeUpload is the Cloud Storage "object finalized" entry point.
func recognizeUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		ocrRunnerInstance, initErr = services.NewOCRRunner(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := e.DataAs(&gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("event.DataAs: %w", err)
	}

	// The error is already logged with context within the Process method.
	_, err := ocrRunnerInstance.Process(ctx, gcsEvent)
	return err
}
