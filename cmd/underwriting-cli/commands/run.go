package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/config"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/gcp"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/jobs"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/services"
)

var (
	runJobID  string
	runDir    string
	runSource string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the summary pipeline for an OCR job",
	Long: "Run the full summary pipeline against a local storage root. The root holds one\n" +
		"directory per bucket containing the OCR result shards, templates and outputs.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runJobID, "job", "", "OCR job id (required)")
	runCmd.Flags().StringVar(&runDir, "dir", ".", "Local storage root")
	runCmd.Flags().StringVar(&runSource, "source", "", "Source document key, e.g. incoming/app.pdf")
	runCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Vertex.ProjectID == "" {
		return fmt.Errorf("vertex project id is not configured (vertex.project_id or PROJECT_ID)")
	}

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region, cfg.Vertex.Model)
	if err != nil {
		return fmt.Errorf("vertex client: %w", err)
	}
	defer vertexClient.Close()

	tracker := jobs.NewMemory()
	if err := tracker.Create(ctx, &models.Job{JobID: runJobID, Status: models.JobStatusSucceeded, SourceKey: runSource}); err != nil {
		return err
	}
	fn, err := services.NewSummaryWithDeps(cfg.Summary(), services.SummaryDeps{
		Storage:   blob.Root{Dir: runDir},
		Generator: vertexClient,
		Tracker:   tracker,
	})
	if err != nil {
		return err
	}

	res, err := fn.Process(ctx, &models.CompletionNotice{JobID: runJobID, Status: models.JobStatusSucceeded})
	if err != nil {
		return err
	}

	out := struct {
		*models.SummaryResponse
		Stages []string `json:"stages"`
	}{res, tracker.Stages(runJobID)}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
