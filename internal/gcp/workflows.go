package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// WorkflowLauncher starts one Cloud Workflows execution per completion
// notice; the notice is the execution argument.
type WorkflowLauncher struct {
	client *executions.Client
	parent string
}

// NewWorkflowLauncher targets projects/{projectID}/locations/{location}/workflows/{workflowID}.
func NewWorkflowLauncher(client *executions.Client, projectID, location, workflowID string) *WorkflowLauncher {
	return &WorkflowLauncher{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}
}

// Launch starts the execution and returns its resource name.
func (l *WorkflowLauncher) Launch(ctx context.Context, notice *models.CompletionNotice) (string, error) {
	payload, err := json.Marshal(notice)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := l.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    l.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}
