package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/render"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/structuring"
)

var (
	renderRecordPath string
	renderOutPath    string
	renderText       bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a stored structured record",
	Long:  "Render a structured record JSON file into the underwriting summary document.",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderRecordPath, "record", "", "Path to the record JSON (required)")
	renderCmd.Flags().StringVar(&renderOutPath, "out", "Underwriting_Summary.docx", "Output document path")
	renderCmd.Flags().BoolVar(&renderText, "text", false, "Render plain text instead of a formatted document")
	renderCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(renderRecordPath)
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	rec, err := structuring.ParseRecord(string(data))
	if err != nil {
		return fmt.Errorf("parse record: %w", err)
	}

	var backends []render.Backend
	if renderText {
		backends = []render.Backend{render.TextBackend{}}
	}
	doc, err := render.NewRenderer(nil, backends...).RenderFile("local", rec, renderOutPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", doc.Path, doc.Backend, len(doc.Bytes))
	return nil
}
