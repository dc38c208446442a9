package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/config"
	"github.com/Lllllllleong/underwritingdocumentflow/internal/prompt"
)

var templateDir string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print the resolved prompt template",
	RunE:  runTemplate,
}

func init() {
	templateCmd.Flags().StringVar(&templateDir, "dir", "", "Local storage root to search for the template object")
	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var store blob.Store
	if templateDir != "" {
		store = blob.Root{Dir: templateDir}.Bucket(cfg.Storage.Bucket)
	}
	tmpl := prompt.NewResolver(store, prompt.ResolverConfig{
		LocalPaths: cfg.Template.Paths,
		ObjectKey:  cfg.Template.ObjectKey,
	}, nil).Resolve(cmd.Context())

	fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", tmpl.Source)
	fmt.Fprintln(cmd.OutOrStdout(), tmpl.Text)
	return nil
}
