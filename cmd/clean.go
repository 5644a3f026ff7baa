package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takeshy/sentryrelease/internal/assets"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <output-dir>",
	Short: "Delete local source maps and strip their references",
	Long: `Delete every source map of the output directory and remove the
trailing sourceMappingURL comment from the bundle next to it.

This runs the cleanup step on its own, as if --del-map were set. It makes
no network calls, so org, project, auth token and release are not needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	p, m, err := newCleanupPlugin(cmd)
	if err != nil {
		return err
	}

	c, err := assets.Discover(args[0])
	if err != nil {
		return err
	}

	if err := p.Done(context.Background(), c); err != nil {
		return err
	}

	if err := saveManifest(m); err != nil {
		return err
	}

	fmt.Printf("Cleaned source maps in %s\n", c.OutputPath)
	return nil
}
