package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/takeshy/sentryrelease/internal/assets"
	"github.com/takeshy/sentryrelease/internal/plugin"
	"github.com/takeshy/sentryrelease/internal/sentry"
)

var dryRun bool

var uploadCmd = &cobra.Command{
	Use:   "upload <output-dir>",
	Short: "Create the release and upload files from a build output directory",
	Long: `Create the configured release on Sentry and upload every file of the
output directory that matches --include and not --exclude.

Use this after a build made by any bundler. With --del-map the source maps
are deleted afterwards and their sourceMappingURL comments stripped.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be uploaded without uploading")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	var (
		mu               sync.Mutex
		uploaded, failed int
	)
	progress := plugin.WithProgress(func(result sentry.UploadResult) {
		mu.Lock()
		defer mu.Unlock()
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.UploadedName, result.Error)
			return
		}
		uploaded++
		fmt.Printf("✓ %s\n", result.UploadedName)
	})

	p, m, err := newPlugin(cmd, progress)
	if err != nil {
		return err
	}

	c, err := assets.Discover(args[0])
	if err != nil {
		return err
	}

	files := p.Candidates(c)
	fmt.Printf("Found %d files to upload in %s\n\n", len(files), c.OutputPath)

	if dryRun {
		fmt.Println("Dry run mode - files that would be uploaded:")
		for _, f := range files {
			fmt.Printf("  %s -> %s\n", f.Path, p.Settings().URLPrefix+f.Name)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Uploading to release '%s' (workers: %d)...\n\n", p.Settings().Release, sentry.Workers(p.Settings().Concurrency, len(files)))
	runErr := p.Run(ctx, c)

	if err := saveManifest(m); err != nil {
		return err
	}

	fmt.Printf("\nUpload complete:\n")
	fmt.Printf("  Uploaded: %d\n", uploaded)
	fmt.Printf("  Failed:   %d\n", failed)

	return runErr
}
