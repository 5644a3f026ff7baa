package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"

	"github.com/takeshy/sentryrelease/internal/plugin"
)

var (
	buildOutdir string
	buildMinify bool
	buildFormat string
	buildSplit  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <entry-points...>",
	Short: "Bundle with esbuild and publish the release",
	Long: `Bundle the entry points with esbuild using linked source maps, then
create the release, upload the output and, with --del-map, delete the local
source maps once the build is done.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOutdir, "outdir", "dist", "Output directory")
	buildCmd.Flags().BoolVar(&buildMinify, "minify", true, "Minify the output")
	buildCmd.Flags().StringVar(&buildFormat, "format", "esm", "Output format: esm, cjs or iife")
	buildCmd.Flags().BoolVar(&buildSplit, "splitting", false, "Enable code splitting (esm only)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(buildFormat)
	if err != nil {
		return err
	}

	p, m, err := newPlugin(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       args,
		Bundle:            true,
		Splitting:         buildSplit,
		Write:             true,
		Outdir:            buildOutdir,
		AbsWorkingDir:     wd,
		Format:            format,
		MinifyWhitespace:  buildMinify,
		MinifyIdentifiers: buildMinify,
		MinifySyntax:      buildMinify,
		Sourcemap:         api.SourceMapLinked,
		LogLevel:          api.LogLevelInfo,
		Plugins:           []api.Plugin{plugin.ESBuild(ctx, p)},
	})

	if err := saveManifest(m); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		return errors.New("esbuild failed with errors")
	}

	fmt.Printf("Built %d files into %s\n", len(result.OutputFiles), buildOutdir)
	return nil
}

func parseFormat(s string) (api.Format, error) {
	switch s {
	case "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	default:
		return api.FormatDefault, fmt.Errorf("unknown format: %s (must be esm, cjs or iife)", s)
	}
}
