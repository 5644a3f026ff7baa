package plugin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/takeshy/sentryrelease/internal/assets"
)

// Name is the plugin name reported to esbuild.
const Name = "SentryPlugin"

// ESBuild returns an esbuild plugin that runs p once a build has written its
// output files. The build must use Write: true so the files exist on disk.
func ESBuild(ctx context.Context, p *Plugin) api.Plugin {
	return api.Plugin{
		Name: Name,
		Setup: func(build api.PluginBuild) {
			opts := build.InitialOptions
			if !opts.Write {
				p.reporter.Warn("esbuild Write is disabled, output files will not exist on disk")
			}

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}

				c, err := compilationFromResult(opts, result)
				if err != nil {
					return api.OnEndResult{}, p.reporter.Report(err)
				}

				return api.OnEndResult{}, p.Run(ctx, c)
			})
		},
	}
}

// compilationFromResult names every output file relative to the output
// directory of the build. Builds that only set Outfile use its directory.
func compilationFromResult(opts *api.BuildOptions, result *api.BuildResult) (*assets.Compilation, error) {
	outDir := opts.Outdir
	if outDir == "" && opts.Outfile != "" {
		outDir = filepath.Dir(opts.Outfile)
	}
	if !filepath.IsAbs(outDir) {
		base := opts.AbsWorkingDir
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			base = wd
		}
		outDir = filepath.Join(base, outDir)
	}

	c := &assets.Compilation{
		OutputPath: outDir,
		Assets:     make(map[string][]byte, len(result.OutputFiles)),
	}
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(outDir, f.Path)
		if err != nil {
			return nil, err
		}
		c.Assets[filepath.ToSlash(rel)] = f.Contents
	}

	return c, nil
}
