package plugin

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestCompilationFromResult(t *testing.T) {
	opts := &api.BuildOptions{Outdir: "dist", AbsWorkingDir: "/work"}
	result := &api.BuildResult{OutputFiles: []api.OutputFile{
		{Path: "/work/dist/index.js", Contents: []byte("x")},
		{Path: "/work/dist/chunks/a.js.map", Contents: []byte("{}")},
	}}

	c, err := compilationFromResult(opts, result)
	require.NoError(t, err)
	require.Equal(t, "/work/dist", c.OutputPath)
	require.Equal(t, []string{"chunks/a.js.map", "index.js"}, c.Names())
	require.Equal(t, []byte("x"), c.Assets["index.js"])
}

func TestCompilationFromResult_outfile(t *testing.T) {
	opts := &api.BuildOptions{Outfile: "/work/out/bundle.js"}
	result := &api.BuildResult{OutputFiles: []api.OutputFile{
		{Path: "/work/out/bundle.js"},
		{Path: "/work/out/bundle.js.map"},
	}}

	c, err := compilationFromResult(opts, result)
	require.NoError(t, err)
	require.Equal(t, "/work/out", c.OutputPath)
	require.Equal(t, []string{"bundle.js", "bundle.js.map"}, c.Names())
}

func TestESBuild(t *testing.T) {
	fake := &fakeSentry{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte("export const answer = 42;\nconsole.log(answer);\n"), 0o644))

	opts := options(srv.URL)
	opts.DelMap = true
	p, err := New(opts, &recordingLogger{})
	require.NoError(t, err)

	outDir := filepath.Join(dir, "dist")
	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Bundle:        true,
		Write:         true,
		Outdir:        outDir,
		AbsWorkingDir: dir,
		Sourcemap:     api.SourceMapLinked,
		Plugins:       []api.Plugin{ESBuild(context.Background(), p)},
	})
	require.Empty(t, result.Errors)

	releases, uploads, _ := fake.snapshot()
	require.Equal(t, 1, releases)
	require.Equal(t, []string{"~/index.js", "~/index.js.map"}, uploads)

	_, err = os.Stat(filepath.Join(outDir, "index.js.map"))
	require.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(outDir, "index.js"))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "sourceMappingURL"))
	require.Contains(t, string(data), "42")
}

func TestESBuild_fatalErrorFailsBuild(t *testing.T) {
	fake := &fakeSentry{failRelease: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte("console.log(1);\n"), 0o644))

	opts := options(srv.URL)
	opts.ErrAbort = true
	p, err := New(opts, &recordingLogger{})
	require.NoError(t, err)

	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Write:         true,
		Outdir:        filepath.Join(dir, "dist"),
		AbsWorkingDir: dir,
		Sourcemap:     api.SourceMapLinked,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{ESBuild(context.Background(), p)},
	})
	require.NotEmpty(t, result.Errors)
	require.Contains(t, result.Errors[0].Text, "releases create fail")
}
