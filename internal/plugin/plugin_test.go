package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takeshy/sentryrelease/internal/assets"
	"github.com/takeshy/sentryrelease/internal/config"
	"github.com/takeshy/sentryrelease/internal/manifest"
	"github.com/takeshy/sentryrelease/internal/reporter"
	"github.com/takeshy/sentryrelease/internal/sentry"
)

type recordingLogger struct {
	mu          sync.Mutex
	infos, errs []string
	warnings    []string
}

func (l *recordingLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

type fakeSentry struct {
	mu          sync.Mutex
	releases    []map[string]any
	uploads     []string
	uploadPaths []string
	events      []string
	failRelease bool
	failUpload  map[string]bool
}

func (f *fakeSentry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/files/"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := r.FormValue("name")
		f.uploads = append(f.uploads, name)
		f.uploadPaths = append(f.uploadPaths, r.URL.Path)
		f.events = append(f.events, "upload")
		if f.failUpload[name] {
			http.Error(w, "upload rejected", http.StatusBadRequest)
			return
		}
	case strings.HasSuffix(r.URL.Path, "/releases/"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.releases = append(f.releases, body)
		f.events = append(f.events, "release")
		if f.failRelease {
			http.Error(w, "no such project", http.StatusNotFound)
			return
		}
	default:
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeSentry) snapshot() (releases int, uploads []string, events []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uploads = append([]string(nil), f.uploads...)
	sort.Strings(uploads)
	return len(f.releases), uploads, append([]string(nil), f.events...)
}

func buildDir(t *testing.T) (string, *assets.Compilation) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"app.js":        "console.log(1);\n//# sourceMappingURL=app.js.map\n",
		"app.js.map":    `{"version":3}`,
		"vendor.js":     "v();\n//# sourceMappingURL=vendor.js.map\n",
		"vendor.js.map": `{"version":3}`,
		"app.css":       "body{}",
	}
	c := &assets.Compilation{OutputPath: dir, Assets: map[string][]byte{}}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		c.Assets[name] = []byte(content)
	}
	return dir, c
}

func options(baseURL string) config.Options {
	return config.Options{
		BaseURL:   baseURL,
		Org:       "acme",
		Project:   config.StringList{"web"},
		AuthToken: "secret",
		Release:   config.ReleaseValue("2.0.0"),
	}
}

func TestNew_missingOptionMakesNoRequests(t *testing.T) {
	fake := &fakeSentry{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	for _, field := range []string{"org", "project", "authToken", "release"} {
		t.Run(field, func(t *testing.T) {
			opts := options(srv.URL)
			switch field {
			case "org":
				opts.Org = ""
			case "project":
				opts.Project = nil
			case "authToken":
				opts.AuthToken = ""
			case "release":
				opts.Release = config.Release{}
			}

			p, err := New(opts, &recordingLogger{})
			require.Nil(t, p)
			var cfgErr *config.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, field, cfgErr.Field)
		})
	}

	releases, uploads, _ := fake.snapshot()
	require.Zero(t, releases)
	require.Empty(t, uploads)
}

func TestAfterEmit(t *testing.T) {
	fake := &fakeSentry{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, c := buildDir(t)
	log := &recordingLogger{}
	opts := options(srv.URL)
	opts.Exclude = "^vendor"
	p, err := New(opts, log)
	require.NoError(t, err)

	require.NoError(t, p.AfterEmit(context.Background(), c))

	releases, uploads, events := fake.snapshot()
	require.Equal(t, 1, releases)
	require.Equal(t, []string{"~/app.js", "~/app.js.map"}, uploads)
	require.Equal(t, "release", events[0])
	require.Equal(t, []any{"web"}, fake.releases[0]["projects"])
	require.Equal(t, "2.0.0", fake.releases[0]["version"])
	require.Equal(t, "/api/0/organizations/acme/releases/2.0.0/files/", fake.uploadPaths[0])
	require.Len(t, log.infos, 1)
	require.Empty(t, log.errs)
}

func TestAfterEmit_uploadFailureLogged(t *testing.T) {
	fake := &fakeSentry{failUpload: map[string]bool{"~/app.js.map": true}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dir, c := buildDir(t)
	log := &recordingLogger{}
	p, err := New(options(srv.URL), log)
	require.NoError(t, err)

	require.NoError(t, p.AfterEmit(context.Background(), c))

	_, uploads, _ := fake.snapshot()
	require.Len(t, uploads, 4)
	require.Len(t, log.errs, 1)
	require.Contains(t, log.errs[0], "sourcemap upload fail")
	require.Contains(t, log.errs[0], filepath.Join(dir, "app.js.map"))
}

func TestAfterEmit_uploadFailureAborts(t *testing.T) {
	fake := &fakeSentry{failUpload: map[string]bool{"~/app.js.map": true}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, c := buildDir(t)
	log := &recordingLogger{}
	opts := options(srv.URL)
	opts.ErrAbort = true
	p, err := New(opts, log)
	require.NoError(t, err)

	err = p.AfterEmit(context.Background(), c)
	require.True(t, reporter.IsFatal(err))
	require.Contains(t, err.Error(), "[Sentry Plugin] Error: sourcemap upload fail")
	require.Empty(t, log.errs)
}

func TestAfterEmit_releaseFailureSkipsUploads(t *testing.T) {
	fake := &fakeSentry{failRelease: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, c := buildDir(t)
	log := &recordingLogger{}
	p, err := New(options(srv.URL), log)
	require.NoError(t, err)

	require.NoError(t, p.AfterEmit(context.Background(), c))

	releases, uploads, _ := fake.snapshot()
	require.Equal(t, 1, releases)
	require.Empty(t, uploads)
	require.Len(t, log.errs, 1)
	require.Contains(t, log.errs[0], "releases create fail")
}

func TestAfterEmit_silent(t *testing.T) {
	fake := &fakeSentry{failRelease: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, c := buildDir(t)
	log := &recordingLogger{}
	opts := options(srv.URL)
	opts.Silent = true
	p, err := New(opts, log)
	require.NoError(t, err)

	require.NoError(t, p.AfterEmit(context.Background(), c))
	require.Empty(t, log.errs)
	require.Empty(t, log.infos)
}

func TestDone(t *testing.T) {
	dir, c := buildDir(t)

	t.Run("disabled", func(t *testing.T) {
		p, err := New(options("https://sentry.example.com"), &recordingLogger{})
		require.NoError(t, err)
		require.NoError(t, p.Done(context.Background(), c))
		_, err = os.Stat(filepath.Join(dir, "app.js.map"))
		require.NoError(t, err)
	})

	t.Run("enabled", func(t *testing.T) {
		opts := options("https://sentry.example.com")
		opts.DelMap = true
		path := filepath.Join(t.TempDir(), "m.json")
		m := manifest.New(path, "2.0.0", []string{"web"})
		p, err := New(opts, &recordingLogger{}, WithManifest(m))
		require.NoError(t, err)

		require.NoError(t, p.Done(context.Background(), c))

		for _, name := range []string{"app.js.map", "vendor.js.map"} {
			_, err := os.Stat(filepath.Join(dir, name))
			require.True(t, os.IsNotExist(err), name)
		}
		data, err := os.ReadFile(filepath.Join(dir, "app.js"))
		require.NoError(t, err)
		require.Equal(t, "console.log(1);\n", string(data))

		require.NoError(t, m.Save())
		run, err := manifest.Load(path)
		require.NoError(t, err)
		require.Len(t, run.Deleted, 2)
	})
}

func TestDone_missingBundleReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lonely.js.map"), []byte("{}"), 0o644))
	c := &assets.Compilation{OutputPath: dir, Assets: map[string][]byte{"lonely.js.map": nil}}

	opts := options("https://sentry.example.com")
	opts.DelMap = true
	opts.ErrAbort = true
	p, err := New(opts, &recordingLogger{})
	require.NoError(t, err)

	err = p.Done(context.Background(), c)
	require.True(t, reporter.IsFatal(err))
	require.Contains(t, err.Error(), "delete sourcemap fail")
}

func TestRun_recordsManifest(t *testing.T) {
	fake := &fakeSentry{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, c := buildDir(t)
	opts := options(srv.URL)
	opts.DelMap = true
	opts.Concurrency = 2

	path := filepath.Join(t.TempDir(), "manifest.json")
	m := manifest.New(path, "2.0.0", []string{"web"})

	var mu sync.Mutex
	var progressed []string
	p, err := New(opts, &recordingLogger{}, WithManifest(m), WithProgress(func(r sentry.UploadResult) {
		mu.Lock()
		defer mu.Unlock()
		progressed = append(progressed, r.UploadedName)
	}))
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), c))
	require.NoError(t, m.Save())

	run, err := manifest.Load(path)
	require.NoError(t, err)
	require.Len(t, run.Files, 4)
	require.Len(t, progressed, 4)
	rec := run.Files["~/app.js.map"]
	require.NotEmpty(t, rec.Checksum)
	require.Equal(t, int64(len(`{"version":3}`)), rec.Size)
	require.Len(t, run.Deleted, 2)
}
