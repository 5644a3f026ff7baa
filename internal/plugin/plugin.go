package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/takeshy/sentryrelease/internal/assets"
	"github.com/takeshy/sentryrelease/internal/cleanup"
	"github.com/takeshy/sentryrelease/internal/config"
	"github.com/takeshy/sentryrelease/internal/manifest"
	"github.com/takeshy/sentryrelease/internal/reporter"
	"github.com/takeshy/sentryrelease/internal/sentry"
)

// Plugin publishes a release and its source maps after a build and removes
// local source maps when the build is done.
type Plugin struct {
	settings *config.Settings
	client   *sentry.Client
	reporter *reporter.Reporter
	manifest *manifest.Manifest
	progress func(sentry.UploadResult)
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithClient replaces the Sentry client built from the settings.
func WithClient(c *sentry.Client) Option {
	return func(p *Plugin) {
		p.client = c
	}
}

// WithManifest records uploads and deletions in m.
func WithManifest(m *manifest.Manifest) Option {
	return func(p *Plugin) {
		p.manifest = m
	}
}

// WithProgress calls fn after every upload attempt.
func WithProgress(fn func(sentry.UploadResult)) Option {
	return func(p *Plugin) {
		p.progress = fn
	}
}

// New resolves opts and returns a plugin. Invalid options fail here, before
// any hook can run.
func New(opts config.Options, logger reporter.Logger, options ...Option) (*Plugin, error) {
	settings, err := config.Resolve(opts)
	if err != nil {
		return nil, err
	}
	return NewWithSettings(settings, logger, options...), nil
}

// NewWithSettings returns a plugin for already resolved settings.
func NewWithSettings(settings *config.Settings, logger reporter.Logger, options ...Option) *Plugin {
	p := &Plugin{
		settings: settings,
		reporter: reporter.New(logger, settings.Silent, settings.ErrAbort),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.client == nil {
		p.client = sentry.NewClient(settings.BaseURL, settings.AuthToken)
	}
	return p
}

// Settings returns the resolved settings.
func (p *Plugin) Settings() *config.Settings {
	return p.settings
}

// Candidates returns the assets of c eligible for upload.
func (p *Plugin) Candidates(c *assets.Compilation) []assets.File {
	return assets.Select(c, p.settings.Eligible)
}

// AfterEmit creates the release and uploads the eligible assets of c. The
// release is created before any upload starts. Failures go through the
// reporter, so a non-nil error means the build must stop.
func (p *Plugin) AfterEmit(ctx context.Context, c *assets.Compilation) error {
	files := p.Candidates(c)

	if err := p.CreateRelease(ctx); err != nil {
		return p.reporter.Report(err)
	}

	results := p.Upload(ctx, files)

	if err := ctx.Err(); err != nil {
		return p.reporter.Report(fmt.Errorf("upload interrupted: %w", err))
	}
	if err := sentry.Failed(results); err != nil {
		return p.reporter.Report(err)
	}

	p.reporter.Info(fmt.Sprintf("success: %d files uploaded to release %s", len(results), p.settings.Release))
	return nil
}

// CreateRelease creates the configured release. The error is returned as is,
// without going through the reporter.
func (p *Plugin) CreateRelease(ctx context.Context) error {
	return p.client.CreateRelease(ctx, p.settings.Org, p.settings.Release, p.settings.Projects)
}

// Upload attaches files to the configured release, which must already exist.
func (p *Plugin) Upload(ctx context.Context, files []assets.File) []sentry.UploadResult {
	uploader := sentry.NewUploader(p.client, p.settings.Org, p.settings.Release, p.settings.URLPrefix, p.settings.Concurrency)
	return uploader.UploadFiles(ctx, files, p.record)
}

// Done deletes local source maps and their bundle comments when enabled.
func (p *Plugin) Done(ctx context.Context, c *assets.Compilation) error {
	if !p.settings.DeleteMaps {
		return nil
	}

	deleted, errs := cleanup.DeleteLocalSourceMaps(c, p.settings.DeletePattern)
	if p.manifest != nil && len(deleted) > 0 {
		p.manifest.AddDeleted(deleted...)
	}
	return p.reporter.Report(errors.Join(errs...))
}

// Run calls AfterEmit and then Done. Done is skipped when AfterEmit returns a
// fatal error.
func (p *Plugin) Run(ctx context.Context, c *assets.Compilation) error {
	if err := p.AfterEmit(ctx, c); err != nil {
		return err
	}
	return p.Done(ctx, c)
}

func (p *Plugin) record(result sentry.UploadResult) {
	if p.manifest != nil {
		rec := manifest.FileRecord{
			LocalPath: result.File.Path,
			Name:      result.UploadedName,
		}
		if result.Error != nil {
			rec.Error = result.Error.Error()
		} else {
			rec.UploadedAt = time.Now()
			if info, err := os.Stat(result.File.Path); err == nil {
				rec.Size = info.Size()
			}
			if sum, err := assets.CalculateChecksum(result.File.Path); err == nil {
				rec.Checksum = sum
			}
		}
		p.manifest.AddFile(rec)
	}
	if p.progress != nil {
		p.progress(result)
	}
}
