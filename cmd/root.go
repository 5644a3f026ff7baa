package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/takeshy/sentryrelease/internal/config"
	"github.com/takeshy/sentryrelease/internal/logger"
	"github.com/takeshy/sentryrelease/internal/manifest"
	"github.com/takeshy/sentryrelease/internal/plugin"
	"github.com/takeshy/sentryrelease/internal/reporter"
)

var (
	Version = "dev"

	configFile     string
	manifestFile   string
	debug          bool
	baseURL        string
	org            string
	projects       []string
	authToken      string
	release        string
	releaseCommand string
	include        string
	exclude        string
	delMap         bool
	urlPrefix      string
	silent         bool
	errAbort       bool
	parallelism    int
)

var rootCmd = &cobra.Command{
	Use:     "sentryrelease",
	Short:   "Publish Sentry releases and source maps from build output",
	Version: Version,
	Long: `sentryrelease creates a release on Sentry, uploads the source maps and
bundles of a build to it, and optionally deletes the local source maps
together with their sourceMappingURL comments.

Options are read from --config (YAML), then flags, then SENTRY_* environment
variables for anything still unset.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML options file")
	flags.StringVar(&manifestFile, "manifest", "", "Write a JSON report of uploaded and deleted files to this path")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.StringVar(&baseURL, "base-url", "", "Sentry base URL (default https://sentry.io, or SENTRY_URL)")
	flags.StringVarP(&org, "org", "o", "", "Organization slug (or SENTRY_ORG)")
	flags.StringArrayVarP(&projects, "project", "P", nil, "Project slug, can be specified multiple times (or SENTRY_PROJECT)")
	flags.StringVarP(&authToken, "auth-token", "t", "", "Auth token (or SENTRY_AUTH_TOKEN)")
	flags.StringVarP(&release, "release", "r", "", "Release identifier (or SENTRY_RELEASE)")
	flags.StringVar(&releaseCommand, "release-command", "", "Shell command whose output is the release identifier, e.g. \"git rev-parse --short HEAD\"")
	flags.StringVar(&include, "include", "", "Regex of asset names to upload (default \\.js$|\\.map$)")
	flags.StringVar(&exclude, "exclude", "", "Regex of asset names not to upload")
	flags.BoolVar(&delMap, "del-map", false, "Delete local source maps after the build")
	flags.StringVar(&urlPrefix, "url-prefix", "", "Prefix of uploaded file names (default ~/)")
	flags.BoolVar(&silent, "silent", false, "Do not log upload and cleanup errors")
	flags.BoolVar(&errAbort, "err-abort", false, "Fail the command on upload and cleanup errors")
	flags.IntVarP(&parallelism, "parallelism", "p", 0, "Number of parallel uploads (0 uploads all files at once)")
}

// loadOptions merges the config file, the flags that were set and the
// environment, in that order of precedence.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	var opts config.Options
	if configFile != "" {
		var err error
		if opts, err = config.Load(configFile); err != nil {
			return opts, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		opts.BaseURL = baseURL
	}
	if flags.Changed("org") {
		opts.Org = org
	}
	if flags.Changed("project") {
		opts.Project = config.StringList(projects)
	}
	if flags.Changed("auth-token") {
		opts.AuthToken = authToken
	}
	if flags.Changed("release") {
		opts.Release = config.ReleaseValue(release)
	}
	if flags.Changed("release-command") {
		opts.ReleaseCommand = releaseCommand
	}
	if flags.Changed("include") {
		opts.Include = include
	}
	if flags.Changed("exclude") {
		opts.Exclude = exclude
	}
	if flags.Changed("del-map") {
		opts.DelMap = delMap
	}
	if flags.Changed("url-prefix") {
		opts.URLPrefix = urlPrefix
	}
	if flags.Changed("silent") {
		opts.Silent = silent
	}
	if flags.Changed("err-abort") {
		opts.ErrAbort = errAbort
	}
	if flags.Changed("parallelism") {
		opts.Concurrency = parallelism
	}

	config.ApplyEnv(&opts)
	return opts, nil
}

// newPlugin builds the plugin from the command line. The returned manifest is
// nil unless --manifest was given.
func newPlugin(cmd *cobra.Command, extra ...plugin.Option) (*plugin.Plugin, *manifest.Manifest, error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return nil, nil, err
	}

	settings, err := config.Resolve(opts)
	if err != nil {
		return nil, nil, err
	}
	p, m := pluginFor(settings, extra...)
	return p, m, nil
}

// newCleanupPlugin builds a plugin that can only clean up local files. It does
// not need the Sentry options.
func newCleanupPlugin(cmd *cobra.Command) (*plugin.Plugin, *manifest.Manifest, error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return nil, nil, err
	}
	p, m := pluginFor(config.ResolveCleanup(opts))
	return p, m, nil
}

func pluginFor(settings *config.Settings, extra ...plugin.Option) (*plugin.Plugin, *manifest.Manifest) {
	log := reporter.NewZerolog(logger.Setup(debug))

	var m *manifest.Manifest
	if manifestFile != "" {
		m = manifest.New(manifestFile, settings.Release, settings.Projects)
		extra = append(extra, plugin.WithManifest(m))
	}

	return plugin.NewWithSettings(settings, log, extra...), m
}

func saveManifest(m *manifest.Manifest) error {
	if m == nil {
		return nil
	}
	if err := m.Save(); err != nil {
		return err
	}
	fmt.Printf("Manifest written to %s\n", manifestFile)
	return nil
}
