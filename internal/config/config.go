package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/takeshy/sentryrelease/internal/assets"
)

const (
	DefaultBaseURL       = "https://sentry.io"
	DefaultInclude       = `\.js$|\.map$`
	DefaultDeletePattern = `\.map$`
	DefaultURLPrefix     = "~/"

	apiPath = "/api/0"
)

// ConfigurationError reports a missing or invalid option.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("`%s` option is required", e.Field)
	}
	return fmt.Sprintf("`%s` option is invalid: %s", e.Field, e.Reason)
}

// StringList is a list that also unmarshals from a single string.
type StringList []string

// UnmarshalYAML accepts either a scalar or a sequence.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = StringList{node.Value}
		return nil
	}
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Options are the user-supplied plugin options.
type Options struct {
	BaseURL        string     `yaml:"baseURL"`
	Org            string     `yaml:"org"`
	Project        StringList `yaml:"project"`
	AuthToken      string     `yaml:"authToken"`
	Release        Release    `yaml:"release"`
	ReleaseCommand string     `yaml:"releaseCommand"`
	Include        string     `yaml:"include"`
	Exclude        string     `yaml:"exclude"`
	DelMap         bool       `yaml:"delMap"`
	URLPrefix      string     `yaml:"urlPrefix"`
	Silent         bool       `yaml:"silent"`
	ErrAbort       bool       `yaml:"errAbort"`
	Concurrency    int        `yaml:"concurrency"`
}

// Settings are the resolved, validated options. They are not modified after
// Resolve returns.
type Settings struct {
	BaseURL       string
	Org           string
	Projects      []string
	AuthToken     string
	Release       string
	Include       *regexp.Regexp
	Exclude       *regexp.Regexp
	DeletePattern *regexp.Regexp
	DeleteMaps    bool
	URLPrefix     string
	Silent        bool
	ErrAbort      bool
	Concurrency   int
}

// Load reads options from a YAML file.
func Load(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return opts, nil
}

// Resolve applies defaults, evaluates the release provider and validates the
// required options. The provider runs first, exactly once, whether or not the
// other options are valid. Required options are then checked in the order
// baseURL, org, project, authToken, release and the first missing one is
// reported.
func Resolve(opts Options) (*Settings, error) {
	release := opts.Release
	if release.IsZero() && opts.ReleaseCommand != "" {
		release = ReleaseCommand(opts.ReleaseCommand)
	}
	resolved, releaseErr := release.resolve()

	s := &Settings{
		Org:        strings.TrimSpace(opts.Org),
		AuthToken:  strings.TrimSpace(opts.AuthToken),
		DeleteMaps: opts.DelMap,
		URLPrefix:  opts.URLPrefix,
		Silent:     opts.Silent,
		ErrAbort:   opts.ErrAbort,
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &ConfigurationError{Field: "baseURL", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", baseURL)}
	}
	s.BaseURL = strings.TrimRight(baseURL, "/") + apiPath

	if s.Org == "" {
		return nil, &ConfigurationError{Field: "org"}
	}

	for _, p := range opts.Project {
		if p = strings.TrimSpace(p); p != "" {
			s.Projects = append(s.Projects, p)
		}
	}
	if len(s.Projects) == 0 {
		return nil, &ConfigurationError{Field: "project"}
	}

	if s.AuthToken == "" {
		return nil, &ConfigurationError{Field: "authToken"}
	}

	if releaseErr != nil {
		return nil, &ConfigurationError{Field: "release", Reason: releaseErr.Error()}
	}
	s.Release = resolved
	if s.Release == "" {
		return nil, &ConfigurationError{Field: "release"}
	}

	include := opts.Include
	if include == "" {
		include = DefaultInclude
	}
	if s.Include, err = regexp.Compile(include); err != nil {
		return nil, &ConfigurationError{Field: "include", Reason: err.Error()}
	}
	if opts.Exclude != "" {
		if s.Exclude, err = regexp.Compile(opts.Exclude); err != nil {
			return nil, &ConfigurationError{Field: "exclude", Reason: err.Error()}
		}
	}
	s.DeletePattern = regexp.MustCompile(DefaultDeletePattern)

	if s.URLPrefix == "" {
		s.URLPrefix = DefaultURLPrefix
	}
	if opts.Concurrency > 0 {
		s.Concurrency = opts.Concurrency
	}

	return s, nil
}

// ResolveCleanup returns settings for local source map cleanup only. It needs
// no Sentry options and never runs the release provider.
func ResolveCleanup(opts Options) *Settings {
	return &Settings{
		DeletePattern: regexp.MustCompile(DefaultDeletePattern),
		DeleteMaps:    true,
		Silent:        opts.Silent,
		ErrAbort:      opts.ErrAbort,
	}
}

// Eligible reports whether an asset name passes the include and exclude
// patterns.
func (s *Settings) Eligible(name string) bool {
	included := s.Include == nil || s.Include.MatchString(name)
	excluded := s.Exclude != nil && s.Exclude.MatchString(name)
	return included && !excluded
}

// Deletable reports whether an asset name, without its query string, matches
// the local deletion pattern.
func (s *Settings) Deletable(name string) bool {
	return s.DeletePattern != nil && s.DeletePattern.MatchString(assets.StripQuery(name))
}
