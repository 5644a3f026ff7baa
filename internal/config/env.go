package config

import "os"

// Environment variables consulted by ApplyEnv.
const (
	EnvBaseURL   = "SENTRY_URL"
	EnvOrg       = "SENTRY_ORG"
	EnvProject   = "SENTRY_PROJECT"
	EnvAuthToken = "SENTRY_AUTH_TOKEN"
	EnvRelease   = "SENTRY_RELEASE"
)

// ApplyEnv fills options that are still unset from the environment.
func ApplyEnv(opts *Options) {
	applyEnv(opts, os.Getenv)
}

func applyEnv(opts *Options, getenv func(string) string) {
	if opts.BaseURL == "" {
		opts.BaseURL = getenv(EnvBaseURL)
	}
	if opts.Org == "" {
		opts.Org = getenv(EnvOrg)
	}
	if len(opts.Project) == 0 {
		if p := getenv(EnvProject); p != "" {
			opts.Project = StringList{p}
		}
	}
	if opts.AuthToken == "" {
		opts.AuthToken = getenv(EnvAuthToken)
	}
	if opts.Release.IsZero() && opts.ReleaseCommand == "" {
		if r := getenv(EnvRelease); r != "" {
			opts.Release = ReleaseValue(r)
		}
	}
}
