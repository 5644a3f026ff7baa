package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanWithoutSentryOptions(t *testing.T) {
	for _, key := range []string{"SENTRY_URL", "SENTRY_ORG", "SENTRY_PROJECT", "SENTRY_AUTH_TOKEN", "SENTRY_RELEASE"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("a();\n//# sourceMappingURL=app.js.map\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js.map"), []byte("{}"), 0o644))

	rootCmd.SetArgs([]string{"clean", dir, "--release-command", "exit 1"})
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "app.js.map"))
	require.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	require.Equal(t, "a();\n", string(data))
}
