package cleanup

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/takeshy/sentryrelease/internal/assets"
)

// CleanupError reports a failed delete or rewrite of a local file.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("delete sourcemap fail, %v", e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// DeleteLocalSourceMaps deletes every asset of c whose name, without its query
// string, matches pattern and strips the sourceMappingURL comment pointing at
// it from the bundle next to it. It returns the deleted paths and one error per map that failed. A map
// that was deleted stays deleted even when its bundle cannot be rewritten.
func DeleteLocalSourceMaps(c *assets.Compilation, pattern *regexp.Regexp) ([]string, []error) {
	var (
		deleted []string
		errs    []error
	)

	for _, name := range c.Names() {
		clean := assets.StripQuery(name)
		if !pattern.MatchString(clean) {
			continue
		}

		mapPath := assets.ResolvePath(c.OutputPath, name)
		if err := os.Remove(mapPath); err != nil {
			errs = append(errs, &CleanupError{Path: mapPath, Err: err})
			continue
		}
		deleted = append(deleted, mapPath)

		bundlePath := strings.TrimSuffix(mapPath, ".map")
		if bundlePath == mapPath {
			continue
		}
		if err := StripSourceMapComment(bundlePath, path.Base(clean)); err != nil {
			errs = append(errs, &CleanupError{Path: bundlePath, Err: err})
		}
	}

	return deleted, errs
}

// StripSourceMapComment removes a trailing "//# sourceMappingURL=<mapName>"
// comment, or its CSS form "/*# sourceMappingURL=<mapName> */", from the file
// at bundlePath and rewrites it in place. Everything before the comment is
// left untouched.
func StripSourceMapComment(bundlePath, mapName string) error {
	info, err := os.Stat(bundlePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return err
	}

	re := sourceMappingURL(mapName)
	stripped := re.ReplaceAll(data, nil)
	if len(stripped) == len(data) {
		return nil
	}

	return os.WriteFile(bundlePath, stripped, info.Mode().Perm())
}

func sourceMappingURL(mapName string) *regexp.Regexp {
	url := `#\s*sourceMappingURL\s*=\s*` + regexp.QuoteMeta(mapName)
	return regexp.MustCompile(`(?://\s*` + url + `|/\*\s*` + url + `\s*\*/)\s*$`)
}
