package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Compilation is the part of a build result the plugin reads: the output
// directory and the emitted assets keyed by name. Content may be nil when the
// compilation was discovered from disk.
type Compilation struct {
	OutputPath string
	Assets     map[string][]byte
}

// File is an emitted asset selected for upload
type File struct {
	Name string
	Path string
}

// Names returns the asset names in sorted order.
func (c *Compilation) Names() []string {
	names := make([]string, 0, len(c.Assets))
	for name := range c.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StripQuery drops a query string the bundler added for cache busting,
// e.g. "app.js.map?v=3" becomes "app.js.map".
func StripQuery(name string) string {
	name, _, _ = strings.Cut(name, "?")
	return name
}

// ResolvePath joins the output directory with an asset name, dropping any
// query string.
func ResolvePath(outputPath, name string) string {
	return filepath.Join(outputPath, filepath.FromSlash(StripQuery(name)))
}

// Select returns the assets accepted by eligible, sorted by name.
func Select(c *Compilation, eligible func(name string) bool) []File {
	var files []File
	for _, name := range c.Names() {
		if !eligible(name) {
			continue
		}
		files = append(files, File{
			Name: name,
			Path: ResolvePath(c.OutputPath, name),
		})
	}
	return files
}

// Discover walks an output directory and returns it as a compilation whose
// asset names are slash separated paths relative to dir.
func Discover(dir string) (*Compilation, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %q: %w", dir, err)
	}

	c := &Compilation{
		OutputPath: absDir,
		Assets:     make(map[string][]byte),
	}

	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(absDir, path)
		if err != nil {
			return err
		}
		c.Assets[filepath.ToSlash(rel)] = nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", dir, err)
	}

	return c, nil
}

// CalculateChecksum calculates SHA256 checksum of a file
func CalculateChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentType returns the MIME type used when uploading an asset.
func ContentType(name string) string {
	name = StripQuery(name)
	switch {
	case strings.HasSuffix(name, ".map"):
		return "application/json"
	case strings.HasSuffix(name, ".js"), strings.HasSuffix(name, ".mjs"), strings.HasSuffix(name, ".cjs"):
		return "application/javascript"
	case strings.HasSuffix(name, ".css"):
		return "text/css"
	case strings.HasSuffix(name, ".html"):
		return "text/html"
	}
	return "application/octet-stream"
}
