package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/takeshy/sentryrelease/internal/assets"
	"github.com/takeshy/sentryrelease/internal/config"
)

var listLong bool

var listCmd = &cobra.Command{
	Use:   "list <output-dir>",
	Short: "List files that would be uploaded or deleted",
	Long: `List the files of a build output directory that match --include and
not --exclude, as they would be named in the release.

With --del-map the source maps that cleanup would delete are listed too.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show detailed information")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	settings, err := config.Resolve(opts)
	if err != nil {
		return err
	}

	c, err := assets.Discover(args[0])
	if err != nil {
		return err
	}

	files := assets.Select(c, settings.Eligible)
	if len(files) == 0 {
		fmt.Printf("No files to upload in %s\n", c.OutputPath)
	} else {
		fmt.Printf("Files to upload to release '%s' (%d total):\n\n", settings.Release, len(files))
		printFiles(files, settings.URLPrefix)
	}

	if !settings.DeleteMaps {
		return nil
	}

	maps := assets.Select(c, settings.Deletable)
	fmt.Printf("\nSource maps to delete (%d total):\n\n", len(maps))
	printFiles(maps, "")
	return nil
}

func printFiles(files []assets.File, prefix string) {
	if !listLong {
		for _, f := range files {
			fmt.Printf("  %s\n", prefix+f.Name)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tTYPE\tPATH")
	fmt.Fprintln(w, "----\t----\t----\t----")
	for _, f := range files {
		size := "-"
		if info, err := os.Stat(f.Path); err == nil {
			size = formatSize(info.Size())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			prefix+f.Name,
			size,
			assets.ContentType(f.Name),
			f.Path,
		)
	}
	w.Flush()
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.2f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.2f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.2f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
