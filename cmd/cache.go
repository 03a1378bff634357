package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/maude-cli/internal/mapper"
)

var cachePath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the term resolution cache",
	Long:  "Commands for viewing cached Device Problem fragment resolutions.",
}

// -- cache list --

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached fragment resolutions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		if c.Len() == 0 {
			fmt.Fprintln(os.Stderr, "Cache is empty.")
			return nil
		}
		formatCacheList(os.Stdout, c)
		return nil
	},
}

// -- cache stats --

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the cache contents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		resolved, unresolved := cacheTally(c)
		fmt.Printf("Entries:    %d\n", c.Len())
		fmt.Printf("Resolved:   %d\n", resolved)
		fmt.Printf("Unresolved: %d\n", unresolved)
		return nil
	},
}

func openCache() (*mapper.FileCache, error) {
	path := cachePath
	if path == "" {
		path = cfg.Cache.Path
	}
	return mapper.NewFileCache(path)
}

// formatCacheList writes the cached terms and their codes to w. Terms
// cached with an empty code are shown as (no match).
func formatCacheList(out io.Writer, c *mapper.FileCache) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TERM\tCODE")
	_, _ = fmt.Fprintln(w, "----\t----")

	for _, term := range c.Terms() {
		code, _ := c.Lookup(term)
		if code == "" {
			code = "(no match)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", term, code)
	}
	_ = w.Flush()
}

// cacheTally counts entries that resolved to a code versus entries cached
// as having no code.
func cacheTally(c *mapper.FileCache) (resolved, unresolved int) {
	for _, term := range c.Terms() {
		if code, _ := c.Lookup(term); code != "" {
			resolved++
		} else {
			unresolved++
		}
	}
	return resolved, unresolved
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "cache document path (default from config)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
