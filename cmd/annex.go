package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/maude-cli/internal/annex"
)

var annexCmd = &cobra.Command{
	Use:   "annex",
	Short: "Inspect the Annex controlled vocabulary",
}

var annexInfoCmd = &cobra.Command{
	Use:   "info [workbook]",
	Short: "Load the Annex workbook and print vocabulary counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Annex.Path
		if len(args) == 1 {
			path = args[0]
		}

		a, err := annex.Load(path)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Level 1 terms: %d\n", len(a.Level1Map))
		fmt.Fprintf(os.Stdout, "Level 2 terms: %d\n", len(a.Level2Map))
		fmt.Fprintf(os.Stdout, "Level 3 terms: %d\n", len(a.Level3Map))
		fmt.Fprintf(os.Stdout, "Total codes:   %d\n", a.CodeCount())
		return nil
	},
}

func init() {
	annexCmd.AddCommand(annexInfoCmd)
	rootCmd.AddCommand(annexCmd)
}
