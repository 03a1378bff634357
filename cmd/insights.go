package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/insights"
	"github.com/sells-group/maude-cli/internal/store"
)

var (
	insightsPrefix        string
	insightsManufacturers []string
	insightsGrain         string
	insightsThresholdK    float64
	insightsRequestFile   string
	insightsTop           int
	insightsNoRun         bool
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Signal analytics over a resolved dataset",
}

var insightsMetaCmd = &cobra.Command{
	Use:   "meta <dataset>",
	Short: "List the prefixes and manufacturers available for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := insights.PrepareDataset(args[0], insights.DatasetOptions{Encoding: cfg.Dataset.Encoding})
		if err != nil {
			return err
		}

		fmt.Printf("Rows: %d (exploded %d, dated %d)\n", ds.TotalRows, ds.ExplodedRows, ds.DatedRows)
		fmt.Printf("Prefixes (%d): %s\n", len(ds.Prefixes), strings.Join(ds.Prefixes, ", "))
		fmt.Printf("Manufacturers (%d):\n", len(ds.Manufacturers))
		for _, m := range ds.Manufacturers {
			fmt.Printf("  %s\n", m)
		}
		return nil
	},
}

var insightsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <dataset>",
	Short: "Compute baselines, thresholds, and per-manufacturer series for a prefix",
	Long:  "Analyzes event volume for one three-character IMDRF prefix: universal and prefix baselines, mean plus/minus k standard deviations thresholds, and reporting series per manufacturer aligned on a shared bucket range.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]

		if insightsNoRun {
			result, err := analyzeDataset(input)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		run, err := st.CreateRun(ctx, store.RunKindInsights, input)
		if err != nil {
			return err
		}
		if err := st.UpdateRunStatus(ctx, run.ID, store.RunStatusRunning); err != nil {
			return err
		}

		result, err := analyzeDataset(input)
		if err != nil {
			_ = st.FailRun(ctx, run.ID, err.Error())
			return err
		}
		printResult(result)
		return st.CompleteRun(ctx, run.ID, result)
	},
}

// analyzeDataset prepares the dataset, resolves the effective prefix,
// manufacturers, grain, and threshold from flags, request file, and config,
// and runs the analysis.
func analyzeDataset(input string) (*insights.Result, error) {
	ds, err := insights.PrepareDataset(input, insights.DatasetOptions{Encoding: cfg.Dataset.Encoding})
	if err != nil {
		return nil, err
	}

	prefix := insightsPrefix
	manufacturers := insightsManufacturers

	grainName := insightsGrain
	if grainName == "" {
		grainName = cfg.Insights.Grain
	}
	k := insightsThresholdK
	if k <= 0 {
		k = cfg.Insights.ThresholdK
	}
	top := insightsTop
	if top <= 0 {
		top = cfg.Insights.TopManufacturers
	}

	if insightsRequestFile != "" {
		req, err := insights.LoadRequest(insightsRequestFile)
		if err != nil {
			return nil, err
		}
		prefix = req.Prefix
		if len(req.Manufacturers) > 0 {
			manufacturers = req.Manufacturers
		}
		if req.Grain != "" {
			grainName = req.Grain
		}
		if req.ThresholdK > 0 {
			k = req.ThresholdK
		}
	}

	if prefix == "" {
		if len(ds.Prefixes) == 0 {
			return nil, fmt.Errorf("insights: dataset has no coded events")
		}
		prefix = ds.Prefixes[0]
		zap.L().Info("insights: no prefix given, using first available", zap.String("prefix", prefix))
	}

	grain, err := insights.ParseGrain(grainName)
	if err != nil {
		return nil, err
	}

	if len(manufacturers) == 0 {
		manufacturers = insights.TopManufacturers(ds.Events, prefix, top)
		zap.L().Info("insights: no manufacturers given, using top by volume",
			zap.Strings("manufacturers", manufacturers))
	}

	return insights.Analyze(ds.Events, prefix, manufacturers, grain, k)
}

func printResult(r *insights.Result) {
	fmt.Printf("Prefix %s (grain %s, k=%.1f)\n", r.Prefix, r.Grain, r.ThresholdK)
	fmt.Printf("  Universal mean:  %.2f events/bucket\n", r.UniversalMean)
	fmt.Printf("  Prefix mean:     %.2f events/bucket (std %.2f)\n", r.PrefixMean, r.PrefixStd)
	fmt.Printf("  Upper threshold: %.2f\n", r.UpperThreshold)
	fmt.Printf("  Lower threshold: %.2f\n", r.LowerThreshold)
	if len(r.DateRange) > 0 {
		first := r.DateRange[0].Format("2006-01-02")
		last := r.DateRange[len(r.DateRange)-1].Format("2006-01-02")
		fmt.Printf("  Buckets:         %d (%s to %s)\n", len(r.DateRange), first, last)
	}
	fmt.Println()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Manufacturer", "Events", "Mean/Bucket", "Max/Bucket", "Active Buckets"})
	for _, s := range r.Stats {
		t.AppendRow(table.Row{
			s.Manufacturer,
			s.TotalEvents,
			fmt.Sprintf("%.2f", s.MeanPerBucket),
			s.MaxPerBucket,
			s.BucketsWithEvents,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func init() {
	insightsAnalyzeCmd.Flags().StringVarP(&insightsPrefix, "prefix", "p", "", "three-character IMDRF prefix to analyze")
	insightsAnalyzeCmd.Flags().StringSliceVarP(&insightsManufacturers, "manufacturers", "m", nil, "manufacturers to plot (default: top by volume)")
	insightsAnalyzeCmd.Flags().StringVarP(&insightsGrain, "grain", "g", "", "time grain: day, week, or month (default from config)")
	insightsAnalyzeCmd.Flags().Float64VarP(&insightsThresholdK, "threshold-k", "k", 0, "threshold multiplier (default from config)")
	insightsAnalyzeCmd.Flags().StringVarP(&insightsRequestFile, "request", "r", "", "YAML request file with prefix, manufacturers, grain, threshold_k")
	insightsAnalyzeCmd.Flags().IntVar(&insightsTop, "top", 0, "manufacturer count when selecting by volume (default from config)")
	insightsAnalyzeCmd.Flags().BoolVar(&insightsNoRun, "no-run", false, "skip run bookkeeping in the store")

	insightsCmd.AddCommand(insightsMetaCmd)
	insightsCmd.AddCommand(insightsAnalyzeCmd)
	rootCmd.AddCommand(insightsCmd)
}
