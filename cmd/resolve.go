package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/maude-cli/internal/fetcher"
	"github.com/sells-group/maude-cli/internal/mapper"
	"github.com/sells-group/maude-cli/internal/store"
)

var (
	resolveOutput string
	resolveAnnex  string
	resolveNoRun  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <dataset>",
	Short: "Resolve the Device Problem column of a cleaned dataset to IMDRF codes",
	Long:  "Reads a cleaned CSV or XLSX dataset, resolves every Device Problem value through the Annex (deterministic match first, assisted fallback second), and writes a CSV with an IMDRF Code column.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]

		output := resolveOutput
		if output == "" {
			ext := filepath.Ext(input)
			output = strings.TrimSuffix(input, ext) + "_imdrf.csv"
		}

		annexPath := resolveAnnex
		if annexPath == "" {
			annexPath = cfg.Annex.Path
		}

		var run *store.Run
		if !resolveNoRun {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			run, err = st.CreateRun(ctx, store.RunKindResolve, input)
			if err != nil {
				return err
			}
			if err := st.UpdateRunStatus(ctx, run.ID, store.RunStatusRunning); err != nil {
				return err
			}

			m, selector, err := initMapper(annexPath)
			if err != nil {
				_ = st.FailRun(ctx, run.ID, err.Error())
				return err
			}

			rows, err := resolveDataset(ctx, input, output, m)
			if err != nil {
				_ = st.FailRun(ctx, run.ID, err.Error())
				return err
			}

			stats := m.Stats()
			logResolveStats(input, output, rows, stats, selector)
			return st.CompleteRun(ctx, run.ID, map[string]any{
				"output": output,
				"rows":   rows,
				"stats":  stats,
			})
		}

		m, selector, err := initMapper(annexPath)
		if err != nil {
			return err
		}
		rows, err := resolveDataset(ctx, input, output, m)
		if err != nil {
			return err
		}
		logResolveStats(input, output, rows, m.Stats(), selector)
		return nil
	},
}

func logResolveStats(input, output string, rows int, stats mapper.Stats, selector *mapper.ClaudeSelector) {
	zap.L().Info("resolve: dataset complete",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("rows", rows),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("deterministic", stats.Deterministic),
		zap.Int("assisted", stats.Assisted),
		zap.Int("unresolved", stats.Unresolved),
	)
	if selector != nil {
		selector.Usage().LogCost(selector.Model(), "annex-select")
	}
}

// resolveDataset streams the input, resolves each record's Device Problem
// value, and writes the output CSV with an IMDRF Code column added or
// replaced. Returns the number of data rows written.
func resolveDataset(ctx context.Context, input, output string, m *mapper.Mapper) (int, error) {
	// The group context reaches the stream producer so a consumer error
	// cancels it; otherwise an early consumer exit leaves the producer
	// blocked on a full channel and Wait never returns.
	g, gCtx := errgroup.WithContext(ctx)

	rowCh, errCh, closeInput, err := openRows(gCtx, input)
	if err != nil {
		return 0, err
	}
	defer closeInput() //nolint:errcheck

	out, err := os.Create(output)
	if err != nil {
		return 0, eris.Wrapf(err, "resolve: create %s", output)
	}
	defer out.Close() //nolint:errcheck

	w := csv.NewWriter(out)
	rows := 0

	g.Go(func() error {
		for err := range errCh {
			if err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		problemCol, codeCol := -1, -1
		first := true

		for row := range rowCh {
			if first {
				first = false
				for i, col := range row {
					switch strings.ToLower(strings.TrimSpace(col)) {
					case "device problem":
						problemCol = i
					case "imdrf code":
						codeCol = i
					}
				}
				if problemCol < 0 {
					return eris.New("resolve: missing required column: Device Problem")
				}
				header := row
				if codeCol < 0 {
					header = append(append([]string{}, row...), "IMDRF Code")
				}
				if err := w.Write(header); err != nil {
					return eris.Wrap(err, "resolve: write header")
				}
				continue
			}

			var problem string
			if problemCol < len(row) {
				problem = row[problemCol]
			}
			code := m.MapDeviceProblem(gCtx, problem)

			record := append([]string{}, row...)
			if codeCol >= 0 {
				for len(record) <= codeCol {
					record = append(record, "")
				}
				record[codeCol] = code
			} else {
				record = append(record, code)
			}

			if err := w.Write(record); err != nil {
				return eris.Wrap(err, "resolve: write row")
			}
			rows++
		}

		w.Flush()
		return eris.Wrap(w.Error(), "resolve: flush output")
	})

	if err := g.Wait(); err != nil {
		return rows, err
	}
	return rows, nil
}

// openRows streams a CSV or reads an XLSX into the same channel shape.
// The returned closer releases the underlying file once the channels are
// drained.
func openRows(ctx context.Context, input string) (<-chan []string, <-chan error, func() error, error) {
	noop := func() error { return nil }

	switch ext := strings.ToLower(filepath.Ext(input)); ext {
	case ".csv":
		f, err := os.Open(input)
		if err != nil {
			return nil, nil, nil, eris.Wrapf(err, "resolve: open %s", input)
		}
		rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
			TrimSpace:  true,
			LazyQuotes: true,
			Encoding:   cfg.Dataset.Encoding,
		})
		return rowCh, errCh, f.Close, nil
	case ".xlsx", ".xls":
		rows, err := fetcher.ReadXLSX(input)
		if err != nil {
			return nil, nil, nil, err
		}
		rowCh := make(chan []string, len(rows))
		errCh := make(chan error)
		for _, row := range rows {
			rowCh <- row
		}
		close(rowCh)
		close(errCh)
		return rowCh, errCh, noop, nil
	default:
		return nil, nil, nil, eris.Errorf("resolve: unsupported file format %q (want CSV, XLS, or XLSX)", ext)
	}
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "", "output CSV path (default: <input>_imdrf.csv)")
	resolveCmd.Flags().StringVar(&resolveAnnex, "annex", "", "Annex workbook path (default from config)")
	resolveCmd.Flags().BoolVar(&resolveNoRun, "no-run", false, "skip run bookkeeping in the store")
	rootCmd.AddCommand(resolveCmd)
}
