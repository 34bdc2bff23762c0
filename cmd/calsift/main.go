package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepak-highbeam/calsift/internal/pipeline"
	"github.com/deepak-highbeam/calsift/internal/report"
	"github.com/deepak-highbeam/calsift/internal/rules"
	"github.com/deepak-highbeam/calsift/internal/watcher"

	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "calsift",
		Short: "Clean up and analyze calendar exports",
		Long: `calsift loads calendar exports (CSV or iCalendar), normalizes event names
with user-written rules and reports where the time went.

The working set and rules are kept in a local SQLite database between runs.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: ~/.calsift/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "Override database path (default: from config)")

	rootCmd.AddCommand(loadCmd(g))
	rootCmd.AddCommand(filesCmd(g))
	rootCmd.AddCommand(clearCmd(g))
	rootCmd.AddCommand(rulesCmd(g))
	rootCmd.AddCommand(applyCmd(g))
	rootCmd.AddCommand(statsCmd(g))
	rootCmd.AddCommand(heatmapCmd(g))
	rootCmd.AddCommand(exportCmd(g))
	rootCmd.AddCommand(notesCmd(g))
	rootCmd.AddCommand(watchCmd(g))

	return rootCmd
}

func loadCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE...",
		Short: "Append CSV or iCalendar files to the working set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()

				loaded, err := a.ctrl.LoadFiles(ctx, args)
				for _, lf := range loaded {
					fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s - %d events\n", lf.Batch.FileName, lf.Batch.RowCount)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Working set: %d events\n", a.ctrl.Len())
				if err != nil {
					return fmt.Errorf("load files: %w", err)
				}
				return nil
			})
		},
	}
}

func filesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List loaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				batches, err := a.ctrl.Batches()
				if err != nil {
					return fmt.Errorf("list files: %w", err)
				}
				size, err := a.store.DBSizeBytes()
				if err != nil {
					return fmt.Errorf("database size: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), report.FormatBatches(batches, size))
				return nil
			})
		},
	}
}

func clearCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the working set (rules and notes are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				if err := a.ctrl.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Working set cleared")
				return nil
			})
		},
	}
}

func rulesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show, store or preview normalization rules",
		Long: `Rules are one per line:

  pattern=>Name          map events matching pattern to Name
  Name<=p1,p2,...        map any of the patterns to Name
  id:calendar=>Name      match on calendar ID instead of summary

Patterns match case-insensitively; "*" is a wildcard. Use IGNORE as the
name to drop matching events from statistics. The first matching rule wins.`,
	}
	cmd.AddCommand(rulesShowCmd(g))
	cmd.AddCommand(rulesSetCmd(g))
	cmd.AddCommand(rulesTestCmd(g))
	return cmd
}

func rulesShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored rule text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				text := a.ctrl.RuleText()
				if strings.TrimSpace(text) == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "no rules stored")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
				return nil
			})
		},
	}
}

func rulesSetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "set [FILE|-]",
		Short: "Store rule text (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			text, err := readRuleText(cmd, src)
			if err != nil {
				return err
			}
			return g.withApp(func(a *app) error {
				if err := a.ctrl.SetRuleText(text); err != nil {
					return ruleError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d rules\n", len(rules.Parse(text)))
				return nil
			})
		},
	}
}

func rulesTestCmd(g *globals) *cobra.Command {
	var unmatched bool

	cmd := &cobra.Command{
		Use:   "test [FILE|-]",
		Short: "Preview unique events under rules without storing anything",
		Long: `Preview how rules map the unique event names and calendars of the
working set. Without an argument the stored rules are previewed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				text := a.ctrl.RuleText()
				if len(args) == 1 {
					var err error
					if text, err = readRuleText(cmd, args[0]); err != nil {
						return err
					}
				}
				p, err := a.ctrl.Test(text)
				if err != nil {
					return ruleError(err)
				}
				fmt.Fprint(cmd.OutOrStdout(), report.FormatPreview(p, unmatched))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "Only list entries no rule matched")

	return cmd
}

func applyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [FILE|-]",
		Short: "Store rule text and normalize the working set with it",
		Long: `Store rule text and normalize the working set with it. Without an
argument the stored rules are applied again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				text := a.ctrl.RuleText()
				if len(args) == 1 {
					var err error
					if text, err = readRuleText(cmd, args[0]); err != nil {
						return err
					}
				}
				res, err := a.ctrl.Apply(text)
				if err != nil {
					return ruleError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.String())
				return nil
			})
		},
	}
}

func statsCmd(g *globals) *cobra.Command {
	var (
		jsonOutput bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the statistics summary of the working set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				s, err := a.ctrl.Stats()
				if err != nil {
					return resultError("compute stats", err)
				}
				if top == 0 {
					top = a.cfg.TopCategories
				}
				if jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(report.NewStatsReport(s, top)))
				} else {
					fmt.Fprint(cmd.OutOrStdout(), report.FormatStats(s, top))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&top, "top", 0, "Categories to list, -1 for all (default: from config)")

	return cmd
}

func heatmapCmd(g *globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Show the day by hour grid of dominant categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				h, err := a.ctrl.Heatmap()
				if err != nil {
					return resultError("build heatmap", err)
				}
				if jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(report.NewHeatmapReport(h)))
				} else {
					fmt.Fprint(cmd.OutOrStdout(), report.FormatHeatmap(h))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export analyzed events as CSV or an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown export format %q (want csv or xlsx)", format)
			}
			return g.withApp(func(a *app) error {
				rows, err := a.ctrl.ExportRows()
				if err != nil {
					return resultError("export", err)
				}

				w := cmd.OutOrStdout()
				if format == "xlsx" && out == "" {
					out = "calsift-export.xlsx"
				}
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("create %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}

				if format == "csv" {
					err = report.WriteCSV(w, rows)
				} else {
					err = writeWorkbook(a, w, rows)
				}
				if err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", len(rows), out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout for csv, calsift-export.xlsx for xlsx)")

	return cmd
}

func notesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Show the stored notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				notes, err := a.ctrl.Notes()
				if err != nil {
					return fmt.Errorf("read notes: %w", err)
				}
				if notes != "" {
					fmt.Fprintln(cmd.OutOrStdout(), notes)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set TEXT...",
		Short: "Replace the stored notes",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				if err := a.ctrl.SetNotes(strings.Join(args, " ")); err != nil {
					return fmt.Errorf("save notes: %w", err)
				}
				return nil
			})
		},
	})

	return cmd
}

func watchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Import new calendar exports dropped into a directory",
		Long: `Watch a directory (default: import_dir from config) and append new or
modified .csv and .ics files to the working set. Files already loaded are
skipped. The rescan schedule from config also picks up files the watcher
missed. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(a *app) error {
				dir := a.cfg.ImportDir
				if len(args) == 1 {
					dir = args[0]
				}

				ctx, stop := signalContext(cmd.Context())
				defer stop()

				out := cmd.OutOrStdout()
				w := watcher.New(a.ctrl, watcher.Options{
					Dir:            dir,
					IgnorePatterns: a.cfg.IgnorePatterns,
					Rescan:         a.cfg.Rescan,
					Location:       a.loc,
					OnLoad: func(loaded []pipeline.LoadedFile) {
						for _, lf := range loaded {
							fmt.Fprintf(out, "Loaded %s - %d events\n", lf.Batch.FileName, lf.Batch.RowCount)
						}
					},
				})
				fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", dir)

				err := w.Start(ctx)
				w.Stop()
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("watch %s: %w", dir, err)
				}
				return nil
			})
		},
	}
}

// ruleError turns an empty rule set into a friendlier message.
func ruleError(err error) error {
	if errors.Is(err, rules.ErrNoRules) {
		return fmt.Errorf("no valid rules found (expected lines like `pattern=>Name`): %w", err)
	}
	return err
}

func resultError(action string, err error) error {
	if errors.Is(err, pipeline.ErrEmptyWorkingSet) {
		return fmt.Errorf("%s: %w (load files with `calsift load`)", action, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}
