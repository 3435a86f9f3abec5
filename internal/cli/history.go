package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/phish-shield/internal/adapters/render"
	"github.com/mikey/phish-shield/internal/core"
)

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past analyses",
	}
	cmd.AddCommand(
		newHistoryListCommand(a),
		newHistoryShowCommand(a),
		newHistoryExportCommand(a),
		newHistoryClearCommand(a),
	)
	return cmd
}

func newHistoryListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := a.history.List()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No analyses in history")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tANALYZED\tLEVEL\tSCORE\tSOURCE\tSUBJECT")
			for i, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%s\n",
					i,
					e.RequestedAt.Local().Format(time.DateTime),
					e.Result.RiskLevel,
					e.Result.Score,
					e.Result.Source,
					subjectOrPlaceholder(e.Result.Subject))
			}
			return tw.Flush()
		},
	}
}

func newHistoryShowCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show INDEX",
		Short: "Show a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.entry(args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), entry.Result, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, html)")
	return cmd
}

func newHistoryExportCommand(a *app) *cobra.Command {
	var (
		format string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "export INDEX",
		Short: "Write a past analysis to a timestamped file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.entry(args[0])
			if err != nil {
				return err
			}

			var (
				data     []byte
				filename string
			)
			switch strings.ToLower(format) {
			case "json":
				data, filename, err = render.JSON(entry.Result, time.Now())
			case "text", "txt":
				data, filename, err = render.TextExport(entry.Result, time.Now())
			default:
				return fmt.Errorf("unknown export format %q (want json or text)", format)
			}
			if err != nil {
				return err
			}

			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (json, text)")
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "Directory to write the export to")
	return cmd
}

func newHistoryClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all past analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.history.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

func (a *app) entry(arg string) (core.HistoryEntry, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("history index must be an integer, got %q", arg)
	}
	return a.history.Restore(index)
}

func subjectOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return render.Placeholder
	}
	return s
}
