package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phish-shield/internal/core"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		format    string
		noHistory bool
		failOn    string
	)

	cmd := &cobra.Command{
		Use:   "analyze [FILE]",
		Short: "Analyze an email file, or stdin when FILE is omitted or -",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold core.RiskLevel
			if failOn != "" {
				level, ok := core.ParseRiskLevel(failOn)
				if !ok {
					return fmt.Errorf("unknown risk level %q", failOn)
				}
				threshold = level
			}

			result, err := a.analyzeInput(cmd.Context(), cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			if !noHistory {
				if _, err := a.history.Record(cmd.Context(), result); err != nil {
					a.logger.Warn("Analysis not persisted to history", zap.Error(err))
				}
			}

			if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			if threshold != "" && result.RiskLevel.AtLeast(threshold) {
				return fmt.Errorf("risk level %s is at or above %s", result.RiskLevel, threshold)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, html)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the result in history")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when the risk level is at least this level")
	return cmd
}

func (a *app) analyzeInput(ctx context.Context, stdin io.Reader, args []string) (*core.AnalysisResult, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		a.logger.Debug("Analyzing stdin", zap.Int("bytes", len(data)))
		return a.service.AnalyzeText(ctx, string(data))
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	name := filepath.Base(path)

	// name and size are checked before the file is read
	if err := a.service.Policy().Validate(name, info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	a.logger.Debug("Analyzing file", zap.String("file", path), zap.Int("bytes", len(data)))
	return a.service.AnalyzeFile(ctx, name, data)
}

func newSampleCommand(a *app) *cobra.Command {
	var (
		format    string
		showEmail bool
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Analyze the built-in demo email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sample, err := a.service.Sample(cmd.Context())
			if err != nil {
				return err
			}
			if showEmail {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", sample.EmailText)
			}
			return writeResult(cmd.OutOrStdout(), sample.Analysis, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, html)")
	cmd.Flags().BoolVar(&showEmail, "show-email", false, "Print the sample email before its analysis")
	return cmd
}
