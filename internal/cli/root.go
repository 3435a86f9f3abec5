package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/di"
	"github.com/mikey/phish-shield/internal/logging"
)

// flagBindings maps persistent flags to configuration keys
var flagBindings = map[string]string{
	"provider":     "analyzer.provider",
	"timeout":      "analyzer.timeout",
	"remote-url":   "remote.base_url",
	"history-type": "history.type",
	"history-file": "history.file_path",
}

// app holds the services shared by the subcommands
type app struct {
	configFile string
	verbose    bool
	jsonLog    bool

	logger   *zap.Logger
	service  *core.AnalysisService
	history  *core.HistoryStore
	analyzer core.Analyzer
	repo     core.HistoryRepository
}

// NewRootCommand builds the phish-check command tree
func NewRootCommand() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "phish-check",
		Short:         "Analyze emails for phishing from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.jsonLog, "json-log", false, "Output logs in JSON format")
	flags.String("provider", "remote", "Analyzer provider (remote, openai, gemini, bedrock)")
	flags.String("timeout", "60s", "Analyzer timeout")
	flags.String("remote-url", "http://localhost:5000", "Base URL of the remote analysis service")
	flags.String("history-type", "file", "History backend (memory, file, sqlite, mysql, postgres)")
	flags.String("history-file", "phish_history.json", "History file for the file backend")

	root.AddCommand(
		newAnalyzeCommand(a),
		newSampleCommand(a),
		newHistoryCommand(a),
	)
	a.closeAfterRun(root)
	return root, a
}

// closeAfterRun releases the services once a command finishes, including
// when it fails. A post-run hook is skipped on error.
func (a *app) closeAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) (err error) {
			defer func() {
				if closeErr := a.close(); err == nil {
					err = closeErr
				}
			}()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.closeAfterRun(sub)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	logger, err := logging.InitConsoleLogger(a.verbose, a.jsonLog)
	if err != nil {
		return err
	}
	a.logger = logger

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagBindings {
		if err := cfg.GetViper().BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	container, err := di.BuildCLIContainer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container.Invoke(func(
		service *core.AnalysisService,
		history *core.HistoryStore,
		analyzer core.Analyzer,
		repo core.HistoryRepository,
	) {
		a.service = service
		a.history = history
		a.analyzer = analyzer
		a.repo = repo
	})
}

// close releases the analyzer and history repository. Calling it again is a no-op.
func (a *app) close() error {
	if a.logger != nil {
		defer func() { _ = a.logger.Sync() }()
	}

	// Close the analyzer client first
	if closer, ok := a.analyzer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Error("Failed to close analyzer", zap.Error(err))
		}
	}
	a.analyzer = nil

	if a.repo == nil {
		return nil
	}
	repo := a.repo
	a.repo = nil
	if err := repo.Close(); err != nil {
		return fmt.Errorf("failed to close history repository: %w", err)
	}
	return nil
}
