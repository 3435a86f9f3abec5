package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/factory"
	"github.com/mikey/phish-shield/internal/logging"
	"github.com/mikey/phish-shield/internal/ports"
	"github.com/mikey/phish-shield/internal/utils"
)

// BuildContainer creates the daemon container. configFile may be empty to use
// the default search paths.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Provide configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configFile)
	}); err != nil {
		return nil, err
	}
	// Provide logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}
	if err := provideCore(container); err != nil {
		return nil, err
	}

	// Provide the HTTP and SMTP listeners
	if err := container.Provide(factory.NewListenerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ListenerFactory) ([]ports.Listener, error) {
		return f.CreateListeners()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers the analyzer, history and analysis service. It expects
// *config.Config and *zap.Logger to be provided already.
func provideCore(container *dig.Container) error {
	// Provide factories
	if err := container.Provide(factory.NewTextProcessor); err != nil {
		return err
	}
	if err := container.Provide(factory.NewAnalyzerFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return err
	}

	// Provide the analyzer for the configured provider
	if err := container.Provide(func(f *factory.AnalyzerFactory) (core.Analyzer, error) {
		return f.CreateAnalyzer(context.Background())
	}); err != nil {
		return err
	}

	// Provide history persistence and the in-memory store on top of it
	if err := container.Provide(func(f *factory.HistoryFactory) (core.HistoryRepository, error) {
		return f.CreateRepository(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.HistoryFactory, repo core.HistoryRepository) *core.HistoryStore {
		return f.CreateStore(context.Background(), repo)
	}); err != nil {
		return err
	}

	// Provide the upload policy, falling back to the defaults
	if err := container.Provide(func(cfg *config.Config) (core.UploadPolicy, error) {
		upload, err := cfg.GetUpload()
		if err != nil {
			return core.UploadPolicy{}, err
		}
		policy := core.DefaultUploadPolicy()
		policy.MaxBytes = upload.MaxBytes
		if len(upload.AllowedExtensions) > 0 {
			policy.AllowedExtensions = upload.AllowedExtensions
		}
		return policy, nil
	}); err != nil {
		return err
	}

	// Provide the analysis service
	return container.Provide(func(
		analyzer core.Analyzer,
		policy core.UploadPolicy,
		tp *utils.TextProcessor,
		logger *zap.Logger,
	) *core.AnalysisService {
		return core.NewAnalysisService(analyzer, policy, tp, logger)
	})
}
