package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-shield/internal/config"
)

// BuildCLIContainer creates the container for the command line tool. The CLI
// builds its own configuration from flags and its own console logger.
func BuildCLIContainer(cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *zap.Logger { return logger }); err != nil {
		return nil, err
	}
	if err := provideCore(container); err != nil {
		return nil, err
	}

	return container, nil
}
