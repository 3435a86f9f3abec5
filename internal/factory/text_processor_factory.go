package factory

import (
	"github.com/mikey/phish-shield/internal/utils"
	"go.uber.org/zap"
)

// NewTextProcessor creates the shared text processor. It serves both as the
// prompt builder's truncator and as the upload sanitizer.
func NewTextProcessor(logger *zap.Logger) *utils.TextProcessor {
	return utils.NewTextProcessor(logger.Named("text"))
}
