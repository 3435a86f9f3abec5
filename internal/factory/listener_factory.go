package factory

import (
	"github.com/mikey/phish-shield/internal/adapters/httpapi"
	"github.com/mikey/phish-shield/internal/adapters/ingest"
	"github.com/mikey/phish-shield/internal/config"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/ports"
	"github.com/mikey/phish-shield/internal/whitelist"
	"go.uber.org/zap"
)

// ListenerFactory creates the daemon's network front ends
type ListenerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.AnalysisService
	history *core.HistoryStore
}

// NewListenerFactory creates a new listener factory
func NewListenerFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.AnalysisService,
	history *core.HistoryStore,
) *ListenerFactory {
	return &ListenerFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		history: history,
	}
}

// CreateListeners returns the HTTP API and, when enabled, the SMTP ingest
func (f *ListenerFactory) CreateListeners() ([]ports.Listener, error) {
	api, err := f.CreateHTTPServer()
	if err != nil {
		return nil, err
	}
	listeners := []ports.Listener{api}

	if ingestCfg := f.cfg.GetIngest(); ingestCfg.Enabled {
		filter, err := f.CreateIngest()
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, filter)
	}
	return listeners, nil
}

// CreateHTTPServer creates the HTTP API server
func (f *ListenerFactory) CreateHTTPServer() (*httpapi.Server, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}
	analyzerCfg, err := f.cfg.GetAnalyzer()
	if err != nil {
		return nil, err
	}

	logger := f.logger.Named("http")
	handler := httpapi.NewHandler(f.service, f.history, core.NewInflightGuard(), analyzerCfg.Timeout, logger)
	router := httpapi.NewRouter(handler, logger)
	return httpapi.NewServer(serverCfg.ListenAddress, serverCfg.ReadTimeout, serverCfg.WriteTimeout, router, logger), nil
}

// CreateIngest creates the SMTP ingest filter
func (f *ListenerFactory) CreateIngest() (*ingest.SMTPFilter, error) {
	ingestCfg := f.cfg.GetIngest()
	analyzerCfg, err := f.cfg.GetAnalyzer()
	if err != nil {
		return nil, err
	}
	upload, err := f.cfg.GetUpload()
	if err != nil {
		return nil, err
	}

	logger := f.logger.Named("ingest")

	var relay ingest.Relay
	if ingestCfg.RelayEnabled {
		relay = ingest.NewSMTPRelay(ingestCfg.RelayAddress, ingestCfg.RelayPort, logger)
	} else {
		logger.Warn("Relay disabled; accepted mail is not forwarded")
	}

	headers := ingest.DefaultHeaderNames()
	if ingestCfg.ScoreHeader != "" {
		headers.Score = ingestCfg.ScoreHeader
	}
	if ingestCfg.LevelHeader != "" {
		headers.Level = ingestCfg.LevelHeader
	}
	if ingestCfg.ReasonsHeader != "" {
		headers.Reasons = ingestCfg.ReasonsHeader
	}

	return ingest.NewSMTPFilter(
		f.service,
		f.history,
		whitelist.NewChecker(ingestCfg.TrustedDomains, logger),
		relay,
		ingest.Options{
			ListenAddr:      ingestCfg.ListenAddress,
			BlockCritical:   ingestCfg.BlockCritical,
			ModifySubject:   ingestCfg.ModifySubject,
			SubjectPrefix:   ingestCfg.SubjectPrefix,
			Headers:         headers,
			AnalysisTimeout: analyzerCfg.Timeout,
			MaxMessageBytes: upload.MaxBytes,
		},
		logger,
	), nil
}
