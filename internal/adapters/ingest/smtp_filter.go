package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
	"github.com/mikey/phish-shield/internal/whitelist"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is used when subject rewriting is on and no prefix is configured
const DefaultSubjectPrefix = "[PHISHING] "

// recordTimeout bounds a single history save
const recordTimeout = 5 * time.Second

// Relay delivers processed mail to the next hop
type Relay interface {
	Send(from string, to []string, data []byte) error
}

// Options configures the SMTP filter
type Options struct {
	ListenAddr      string
	BlockCritical   bool
	ModifySubject   bool
	SubjectPrefix   string
	Headers         HeaderNames
	AnalysisTimeout time.Duration
	MaxMessageBytes int64
}

// SMTPFilter is an SMTP content filter: it analyzes each message, records the
// verdict in history, stamps it on the message and relays it
type SMTPFilter struct {
	service *core.AnalysisService
	history *core.HistoryStore
	trusted *whitelist.Checker
	relay   Relay
	opts    Options
	logger  *zap.Logger
	server  *smtp.Server
}

// NewSMTPFilter creates a new SMTP filter. relay may be nil, in which case
// processed mail is accepted without forwarding.
func NewSMTPFilter(
	service *core.AnalysisService,
	history *core.HistoryStore,
	trusted *whitelist.Checker,
	relay Relay,
	opts Options,
	logger *zap.Logger,
) *SMTPFilter {
	if opts.ModifySubject && opts.SubjectPrefix == "" {
		opts.SubjectPrefix = DefaultSubjectPrefix
	}
	if opts.Headers == (HeaderNames{}) {
		opts.Headers = DefaultHeaderNames()
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 30 * time.Second
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 30 * 1024 * 1024
	}

	return &SMTPFilter{
		service: service,
		history: history,
		trusted: trusted,
		relay:   relay,
		opts:    opts,
		logger:  logger,
	}
}

// Start starts the SMTP listener
func (f *SMTPFilter) Start() error {
	// Create a new SMTP server
	f.server = smtp.NewServer(&backend{filter: f})

	// Configure the server
	f.server.Addr = f.opts.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.opts.MaxMessageBytes
	f.server.MaxRecipients = 50

	// Listen before returning so bind errors reach the caller
	ln, err := net.Listen("tcp", f.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddr, err)
	}

	f.logger.Info("SMTP ingest starting", zap.String("address", ln.Addr().String()))

	// Serve in a goroutine
	go func() {
		if err := f.server.Serve(ln); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP listener
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// isTrusted reports whether the message may skip analysis. The envelope
// sender is required since the From header alone can be forged.
func (f *SMTPFilter) isTrusted(sender, from string) bool {
	if f.trusted == nil || sender == "" {
		return false
	}
	return f.trusted.IsWhitelisted(sender) && f.trusted.IsWhitelisted(from)
}

// Process runs one message through the filter and returns the bytes to relay.
// A non-nil error rejects the message.
func (f *SMTPFilter) Process(ctx context.Context, sender string, raw []byte) ([]byte, error) {
	email := utils.ParseEmail(string(raw))
	from := email.From
	if from == "" {
		from = sender
	}

	// Both the envelope sender and the From header must be trusted
	if f.isTrusted(sender, from) {
		f.logger.Info("Skipping analysis for trusted sender",
			zap.String("sender", sender),
			zap.String("from", from))
		return raw, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.AnalysisTimeout)
	defer cancel()

	result, err := f.service.AnalyzeMessage(ctx, string(raw), core.SourceSMTP)
	if err != nil {
		// mail is never dropped because the analyzer is unavailable
		f.logger.Error("Relaying unanalyzed message",
			zap.String("from", from),
			zap.Error(err))
		return StampMessage(raw, f.opts.Headers, Stamp{AnalysisErr: err}), nil
	}

	if f.history != nil {
		// The save gets its own deadline, not what is left of the analysis timeout
		recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		_, err := f.history.Record(recordCtx, result)
		cancelRecord()
		if err != nil {
			f.logger.Warn("Analysis not persisted to history", zap.String("id", result.ID), zap.Error(err))
		}
	}

	if f.opts.BlockCritical && result.RiskLevel == core.RiskCritical {
		f.logger.Info("Rejecting critical message",
			zap.String("id", result.ID),
			zap.String("from", from),
			zap.Float64("score", result.Score))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %.0f)", result.Score),
		}
	}

	stamp := Stamp{Result: result}
	if f.opts.ModifySubject && result.RiskLevel.AtLeast(core.RiskHigh) {
		stamp.SubjectPrefix = f.opts.SubjectPrefix
	}

	f.logger.Info("Processed message",
		zap.String("id", result.ID),
		zap.String("from", from),
		zap.Float64("score", result.Score),
		zap.String("risk_level", string(result.RiskLevel)))
	return StampMessage(raw, f.opts.Headers, stamp), nil
}

type backend struct {
	filter *SMTPFilter
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{filter: b.filter}, nil
}

type session struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset clears the envelope between messages
func (s *session) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the envelope sender
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data filters the message and hands it to the relay
func (s *session) Data(r io.Reader) error {
	// Read the complete raw message data
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.Process(context.Background(), s.sender, raw)
	if err != nil {
		return err
	}

	if s.filter.relay == nil {
		return nil
	}
	// A relay failure is temporary so the sender retries
	if err := s.filter.relay.Send(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to relay message", zap.String("sender", s.sender), zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 4, 0},
			Message:      "Relay temporarily unavailable",
		}
	}
	return nil
}

func (s *session) Logout() error {
	return nil
}
