package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SampleEmail is the built-in demo email, used when the analyzer has no sample of its own
const SampleEmail = `From: "PayPal Support" <support@paypa1.com>
Subject: URGENT! Verify your account NOW!

Dear User,

Your PayPal account has been flagged due to unusual activity.
Your account will be SUSPENDED if you don't verify immediately!

CLICK HERE to verify: http://bit.ly/paypal-verify-now

We also detected a login attempt from an unknown device.
Update your security information NOW!

Best regards,
PayPal Security Team

Attachment: verify-account.exe`

// TextSanitizer cleans decoded upload text
type TextSanitizer interface {
	SanitizeUTF8(text string) string
}

// AnalysisService validates input, calls the analyzer and assembles the result.
// It does not record history; callers pass the result to a HistoryStore themselves.
type AnalysisService struct {
	analyzer  Analyzer
	policy    UploadPolicy
	sanitizer TextSanitizer
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	analyzer Analyzer,
	policy UploadPolicy,
	sanitizer TextSanitizer,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		analyzer:  analyzer,
		policy:    policy,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Policy returns the upload policy
func (s *AnalysisService) Policy() UploadPolicy {
	return s.policy
}

// AnalyzeText analyzes pasted email text
func (s *AnalysisService) AnalyzeText(ctx context.Context, text string) (*AnalysisResult, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	return s.analyze(ctx, &AnalysisRequest{Text: text}, SourceText, "")
}

// AnalyzeFile analyzes an uploaded email file
func (s *AnalysisService) AnalyzeFile(ctx context.Context, name string, data []byte) (*AnalysisResult, error) {
	if err := s.policy.Validate(name, int64(len(data))); err != nil {
		return nil, err
	}

	text := string(data)
	if s.sanitizer != nil {
		text = s.sanitizer.SanitizeUTF8(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "file", Message: MsgEmptyFile}
	}

	req := &AnalysisRequest{File: &Upload{Name: name, Data: []byte(text)}}
	return s.analyze(ctx, req, SourceFile, name)
}

// AnalyzeMessage analyzes a message that arrived over another channel, e.g. SMTP
func (s *AnalysisService) AnalyzeMessage(ctx context.Context, text string, source Source) (*AnalysisResult, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if s.sanitizer != nil {
		text = s.sanitizer.SanitizeUTF8(text)
	}
	return s.analyze(ctx, &AnalysisRequest{Text: text}, source, "")
}

// Sample returns the demo email with its analysis
func (s *AnalysisService) Sample(ctx context.Context) (*SampleResult, error) {
	if provider, ok := s.analyzer.(SampleProvider); ok {
		text, raw, err := provider.Sample(ctx)
		if err != nil {
			return nil, err
		}
		return &SampleResult{
			Success:   true,
			EmailText: text,
			Analysis:  s.assemble(raw, SourceSample, ""),
		}, nil
	}

	result, err := s.analyze(ctx, &AnalysisRequest{Text: SampleEmail}, SourceSample, "")
	if err != nil {
		return nil, err
	}
	return &SampleResult{Success: true, EmailText: SampleEmail, Analysis: result}, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req *AnalysisRequest, source Source, filename string) (*AnalysisResult, error) {
	start := s.now()
	raw, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		s.logger.Error("Analysis failed",
			zap.String("source", string(source)),
			zap.Duration("elapsed", s.now().Sub(start)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to analyze email: %w", err)
	}

	result := s.assemble(raw, source, filename)
	s.logger.Info("Email analyzed",
		zap.String("id", result.ID),
		zap.String("source", string(source)),
		zap.Float64("score", result.Score),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Int("reasons", len(result.Reasons)),
		zap.Duration("elapsed", s.now().Sub(start)))
	return result, nil
}

func (s *AnalysisService) assemble(raw *RawAnalysis, source Source, filename string) *AnalysisResult {
	result := Assemble(raw, AssemblyMeta{
		ID:       s.newID(),
		Source:   source,
		Filename: filename,
		Now:      s.now(),
	})

	if raw != nil && raw.RiskLevel != "" && !strings.EqualFold(raw.RiskLevel, string(result.RiskLevel)) {
		s.logger.Warn("Ignoring analyzer risk level that disagrees with score",
			zap.String("upstream", raw.RiskLevel),
			zap.String("computed", string(result.RiskLevel)),
			zap.Float64("score", result.Score))
	}
	for _, w := range result.Warnings {
		s.logger.Warn("Analysis warning", zap.String("id", result.ID), zap.String("warning", w))
	}
	return result
}
