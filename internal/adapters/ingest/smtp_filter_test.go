package ingest

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phishMessage = "From: \"PayPal\" <support@paypa1.com>\r\n" +
	"To: victim@example.org\r\n" +
	"Subject: Verify now\r\n" +
	"\r\n" +
	"Click http://bit.ly/x\r\n"

type stubAnalyzer struct {
	score float64
	err   error
	calls int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ *core.AnalysisRequest) (*core.RawAnalysis, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &core.RawAnalysis{Score: core.NewRawScore(a.score), Reasons: []string{"Lookalike domain"}}, nil
}

type captureRelay struct {
	from string
	to   []string
	data []byte
	err  error
}

func (r *captureRelay) Send(from string, to []string, data []byte) error {
	r.from, r.to, r.data = from, to, data
	return r.err
}

func newFilter(analyzer core.Analyzer, relay Relay, opts Options, trusted ...string) (*SMTPFilter, *core.HistoryStore) {
	logger := zap.NewNop()
	service := core.NewAnalysisService(analyzer, core.DefaultUploadPolicy(), nil, logger)
	history := core.NewHistoryStore(context.Background(), nil, logger)
	return NewSMTPFilter(service, history, whitelist.NewChecker(trusted, logger), relay, opts, logger), history
}

func TestProcessStampsAndRecords(t *testing.T) {
	f, history := newFilter(&stubAnalyzer{score: 72}, nil, Options{ModifySubject: true})

	out, err := f.Process(context.Background(), "support@paypa1.com", []byte(phishMessage))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "X-Phish-Score: 72.0\r\n")
	assert.Contains(t, text, "X-Phish-Risk-Level: HIGH\r\n")
	assert.Contains(t, text, "Subject: [PHISHING] Verify now\r\n")
	assert.True(t, strings.HasSuffix(text, "\r\n\r\nClick http://bit.ly/x\r\n"))

	require.Equal(t, 1, history.Len())
	entry, err := history.Restore(0)
	require.NoError(t, err)
	assert.Equal(t, core.SourceSMTP, entry.Result.Source)
}

func TestProcessLeavesSubjectBelowHigh(t *testing.T) {
	f, _ := newFilter(&stubAnalyzer{score: 45}, nil, Options{ModifySubject: true})

	out, err := f.Process(context.Background(), "", []byte(phishMessage))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Subject: Verify now\r\n")
	assert.Contains(t, string(out), "X-Phish-Risk-Level: MEDIUM\r\n")
}

func TestProcessRejectsCritical(t *testing.T) {
	f, history := newFilter(&stubAnalyzer{score: 95}, nil, Options{BlockCritical: true})

	out, err := f.Process(context.Background(), "support@paypa1.com", []byte(phishMessage))
	assert.Nil(t, out)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, 1, history.Len())
}

func TestProcessRelaysOnAnalyzerFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: &core.RequestError{Message: "connection refused"}}
	f, history := newFilter(analyzer, nil, Options{BlockCritical: true})

	out, err := f.Process(context.Background(), "support@paypa1.com", []byte(phishMessage))
	require.NoError(t, err)
	assert.Contains(t, string(out), "X-Phish-Analysis-Error: ")
	assert.Contains(t, string(out), "connection refused")
	assert.Zero(t, history.Len())
}

func TestProcessSkipsTrustedSender(t *testing.T) {
	analyzer := &stubAnalyzer{score: 99}
	f, history := newFilter(analyzer, nil, Options{BlockCritical: true}, "paypa1.com")

	out, err := f.Process(context.Background(), "support@paypa1.com", []byte(phishMessage))
	require.NoError(t, err)
	assert.Equal(t, phishMessage, string(out))
	assert.Zero(t, analyzer.calls)
	assert.Zero(t, history.Len())
}

func TestProcessAnalyzesSpoofedTrustedFrom(t *testing.T) {
	analyzer := &stubAnalyzer{score: 95}
	f, history := newFilter(analyzer, nil, Options{BlockCritical: true}, "bank.com")

	msg := "From: Security <security@bank.com>\r\n" +
		"Subject: Account locked\r\n" +
		"\r\n" +
		"Confirm at http://bank.com.evil.example/login\r\n"

	out, err := f.Process(context.Background(), "attacker@evil.example", []byte(msg))
	assert.Nil(t, out)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, 1, history.Len())
}

func TestProcessTrustRequiresBothSenders(t *testing.T) {
	trustedFrom := "From: Billing <billing@bank.com>\r\nSubject: Statement\r\n\r\nHello\r\n"

	tests := []struct {
		name      string
		sender    string
		msg       string
		wantCalls int
	}{
		{name: "envelope and header trusted", sender: "billing@bank.com", msg: trustedFrom, wantCalls: 0},
		{name: "trusted subdomain envelope", sender: "bounce@mail.bank.com", msg: trustedFrom, wantCalls: 0},
		{name: "header only", sender: "attacker@evil.example", msg: trustedFrom, wantCalls: 1},
		{name: "envelope only", sender: "billing@bank.com", msg: phishMessage, wantCalls: 1},
		{name: "null envelope sender", sender: "", msg: trustedFrom, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{score: 10}
			f, _ := newFilter(analyzer, nil, Options{}, "bank.com")

			_, err := f.Process(context.Background(), tt.sender, []byte(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, analyzer.calls)
		})
	}
}

// slowAnalyzer answers only once the analysis deadline has passed
type slowAnalyzer struct{}

func (slowAnalyzer) Analyze(ctx context.Context, _ *core.AnalysisRequest) (*core.RawAnalysis, error) {
	<-ctx.Done()
	return &core.RawAnalysis{Score: core.NewRawScore(30)}, nil
}

type ctxRepo struct {
	mu      sync.Mutex
	saveErr []error
}

func (r *ctxRepo) Load(context.Context) ([]core.HistoryEntry, error) { return nil, nil }

func (r *ctxRepo) Save(ctx context.Context, _ []core.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = append(r.saveErr, ctx.Err())
	return ctx.Err()
}

func (r *ctxRepo) Close() error { return nil }

func TestProcessRecordsAfterAnalysisDeadline(t *testing.T) {
	logger := zap.NewNop()
	repo := &ctxRepo{}
	service := core.NewAnalysisService(slowAnalyzer{}, core.DefaultUploadPolicy(), nil, logger)
	history := core.NewHistoryStore(context.Background(), repo, logger)
	f := NewSMTPFilter(service, history, nil, nil, Options{AnalysisTimeout: 10 * time.Millisecond}, logger)

	_, err := f.Process(context.Background(), "support@paypa1.com", []byte(phishMessage))
	require.NoError(t, err)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.saveErr, 1)
	assert.NoError(t, repo.saveErr[0])
}

func TestSessionDataRelays(t *testing.T) {
	relay := &captureRelay{}
	f, _ := newFilter(&stubAnalyzer{score: 10}, relay, Options{})

	s := &session{filter: f}
	require.NoError(t, s.Mail("support@paypa1.com", nil))
	require.NoError(t, s.Rcpt("victim@example.org", nil))
	require.NoError(t, s.Data(strings.NewReader(phishMessage)))

	assert.Equal(t, "support@paypa1.com", relay.from)
	assert.Equal(t, []string{"victim@example.org"}, relay.to)
	assert.Contains(t, string(relay.data), "X-Phish-Risk-Level: SAFE\r\n")

	s.Reset()
	assert.Empty(t, s.sender)
	assert.Empty(t, s.recipients)
}

func TestSessionDataRelayFailure(t *testing.T) {
	f, _ := newFilter(&stubAnalyzer{score: 10}, &captureRelay{err: errors.New("down")}, Options{})

	s := &session{filter: f}
	err := s.Data(strings.NewReader(phishMessage))

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 451, smtpErr.Code)
}

type sinkBackend struct {
	mu       sync.Mutex
	messages [][]byte
	rcpts    []string
}

func (b *sinkBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &sinkSession{b: b}, nil
}

type sinkSession struct{ b *sinkBackend }

func (s *sinkSession) Reset()        {}
func (s *sinkSession) Logout() error { return nil }
func (s *sinkSession) Mail(string, *smtp.MailOptions) error {
	return nil
}
func (s *sinkSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if strings.HasSuffix(to, "@refused.test") {
		return &smtp.SMTPError{Code: 550, Message: "no such user"}
	}
	s.b.mu.Lock()
	s.b.rcpts = append(s.b.rcpts, to)
	s.b.mu.Unlock()
	return nil
}
func (s *sinkSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	s.b.messages = append(s.b.messages, data)
	s.b.mu.Unlock()
	return nil
}

func TestSMTPRelaySend(t *testing.T) {
	sink := &sinkBackend{}
	server := smtp.NewServer(sink)
	server.Domain = "localhost"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	defer server.Close()

	addr := ln.Addr().(*net.TCPAddr)
	relay := NewSMTPRelay("127.0.0.1", addr.Port, zap.NewNop())

	err = relay.Send("a@b.c", []string{"x@refused.test", "victim@example.org"}, []byte(phishMessage))
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.messages, 1)
	assert.Equal(t, []string{"victim@example.org"}, sink.rcpts)
	assert.Contains(t, string(sink.messages[0]), "Subject: Verify now")
}

func TestSMTPRelayAllRecipientsRefused(t *testing.T) {
	server := smtp.NewServer(&sinkBackend{})
	server.Domain = "localhost"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	defer server.Close()

	relay := NewSMTPRelay("127.0.0.1", ln.Addr().(*net.TCPAddr).Port, zap.NewNop())
	err = relay.Send("a@b.c", []string{"x@refused.test"}, []byte(phishMessage))
	assert.EqualError(t, err, "all recipients were rejected")
}
