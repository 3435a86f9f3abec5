package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	raw   *RawAnalysis
	err   error
	calls []*AnalysisRequest
}

func (a *stubAnalyzer) Analyze(ctx context.Context, req *AnalysisRequest) (*RawAnalysis, error) {
	a.calls = append(a.calls, req)
	return a.raw, a.err
}

type sampleAnalyzer struct {
	stubAnalyzer
	text string
}

func (a *sampleAnalyzer) Sample(ctx context.Context) (string, *RawAnalysis, error) {
	return a.text, a.raw, nil
}

type dropInvalid struct{}

func (dropInvalid) SanitizeUTF8(text string) string {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if r != '�' {
			out = append(out, r)
		}
	}
	return string(out)
}

func newTestService(analyzer Analyzer) *AnalysisService {
	svc := NewAnalysisService(analyzer, DefaultUploadPolicy(), dropInvalid{}, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "fixed-id" }
	return svc
}

func TestAnalyzeText(t *testing.T) {
	analyzer := &stubAnalyzer{raw: &RawAnalysis{Score: NewRawScore(65), RiskLevel: "CRITICAL", Reasons: []string{"Urgent"}}}
	svc := newTestService(analyzer)

	result, err := svc.AnalyzeText(context.Background(), "Subject: hi\n\nbody")
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", result.ID)
	assert.Equal(t, SourceText, result.Source)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Equal(t, fixedNow, result.Timestamp)
	require.Len(t, analyzer.calls, 1)
	assert.Equal(t, "Subject: hi\n\nbody", analyzer.calls[0].Text)
}

func TestAnalyzeTextRejectsEmptyBeforeAnalyzer(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc := newTestService(analyzer)

	_, err := svc.AnalyzeText(context.Background(), "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgEmptyText, verr.Message)
	assert.Empty(t, analyzer.calls)
}

func TestAnalyzeFileRejectsExecutableBeforeAnalyzer(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc := newTestService(analyzer)

	_, err := svc.AnalyzeFile(context.Background(), "invoice.exe", make([]byte, 10))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgInvalidFileType, verr.Message)
	assert.Empty(t, analyzer.calls)
}

func TestAnalyzeFileEmpty(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc := newTestService(analyzer)

	_, err := svc.AnalyzeFile(context.Background(), "empty.eml", []byte(" \n"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgEmptyFile, verr.Message)
	assert.Empty(t, analyzer.calls)
}

func TestAnalyzeFileSanitizesAndSetsFilename(t *testing.T) {
	analyzer := &stubAnalyzer{raw: &RawAnalysis{Score: NewRawScore(5)}}
	svc := newTestService(analyzer)

	result, err := svc.AnalyzeFile(context.Background(), "mail.eml", []byte("Subject: ok\xff\n\nhello"))
	require.NoError(t, err)

	assert.Equal(t, SourceFile, result.Source)
	assert.Equal(t, "mail.eml", result.Filename)
	require.Len(t, analyzer.calls, 1)
	require.NotNil(t, analyzer.calls[0].File)
	assert.Equal(t, "Subject: ok\n\nhello", string(analyzer.calls[0].File.Data))
	assert.Equal(t, "mail.eml", analyzer.calls[0].File.Name)
}

func TestAnalyzeWrapsAnalyzerErrors(t *testing.T) {
	analyzer := &stubAnalyzer{err: &RequestError{StatusCode: 503, Message: "unavailable"}}
	svc := newTestService(analyzer)

	_, err := svc.AnalyzeText(context.Background(), "body")
	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 503, rerr.StatusCode)
}

func TestSampleUsesBuiltInEmail(t *testing.T) {
	analyzer := &stubAnalyzer{raw: &RawAnalysis{Score: NewRawScore(88)}}
	svc := newTestService(analyzer)

	sample, err := svc.Sample(context.Background())
	require.NoError(t, err)

	assert.True(t, sample.Success)
	assert.Equal(t, SampleEmail, sample.EmailText)
	assert.Equal(t, SourceSample, sample.Analysis.Source)
	assert.Equal(t, RiskCritical, sample.Analysis.RiskLevel)
	require.Len(t, analyzer.calls, 1)
	assert.Equal(t, SampleEmail, analyzer.calls[0].Text)
}

func TestSampleUsesProvider(t *testing.T) {
	analyzer := &sampleAnalyzer{
		stubAnalyzer: stubAnalyzer{raw: &RawAnalysis{Score: NewRawScore(30)}},
		text:         "provider sample",
	}
	svc := newTestService(analyzer)

	sample, err := svc.Sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "provider sample", sample.EmailText)
	assert.Equal(t, RiskLow, sample.Analysis.RiskLevel)
	assert.Empty(t, analyzer.calls)
}

func TestServiceDoesNotRecordHistory(t *testing.T) {
	repo := &fakeRepo{}
	store := NewHistoryStore(context.Background(), repo, zap.NewNop())
	svc := newTestService(&stubAnalyzer{raw: &RawAnalysis{Score: NewRawScore(10)}})

	result, err := svc.AnalyzeText(context.Background(), "body")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	_, err = store.Record(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
