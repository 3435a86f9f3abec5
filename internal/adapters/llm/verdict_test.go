package llm

import (
	"testing"

	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseVerdictPlainJSON(t *testing.T) {
	raw, err := ParseVerdict(`{"score": 83, "reasons": ["Lookalike domain"], "urls": [{"url": "http://bit.ly/x", "score": 70, "issues": ["URL shortener"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, 83.0, raw.Score.Value)
	require.Len(t, raw.URLs, 1)
	assert.Equal(t, []string{"URL shortener"}, raw.URLs[0].Issues)
}

func TestParseVerdictWrappedInProse(t *testing.T) {
	raw, err := ParseVerdict("Here is the analysis:\n```json\n{\"score\": 15, \"reasons\": []}\n```")
	require.NoError(t, err)
	assert.Equal(t, 15.0, raw.Score.Value)
}

func TestParseVerdictWithoutJSON(t *testing.T) {
	_, err := ParseVerdict("I cannot analyze this email.")
	var merr *core.MalformedResponseError
	assert.ErrorAs(t, err, &merr)
}

func TestBuildPrompt(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	req := &core.AnalysisRequest{Text: "From: PayPal <support@paypa1.com>\r\nTo: a@example.com, b@example.com\r\nSubject: Verify now\r\n\r\nClick http://bit.ly/x immediately"}

	prompt := BuildPrompt(req, tp, 10)

	assert.Equal(t, "Verify now", prompt.Email.Subject)
	assert.Contains(t, prompt.Text, "From: PayPal <support@paypa1.com>")
	assert.Contains(t, prompt.Text, "To: a@example.com and 1 others")
	assert.Contains(t, prompt.Text, "Click http")
	assert.Contains(t, prompt.Text, "[... Content truncated due to size limits ...]")
	assert.NotContains(t, prompt.Text, "immediately")
}

func TestFillHeaders(t *testing.T) {
	raw := &core.RawAnalysis{Subject: "model subject"}
	FillHeaders(raw, &core.Email{From: "a@b.c", To: []string{"x@y.z"}, Subject: "parsed"})

	assert.Equal(t, core.FlexString("a@b.c"), raw.From)
	assert.Equal(t, core.FlexString("x@y.z"), raw.To)
	assert.Equal(t, core.FlexString("model subject"), raw.Subject)
}
