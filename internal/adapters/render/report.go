// Package render turns analysis results into HTML reports, text reports and JSON exports.
package render

import (
	"math"
	"strings"
	"time"

	"github.com/mikey/phish-shield/internal/core"
)

// Placeholder is shown for empty header fields
const Placeholder = "—"

var tierColors = map[core.RiskLevel]string{
	core.RiskSafe:     "#2da645",
	core.RiskLow:      "#a6a600",
	core.RiskMedium:   "#ffaa00",
	core.RiskHigh:     "#ff6644",
	core.RiskCritical: "#ff4444",
}

// Report is the display model of one result
type Report struct {
	ID             string
	Score          int
	GaugeColor     string
	Tier           core.RiskTier
	TierColor      string
	From           string
	To             string
	Subject        string
	Indicators     []core.Indicator
	URLs           []string
	SuspiciousURLs []core.SuspiciousURL
	Attachments    []core.Attachment
	Source         string
	Filename       string
	Warnings       []string
	Timestamp      time.Time
}

// NewReport builds the display model. The tier is derived from the score.
func NewReport(result *core.AnalysisResult) Report {
	tier := result.Tier()
	return Report{
		ID:             result.ID,
		Score:          displayScore(result.Score),
		GaugeColor:     gaugeColor(result.Score),
		Tier:           tier,
		TierColor:      tierColors[tier.Level],
		From:           orPlaceholder(result.From),
		To:             orPlaceholder(result.To),
		Subject:        orPlaceholder(result.Subject),
		Indicators:     result.Indicators(),
		URLs:           result.URLs,
		SuspiciousURLs: result.SuspiciousURLs,
		Attachments:    result.Attachments,
		Source:         string(result.Source),
		Filename:       result.Filename,
		Warnings:       result.Warnings,
		Timestamp:      result.Timestamp,
	}
}

// displayScore truncates so the shown number never crosses into the next tier
func displayScore(score float64) int {
	return int(math.Floor(core.ClampScore(score)))
}

func gaugeColor(score float64) string {
	switch {
	case score < 30:
		return "#2da645"
	case score < 70:
		return "#ffaa00"
	}
	return "#ff4444"
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
