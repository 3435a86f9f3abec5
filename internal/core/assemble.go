package core

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// WarnScoreMissing is attached to results whose analyzer payload had no usable score
const WarnScoreMissing = "analyzer returned no score; treated as 0"

// WarnScoreClamped is attached to results whose score was outside 0-100
const WarnScoreClamped = "analyzer score outside 0-100; clamped"

var riskyAttachmentExts = map[string]struct{}{
	".exe": {}, ".scr": {}, ".bat": {}, ".js": {}, ".vbs": {},
	".cmd": {}, ".lnk": {}, ".zip": {}, ".rar": {}, ".7z": {},
}

// IsRiskyAttachment reports whether a filename carries an executable or archive extension
func IsRiskyAttachment(name string) bool {
	_, ok := riskyAttachmentExts[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
	return ok
}

// AssemblyMeta carries the request-side fields of a result
type AssemblyMeta struct {
	ID       string
	Source   Source
	Filename string
	Now      time.Time
}

// Assemble normalizes raw analyzer output into a canonical result. The risk level is
// always derived from the score; an upstream risk level is ignored.
func Assemble(raw *RawAnalysis, meta AssemblyMeta) *AnalysisResult {
	if raw == nil {
		raw = &RawAnalysis{}
	}
	if meta.Now.IsZero() {
		meta.Now = time.Now()
	}

	result := &AnalysisResult{
		ID:             meta.ID,
		Source:         meta.Source,
		Filename:       meta.Filename,
		Timestamp:      meta.Now.UTC(),
		Reasons:        []string{},
		URLs:           []string{},
		SuspiciousURLs: []SuspiciousURL{},
		Attachments:    []Attachment{},
	}

	switch {
	case raw.Score == nil || !raw.Score.Valid || math.IsNaN(raw.Score.Value):
		result.Score = 0
		result.ScoreMissing = true
		result.Warnings = append(result.Warnings, WarnScoreMissing)
	default:
		result.Score = ClampScore(raw.Score.Value)
		if result.Score != raw.Score.Value {
			result.Warnings = append(result.Warnings, WarnScoreClamped)
		}
	}
	tier := Classify(result.Score)
	result.RiskLevel = tier.Level
	result.RiskLabel = tier.Label
	result.RiskDescription = tier.Description

	var details RawDetails
	if raw.Details != nil {
		details = *raw.Details
	}
	result.From = firstNonEmpty(string(raw.From), string(details.Headers.From))
	result.To = firstNonEmpty(string(raw.To), string(details.Headers.To))
	result.Subject = firstNonEmpty(string(raw.Subject), string(details.Headers.Subject))

	for _, reason := range raw.Reasons {
		if reason = strings.TrimSpace(reason); reason != "" {
			result.Reasons = append(result.Reasons, reason)
		}
	}

	urls := raw.URLs
	if len(urls) == 0 {
		urls = details.URLs
	}
	seen := make(map[string]bool)
	present := make(map[string]bool)
	addSuspicious := func(u RawURL) {
		if len(nonEmpty(u.Issues)) == 0 || seen[u.URL] {
			return
		}
		seen[u.URL] = true
		result.SuspiciousURLs = append(result.SuspiciousURLs, SuspiciousURL{
			URL:    u.URL,
			Score:  ClampScore(u.Score),
			Issues: nonEmpty(u.Issues),
		})
	}
	for _, u := range urls {
		u.URL = strings.TrimSpace(u.URL)
		if u.URL == "" {
			continue
		}
		result.URLs = append(result.URLs, u.URL)
		present[u.URL] = true
		addSuspicious(u)
	}
	for _, u := range raw.SuspiciousURLs {
		u.URL = strings.TrimSpace(u.URL)
		if u.URL == "" {
			continue
		}
		addSuspicious(u)
	}
	for _, s := range result.SuspiciousURLs {
		if !present[s.URL] {
			result.URLs = append(result.URLs, s.URL)
			present[s.URL] = true
		}
	}

	attachments := raw.Attachments
	if len(attachments) == 0 {
		attachments = details.Attachments
	}
	for _, a := range attachments {
		name := strings.TrimSpace(a.Filename)
		if name == "" {
			continue
		}
		risky := IsRiskyAttachment(name)
		if a.Risky != nil {
			risky = *a.Risky
		}
		result.Attachments = append(result.Attachments, Attachment{Filename: name, Risky: risky})
	}

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
