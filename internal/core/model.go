package core

import (
	"time"
)

// Source identifies how an email reached the analyzer
type Source string

const (
	SourceText   Source = "text"
	SourceFile   Source = "file"
	SourceSample Source = "sample"
	SourceSMTP   Source = "smtp"
)

// Email represents a parsed email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// Upload is a file submitted for analysis
type Upload struct {
	Name string
	Data []byte
}

// AnalysisRequest carries exactly one of Text or File
type AnalysisRequest struct {
	Text string
	File *Upload
}

// Content returns the email text of the request, decoding uploaded bytes if needed
func (r *AnalysisRequest) Content() string {
	if r.File != nil {
		return string(r.File.Data)
	}
	return r.Text
}

// SuspiciousURL is a URL the analyzer attached one or more issues to
type SuspiciousURL struct {
	URL    string   `json:"url"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

// Attachment is an attachment filename with its risk flag
type Attachment struct {
	Filename string `json:"filename"`
	Risky    bool   `json:"risky"`
}

// AnalysisResult is the canonical verdict for one submitted email
type AnalysisResult struct {
	ID              string          `json:"id"`
	Score           float64         `json:"score"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	RiskLabel       string          `json:"risk_label"`
	RiskDescription string          `json:"risk_description"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Subject         string          `json:"subject"`
	Reasons         []string        `json:"reasons"`
	URLs            []string        `json:"urls"`
	SuspiciousURLs  []SuspiciousURL `json:"suspicious_urls"`
	Attachments     []Attachment    `json:"attachments"`
	Source          Source          `json:"source"`
	Filename        string          `json:"filename,omitempty"`
	ScoreMissing    bool            `json:"score_missing,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Indicator is one line of the threat indicator list
type Indicator struct {
	Text string
	Safe bool
}

// NoThreatsText is shown instead of an empty indicator list
const NoThreatsText = "✓ No threats detected"

// Indicators returns the reasons to display. An empty reason list yields the single
// affirmative no-threat indicator.
func (r *AnalysisResult) Indicators() []Indicator {
	if len(r.Reasons) == 0 {
		return []Indicator{{Text: NoThreatsText, Safe: true}}
	}
	out := make([]Indicator, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		out = append(out, Indicator{Text: reason})
	}
	return out
}

// Tier returns the risk tier for the result score
func (r *AnalysisResult) Tier() RiskTier {
	return Classify(r.Score)
}

// Validate checks that the risk level agrees with the score
func (r *AnalysisResult) Validate() error {
	if r.Score < MinScore || r.Score > MaxScore {
		return &MalformedResponseError{Reason: "score out of range"}
	}
	if tier := Classify(r.Score); tier.Level != r.RiskLevel {
		return &MalformedResponseError{Reason: "risk level " + string(r.RiskLevel) + " does not match score tier " + string(tier.Level)}
	}
	return nil
}

// Clone returns a deep copy of the result
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Reasons = cloneStrings(r.Reasons)
	c.URLs = cloneStrings(r.URLs)
	if r.Warnings != nil {
		c.Warnings = cloneStrings(r.Warnings)
	}
	c.Attachments = make([]Attachment, len(r.Attachments))
	copy(c.Attachments, r.Attachments)
	c.SuspiciousURLs = make([]SuspiciousURL, len(r.SuspiciousURLs))
	for i, u := range r.SuspiciousURLs {
		u.Issues = cloneStrings(u.Issues)
		c.SuspiciousURLs[i] = u
	}
	return &c
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// HistoryEntry is a recorded result plus the time it was requested
type HistoryEntry struct {
	RequestedAt time.Time       `json:"requested_at"`
	Result      *AnalysisResult `json:"result"`
}

// SampleResult is the demo email together with its analysis
type SampleResult struct {
	Success   bool            `json:"success"`
	EmailText string          `json:"email_text"`
	Analysis  *AnalysisResult `json:"analysis"`
}
