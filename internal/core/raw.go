package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawAnalysis is the analyzer payload before assembly. Decoding is tolerant of the
// flat and the nested ("details") payload layouts.
type RawAnalysis struct {
	Score          *RawScore       `json:"score"`
	RiskLevel      string          `json:"risk_level"`
	From           FlexString      `json:"from"`
	To             FlexString      `json:"to"`
	Subject        FlexString      `json:"subject"`
	Reasons        []string        `json:"reasons"`
	URLs           []RawURL        `json:"urls"`
	SuspiciousURLs []RawURL        `json:"suspicious_urls"`
	Attachments    []RawAttachment `json:"attachments"`
	Details        *RawDetails     `json:"details"`
}

// RawDetails is the nested layout used by some analyzer versions
type RawDetails struct {
	Headers struct {
		From    FlexString `json:"from"`
		To      FlexString `json:"to"`
		Subject FlexString `json:"subject"`
	} `json:"headers"`
	URLs        []RawURL        `json:"urls"`
	Attachments []RawAttachment `json:"attachments"`
}

// DecodeRawAnalysis decodes an analyzer payload
func DecodeRawAnalysis(data []byte) (*RawAnalysis, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedResponseError{Reason: "expected a JSON object"}
	}
	var raw RawAnalysis
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	return &raw, nil
}

// RawScore accepts a JSON number, a numeric string or null
type RawScore struct {
	Value float64
	Valid bool
}

// NewRawScore returns a valid score
func NewRawScore(v float64) *RawScore {
	return &RawScore{Value: v, Valid: true}
}

func (s *RawScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = RawScore{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*s = RawScore{}
			return nil
		}
		*s = RawScore{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = RawScore{Value: v, Valid: true}
	return nil
}

func (s RawScore) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// FlexString accepts a string, a list of strings (joined with ", ") or null
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = FlexString(strings.Join(list, ", "))
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	}
	return nil
}

// RawURL is a URL given either as a bare string or as an object with issues
type RawURL struct {
	URL    string   `json:"url"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

func (u *RawURL) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &u.URL)
	}
	var obj struct {
		URL     string   `json:"url"`
		Score   *float64 `json:"score"`
		Risk    *float64 `json:"risk"`
		Issues  []string `json:"issues"`
		Reasons []string `json:"reasons"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	u.URL = obj.URL
	switch {
	case obj.Score != nil:
		u.Score = *obj.Score
	case obj.Risk != nil:
		u.Score = *obj.Risk
	}
	u.Issues = obj.Issues
	if len(u.Issues) == 0 {
		u.Issues = obj.Reasons
	}
	return nil
}

// RawAttachment is an attachment given either as a filename or as an object
type RawAttachment struct {
	Filename string `json:"filename"`
	Risky    *bool  `json:"risky,omitempty"`
}

func (a *RawAttachment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Filename)
	}
	var obj struct {
		Filename string `json:"filename"`
		Name     string `json:"name"`
		Risky    *bool  `json:"risky"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Filename = obj.Filename
	if a.Filename == "" {
		a.Filename = obj.Name
	}
	a.Risky = obj.Risky
	return nil
}
