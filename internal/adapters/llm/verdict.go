// Package llm holds the prompt and response handling shared by the model-backed analyzers.
package llm

import (
	"fmt"
	"strings"

	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/utils"
)

// SystemPrompt is sent as the system message where the provider supports one
const SystemPrompt = "You are a phishing detection system. Respond only with JSON."

const promptFormat = `You are a phishing detection system. Analyze the following email and assess how likely it is to be a phishing attempt.
Respond with a JSON object containing:
- score: number between 0 and 100 (higher means more dangerous)
- reasons: array of short strings, one per threat indicator found (empty if none)
- from: string (sender as it appears in the email)
- to: string (recipients as they appear in the email)
- subject: string
- urls: array of objects {"url": string, "score": number 0-100, "issues": array of strings}, one per URL in the email, issues empty for harmless URLs
- attachments: array of objects {"filename": string, "risky": boolean}

Look for urgent or threatening language, lookalike sender domains, URL shorteners, IP-address links,
mismatched link text, generic greetings, credential requests and executable or archive attachments.

Email:
From: %s
To: %s
Subject: %s
Attachments: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Prompt is the model input for one analysis request
type Prompt struct {
	Email *core.Email
	Text  string
}

// BuildPrompt parses the request email and formats the model prompt. The body is
// sanitized and truncated to maxBodySize bytes.
func BuildPrompt(req *core.AnalysisRequest, tp *utils.TextProcessor, maxBodySize int) Prompt {
	content := req.Content()
	email := utils.ParseEmail(content)

	to := ""
	if len(email.To) > 0 {
		to = email.To[0]
		if len(email.To) > 1 {
			to += fmt.Sprintf(" and %d others", len(email.To)-1)
		}
	}

	attachments := "none"
	if names := utils.AttachmentNames(content); len(names) > 0 {
		attachments = strings.Join(names, ", ")
	}

	body := tp.ProcessText(email.Body, maxBodySize)
	return Prompt{
		Email: email,
		Text:  fmt.Sprintf(promptFormat, email.From, to, email.Subject, attachments, body),
	}
}

// ParseVerdict extracts the JSON verdict from a model response. Models sometimes wrap
// the object in prose or code fences, so the outermost braces are used.
func ParseVerdict(responseText string) (*core.RawAnalysis, error) {
	raw, err := core.DecodeRawAnalysis([]byte(responseText))
	if err == nil {
		return raw, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, &core.MalformedResponseError{Reason: "no JSON object in model response", Err: err}
	}
	return core.DecodeRawAnalysis([]byte(responseText[jsonStart : jsonEnd+1]))
}

// FillHeaders copies the parsed header fields into the verdict where the model left them out
func FillHeaders(raw *core.RawAnalysis, email *core.Email) {
	if raw.From == "" {
		raw.From = core.FlexString(email.From)
	}
	if raw.To == "" {
		raw.To = core.FlexString(strings.Join(email.To, ", "))
	}
	if raw.Subject == "" {
		raw.Subject = core.FlexString(email.Subject)
	}
}
