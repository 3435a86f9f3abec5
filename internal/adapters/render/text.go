package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/phish-shield/internal/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var headingCaser = cases.Title(language.English)

// Text writes the result as a plain-text report
func Text(w io.Writer, result *core.AnalysisResult) error {
	r := NewReport(result)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Threat score: %d/100\n", r.Score)
	fmt.Fprintf(bw, "Risk level:   %s\n", r.Tier.Label)
	fmt.Fprintf(bw, "              %s\n", r.Tier.Description)
	if r.Filename != "" {
		fmt.Fprintf(bw, "File:         %s\n", r.Filename)
	}
	fmt.Fprintf(bw, "Analyzed:     %s\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))

	heading(bw, "email details")
	fmt.Fprintf(bw, "From:    %s\n", r.From)
	fmt.Fprintf(bw, "To:      %s\n", r.To)
	fmt.Fprintf(bw, "Subject: %s\n", r.Subject)

	heading(bw, "threat indicators")
	for _, ind := range r.Indicators {
		if ind.Safe {
			fmt.Fprintf(bw, "  %s\n", ind.Text)
			continue
		}
		fmt.Fprintf(bw, "  - %s\n", ind.Text)
	}

	if len(r.URLs) > 0 {
		heading(bw, "urls found")
		for _, u := range r.URLs {
			fmt.Fprintf(bw, "  - %s\n", u)
		}
	}

	if len(r.SuspiciousURLs) > 0 {
		heading(bw, "suspicious urls")
		for _, u := range r.SuspiciousURLs {
			fmt.Fprintf(bw, "  - %s (%g): %s\n", u.URL, u.Score, strings.Join(u.Issues, "; "))
		}
	}

	if len(r.Attachments) > 0 {
		heading(bw, "attachments")
		for _, a := range r.Attachments {
			flag := ""
			if a.Risky {
				flag = " [RISKY]"
			}
			fmt.Fprintf(bw, "  - %s%s\n", a.Filename, flag)
		}
	}

	if len(r.Warnings) > 0 {
		heading(bw, "warnings")
		for _, warning := range r.Warnings {
			fmt.Fprintf(bw, "  ! %s\n", warning)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func heading(w io.Writer, title string) {
	title = headingCaser.String(title)
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}
