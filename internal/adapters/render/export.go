package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/phish-shield/internal/core"
)

// Export is the downloadable JSON document of one result
type Export struct {
	Timestamp time.Time            `json:"timestamp"`
	Analysis  *core.AnalysisResult `json:"analysis"`
}

// ExportFilename returns the download name for an export created at now
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("phishing-analysis-%d.%s", now.UnixMilli(), ext)
}

// JSON returns the indented export document and its filename
func JSON(result *core.AnalysisResult, now time.Time) ([]byte, string, error) {
	data, err := json.MarshalIndent(Export{Timestamp: now.UTC(), Analysis: result}, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode export: %w", err)
	}
	return data, ExportFilename(now, "json"), nil
}

// TextExport returns the plain-text report and its filename
func TextExport(result *core.AnalysisResult, now time.Time) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := Text(&buf, result); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), ExportFilename(now, "txt"), nil
}
