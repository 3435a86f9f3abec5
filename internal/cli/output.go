package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/phish-shield/internal/adapters/render"
	"github.com/mikey/phish-shield/internal/core"
)

func writeResult(w io.Writer, result *core.AnalysisResult, format string) error {
	switch strings.ToLower(format) {
	case "text", "":
		return render.Text(w, result)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "html":
		return render.HTML(w, result)
	default:
		return fmt.Errorf("unknown format %q (want text, json or html)", format)
	}
}
