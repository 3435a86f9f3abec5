package ingest

import (
	"bytes"
	"mime"
	"strconv"
	"strings"

	"github.com/mikey/phish-shield/internal/core"
)

// HeaderNames are the header fields stamped on analyzed mail
type HeaderNames struct {
	Score   string
	Level   string
	Reasons string
	Error   string
}

// DefaultHeaderNames returns the standard X-Phish-* names
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Score:   "X-Phish-Score",
		Level:   "X-Phish-Risk-Level",
		Reasons: "X-Phish-Reasons",
		Error:   "X-Phish-Analysis-Error",
	}
}

// Stamp describes the changes made to a relayed message
type Stamp struct {
	Result        *core.AnalysisResult
	AnalysisErr   error
	SubjectPrefix string
}

// field is one logical header field, continuation lines included
type field struct {
	name string
	raw  []byte
}

// StampMessage returns raw with the verdict headers prepended. Incoming fields that
// reuse one of the verdict header names are dropped. The body is kept byte for byte.
func StampMessage(raw []byte, names HeaderNames, stamp Stamp) []byte {
	eol := "\n"
	if bytes.Contains(raw, []byte("\r\n")) {
		eol = "\r\n"
	}

	header, body, hasBody := splitMessage(raw)
	fields := parseFields(header)

	var out bytes.Buffer
	if stamp.Result != nil {
		writeField(&out, names.Score, strconv.FormatFloat(stamp.Result.Score, 'f', 1, 64), eol)
		writeField(&out, names.Level, string(stamp.Result.RiskLevel), eol)
		writeField(&out, names.Reasons, headerValue(strings.Join(stamp.Result.Reasons, "; ")), eol)
	}
	if stamp.AnalysisErr != nil {
		writeField(&out, names.Error, headerValue(stamp.AnalysisErr.Error()), eol)
	}

	owned := map[string]struct{}{}
	for _, n := range []string{names.Score, names.Level, names.Reasons, names.Error} {
		if n != "" {
			owned[strings.ToLower(n)] = struct{}{}
		}
	}

	subjectDone := stamp.SubjectPrefix == ""
	for _, f := range fields {
		if _, skip := owned[strings.ToLower(f.name)]; skip {
			continue
		}
		if !subjectDone && strings.EqualFold(f.name, "Subject") {
			subjectDone = true
			if s, ok := prefixSubject(f.raw, stamp.SubjectPrefix); ok {
				writeField(&out, "Subject", s, eol)
				continue
			}
		}
		out.Write(f.raw)
	}
	if !subjectDone {
		writeField(&out, "Subject", headerValue(strings.TrimSpace(stamp.SubjectPrefix)), eol)
	}

	if hasBody {
		out.WriteString(eol)
		out.Write(body)
	}
	return out.Bytes()
}

// splitMessage splits raw at the first empty line
func splitMessage(raw []byte) (header, body []byte, hasBody bool) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], raw[i+4:], true
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], raw[i+2:], true
	}
	return raw, nil, false
}

func parseFields(header []byte) []field {
	var fields []field
	for len(header) > 0 {
		end := bytes.IndexByte(header, '\n')
		var line []byte
		if end < 0 {
			line, header = header, nil
		} else {
			line, header = header[:end+1], header[end+1:]
		}

		if (line[0] == ' ' || line[0] == '\t') && len(fields) > 0 {
			last := &fields[len(fields)-1]
			last.raw = append(last.raw, line...)
			continue
		}
		name, _, _ := bytes.Cut(line, []byte(":"))
		fields = append(fields, field{
			name: strings.TrimSpace(string(name)),
			raw:  append([]byte(nil), line...),
		})
	}
	return fields
}

// prefixSubject returns the new Subject value, or false when the prefix is already there
func prefixSubject(raw []byte, prefix string) (string, bool) {
	_, value, _ := bytes.Cut(raw, []byte(":"))
	subject := unfold(string(value))
	if decoded, err := new(mime.WordDecoder).DecodeHeader(subject); err == nil {
		subject = decoded
	}
	if strings.HasPrefix(subject, prefix) {
		return "", false
	}
	return headerValue(prefix + subject), true
}

func unfold(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "")
	value = strings.ReplaceAll(value, "\n", "")
	return strings.TrimSpace(value)
}

// headerValue flattens line breaks and encodes non-ASCII text
func headerValue(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	return mime.QEncoding.Encode("utf-8", value)
}

func writeField(out *bytes.Buffer, name, value, eol string) {
	if name == "" {
		return
	}
	out.WriteString(name)
	out.WriteString(": ")
	out.WriteString(value)
	out.WriteString(eol)
}
