package utils

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/mikey/phish-shield/internal/core"
)

// ParseEmail parses raw email text into an Email. Text that is not a valid RFC 5322
// message is kept whole as the body, with any leading "Header: value" lines picked up.
func ParseEmail(text string) *core.Email {
	email := &core.Email{
		Headers: make(map[string][]string),
	}

	msg, err := mail.ReadMessage(bufio.NewReader(strings.NewReader(text)))
	if err != nil {
		email.Body = text
		scanLooseHeaders(text, email)
		return email
	}

	for k, v := range msg.Header {
		email.Headers[k] = v
	}
	email.From = decodeHeader(msg.Header.Get("From"))
	email.Subject = decodeHeader(msg.Header.Get("Subject"))
	if to := decodeHeader(msg.Header.Get("To")); to != "" {
		for _, addr := range strings.Split(to, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				email.To = append(email.To, addr)
			}
		}
	}

	body, err := ExtractTextFromMessage(msg)
	if err != nil {
		body = text
	}
	email.Body = body
	return email
}

// scanLooseHeaders reads From/To/Subject lines from pasted text that is not a
// well-formed message
func scanLooseHeaders(text string, email *core.Email) {
	for _, line := range strings.Split(text, "\n") {
		name, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "from":
			if email.From == "" {
				email.From = value
			}
		case "to":
			if len(email.To) == 0 && value != "" {
				email.To = []string{value}
			}
		case "subject":
			if email.Subject == "" {
				email.Subject = value
			}
		}
	}
}

func decodeHeader(value string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// SenderAddress returns the bare address of a From header value
func SenderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.Trim(strings.TrimSpace(from), "<>")
}

// ExtractTextFromMessage extracts the text content from an email message.
// For multipart messages, it collects the text/plain parts.
func ExtractTextFromMessage(msg *mail.Message) (string, error) {
	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", err
	}

	contentType := msg.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		return string(bodyBytes), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return string(bodyBytes), nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		return string(bodyBytes), nil
	}

	var textContent bytes.Buffer
	collectTextParts(bytes.NewReader(bodyBytes), boundary, &textContent)

	if textContent.Len() > 0 {
		return textContent.String(), nil
	}
	return string(bodyBytes), nil
}

func collectTextParts(r io.Reader, boundary string, out *bytes.Buffer) {
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a broken part: keep what was collected so far
			return
		}

		partType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(partType)
		switch {
		case err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "":
			collectTextParts(part, params["boundary"], out)
		case partType == "" || strings.Contains(strings.ToLower(partType), "text/"):
			if part.FileName() != "" {
				continue
			}
			data, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			out.Write(data)
			out.WriteString("\n")
		}
	}
}

// AttachmentNames lists the filenames of the attachment parts of a raw message
func AttachmentNames(text string) []string {
	msg, err := mail.ReadMessage(bufio.NewReader(strings.NewReader(text)))
	if err != nil {
		return nil
	}
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil
	}

	var names []string
	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			return names
		}
		if name := part.FileName(); name != "" {
			names = append(names, name)
		}
	}
}
