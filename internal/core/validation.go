package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes is the upload size limit (100 MiB)
const DefaultMaxUploadBytes int64 = 100 << 20

// DefaultAllowedExtensions are the accepted upload extensions
var DefaultAllowedExtensions = []string{".txt", ".eml", ".msg"}

// Validation messages shown to the user
const (
	MsgEmptyText       = "Please paste an email to analyze"
	MsgNoFile          = "Please select a file first"
	MsgInvalidFileType = "Invalid file type. Please upload .txt, .eml, or .msg files."
	MsgEmptyFile       = "File is empty"
)

// UploadPolicy restricts uploaded files by extension and size
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// DefaultUploadPolicy returns the standard policy
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes:          DefaultMaxUploadBytes,
		AllowedExtensions: DefaultAllowedExtensions,
	}
}

// Validate checks name and size of an upload. The extension is checked before the size.
func (p UploadPolicy) Validate(name string, size int64) error {
	if err := p.ValidateName(name); err != nil {
		return err
	}
	if p.Exceeds(size) {
		return p.TooLarge()
	}
	return nil
}

// ValidateName checks the upload name alone, before any content is read
func (p UploadPolicy) ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "file", Message: MsgNoFile}
	}
	if !p.allowed(name) {
		return &ValidationError{Field: "file", Message: MsgInvalidFileType}
	}
	return nil
}

// Exceeds reports whether size is over the limit. A zero limit means unlimited.
func (p UploadPolicy) Exceeds(size int64) bool {
	return p.MaxBytes > 0 && size > p.MaxBytes
}

// TooLarge returns the error for an upload over the size limit
func (p UploadPolicy) TooLarge() *ValidationError {
	return &ValidationError{Field: "file", Message: fmt.Sprintf("File too large (max %s)", formatLimit(p.MaxBytes))}
}

// formatLimit renders a byte count in the largest unit that divides it evenly
func formatLimit(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func (p UploadPolicy) allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ValidateText rejects empty or whitespace-only email text
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "email", Message: MsgEmptyText}
	}
	return nil
}
