package core

import (
	"context"
)

// Analyzer defines the interface for the external phishing analyzer
type Analyzer interface {
	// Analyze returns the raw verdict for a request
	Analyze(ctx context.Context, req *AnalysisRequest) (*RawAnalysis, error)
}

// SampleProvider is implemented by analyzers that serve their own demo email
type SampleProvider interface {
	// Sample returns the demo email text and its raw verdict
	Sample(ctx context.Context) (string, *RawAnalysis, error)
}

// HistoryRepository persists the history sequence
type HistoryRepository interface {
	// Load returns the persisted entries, newest first
	Load(ctx context.Context) ([]HistoryEntry, error)

	// Save replaces the persisted entries with the given snapshot
	Save(ctx context.Context, entries []HistoryEntry) error

	// Close releases the underlying resources
	Close() error
}
