package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// AnalyzerConfig selects and tunes the analyzer
type AnalyzerConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxBodySize int
}

// RemoteConfig represents the configuration for the remote analysis service
type RemoteConfig struct {
	BaseURL string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// UploadConfig limits uploaded files
type UploadConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// HistoryConfig selects the history backend
type HistoryConfig struct {
	Type        string
	FilePath    string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// IngestConfig represents the SMTP ingest configuration
type IngestConfig struct {
	Enabled        bool
	ListenAddress  string
	BlockCritical  bool
	ModifySubject  bool
	SubjectPrefix  string
	TrustedDomains []string
	RelayEnabled   bool
	RelayAddress   string
	RelayPort      int
	ScoreHeader    string
	LevelHeader    string
	ReasonsHeader  string
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		ReadTimeout:   read,
		WriteTimeout:  write,
	}, nil
}

// GetAnalyzer returns the analyzer configuration
func (c *Config) GetAnalyzer() (AnalyzerConfig, error) {
	timeout, err := c.GetDuration("analyzer.timeout")
	if err != nil {
		return AnalyzerConfig{}, err
	}
	return AnalyzerConfig{
		Provider:    c.GetString("analyzer.provider"),
		Timeout:     timeout,
		MaxBodySize: c.GetInt("analyzer.max_body_size"),
	}, nil
}

// GetRemote returns the remote analysis service configuration
func (c *Config) GetRemote() RemoteConfig {
	return RemoteConfig{BaseURL: c.GetString("remote.base_url")}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetUpload returns the upload limits
func (c *Config) GetUpload() (UploadConfig, error) {
	maxBytes := c.GetInt64("upload.max_bytes")
	if maxBytes < 0 {
		return UploadConfig{}, fmt.Errorf("upload.max_bytes must not be negative, got %d", maxBytes)
	}
	return UploadConfig{
		MaxBytes:          maxBytes,
		AllowedExtensions: c.GetStringSlice("upload.allowed_extensions"),
	}, nil
}

// GetHistory returns the history backend configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Type:        c.GetString("history.type"),
		FilePath:    c.GetString("history.file_path"),
		SQLitePath:  c.GetString("history.sqlite_path"),
		MySQLDSN:    c.GetString("history.mysql_dsn"),
		PostgresDSN: c.GetString("history.postgres_dsn"),
	}
}

// GetIngest returns the SMTP ingest configuration
func (c *Config) GetIngest() IngestConfig {
	return IngestConfig{
		Enabled:        c.GetBool("ingest.enabled"),
		ListenAddress:  c.GetString("ingest.listen_address"),
		BlockCritical:  c.GetBool("ingest.block_critical"),
		ModifySubject:  c.GetBool("ingest.modify_subject"),
		SubjectPrefix:  c.GetString("ingest.subject_prefix"),
		TrustedDomains: c.GetStringSlice("ingest.trusted_domains"),
		RelayEnabled:   c.GetBool("ingest.relay.enabled"),
		RelayAddress:   c.GetString("ingest.relay.address"),
		RelayPort:      c.GetInt("ingest.relay.port"),
		ScoreHeader:    c.GetString("ingest.headers.score"),
		LevelHeader:    c.GetString("ingest.headers.level"),
		ReasonsHeader:  c.GetString("ingest.headers.reasons"),
	}
}
