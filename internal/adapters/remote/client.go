package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/phish-shield/internal/core"
	"go.uber.org/zap"
)

const (
	analyzePath     = "/api/analyze"
	analyzeFilePath = "/api/analyze-file"
	samplePath      = "/api/sample"

	// maxResponseBytes bounds how much of an analyzer response is read
	maxResponseBytes = 10 << 20
)

// Client is an implementation of the Analyzer interface backed by the HTTP analysis backend
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new remote analyzer client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Analyze submits the email text or uploaded file to the backend
func (c *Client) Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.RawAnalysis, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if req.File != nil {
		httpReq, err = c.fileRequest(ctx, req.File)
	} else {
		httpReq, err = c.textRequest(ctx, req.Text)
	}
	if err != nil {
		return nil, err
	}

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return core.DecodeRawAnalysis(body)
}

// Sample fetches the backend's demo email and its analysis
func (c *Client) Sample(ctx context.Context) (string, *core.RawAnalysis, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+samplePath, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(httpReq)
	if err != nil {
		return "", nil, err
	}

	var envelope struct {
		Success   bool            `json:"success"`
		EmailText string          `json:"email_text"`
		Analysis  json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", nil, &core.MalformedResponseError{Reason: "invalid sample envelope", Err: err}
	}
	if len(envelope.Analysis) == 0 {
		return "", nil, &core.MalformedResponseError{Reason: "sample response has no analysis"}
	}

	raw, err := core.DecodeRawAnalysis(envelope.Analysis)
	if err != nil {
		return "", nil, err
	}
	return envelope.EmailText, raw, nil
}

func (c *Client) textRequest(ctx context.Context, text string) (*http.Request, error) {
	payload, err := json.Marshal(map[string]string{"email": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) fileRequest(ctx context.Context, file *core.Upload) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzeFilePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// do sends the request and returns the body of a successful response
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Analyzer request failed",
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return nil, &core.RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &core.RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Analyzer responded",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.RequestError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	// the backend reports some failures as {success:false, error:...} bodies
	var status struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &status) == nil && status.Success != nil && !*status.Success {
		return nil, &core.RequestError{StatusCode: resp.StatusCode, Message: status.Error}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
