package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phish-shield/internal/adapters/httpapi/respond"
	"github.com/mikey/phish-shield/internal/adapters/render"
	"github.com/mikey/phish-shield/internal/core"
	"go.uber.org/zap"
)

// SessionHeader identifies the submitting session; the client IP is used when absent
const SessionHeader = "X-Session-Id"

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Email string `json:"email"`
}

// HistoryResponse is the body of GET /api/history
type HistoryResponse struct {
	Count   int                 `json:"count"`
	Entries []core.HistoryEntry `json:"entries"`
}

// Handler serves the analysis, history and report endpoints
type Handler struct {
	service *core.AnalysisService
	history *core.HistoryStore
	guard   *core.InflightGuard
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new handler
func NewHandler(
	service *core.AnalysisService,
	history *core.HistoryStore,
	guard *core.InflightGuard,
	timeout time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		service: service,
		history: history,
		guard:   guard,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterRoutes attaches the handler routes
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/analyze", h.analyze)
	api.POST("/analyze-file", h.analyzeFile)
	api.GET("/sample", h.sample)
	api.GET("/history", h.listHistory)
	api.DELETE("/history", h.clearHistory)
	api.GET("/history/:index", h.getHistory)
	api.GET("/history/:index/export", h.exportHistory)

	r.GET("/reports/:index", h.report)
	r.GET("/health", h.health)
}

func (h *Handler) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be JSON with an \"email\" field")
		return
	}
	if err := core.ValidateText(req.Email); err != nil {
		h.fail(c, err)
		return
	}

	release, err := h.guard.Acquire(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer release()

	ctx, cancel := h.analysisContext(c)
	defer cancel()

	result, err := h.service.AnalyzeText(ctx, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, result)
	respond.OK(c, result)
}

func (h *Handler) analyzeFile(c *gin.Context) {
	policy := h.service.Policy()

	// Stream the form so the file name is seen before any content
	part, err := filePart(c.Request)
	if err != nil {
		h.fail(c, &core.ValidationError{Field: "file", Message: core.MsgNoFile})
		return
	}
	defer part.Close()

	filename := part.FileName()
	if err := policy.ValidateName(filename); err != nil {
		h.fail(c, err)
		return
	}

	release, err := h.guard.Acquire(sessionKey(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer release()

	// Read at most one byte past the limit
	var src io.Reader = part
	if policy.MaxBytes > 0 {
		src = io.LimitReader(part, policy.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		respond.Error(c, h.logger, http.StatusBadRequest, "invalid_request", "Could not read uploaded file")
		return
	}
	if policy.Exceeds(int64(len(data))) {
		h.fail(c, policy.TooLarge())
		return
	}

	ctx, cancel := h.analysisContext(c)
	defer cancel()

	result, err := h.service.AnalyzeFile(ctx, filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, result)
	respond.OK(c, result)
}

// filePart advances the multipart body to the "file" field
func filePart(r *http.Request) (*multipart.Part, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func (h *Handler) sample(c *gin.Context) {
	ctx, cancel := h.analysisContext(c)
	defer cancel()

	sample, err := h.service.Sample(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, sample)
}

func (h *Handler) listHistory(c *gin.Context) {
	entries := h.history.List()
	respond.OK(c, HistoryResponse{Count: len(entries), Entries: entries})
}

func (h *Handler) clearHistory(c *gin.Context) {
	if err := h.history.Clear(c.Request.Context()); err != nil {
		respond.Error(c, h.logger, http.StatusInternalServerError, "history_unavailable", "Failed to clear history")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getHistory(c *gin.Context) {
	entry, ok := h.entry(c)
	if !ok {
		return
	}
	respond.OK(c, entry)
}

func (h *Handler) exportHistory(c *gin.Context) {
	entry, ok := h.entry(c)
	if !ok {
		return
	}

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		data, filename, err = render.JSON(entry.Result, h.now())
		contentType = "application/json"
	case "text", "txt":
		data, filename, err = render.TextExport(entry.Result, h.now())
		contentType = "text/plain; charset=utf-8"
	default:
		respond.Error(c, h.logger, http.StatusBadRequest, "invalid_request", "format must be json or text")
		return
	}
	if err != nil {
		respond.Error(c, h.logger, http.StatusInternalServerError, "internal", "Failed to export analysis")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) report(c *gin.Context) {
	entry, ok := h.entry(c)
	if !ok {
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(c.Writer, entry.Result); err != nil {
		h.logger.Error("Failed to render report", zap.Error(err))
	}
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, gin.H{
		"status":          "ok",
		"history_entries": h.history.Len(),
	})
}

// entry resolves the :index path parameter, writing the error response itself
func (h *Handler) entry(c *gin.Context) (core.HistoryEntry, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respond.Error(c, h.logger, http.StatusBadRequest, "invalid_request", "History index must be an integer")
		return core.HistoryEntry{}, false
	}
	entry, err := h.history.Restore(index)
	if err != nil {
		h.fail(c, err)
		return core.HistoryEntry{}, false
	}
	return entry, true
}

func (h *Handler) record(c *gin.Context, result *core.AnalysisResult) {
	c.Set("analysisId", result.ID)
	if _, err := h.history.Record(c.Request.Context(), result); err != nil {
		h.logger.Warn("Analysis not persisted to history",
			zap.String("id", result.ID),
			zap.Error(err))
	}
}

func (h *Handler) analysisContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

// fail maps domain errors to HTTP responses
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		validationErr *core.ValidationError
		requestErr    *core.RequestError
		malformedErr  *core.MalformedResponseError
	)
	switch {
	case errors.As(err, &validationErr):
		respond.Error(c, h.logger, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.Is(err, core.ErrAnalysisInProgress):
		respond.Error(c, h.logger, http.StatusConflict, "analysis_in_progress", "An analysis is already in progress")
	case errors.Is(err, core.ErrHistoryIndexOutOfRange):
		respond.Error(c, h.logger, http.StatusNotFound, "not_found", "History entry not found")
	case errors.As(err, &malformedErr):
		respond.Error(c, h.logger, http.StatusBadGateway, "malformed_analysis", "Analyzer returned an unreadable response")
	case errors.As(err, &requestErr):
		respond.Error(c, h.logger, http.StatusBadGateway, "analyzer_unavailable", "Analysis failed: "+requestErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, h.logger, http.StatusBadGateway, "analyzer_unavailable", "Analysis timed out")
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		respond.Error(c, h.logger, http.StatusInternalServerError, "internal", "Unexpected server error")
	}
}

func sessionKey(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return "session:" + id
	}
	return "ip:" + c.ClientIP()
}
