package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/internal/config"
	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/internal/service"
	"github.com/anime-shed/nutrivision-go/pkg/models"
)

const (
	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-ID"

	// AnalyzeMealTool is the tool name accepted on the MCP endpoint
	AnalyzeMealTool = "analyze_meal_photo"

	requestIDKey = "request_id"
)

// StatsSource supplies the counters served on /stats
type StatsSource interface {
	GetMetrics() models.StatsResponse
}

// AnalyzeMealParams are the arguments of the analyze_meal_photo tool
type AnalyzeMealParams struct {
	ImageURL    string   `json:"image_url,omitempty" description:"http(s), azblob:// or s3:// reference to the meal photo"`
	ImageBase64 string   `json:"image_base64,omitempty" description:"Base64 JPEG or PNG, optionally as a data URI"`
	Instruction string   `json:"instruction,omitempty" description:"Instruction sent with the photo; overrides the preset"`
	Preset      string   `json:"preset,omitempty" description:"Prompt preset: calories, macros or portions"`
	Temperature *float64 `json:"temperature,omitempty" description:"Sampling temperature within [0,1]"`
}

type handler struct {
	service service.MealAnalysisService
	stats   StatsSource
	sources []string
	timeout time.Duration
}

// NewHandler builds the gin engine serving the meal analysis API
func NewHandler(svc service.MealAnalysisService, stats StatsSource, sources []string, cfg *config.Config) http.Handler {
	h := &handler{
		service: svc,
		stats:   stats,
		sources: sources,
		timeout: cfg.RequestTimeout,
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", h.healthCheck)
	r.GET("/stats", h.getStats)
	r.POST("/analyze", h.analyzeUpload)
	r.POST("/analyze/url", h.analyzeURL)
	r.POST("/mcp", h.callTool)

	return r
}

func (h *handler) analyzeUpload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "multipart field 'image' is required", err)
		return
	}

	temperature, err := parseTemperature(c.PostForm("temperature"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read uploaded image", err)
		return
	}
	defer f.Close()

	resp := h.service.AnalyzeUpload(ctx, service.UploadRequest{
		Options: service.Options{
			RequestID:   c.GetString(requestIDKey),
			Instruction: c.PostForm("instruction"),
			Preset:      c.PostForm("preset"),
			Temperature: temperature,
			Source:      service.SourceUpload,
		},
		Filename: file.Filename,
		Data:     f,
	})
	respond(c, resp)
}

func (h *handler) analyzeURL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var req models.AnalyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp := h.service.AnalyzeRemote(ctx, service.RemoteRequest{
		Options: service.Options{
			RequestID:   c.GetString(requestIDKey),
			Instruction: req.Instruction,
			Preset:      req.Preset,
			Temperature: req.Temperature,
			Source:      service.SourceURL,
		},
		Ref: req.URL,
	})
	respond(c, resp)
}

// callTool serves a single MCP tools/call payload. Analysis failures are
// reported inside the tool result with isError set, not as HTTP errors.
func (h *handler) callTool(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var req protocol.CallToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid tool call", err)
		return
	}
	if req.Name != AnalyzeMealTool {
		respondError(c, http.StatusNotFound, "unknown tool", fmt.Errorf("tool %q is not provided", req.Name))
		return
	}

	var params AnalyzeMealParams
	if err := extractParams(&req, &params); err != nil {
		respondError(c, http.StatusBadRequest, "invalid tool arguments", err)
		return
	}

	opts := service.Options{
		RequestID:   c.GetString(requestIDKey),
		Instruction: params.Instruction,
		Preset:      params.Preset,
		Temperature: params.Temperature,
		Source:      service.SourceMCP,
	}

	var resp *models.AnalysisResponse
	switch {
	case params.ImageURL != "":
		resp = h.service.AnalyzeRemote(ctx, service.RemoteRequest{Options: opts, Ref: params.ImageURL})
	case params.ImageBase64 != "":
		raw, err := decodeBase64Image(params.ImageBase64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "image_base64 is not valid base64", err)
			return
		}
		resp = h.service.AnalyzeUpload(ctx, service.UploadRequest{Options: opts, Data: bytes.NewReader(raw)})
	default:
		respondError(c, http.StatusBadRequest, "invalid tool arguments", errors.New("one of image_url or image_base64 is required"))
		return
	}

	c.JSON(http.StatusOK, &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: resp.Result,
			},
		},
		IsError: !resp.Success,
	})
}

func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Model:   h.service.Model(),
		Sources: h.sources,
		Presets: h.service.Presets(),

		PresetDescriptions: h.service.PresetDescriptions(),
	})
}

func (h *handler) getStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusOK, models.StatsResponse{FailuresByType: map[string]int64{}})
		return
	}
	c.JSON(http.StatusOK, h.stats.GetMetrics())
}

// extractParams converts the loosely typed tool arguments into params
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	return nil
}

// decodeBase64Image accepts bare base64 or a data URI
func decodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// parseTemperature returns nil for an empty value so the configured default applies
func parseTemperature(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("temperature must be a number", err)
	}
	return &v, nil
}

func respond(c *gin.Context, resp *models.AnalysisResponse) {
	if resp.RequestID != "" {
		c.Header(RequestIDHeader, resp.RequestID)
	}
	c.JSON(resp.StatusCode, resp)
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithRequestID(c.GetString(requestIDKey)).WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"processing_time_ms": time.Since(start).Milliseconds(),
			"ip":                 c.ClientIP(),
			"user_agent":         c.Request.UserAgent(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large",
				fmt.Errorf("%d bytes exceeds the %d byte limit", c.Request.ContentLength, maxBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// errorHandler answers for handlers that recorded an error with c.Error instead of writing a response
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	requestID := c.GetString(requestIDKey)

	logger.WithRequestID(requestID).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   fmt.Sprintf("%s: %v", message, err),
		RequestID: requestID,
	})
}
