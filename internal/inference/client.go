package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/internal/codec"
	"github.com/anime-shed/nutrivision-go/internal/config"
	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

const (
	// maxResponseBytes caps how much of a reply body is read into memory.
	maxResponseBytes = 4 << 20
	// maxDetailBytes caps how much of an error body is echoed back to callers.
	maxDetailBytes = 1024
)

// Settings is the immutable configuration of a Client.
type Settings struct {
	Endpoint      string
	APIKey        string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	MaxImageBytes int

	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// SettingsFromConfig copies the inference related values out of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Endpoint:      cfg.Endpoint,
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       cfg.InferenceTimeout,
		MaxImageBytes: cfg.MaxImageBytes,
	}
}

// Analyzer is implemented by Client; callers depend on it so tests can substitute it.
type Analyzer interface {
	Analyze(ctx context.Context, instruction string, img image.Image, temperature float64) Result
	Model() string
}

// Client sends one meal photo and one instruction to a chat-completion endpoint per call.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	settings   Settings
	httpClient *http.Client
}

// NewClient creates a client. The API key is taken as given; validation happens at config load.
func NewClient(settings Settings) *Client {
	httpClient := settings.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
			Timeout: settings.Timeout,
		}
	}
	return &Client{
		settings:   settings,
		httpClient: httpClient,
	}
}

// Model returns the fixed model identifier sent with every request.
func (c *Client) Model() string {
	return c.settings.Model
}

// Analyze encodes img, submits it with instruction and returns the model's reply.
// Every failure is reported through Result.Err; nothing is returned as a Go error.
func (c *Client) Analyze(ctx context.Context, instruction string, img image.Image, temperature float64) Result {
	start := time.Now()
	temperature = validation.ClampTemperature(temperature)
	result := Result{Model: c.settings.Model, Temperature: temperature}

	finish := func(r Result) Result {
		r.Duration = time.Since(start)
		c.logResult(r)
		return r
	}

	if err := validation.ValidateInstruction(instruction); err != nil {
		result.Err = asAppError(err)
		return finish(result)
	}
	if img == nil {
		result.Err = apperrors.NewEncodingError("no image supplied", nil)
		return finish(result)
	}

	encoded, err := codec.Encode(codec.Normalize(img))
	if err != nil {
		result.Err = asAppError(err)
		return finish(result)
	}
	if err := codec.CheckSize(encoded, c.settings.MaxImageBytes); err != nil {
		result.Err = asAppError(err)
		return finish(result)
	}

	payload := newAnalysisRequest(c.settings.Model, instruction, codec.DataURI(encoded), c.settings.MaxTokens, temperature)
	resp, err := c.send(ctx, payload)
	if err != nil {
		result.Err = asAppError(err)
		return finish(result)
	}

	result.Text = resp.text
	result.Usage = resp.usage
	return finish(result)
}

type completion struct {
	text  string
	usage *Usage
}

func (c *Client) send(ctx context.Context, payload ChatCompletionRequest) (*completion, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal request", err)
	}

	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewTransportError("invalid endpoint", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.WithFields(logrus.Fields{
		"model":         payload.Model,
		"temperature":   payload.Temperature,
		"payload_bytes": len(body),
	}).Debug("Submitting meal photo for analysis")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, details := describeAPIError(resp.StatusCode, data)
		return nil, apperrors.NewAPIError(resp.StatusCode, message).WithDetails(details)
	}

	return parseCompletion(data)
}

func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewTimeoutError(fmt.Sprintf("request timed out after %s", c.settings.Timeout), err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewTransportError("request was cancelled", err)
	}
	return apperrors.NewTransportError("request to inference endpoint failed", err)
}

func parseCompletion(data []byte) (*completion, error) {
	var parsed ChatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.NewMalformedResponseError("response body is not valid JSON", err).
			WithDetails(truncate(string(data)))
	}
	if parsed.Choices == nil {
		return nil, apperrors.NewMalformedResponseError(`response is missing "choices"`, nil).
			WithDetails(truncate(string(data)))
	}
	choices := *parsed.Choices
	if len(choices) == 0 {
		return nil, apperrors.NewMalformedResponseError(`response has no "choices"`, nil)
	}
	first := choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return nil, apperrors.NewMalformedResponseError(`first choice has no "message.content"`, nil)
	}
	if strings.TrimSpace(*first.Message.Content) == "" {
		return nil, apperrors.NewMalformedResponseError("model returned empty content", nil)
	}
	return &completion{text: *first.Message.Content, usage: parsed.Usage}, nil
}

// describeAPIError pulls a human readable message out of an error body.
func describeAPIError(status int, body []byte) (message, details string) {
	trimmed := strings.TrimSpace(string(body))
	details = truncate(trimmed)
	if trimmed == "" {
		return http.StatusText(status), details
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Error, &text); err == nil && text != "" {
			return text, details
		}
		var obj errorObject
		if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message, details
		}
	}

	if json.Valid(body) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err == nil {
			return truncate(compact.String()), details
		}
	}
	return details, details
}

// truncate cuts s to at most maxDetailBytes without splitting a UTF-8 sequence
func truncate(s string) string {
	if len(s) <= maxDetailBytes {
		return s
	}
	cut := maxDetailBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.NewInternalError("unexpected failure", err)
}

func (c *Client) logResult(r Result) {
	entry := logger.WithFields(logrus.Fields{
		"model":       r.Model,
		"temperature": r.Temperature,
		"duration_ms": r.Duration.Milliseconds(),
	})
	if r.Err != nil {
		entry = entry.WithField("error_type", r.Err.Type)
		if r.Err.UpstreamStatus != 0 {
			entry = entry.WithField("upstream_status", r.Err.UpstreamStatus)
		}
		entry.WithError(r.Err).Warn("Meal analysis failed")
		return
	}
	if r.Usage != nil {
		entry = entry.WithField("total_tokens", r.Usage.TotalTokens)
	}
	entry.Info("Meal analysis completed")
}
