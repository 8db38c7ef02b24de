package service

import (
	"context"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/anime-shed/nutrivision-go/internal/analyzer"
	"github.com/anime-shed/nutrivision-go/internal/codec"
	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
	"github.com/anime-shed/nutrivision-go/internal/inference"
	"github.com/anime-shed/nutrivision-go/internal/observer"
	"github.com/anime-shed/nutrivision-go/internal/repository"
	"github.com/anime-shed/nutrivision-go/internal/strategy"
	"github.com/anime-shed/nutrivision-go/pkg/models"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// Sources recorded on events and responses
const (
	SourceUpload  = "upload"
	SourceURL     = "url"
	SourceMCP     = "mcp"
	SourceConsole = "console"
)

// AllowedUploadExtensions lists the file extensions accepted for uploads
var AllowedUploadExtensions = []string{".jpg", ".jpeg", ".png"}

// Options common to every analysis request
type Options struct {
	RequestID   string
	Instruction string
	Preset      string
	Temperature *float64 // nil means the configured default
	Source      string
}

// UploadRequest carries raw image bytes
type UploadRequest struct {
	Options
	Filename string
	Data     io.Reader
}

// RemoteRequest points at a photo in http(s) or object storage
type RemoteRequest struct {
	Options
	Ref string
}

// MealAnalysisService turns a meal photo plus instruction into a displayable analysis
type MealAnalysisService interface {
	// AnalyzeUpload decodes and analyzes an uploaded photo. The response is never nil.
	AnalyzeUpload(ctx context.Context, req UploadRequest) *models.AnalysisResponse

	// AnalyzeRemote fetches and analyzes a remote photo. The response is never nil.
	AnalyzeRemote(ctx context.Context, req RemoteRequest) *models.AnalysisResponse

	// AnalyzeImage analyzes an already decoded photo. The response is never nil.
	AnalyzeImage(ctx context.Context, img image.Image, opts Options) *models.AnalysisResponse

	Presets() []string
	PresetDescriptions() map[string]string
	Model() string
}

type mealAnalysisService struct {
	client             inference.Analyzer
	imageRepo          repository.ImageRepository
	inspector          analyzer.PhotoInspector
	presets            *strategy.Registry
	events             observer.Subject
	defaultTemperature float64
}

// NewMealAnalysisService creates a new meal analysis service
func NewMealAnalysisService(
	client inference.Analyzer,
	imageRepository repository.ImageRepository,
	inspector analyzer.PhotoInspector,
	presets *strategy.Registry,
	events observer.Subject,
	defaultTemperature float64,
) MealAnalysisService {
	if presets == nil {
		presets = strategy.NewRegistry()
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &mealAnalysisService{
		client:             client,
		imageRepo:          imageRepository,
		inspector:          inspector,
		presets:            presets,
		events:             events,
		defaultTemperature: defaultTemperature,
	}
}

func (s *mealAnalysisService) Presets() []string {
	return s.presets.Names()
}

func (s *mealAnalysisService) PresetDescriptions() map[string]string {
	return s.presets.Descriptions()
}

func (s *mealAnalysisService) Model() string {
	return s.client.Model()
}

// AnalyzeUpload decodes the upload and analyzes it
func (s *mealAnalysisService) AnalyzeUpload(ctx context.Context, req UploadRequest) *models.AnalysisResponse {
	opts := withSource(req.Options, SourceUpload)
	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, RequestID: opts.RequestID, Source: opts.Source})

	p, err := s.prepare(opts)
	if err != nil {
		return s.fail(ctx, opts, start, err)
	}
	if req.Filename != "" && !allowedExtension(req.Filename) {
		err := apperrors.NewValidationError("only .jpg, .jpeg and .png files are accepted", nil)
		return s.fail(ctx, opts, start, err)
	}
	if req.Data == nil {
		return s.fail(ctx, opts, start, apperrors.NewValidationError("no image supplied", nil))
	}

	img, format, err := codec.Decode(req.Data)
	if err != nil {
		return s.fail(ctx, opts, start, err)
	}

	resp := s.run(ctx, opts, p, start, img)
	if resp.Image != nil {
		resp.Image.Format = format
	}
	return resp
}

// AnalyzeRemote fetches the photo through the image repository and analyzes it
func (s *mealAnalysisService) AnalyzeRemote(ctx context.Context, req RemoteRequest) *models.AnalysisResponse {
	opts := withSource(req.Options, SourceURL)
	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, RequestID: opts.RequestID, Source: opts.Source})

	p, err := s.prepare(opts)
	if err != nil {
		return s.fail(ctx, opts, start, err)
	}
	if s.imageRepo == nil {
		return s.fail(ctx, opts, start, apperrors.NewNotFoundError("remote image sources are not configured", nil))
	}

	fetchStart := time.Now()
	remote, err := s.imageRepo.FetchImage(ctx, req.Ref)
	if err != nil {
		appErr := asAppError(err)
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			RequestID:      opts.RequestID,
			Source:         opts.Source,
			ProcessingTime: time.Since(fetchStart),
			ErrorType:      string(appErr.Type),
			ErrorMessage:   appErr.Message,
		})
		return s.fail(ctx, opts, start, appErr)
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		RequestID:      opts.RequestID,
		Source:         opts.Source,
		ProcessingTime: time.Since(fetchStart),
		Success:        true,
		Metadata:       map[string]interface{}{"scheme": remote.Scheme},
	})

	return s.run(ctx, opts, p, start, remote.Image)
}

// AnalyzeImage analyzes a decoded photo
func (s *mealAnalysisService) AnalyzeImage(ctx context.Context, img image.Image, opts Options) *models.AnalysisResponse {
	opts = withSource(opts, SourceUpload)
	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, RequestID: opts.RequestID, Source: opts.Source})

	p, err := s.prepare(opts)
	if err != nil {
		return s.fail(ctx, opts, start, err)
	}
	return s.run(ctx, opts, p, start, img)
}

// plan is a validated request, ready to be sent with a photo
type plan struct {
	temperature float64
	prompt      strategy.PromptStrategy
}

// prepare validates the temperature and resolves the instruction before any I/O
func (s *mealAnalysisService) prepare(opts Options) (plan, error) {
	temperature := s.defaultTemperature
	if opts.Temperature != nil {
		if err := validation.ValidateTemperature(*opts.Temperature); err != nil {
			return plan{}, err
		}
		temperature = *opts.Temperature
	}

	prompt, err := s.presets.Resolve(opts.Preset, opts.Instruction)
	if err != nil {
		return plan{}, err
	}
	return plan{temperature: temperature, prompt: prompt}, nil
}

// run inspects the photo and calls the model
func (s *mealAnalysisService) run(ctx context.Context, opts Options, p plan, start time.Time, img image.Image) *models.AnalysisResponse {
	prompt, temperature := p.prompt, p.temperature

	var report analyzer.QualityReport
	if s.inspector != nil && img != nil {
		report = s.inspector.Inspect(img)
	}

	result := s.client.Analyze(ctx, prompt.Instruction(), img, temperature)

	resp := &models.AnalysisResponse{
		RequestID:     opts.RequestID,
		Result:        result.String(),
		Success:       result.OK(),
		Preset:        prompt.Name(),
		Model:         result.Model,
		Temperature:   result.Temperature,
		DurationMs:    time.Since(start).Milliseconds(),
		Source:        opts.Source,
		QualityIssues: report.Issues,
		StatusCode:    200,
	}
	if img != nil {
		bounds := img.Bounds()
		resp.Image = &models.ImageInfo{Width: bounds.Dx(), Height: bounds.Dy()}
	}
	if result.Usage != nil {
		resp.Usage = &models.TokenUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		}
	}

	event := observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		RequestID:      opts.RequestID,
		Source:         opts.Source,
		ProcessingTime: time.Since(start),
		Success:        result.OK(),
		QualityIssues:  len(report.Issues),
		Metadata:       map[string]interface{}{"preset": prompt.Name()},
	}
	if !result.OK() {
		resp.Error = errorBody(result.Err)
		resp.StatusCode = result.Err.StatusCode
		event.EventType = observer.AnalysisFailed
		event.ErrorType = string(result.Err.Type)
		event.ErrorMessage = result.Err.Message
	}
	s.publish(ctx, event)

	return resp
}

// fail builds the envelope for a request that never reached the model
func (s *mealAnalysisService) fail(ctx context.Context, opts Options, start time.Time, err error) *models.AnalysisResponse {
	appErr := asAppError(err)

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisFailed,
		RequestID:      opts.RequestID,
		Source:         opts.Source,
		ProcessingTime: time.Since(start),
		ErrorType:      string(appErr.Type),
		ErrorMessage:   appErr.Message,
	})

	return &models.AnalysisResponse{
		RequestID:  opts.RequestID,
		Result:     inference.RenderError(appErr),
		Error:      errorBody(appErr),
		Preset:     opts.Preset,
		Model:      s.client.Model(),
		DurationMs: time.Since(start).Milliseconds(),
		Source:     opts.Source,
		StatusCode: appErr.StatusCode,
	}
}

func (s *mealAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	s.events.NotifyObservers(ctx, event)
}

func errorBody(err *apperrors.AppError) *models.ErrorBody {
	return &models.ErrorBody{
		Type:           string(err.Type),
		Message:        err.Message,
		UpstreamStatus: err.UpstreamStatus,
		Details:        err.Details,
	}
}

func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.NewInternalError("unexpected failure", err)
}

func withSource(opts Options, fallback string) Options {
	if opts.Source == "" {
		opts.Source = fallback
	}
	return opts
}

func allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
