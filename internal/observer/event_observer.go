package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/pkg/models"
)

// AnalysisEvent represents a step in the life of one meal analysis
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	QualityIssues  int                    `json:"quality_issues,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when the model returned an analysis
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analysis fails at any stage
	AnalysisFailed EventType = "analysis_failed"
	// ImageFetched when a remote photo is fetched
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote photo could not be fetched
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"source":             event.Source,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorType != "" {
		fields["error_type"] = event.ErrorType
		fields["error"] = event.ErrorMessage
	}
	if event.QualityIssues > 0 {
		fields["quality_issues"] = event.QualityIssues
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Meal analysis started")
	case AnalysisCompleted:
		entry.Info("Meal analysis completed")
	case AnalysisFailed:
		entry.Warn("Meal analysis failed")
	case ImageFetched:
		entry.Debug("Meal photo fetched")
	case ImageFetchFailed:
		entry.Warn("Meal photo fetch failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps in-process counters for the stats endpoint
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	failuresByType      map[string]int64
	qualityWarnings     int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{failuresByType: make(map[string]int64)}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		if event.QualityIssues > 0 {
			o.qualityWarnings++
		}
	case AnalysisFailed:
		o.failedAnalyses++
		if event.ErrorType != "" {
			o.failuresByType[event.ErrorType]++
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the counters
func (o *MetricsObserver) GetMetrics() models.StatsResponse {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg float64
	if o.successfulAnalyses > 0 {
		avg = float64(o.totalProcessingTime.Milliseconds()) / float64(o.successfulAnalyses)
	}

	byType := make(map[string]int64, len(o.failuresByType))
	for k, v := range o.failuresByType {
		byType[k] = v
	}

	return models.StatsResponse{
		Total:           o.totalAnalyses,
		Succeeded:       o.successfulAnalyses,
		Failed:          o.failedAnalyses,
		FailuresByType:  byType,
		AverageDuration: avg,
		QualityWarnings: o.qualityWarnings,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// NotifyObservers delivers the event to every observer in subscription order.
// Observers must be fast; a panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, observer := range observers {
		func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
