package observer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                       { return "panicking" }

func TestMetricsObserver_Counters(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(metrics)

	ctx := context.Background()
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisCompleted, ProcessingTime: 200 * time.Millisecond, QualityIssues: 1})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisFailed, ErrorType: "api"})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted})
	publisher.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisCompleted, ProcessingTime: 400 * time.Millisecond})

	stats := metrics.GetMetrics()
	if stats.Total != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if stats.FailuresByType["api"] != 1 {
		t.Errorf("Expected one api failure, got %v", stats.FailuresByType)
	}
	if stats.AverageDuration != 300 {
		t.Errorf("Expected average 300ms, got %f", stats.AverageDuration)
	}
	if stats.QualityWarnings != 1 {
		t.Errorf("Expected one quality warning, got %d", stats.QualityWarnings)
	}
}

func TestEventPublisher_PanicIsolated(t *testing.T) {
	metrics := NewMetricsObserver()
	publisher := NewEventPublisher()
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(metrics)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})
	if metrics.GetMetrics().Total != 1 {
		t.Error("Expected observers after a panicking one to still be notified")
	}

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})
	if metrics.GetMetrics().Total != 2 {
		t.Errorf("Expected every event to reach the metrics observer, got %d", metrics.GetMetrics().Total)
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)

	obs := NewLoggingObserver(log)
	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType:    AnalysisFailed,
		RequestID:    "req-1",
		Source:       "upload",
		ErrorType:    "timeout",
		ErrorMessage: "request timed out",
	})

	out := buf.String()
	for _, fragment := range []string{`"request_id":"req-1"`, `"error_type":"timeout"`, "Meal analysis failed"} {
		if !strings.Contains(out, fragment) {
			t.Errorf("Expected log output to contain %s, got %s", fragment, out)
		}
	}
}
