package container

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/nutrivision-go/internal/config"
	"github.com/anime-shed/nutrivision-go/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey:             "test-key",
		Endpoint:           "http://127.0.0.1:1/v1/chat/completions",
		Model:              "test-model",
		MaxTokens:          700,
		DefaultTemperature: 0.3,
		InferenceTimeout:   time.Second,
		MaxImageBytes:      4 << 20,
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     2 * time.Second,
		ImageFetchTimeout:  time.Second,
		MaxRequestBodySize: 1 << 20,
	}
}

func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, err := NewContainer(testConfig())
	if err != nil {
		t.Fatalf("Expected container to build, got %v", err)
	}
	if c.Service() == nil || c.Metrics() == nil || c.Config() == nil {
		t.Fatal("Expected all components to be wired")
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Model != "test-model" {
		t.Errorf("Expected model test-model, got %s", health.Model)
	}
	if len(health.Sources) != 2 {
		t.Errorf("Expected only http and https sources, got %v", health.Sources)
	}
	if len(health.PresetDescriptions) != 3 || health.PresetDescriptions["calories"] == "" {
		t.Errorf("Expected a description per preset, got %v", health.PresetDescriptions)
	}
}

func TestNewContainer_UnknownQualityProfile(t *testing.T) {
	cfg := testConfig()
	cfg.QualityProfile = "lenient"

	if _, err := NewContainer(cfg); err == nil {
		t.Error("Expected error for unknown quality profile")
	}
}

func TestNewContainer_NilConfig(t *testing.T) {
	if _, err := NewContainer(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}
