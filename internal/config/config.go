package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

const (
	// EnvConfigFile names an optional yaml or .env file with the same keys as the environment.
	EnvConfigFile = "NUTRIVISION_CONFIG_FILE"

	DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel    = "meta-llama/llama-4-scout-17b-16e-instruct"
)

type Config struct {
	APIKey             string
	Endpoint           string
	Model              string
	MaxTokens          int
	DefaultTemperature float64
	InferenceTimeout   time.Duration
	MaxImageBytes      int

	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	LogLevel           string
	QualityProfile     string

	Azure AzureConfig
	S3    S3Config
}

type AzureConfig struct {
	AccountName string
	AccountKey  string
	ServiceURL  string // defaults to https://<account>.blob.core.windows.net
}

// Enabled reports whether both the account name and key are present
func (a AzureConfig) Enabled() bool {
	return a.AccountName != "" && a.AccountKey != ""
}

type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an S3 region was configured
func (s S3Config) Enabled() bool {
	return s.Region != ""
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads the environment, plus an optional config file, once at startup.
// A missing API key yields a configuration error.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, apperrors.NewConfigurationError("failed to read config file", err)
	}

	inferenceTimeout, err := durationSetting(v, "INFERENCE_TIMEOUT")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := durationSetting(v, "REQUEST_TIMEOUT")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := durationSetting(v, "IMAGE_FETCH_TIMEOUT")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIKey:             strings.TrimSpace(v.GetString("GROQ_API_KEY")),
		Endpoint:           strings.TrimSpace(v.GetString("GROQ_API_URL")),
		Model:              strings.TrimSpace(v.GetString("MODEL_NAME")),
		MaxTokens:          v.GetInt("MAX_TOKENS"),
		DefaultTemperature: v.GetFloat64("DEFAULT_TEMPERATURE"),
		InferenceTimeout:   inferenceTimeout,
		MaxImageBytes:      v.GetInt("MAX_IMAGE_BYTES"),
		Host:               v.GetString("HOST"),
		Port:               v.GetString("PORT"),
		RequestTimeout:     requestTimeout,
		ImageFetchTimeout:  fetchTimeout,
		MaxRequestBodySize: v.GetInt64("MAX_REQUEST_BODY_SIZE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		QualityProfile:     strings.ToLower(strings.TrimSpace(v.GetString("QUALITY_PROFILE"))),
		Azure: AzureConfig{
			AccountName: v.GetString("AZURE_STORAGE_ACCOUNT"),
			AccountKey:  v.GetString("AZURE_STORAGE_KEY"),
			ServiceURL:  v.GetString("AZURE_STORAGE_URL"),
		},
		S3: S3Config{
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values and returns a configuration error for the first problem.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return apperrors.NewConfigurationError("GROQ_API_KEY is not set; add it to the environment or a .env file", nil)
	}
	if c.Endpoint == "" || c.Model == "" {
		return apperrors.NewConfigurationError("GROQ_API_URL and MODEL_NAME must not be empty", nil)
	}
	if c.MaxTokens <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("MAX_TOKENS must be > 0 (got %d)", c.MaxTokens), nil)
	}
	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return apperrors.NewConfigurationError(fmt.Sprintf("DEFAULT_TEMPERATURE must be within [0,1] (got %g)", c.DefaultTemperature), nil)
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("invalid PORT: %q", c.Port), err)
	}
	if c.MaxRequestBodySize <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize), nil)
	}
	if c.InferenceTimeout <= 0 || c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return apperrors.NewConfigurationError(fmt.Sprintf("timeouts must be > 0 (got inference=%s, request=%s, fetch=%s)",
			c.InferenceTimeout, c.RequestTimeout, c.ImageFetchTimeout), nil)
	}
	return nil
}

// durationSetting reads a timeout written either as a Go duration ("90s", "2m") or as plain seconds ("120")
func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be a finite number of seconds (got %q)", key, raw), nil)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be a duration like 90s or a number of seconds (got %q)", key, raw), err)
	}
	return d, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GROQ_API_KEY", "")
	v.SetDefault("GROQ_API_URL", DefaultEndpoint)
	v.SetDefault("MODEL_NAME", DefaultModel)
	v.SetDefault("MAX_TOKENS", 700)
	v.SetDefault("DEFAULT_TEMPERATURE", 0.3)
	v.SetDefault("INFERENCE_TIMEOUT", "120s")
	v.SetDefault("MAX_IMAGE_BYTES", 4*1024*1024) // base64 ceiling of the endpoint
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "150s")
	v.SetDefault("IMAGE_FETCH_TIMEOUT", "15s")
	v.SetDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024) // 10MB
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("QUALITY_PROFILE", "standard")
	v.SetDefault("AZURE_STORAGE_ACCOUNT", "")
	v.SetDefault("AZURE_STORAGE_KEY", "")
	v.SetDefault("AZURE_STORAGE_URL", "")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
}

func readConfigFile(v *viper.Viper) error {
	path := strings.TrimSpace(os.Getenv(EnvConfigFile))
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}

	v.SetConfigFile(path)
	if strings.HasSuffix(path, ".env") {
		v.SetConfigType("env")
	}
	return v.ReadInConfig()
}
