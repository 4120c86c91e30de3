package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServiceName identifies this service in log output and the health body.
const ServiceName = "psd-processor"

// Export policies understood by the layer exporter.
const (
	PolicyLayers    = "layers"
	PolicyColorways = "colorways"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	UploadDir         string
	OutputDir         string
	MaxUploadBytes    int64
	FetchTimeout      time.Duration
	ExportPolicy      string
	S3Bucket          string
	S3Prefix          string
	S3CredentialsFile string
	AllowedOrigins    []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Upload and output roots default under the system
// temp directory so a bare `go run` works without any environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "psd_uploads")),
		OutputDir:         getEnv("OUTPUT_DIR", filepath.Join(os.TempDir(), "psd_outputs")),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 100)) << 20,
		FetchTimeout:      time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)),
		ExportPolicy:      getEnv("EXPORT_POLICY", PolicyLayers),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Prefix:          getEnv("S3_PREFIX", "jobs"),
		S3CredentialsFile: os.Getenv("S3_CREDENTIALS_FILE"),
		AllowedOrigins:    splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.ExportPolicy {
	case PolicyLayers, PolicyColorways:
	default:
		return nil, fmt.Errorf("EXPORT_POLICY must be %q or %q, got %q", PolicyLayers, PolicyColorways, cfg.ExportPolicy)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
