package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/covena/internal/config"
)

// Config aggregates the observability settings derived from the
// application configuration and environment.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	LogLevel string
	Debug    bool

	OtelEnabled  bool
	OtelEndpoint string
	OtelProtocol string

	TraceSamplingRatio float64
}

// LoadConfig derives observability settings from the application config,
// with env overrides for the knobs operators tune most often.
func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:        cfg.AppName,
		ServiceVersion:     getenv("SERVICE_VERSION", "dev"),
		Environment:        getenv("ENVIRONMENT", "development"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		OtelEndpoint:       cfg.OTLPEndpoint,
		OtelProtocol:       getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		TraceSamplingRatio: getenvFloat("OTEL_TRACES_SAMPLER_RATIO", 0.1),
	}
	out.Debug = strings.EqualFold(out.Environment, "development") || strings.EqualFold(out.LogLevel, "debug")
	out.OtelEnabled = out.OtelEndpoint != ""
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
