package observability

import (
	"github.com/smallbiznis/covena/internal/observability/logger"
	"github.com/smallbiznis/covena/internal/observability/metrics"
	"github.com/smallbiznis/covena/internal/observability/tracing"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics for the application.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		provideTracingConfig,
		provideMetricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
)

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.ServiceVersion,
		Level:               cfg.LogLevel,
		Format:              "json",
		Debug:               cfg.Debug,
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelEndpoint,
		ExporterProtocol: cfg.OtelProtocol,
		SamplingRatio:    cfg.TraceSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelEndpoint,
		ExporterProtocol: cfg.OtelProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
