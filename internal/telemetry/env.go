package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

func setEnvIfNotSet(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value)
	}
}

// SetupFromEnv installs global providers whose exporters are picked by the
// standard OTEL_*_EXPORTER variables. Every exporter is off unless asked for;
// metrics are always readable through the prometheus registry.
func SetupFromEnv(ctx context.Context, appName string) (*Client, error) {
	// otel defaults every exporter to otlp on localhost
	setEnvIfNotSet("OTEL_TRACES_EXPORTER", "none")
	setEnvIfNotSet("OTEL_LOGS_EXPORTER", "none")
	setEnvIfNotSet("OTEL_METRICS_EXPORTER", "none")

	client := &Client{
		log: slog.With("component", "telemetry"),
	}

	promReader, err := prometheusReader(appName)
	if err != nil {
		return nil, err
	}
	metricReader, err := autoexport.NewMetricReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metric exporter: %w", err)
	}
	client.metricProvider = metric.NewMeterProvider(
		metric.WithReader(promReader),
		metric.WithReader(metricReader),
	)
	otel.SetMeterProvider(client.metricProvider)

	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace exporter: %w", err)
	}
	client.tracerProvider = trace.NewTracerProvider(trace.WithBatcher(spanExporter))
	otel.SetTracerProvider(client.tracerProvider)

	logExporter, err := autoexport.NewLogExporter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize log exporter: %w", err)
	}
	client.loggerProvider = log.NewLoggerProvider(log.WithProcessor(log.NewBatchProcessor(logExporter)))
	logglobal.SetLoggerProvider(client.loggerProvider)

	slog.SetDefault(slog.New(LogHandler(appName)))
	client.log = slog.With("component", "telemetry")

	return client, nil
}
