// Package telemetry installs the otel meter, tracer and logger providers and
// the slog fanout shared by the CLI and the server.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"golang.org/x/sync/errgroup"
)

type Client struct {
	log *slog.Logger

	tracerProvider *trace.TracerProvider
	metricProvider *metric.MeterProvider
	loggerProvider *log.LoggerProvider
}

func (client *Client) Flush(ctx context.Context) error {
	if client == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if client.metricProvider != nil {
		g.Go(func() error {
			return client.metricProvider.ForceFlush(ctx)
		})
	}
	if client.loggerProvider != nil {
		g.Go(func() error {
			return client.loggerProvider.ForceFlush(ctx)
		})
	}
	if client.tracerProvider != nil {
		g.Go(func() error {
			return client.tracerProvider.ForceFlush(ctx)
		})
	}
	return g.Wait()
}

// Shutdown flushes and stops every provider. A nil client is a no-op so
// callers can defer it when telemetry is disabled.
func (client *Client) Shutdown(ctx context.Context) error {
	if client == nil {
		return nil
	}

	var errs []error
	if client.metricProvider != nil {
		if err := client.metricProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric provider: %w", err))
		}
	}
	if client.tracerProvider != nil {
		if err := client.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if client.loggerProvider != nil {
		if err := client.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		client.log.ErrorContext(ctx, "error shutting down telemetry", "error", err.Error())
	}
	return err
}

// Setup exports to the otlp http endpoint and fans slog out to the otel log
// bridge and logrus. An empty endpoint disables telemetry and returns nil.
func Setup(ctx context.Context, appName, endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, nil
	}

	client := &Client{
		log: slog.With("component", "telemetry"),
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(cause error) {
		client.log.ErrorContext(ctx, "otel error", "error", cause.Error())
	}))

	r, err := newResource(appName)
	if err != nil {
		return nil, err
	}

	if client.metricProvider, err = otlpMeterProvider(ctx, r, appName, endpoint); err != nil {
		return nil, err
	}
	otel.SetMeterProvider(client.metricProvider)

	up, err := otel.Meter(appName + "/telemetry").Int64Counter("up")
	if err != nil {
		return nil, err
	}
	up.Add(ctx, 1)

	if client.tracerProvider, err = otlpTracerProvider(ctx, r, endpoint); err != nil {
		return nil, err
	}
	otel.SetTracerProvider(client.tracerProvider)

	if client.loggerProvider, err = otlpLoggerProvider(ctx, r, endpoint); err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(LogHandler(appName, otelslog.WithLoggerProvider(client.loggerProvider))))

	// pick up the fanout handler
	client.log = slog.With("component", "telemetry")
	client.log.InfoContext(ctx, "telemetry exporting", "endpoint", endpoint)

	return client, nil
}

func newResource(appName string) (*resource.Resource, error) {
	hostName, _ := os.Hostname()
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(appName),
			semconv.HostName(hostName),
			semconv.ServiceInstanceID(uuid.NewString()),
		),
	)
}

func otlpMeterProvider(ctx context.Context, r *resource.Resource, appName, endpoint string) (*metric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otlp metric exporter: %w", err)
	}
	promReader, err := prometheusReader(appName)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(r),
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithReader(promReader),
	), nil
}

func otlpTracerProvider(ctx context.Context, r *resource.Resource, endpoint string) (*trace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otlp trace exporter: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithResource(r),
		trace.WithBatcher(exporter, trace.WithExportTimeout(time.Second)),
	), nil
}

func otlpLoggerProvider(ctx context.Context, r *resource.Resource, endpoint string) (*log.LoggerProvider, error) {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithRetry(otlploghttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize otlp log exporter: %w", err)
	}
	return log.NewLoggerProvider(
		log.WithResource(r),
		log.WithProcessor(log.NewBatchProcessor(exporter, log.WithExportInterval(time.Second))),
	), nil
}
