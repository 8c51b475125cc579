package telemetry

import (
	"fmt"
	"log/slog"

	sloglogrus "github.com/samber/slog-logrus/v2"
	slogmulti "github.com/samber/slog-multi"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// LogHandler writes every record to logrus and to the otel log bridge under
// scope. Without WithLoggerProvider the bridge follows the global provider.
func LogHandler(scope string, opts ...otelslog.Option) slog.Handler {
	return slogmulti.Fanout(
		sloglogrus.Option{Level: slog.LevelDebug, Logger: logrus.StandardLogger()}.NewLogrusHandler(),
		otelslog.NewHandler(scope, opts...),
	)
}

// prometheusReader exposes meters on the default prometheus registry, which
// is what /metrics serves.
func prometheusReader(namespace string) (metric.Reader, error) {
	exporter, err := prometheus.New(prometheus.WithNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	return exporter, nil
}
