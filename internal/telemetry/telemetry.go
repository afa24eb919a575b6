// Package telemetry sets up OpenTelemetry trace and log export and the zap
// logger that feeds it.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exportTimeout = 10 * time.Second
	maxQueueSize  = 2048
)

// Options configures Setup. An empty Endpoint disables export; spans and
// log records then go to the global no-op providers.
type Options struct {
	ServiceName string
	Version     string
	// Endpoint is the OTLP/HTTP base URL, e.g. http://localhost:4318.
	Endpoint string
}

// Telemetry owns the providers created by Setup.
type Telemetry struct {
	// LoggerProvider is what NewLogger bridges zap into.
	LoggerProvider otellog.LoggerProvider
	shutdown       []func(context.Context) error
}

// Setup installs the global tracer and logger providers and the W3C trace
// context propagator.
func Setup(ctx context.Context, opts Options) (*Telemetry, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t := &Telemetry{LoggerProvider: global.GetLoggerProvider()}
	if opts.Endpoint == "" {
		return t, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.Endpoint+"/v1/traces"))
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter,
			sdktrace.WithExportTimeout(exportTimeout),
			sdktrace.WithMaxQueueSize(maxQueueSize),
		)),
	)
	otel.SetTracerProvider(tp)
	t.shutdown = append(t.shutdown, tp.Shutdown)

	logExporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(opts.Endpoint+"/v1/logs"))
	if err != nil {
		return t, errors.Join(fmt.Errorf("otlp log exporter: %w", err), t.Shutdown(ctx))
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter,
			sdklog.WithExportTimeout(exportTimeout),
			sdklog.WithMaxQueueSize(maxQueueSize),
		)),
	)
	global.SetLoggerProvider(lp)
	t.LoggerProvider = lp
	t.shutdown = append(t.shutdown, lp.Shutdown)
	return t, nil
}

// Shutdown flushes and stops every provider created by Setup.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdown {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdown = nil
	return err
}

// NewLogger builds the application logger: console output in development,
// JSON otherwise, teed into the OpenTelemetry log bridge when lp is set.
func NewLogger(dev bool, service string, lp otellog.LoggerProvider) *zap.Logger {
	level := zap.InfoLevel
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)
	if dev {
		level = zap.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)
	if lp != nil {
		core = zapcore.NewTee(core, otelzap.NewCore(service, otelzap.WithLoggerProvider(lp)))
	}
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", service)),
	)
}
