package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap/zapcore"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	tel, err := Setup(context.Background(), Options{ServiceName: "product-sales-api"})
	if err != nil {
		t.Fatal(err)
	}
	if tel.LoggerProvider == nil {
		t.Fatal("expected the global logger provider")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		log := NewLogger(dev, "product-sales-api", noop.NewLoggerProvider())
		if log == nil {
			t.Fatalf("dev=%v: nil logger", dev)
		}
		log.Info("hello")
		_ = log.Sync()
	}
	if !NewLogger(true, "svc", nil).Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("development logger must enable debug")
	}
	if NewLogger(false, "svc", nil).Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("production logger must not enable debug")
	}
}
