package o11y

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Attribute keys used on span attributes and clog context values.
const (
	AttrName          = "name"
	AttrDriver        = "driver"
	AttrStrategy      = "strategy"
	AttrServerID      = "server_id"
	AttrSpotRequestID = "spot_request_id"
	AttrHostname      = "hostname"
	AttrImageID       = "image_id"
	AttrInstanceType  = "instance_type"
)

// exporting reports whether OTLP export is configured for 'signal' ("traces"
// or "logs"), either specifically or through the shared endpoint.
func exporting(signal string) bool {
	switch signal {
	case "traces":
		if os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != "" {
			return true
		}
	case "logs":
		if os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") != "" {
			return true
		}
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// SetupTracing configures the global otel TracerProvider. When an OTLP traces
// endpoint is configured, spans are exported via OTLP/HTTP. The returned
// function flushes and stops the provider.
func SetupTracing(ctx context.Context) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !exporting("traces") {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		return noop, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
