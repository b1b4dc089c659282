package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

// SetupClientTelemetry installs a minimal tracer provider for the migrate
// driver CLI (cmd/migrate), which has no upstream request to inherit a
// trace from. It uses an OTLP/HTTP exporter if OTEL_EXPORTER_OTLP_ENDPOINT
// is set; otherwise it runs with no exporter (noop span export) so a bare
// invocation with no collector configured never fails to start.
func SetupClientTelemetry(ctx context.Context) (func(context.Context) error, error) {
	var opts []tracesdk.TracerProviderOption

	// AlwaysSample: a batch run has no incoming parent to inherit a sampling decision from.
	opts = append(opts, tracesdk.WithSampler(tracesdk.AlwaysSample()))

	// try to create an exporter if an endpoint is configured; otherwise fall back to no exporter
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		exp, err := otlptracehttp.New(ctx)
		if err == nil {
			opts = append(opts, tracesdk.WithBatcher(exp))
		}
	}

	// even without resource attributes, ensure we have a valid provider
	opts = append(opts, tracesdk.WithResource(sdkresource.Empty()))

	tp := tracesdk.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
