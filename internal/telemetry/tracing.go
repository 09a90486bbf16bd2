// Package telemetry sets up OpenTelemetry tracing for the relay.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/socialrelay/internal/relay"
)

const (
	instrumentationName = "github.com/JakeFAU/socialrelay/internal/telemetry"
	unmatchedRoute      = "unmatched"
)

// InitTracerProvider installs the global trace provider and propagators.
// Spans are recorded in-process; extra span processors (exporters) are attached via opts.
func InitTracerProvider(ctx context.Context, serviceName string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// Handler wraps h so each inbound request gets a server span. Spans are named
// after the chi route pattern, so static files all share "GET /*".
func Handler(h http.Handler, tp trace.TracerProvider) http.Handler {
	named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chi reuses a route context already on the request instead of allocating its own.
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			rctx = chi.NewRouteContext()
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		}
		h.ServeHTTP(w, r)

		pattern := rctx.RoutePattern()
		if pattern == "" {
			pattern = unmatchedRoute
		}
		span := trace.SpanFromContext(r.Context())
		span.SetName(r.Method + " " + pattern)
		span.SetAttributes(attribute.String("http.route", pattern))
	})
	return otelhttp.NewHandler(named, "relay.http",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	)
}

// TracePublisher wraps pub so every publish runs inside a span named after the platform.
func TracePublisher(pub relay.Publisher, tp trace.TracerProvider) relay.Publisher {
	return &tracedPublisher{Publisher: pub, tracer: tp.Tracer(instrumentationName)}
}

type tracedPublisher struct {
	relay.Publisher
	tracer trace.Tracer
}

func (p *tracedPublisher) Publish(ctx context.Context, sub relay.Submission) (string, error) {
	ctx, span := p.tracer.Start(ctx, "publish "+string(p.Platform()),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("relay.platform", string(p.Platform())),
			attribute.String("relay.submission_id", sub.ID),
			attribute.Bool("relay.media", sub.Media.Present()),
		),
	)
	defer span.End()

	detail, err := p.Publisher.Publish(ctx, sub)
	if err != nil {
		// FailureReason strips transport URLs, which carry the bot token.
		span.SetStatus(codes.Error, relay.FailureReason(err))
		return "", err //nolint:wrapcheck // outcome text comes from the wrapped publisher
	}
	span.SetAttributes(attribute.String("relay.detail", detail))
	span.SetStatus(codes.Ok, "")
	return detail, nil
}
