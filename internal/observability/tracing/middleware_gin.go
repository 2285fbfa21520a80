package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const unmatchedRoute = "unmatched"

type middlewareOptions struct {
	provider trace.TracerProvider
}

// MiddlewareOption configures GinMiddleware.
type MiddlewareOption func(*middlewareOptions)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.provider = provider
	}
}

// GinMiddleware opens one server span per request, named after the matched
// route template, e.g. "POST /api/invoices/:id/mark-paid". Public invoice
// tokens only ever appear as the ":token" placeholder.
func GinMiddleware(opts ...MiddlewareOption) gin.HandlerFunc {
	options := middlewareOptions{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&options)
	}
	tracer := options.provider.Tracer("github.com/smallbiznis/invoicer/http")

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := strings.ToUpper(c.Request.Method)

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx = withRequestBaggage(ctx)
		ctx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(routeAttributes(c, method, route)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if safe := SafeError(last.Err); safe != nil {
				span.RecordError(safe)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func routeAttributes(c *gin.Context, method, route string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
	}
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		switch {
		case strings.Contains(route, "/invoices/:id"):
			attrs = append(attrs, attribute.String("invoice.id", id))
		case strings.Contains(route, "/clients/:id"):
			attrs = append(attrs, attribute.String("client.id", id))
		}
	}
	if requestID := obscontext.RequestIDFromGin(c); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	return SafeAttributes(attrs...)
}

func withRequestBaggage(ctx context.Context) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
