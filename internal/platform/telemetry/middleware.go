package telemetry

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Middleware starts a server span per request, continuing any trace context
// the caller propagated. The span is named after the route template so
// patient ids never end up in span names.
func Middleware(tp trace.TracerProvider, serviceName string) echo.MiddlewareFunc {
	tracer := tp.Tracer(serviceName)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			ctx, span := tracer.Start(ctx, req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("user_agent.original", req.UserAgent()),
					attribute.String("client.address", c.RealIP()),
				),
			)
			defer span.End()

			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))

			switch {
			case status >= http.StatusInternalServerError:
				if err != nil {
					span.RecordError(err)
				}
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			case err == nil:
				span.SetStatus(codes.Ok, "")
			}

			return err
		}
	}
}
