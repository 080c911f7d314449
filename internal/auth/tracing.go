package auth

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("taskify/backend/internal/auth")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("auth.outcome", "ok"))
	}
	span.End()
}
