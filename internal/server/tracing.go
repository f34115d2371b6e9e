package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name; spans go to the global provider unless WithTracer is used.
const tracerName = "github.com/Tyrowin/tcpchat/internal/server"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (s *Server) startSessionSpan(ctx context.Context, c *Client) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "chat.session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("chat.session_id", c.ID()),
			attribute.String("net.peer.address", c.Addr()),
		),
	)
}

func endSessionSpan(span trace.Span, nickname string, outcome Outcome, err error) {
	if nickname != "" {
		span.SetAttributes(attribute.String("chat.nickname", nickname))
	}
	span.SetAttributes(attribute.String("chat.outcome", outcome.String()))
	if outcome == OutcomeIOFailure && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Server) startWhisperSpan(ctx context.Context, cmd Command) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "chat.whisper",
		trace.WithAttributes(
			attribute.String("chat.target", cmd.Target),
			attribute.Bool("chat.valid", cmd.Valid),
		),
	)
}
