package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/telemetry"
)

const defaultTimeout = 45 * time.Second

var tracer = otel.Tracer("jobprep-backend/ai")

// Guard bounds every call to Next with Timeout and normalizes failures to
// ErrUnavailable.
type Guard struct {
	Next     Gateway
	Provider string
	Timeout  time.Duration
}

// NewGuard wraps next. A non-positive timeout selects the default.
func NewGuard(next Gateway, provider string, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Guard{Next: next, Provider: provider, Timeout: timeout}
}

func (g *Guard) GenerateText(ctx context.Context, req Request) (string, error) {
	return g.call(ctx, req, "text", func(ctx context.Context) (string, error) {
		return g.Next.GenerateText(ctx, req)
	})
}

func (g *Guard) GenerateFromDocument(ctx context.Context, doc Document, req Request) (string, error) {
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrUnavailable)
	}
	return g.call(ctx, req, "document", func(ctx context.Context) (string, error) {
		return g.Next.GenerateFromDocument(ctx, doc, req)
	})
}

func (g *Guard) call(ctx context.Context, req Request, mode string, fn func(context.Context) (string, error)) (string, error) {
	if g == nil || g.Next == nil {
		return "", ErrUnavailable
	}
	op := req.Op
	if op == "" {
		op = "generate"
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "ai."+op, trace.WithAttributes(
		attribute.String("ai.provider", g.Provider),
		attribute.String("ai.mode", mode),
		attribute.Int("ai.prompt_chars", len(req.Prompt)),
	))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty model output")
	}
	elapsed := float64(time.Since(start).Milliseconds())
	metrics.ObserveAICall(op, err == nil, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.Warn("ai.call_failed", map[string]any{
			"op":          op,
			"provider":    g.Provider,
			"mode":        mode,
			"duration_ms": elapsed,
			"error":       err,
		})
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	span.SetAttributes(attribute.Int("ai.output_chars", len(out)))
	telemetry.L().Debug("ai.call_ok", zap.String("op", op), zap.Float64("duration_ms", elapsed))
	return out, nil
}
