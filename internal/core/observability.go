package core

import (
	"context"
	"time"
)

// MetricsRecorder observes service operation outcomes. Implementations must
// be safe for concurrent use.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finishes a single traced operation.
type TraceSpan interface {
	End(err error)
}

// instrument wraps one service operation with the configured tracer and
// metrics recorder. Both are optional.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	start := s.nowFn()
	err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, s.nowFn().Sub(start))
	}
	return err
}
