package trace

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// SlogStepTracer writes one structured log line per workflow step.
type SlogStepTracer struct {
	logger *slog.Logger
}

func NewSlogStepTracer(logger *slog.Logger) *SlogStepTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogStepTracer{logger: logger}
}

func (t *SlogStepTracer) TraceStep(ctx context.Context, event domain.StepEvent) {
	t.logger.LogAttrs(ctx, slog.LevelInfo, "workflow step",
		slog.String("session_id", event.SessionID),
		slog.String("step", event.Step),
		slog.String("detail", event.Detail),
		slog.Duration("elapsed", event.Elapsed),
	)
}

// MultiTracer fans one event out to several tracers.
type MultiTracer []ports.StepTracer

func (m MultiTracer) TraceStep(ctx context.Context, event domain.StepEvent) {
	for _, tracer := range m {
		if tracer != nil {
			tracer.TraceStep(ctx, event)
		}
	}
}
