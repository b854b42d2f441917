package metrics

import (
	"context"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// groundednessStep matches the workflow's groundedness gate event. Its detail
// carries the verdict outcome.
const groundednessStep = "check_groundedness"

// StepTracer mirrors workflow step events into the registry behind /metrics.
// It implements ports.StepTracer and is fanned out next to the slog tracer.
type StepTracer struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) StepTracer(service string) *StepTracer {
	return &StepTracer{metrics: m, service: service}
}

func (t *StepTracer) TraceStep(_ context.Context, event domain.StepEvent) {
	t.metrics.stepsTotal.WithLabelValues(t.service, event.Step, event.Detail).Inc()
	t.metrics.stepDuration.WithLabelValues(t.service, event.Step).Observe(event.Elapsed.Seconds())

	if event.Step == groundednessStep && event.Detail == string(domain.OutcomeFail) {
		t.metrics.RecordGroundednessFailure(t.service)
	}
}
