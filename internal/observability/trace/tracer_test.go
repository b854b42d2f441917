package trace

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type recordingTracer struct {
	events []domain.StepEvent
}

func (r *recordingTracer) TraceStep(_ context.Context, event domain.StepEvent) {
	r.events = append(r.events, event)
}

func TestMultiTracerFansOutToEveryTracer(t *testing.T) {
	first := &recordingTracer{}
	second := &recordingTracer{}
	multi := MultiTracer{first, nil, second}

	multi.TraceStep(context.Background(), domain.StepEvent{SessionID: "s-1", Step: "retrieve_docs"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected every tracer to receive the event, got %d and %d", len(first.events), len(second.events))
	}
	if first.events[0].Step != "retrieve_docs" {
		t.Fatalf("unexpected step %q", first.events[0].Step)
	}
}

func TestSlogStepTracerWritesStepFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	tracer := NewSlogStepTracer(logger)

	tracer.TraceStep(context.Background(), domain.StepEvent{
		SessionID: "s-1",
		Step:      "check_groundedness",
		Detail:    "fail",
		Elapsed:   10 * time.Millisecond,
	})

	line := buf.String()
	for _, want := range []string{`"session_id":"s-1"`, `"step":"check_groundedness"`, `"detail":"fail"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %s: %s", want, line)
		}
	}
}
