package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

type workflowStep string

const (
	stepCheckQuestion     workflowStep = "check_question"
	stepRetrieveDocs      workflowStep = "retrieve_docs"
	stepGradeDocs         workflowStep = "grade_docs"
	stepGenerateFromDocs  workflowStep = "generate_from_docs"
	stepCheckGroundedness workflowStep = "check_groundedness"
	stepWebSearch         workflowStep = "web_search"
	stepGenerateFromWeb   workflowStep = "generate_from_web"
	stepDone              workflowStep = "done"
	stepFailed            workflowStep = "failed"
)

// sessionState carries everything one question accumulates on its way through
// the workflow. Created per Ask call, discarded once a terminal step is reached.
type sessionState struct {
	id       string
	question string

	chunks         []domain.RetrievedChunk
	relevantChunks []domain.RetrievedChunk
	passages       []domain.Passage
	answer         string
	verdicts       []domain.Verdict

	// groundednessFailures gates the single web retry after a failed
	// groundedness check. A second failure terminates with Unverifiable.
	groundednessFailures int

	failReason  domain.FailureReason
	explanation string
	provenance  domain.Provenance
}

// WorkflowUseCase sequences retrieval, grading, generation and web fallback
// for a single question.
//
// Routing is an explicit state machine: each gate's verdict (or a downgraded
// adapter failure) picks the next step. Answers produced from indexed
// documents must pass the groundedness gate before the session completes;
// answers produced on the plain web path skip that gate, holding the
// document path to a stricter standard than open web results. The one
// exception is a web regeneration entered because of a groundedness failure,
// which is re-checked so a fabricated answer cannot launder itself through
// the fallback.
type WorkflowUseCase struct {
	embedder     ports.Embedder
	vectorDB     ports.VectorStore
	webSearch    ports.WebSearch
	generator    ports.AnswerGenerator
	questionGate ports.QuestionGrader
	chunkGate    ports.DocumentGrader
	groundedGate ports.GroundednessGrader

	tracer    ports.StepTracer
	answerLog ports.AnswerLog

	topK int
}

type WorkflowOption func(*WorkflowUseCase)

func WithStepTracer(tracer ports.StepTracer) WorkflowOption {
	return func(uc *WorkflowUseCase) { uc.tracer = tracer }
}

func WithAnswerLog(log ports.AnswerLog) WorkflowOption {
	return func(uc *WorkflowUseCase) { uc.answerLog = log }
}

func WithTopK(k int) WorkflowOption {
	return func(uc *WorkflowUseCase) {
		if k > 0 {
			uc.topK = k
		}
	}
}

func NewWorkflowUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	webSearch ports.WebSearch,
	generator ports.AnswerGenerator,
	questionGate ports.QuestionGrader,
	chunkGate ports.DocumentGrader,
	groundedGate ports.GroundednessGrader,
	opts ...WorkflowOption,
) *WorkflowUseCase {
	uc := &WorkflowUseCase{
		embedder:     embedder,
		vectorDB:     vectorDB,
		webSearch:    webSearch,
		generator:    generator,
		questionGate: questionGate,
		chunkGate:    chunkGate,
		groundedGate: groundedGate,
		topK:         5,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ask runs one question end to end and returns its answer record. The error
// return is non-nil only for configuration failures, which abort the session
// unretried; every other failure mode terminates in a FAILED record with a
// reason and nil error.
func (uc *WorkflowUseCase) Ask(ctx context.Context, question string) (*domain.AnswerRecord, error) {
	st := &sessionState{
		id:       uuid.NewString(),
		question: strings.TrimSpace(question),
	}

	if st.question == "" {
		st.failReason = domain.ReasonEmptyQuestion
		st.explanation = "the question is empty"
		return uc.finish(ctx, st, stepFailed), nil
	}

	step := stepCheckQuestion
	for {
		started := time.Now()
		next, err := uc.runStep(ctx, step, st)
		uc.trace(ctx, st, step, time.Since(started))
		if err != nil {
			st.failReason = domain.ReasonConfigurationError
			st.explanation = err.Error()
			return uc.finish(ctx, st, stepFailed), err
		}
		if next == stepDone || next == stepFailed {
			return uc.finish(ctx, st, next), nil
		}
		step = next
	}
}

// runStep executes one state and returns the next one. A non-nil error means
// an unretriable configuration failure; everything else is absorbed into the
// routing decision.
func (uc *WorkflowUseCase) runStep(ctx context.Context, step workflowStep, st *sessionState) (workflowStep, error) {
	switch step {
	case stepCheckQuestion:
		return uc.checkQuestion(ctx, st), nil
	case stepRetrieveDocs:
		return uc.retrieveDocs(ctx, st)
	case stepGradeDocs:
		return uc.gradeDocs(ctx, st), nil
	case stepGenerateFromDocs:
		return uc.generateFromDocs(ctx, st)
	case stepCheckGroundedness:
		return uc.checkGroundedness(ctx, st), nil
	case stepWebSearch:
		return uc.searchWeb(ctx, st)
	case stepGenerateFromWeb:
		return uc.generateFromWeb(ctx, st)
	default:
		return stepFailed, fmt.Errorf("unknown workflow step: %s", step)
	}
}

func (uc *WorkflowUseCase) checkQuestion(ctx context.Context, st *sessionState) workflowStep {
	verdict, err := uc.questionGate.GradeQuestion(ctx, st.question)
	if err != nil {
		verdict = domain.FailedVerdict(domain.VerdictRelevance, graderFailureRationale("question relevance", err))
	}
	st.verdicts = append(st.verdicts, verdict)

	// An out-of-domain question skips the doomed document search entirely.
	if !verdict.Passed() {
		return stepWebSearch
	}
	return stepRetrieveDocs
}

func (uc *WorkflowUseCase) retrieveDocs(ctx context.Context, st *sessionState) (workflowStep, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, st.question)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return stepFailed, fmt.Errorf("embed query: %w", err)
		}
		slog.Warn("workflow_retrieve_degraded", "session_id", st.id, "error", err)
		return stepWebSearch, nil
	}

	chunks, err := uc.vectorDB.Search(ctx, queryVector, uc.topK)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return stepFailed, fmt.Errorf("vector search: %w", err)
		}
		slog.Warn("workflow_retrieve_degraded", "session_id", st.id, "error", err)
		return stepWebSearch, nil
	}
	if len(chunks) == 0 {
		return stepWebSearch, nil
	}

	st.chunks = chunks
	return stepGradeDocs, nil
}

func (uc *WorkflowUseCase) gradeDocs(ctx context.Context, st *sessionState) workflowStep {
	relevant := make([]domain.RetrievedChunk, 0, len(st.chunks))
	for _, chunk := range st.chunks {
		verdict, err := uc.chunkGate.GradeChunk(ctx, st.question, chunk)
		if err != nil {
			verdict = domain.FailedVerdict(domain.VerdictRelevance, graderFailureRationale("document relevance", err))
		}
		st.verdicts = append(st.verdicts, verdict)
		if verdict.Passed() {
			relevant = append(relevant, chunk)
		}
	}

	if len(relevant) == 0 {
		return stepWebSearch
	}
	st.relevantChunks = relevant
	return stepGenerateFromDocs
}

func (uc *WorkflowUseCase) generateFromDocs(ctx context.Context, st *sessionState) (workflowStep, error) {
	// Only pass-marked chunks reach the generator; rejected chunks stay out
	// of the context even though they were retrieved.
	answer, err := uc.generator.GenerateAnswer(ctx, st.question, st.relevantChunks)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return stepFailed, fmt.Errorf("generate answer: %w", err)
		}
		slog.Warn("workflow_generation_degraded", "session_id", st.id, "error", err)
		return stepWebSearch, nil
	}

	st.answer = answer
	return stepCheckGroundedness, nil
}

func (uc *WorkflowUseCase) checkGroundedness(ctx context.Context, st *sessionState) workflowStep {
	verdict, err := uc.groundedGate.GradeAnswer(ctx, st.question, st.answer, st.contextTexts())
	if err != nil {
		verdict = domain.FailedVerdict(domain.VerdictGroundedness, graderFailureRationale("groundedness", err))
	}
	st.verdicts = append(st.verdicts, verdict)

	if verdict.Passed() {
		if st.provenance == "" {
			st.provenance = domain.ProvenanceDocuments
		}
		return stepDone
	}

	st.groundednessFailures++
	if st.groundednessFailures >= 2 {
		st.failReason = domain.ReasonUnverifiable
		st.explanation = "the generated answer could not be verified against any retrieval source"
		return stepFailed
	}
	return stepWebSearch
}

func (uc *WorkflowUseCase) searchWeb(ctx context.Context, st *sessionState) (workflowStep, error) {
	passages, err := uc.webSearch.Search(ctx, st.question)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return stepFailed, fmt.Errorf("web search: %w", err)
		}
		st.failReason = domain.ReasonSearchUnavailable
		st.explanation = fmt.Sprintf("web search is unavailable: %v", err)
		return stepFailed, nil
	}

	st.passages = passages
	return stepGenerateFromWeb, nil
}

func (uc *WorkflowUseCase) generateFromWeb(ctx context.Context, st *sessionState) (workflowStep, error) {
	answer, err := uc.generator.GenerateFromPassages(ctx, st.question, st.passages)
	if err != nil {
		if domain.IsKind(err, domain.ErrConfiguration) {
			return stepFailed, fmt.Errorf("generate from web: %w", err)
		}
		st.failReason = domain.ReasonAdapterFailure
		st.explanation = fmt.Sprintf("answer generation failed on the web fallback: %v", err)
		return stepFailed, nil
	}

	st.answer = answer
	st.provenance = domain.ProvenanceWeb

	// Plain web answers skip the groundedness gate. A regeneration entered
	// because groundedness already failed once is re-checked instead.
	if st.groundednessFailures > 0 {
		return stepCheckGroundedness, nil
	}
	return stepDone, nil
}

func (uc *WorkflowUseCase) finish(ctx context.Context, st *sessionState, terminal workflowStep) *domain.AnswerRecord {
	record := &domain.AnswerRecord{
		SessionID:  st.id,
		Question:   st.question,
		Provenance: st.provenance,
		Verdicts:   st.verdicts,
		CreatedAt:  time.Now().UTC(),
	}
	if record.Verdicts == nil {
		record.Verdicts = []domain.Verdict{}
	}

	if terminal == stepFailed {
		record.Provenance = domain.ProvenanceNone
		record.FailureReason = st.failReason
		record.Explanation = st.explanation
		if record.Explanation == "" {
			record.Explanation = "the question could not be answered"
		}
	} else {
		record.Answer = st.answer
	}

	uc.trace(ctx, st, terminal, 0)

	if uc.answerLog != nil {
		if err := uc.answerLog.SaveAnswerRecord(ctx, record); err != nil {
			slog.Warn("answer_record_save_failed", "session_id", st.id, "error", err)
		}
	}
	return record
}

// trace notifies the optional observability collaborator. A panicking or
// absent tracer never changes workflow behavior.
func (uc *WorkflowUseCase) trace(ctx context.Context, st *sessionState, step workflowStep, elapsed time.Duration) {
	if uc.tracer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("step_tracer_panic", "session_id", st.id, "step", string(step), "panic", r)
		}
	}()
	detail := ""
	switch {
	case step == stepFailed && st.failReason != "":
		detail = string(st.failReason)
	case (step == stepCheckQuestion || step == stepCheckGroundedness) && len(st.verdicts) > 0:
		// Single-verdict gates expose their outcome so tracers can count
		// passes and failures without re-deriving the routing.
		detail = string(st.verdicts[len(st.verdicts)-1].Outcome)
	}
	uc.tracer.TraceStep(ctx, domain.StepEvent{
		SessionID: st.id,
		Step:      string(step),
		Detail:    detail,
		Elapsed:   elapsed,
	})
}

// contextTexts returns the texts the current answer was generated from, so
// the groundedness gate always checks against the matching source.
func (st *sessionState) contextTexts() []string {
	if st.provenance == domain.ProvenanceWeb {
		out := make([]string, 0, len(st.passages))
		for _, p := range st.passages {
			out = append(out, p.Content)
		}
		return out
	}
	out := make([]string, 0, len(st.relevantChunks))
	for _, c := range st.relevantChunks {
		out = append(out, c.Text)
	}
	return out
}

func graderFailureRationale(gate string, err error) string {
	return fmt.Sprintf("%s grader unavailable: %v", gate, err)
}
