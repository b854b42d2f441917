package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

// gradeResponse is the strict JSON shape every grader prompt requests.
type gradeResponse struct {
	Score      string  `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// QuestionGrader decides whether a question is in-domain for the indexed
// document set.
type QuestionGrader struct {
	client   *Client
	executor *resilience.Executor
}

func NewQuestionGrader(client *Client, executor *resilience.Executor) *QuestionGrader {
	return &QuestionGrader{client: client, executor: executor}
}

func (g *QuestionGrader) GradeQuestion(ctx context.Context, question string) (domain.Verdict, error) {
	return grade(ctx, g.client, g.executor, "grade.question", domain.VerdictRelevance, buildQuestionGradePrompt(question))
}

// DocumentGrader judges a single retrieved chunk against the question.
type DocumentGrader struct {
	client   *Client
	executor *resilience.Executor
}

func NewDocumentGrader(client *Client, executor *resilience.Executor) *DocumentGrader {
	return &DocumentGrader{client: client, executor: executor}
}

func (g *DocumentGrader) GradeChunk(ctx context.Context, question string, chunk domain.RetrievedChunk) (domain.Verdict, error) {
	return grade(ctx, g.client, g.executor, "grade.chunk", domain.VerdictRelevance, buildChunkGradePrompt(question, chunk))
}

// GroundednessGrader verifies a generated answer against its context texts.
type GroundednessGrader struct {
	client   *Client
	executor *resilience.Executor
}

func NewGroundednessGrader(client *Client, executor *resilience.Executor) *GroundednessGrader {
	return &GroundednessGrader{client: client, executor: executor}
}

func (g *GroundednessGrader) GradeAnswer(ctx context.Context, question, answer string, contexts []string) (domain.Verdict, error) {
	return grade(ctx, g.client, g.executor, "grade.groundedness", domain.VerdictGroundedness, buildGroundednessPrompt(question, answer, contexts))
}

func grade(
	ctx context.Context,
	client *Client,
	executor *resilience.Executor,
	operation string,
	kind domain.VerdictKind,
	prompt string,
) (domain.Verdict, error) {
	var raw string
	call := func(callCtx context.Context) error {
		var err error
		raw, err = client.generateJSON(callCtx, prompt)
		return err
	}
	if err := executeLLMCall(ctx, executor, operation, call); err != nil {
		return domain.Verdict{}, wrapUnavailableIfNeeded(operation, err)
	}

	return parseVerdict(kind, raw)
}

func parseVerdict(kind domain.VerdictKind, raw string) (domain.Verdict, error) {
	var resp gradeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &resp); err != nil {
		return domain.Verdict{}, fmt.Errorf("parse grade json: %w", err)
	}

	outcome := domain.OutcomeFail
	switch strings.ToLower(strings.TrimSpace(resp.Score)) {
	case "yes", "pass", "true":
		outcome = domain.OutcomePass
	case "no", "fail", "false":
		outcome = domain.OutcomeFail
	default:
		return domain.Verdict{}, fmt.Errorf("unexpected grade score: %q", resp.Score)
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.Verdict{
		Kind:       kind,
		Outcome:    outcome,
		Confidence: confidence,
		Rationale:  strings.TrimSpace(resp.Reasoning),
	}, nil
}
