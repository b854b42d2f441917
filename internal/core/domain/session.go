package domain

import "time"

type VerdictKind string

const (
	VerdictRelevance    VerdictKind = "relevance"
	VerdictGroundedness VerdictKind = "groundedness"
)

type VerdictOutcome string

const (
	OutcomePass VerdictOutcome = "pass"
	OutcomeFail VerdictOutcome = "fail"
)

// Verdict is the graded result of a single quality gate. Graders always
// populate every field; a grader failure is represented as a failing verdict
// with zero confidence rather than an error.
type Verdict struct {
	Kind       VerdictKind    `json:"kind"`
	Outcome    VerdictOutcome `json:"outcome"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`
}

func (v Verdict) Passed() bool {
	return v.Outcome == OutcomePass
}

// FailedVerdict is the downgrade applied when a grader call errors out.
func FailedVerdict(kind VerdictKind, rationale string) Verdict {
	return Verdict{
		Kind:       kind,
		Outcome:    OutcomeFail,
		Confidence: 0.0,
		Rationale:  rationale,
	}
}

type Provenance string

const (
	ProvenanceDocuments Provenance = "documents"
	ProvenanceWeb       Provenance = "web"
	ProvenanceNone      Provenance = "none"
)

type FailureReason string

const (
	ReasonEmptyQuestion      FailureReason = "EmptyQuestion"
	ReasonSearchUnavailable  FailureReason = "SearchUnavailable"
	ReasonUnverifiable       FailureReason = "Unverifiable"
	ReasonConfigurationError FailureReason = "ConfigurationError"
	ReasonAdapterFailure     FailureReason = "AdapterFailure"
)

// Passage is a unit of web search output used as generation context on the
// fallback path.
type Passage struct {
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// AnswerRecord is the terminal output of a workflow session. Provenance
// "documents" always carries a passing groundedness verdict; provenance
// "none" is emitted only once both retrieval sources are exhausted, and is
// always accompanied by a failure reason and a human-readable explanation.
type AnswerRecord struct {
	SessionID     string        `json:"session_id"`
	Question      string        `json:"question"`
	Answer        string        `json:"answer,omitempty"`
	Provenance    Provenance    `json:"provenance"`
	Verdicts      []Verdict     `json:"verdicts"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Explanation   string        `json:"explanation,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (r *AnswerRecord) Failed() bool {
	return r.FailureReason != ""
}

// StepEvent is handed to the optional step tracer after each workflow
// transition. Tracing is fire-and-forget; consumers must not block.
type StepEvent struct {
	SessionID string        `json:"session_id"`
	Step      string        `json:"step"`
	Detail    string        `json:"detail,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}
