package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs semantic search. Search returns an
// empty slice when nothing matches; errors mean the store itself is
// unavailable, and callers branch differently on the two.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// WebSearch queries an external search engine for fallback passages.
// Zero passages is a valid result; errors mean the engine is unreachable or
// misconfigured (domain.ErrConfiguration).
type WebSearch interface {
	Search(ctx context.Context, query string) ([]domain.Passage, error)
}

// AnswerGenerator creates the final user-facing answer from either source.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
	GenerateFromPassages(ctx context.Context, question string, passages []domain.Passage) (string, error)
}

// QuestionGrader decides whether a question is answerable from the indexed
// document set at all. Verdict content is advisory LLM output; identical
// input may grade differently across calls.
type QuestionGrader interface {
	GradeQuestion(ctx context.Context, question string) (domain.Verdict, error)
}

// DocumentGrader decides whether one retrieved chunk is relevant to the question.
type DocumentGrader interface {
	GradeChunk(ctx context.Context, question string, chunk domain.RetrievedChunk) (domain.Verdict, error)
}

// GroundednessGrader verifies a generated answer is supported by its context.
type GroundednessGrader interface {
	GradeAnswer(ctx context.Context, question, answer string, contexts []string) (domain.Verdict, error)
}

// StepTracer receives step-level events. Optional collaborator: a nil tracer
// and a failing tracer both leave workflow behavior unchanged.
type StepTracer interface {
	TraceStep(ctx context.Context, event domain.StepEvent)
}

// AnswerLog persists terminal answer records for later display. Best-effort:
// save failures are logged, never surfaced to the caller.
type AnswerLog interface {
	SaveAnswerRecord(ctx context.Context, record *domain.AnswerRecord) error
}
