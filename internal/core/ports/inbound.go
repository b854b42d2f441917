package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the QA workflow. Each call is
// an independent session; no conversation state survives between calls.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.AnswerRecord, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// AnswerHistory is the inbound read model over the answer audit log.
type AnswerHistory interface {
	RecentAnswers(ctx context.Context, limit int) ([]domain.AnswerRecord, error)
}
