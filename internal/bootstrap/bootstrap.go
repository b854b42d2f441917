package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/core/usecase"
	"github.com/kirillkom/docqa/internal/infrastructure/chunking"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/ollama"
	natsqueue "github.com/kirillkom/docqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/docqa/internal/infrastructure/websearch/tavily"
	"github.com/kirillkom/docqa/internal/observability/trace"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Repo       ports.DocumentRepository
	AnswerRepo *postgres.AnswerRepository

	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	WorkflowUC ports.QuestionAnswerer

	closeFn func()
}

// New wires the full dependency graph. Extra step tracers (a metrics tracer
// in the API binary) are fanned out together with the slog tracer.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, extraTracers ...ports.StepTracer) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	answerRepo := postgres.NewAnswerRepository(db)
	if err := answerRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure answers schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient, executor)
	generator := ollama.NewGenerator(ollamaClient, executor)
	questionGrader := ollama.NewQuestionGrader(ollamaClient, executor)
	documentGrader := ollama.NewDocumentGrader(ollamaClient, executor)
	groundedGrader := ollama.NewGroundednessGrader(ollamaClient, executor)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithExecutor(executor))
	webSearch := tavily.New(cfg.TavilyAPIKey,
		tavily.WithMaxResults(cfg.TavilyMaxResults),
		tavily.WithExecutor(executor),
	)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewDispatcher(storage)

	var stepTracer ports.StepTracer = trace.NewSlogStepTracer(logger)
	if len(extraTracers) > 0 {
		stepTracer = trace.MultiTracer(append([]ports.StepTracer{stepTracer}, extraTracers...))
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, embedder, vectorDB)
	workflowUC := usecase.NewWorkflowUseCase(
		embedder,
		vectorDB,
		webSearch,
		generator,
		questionGrader,
		documentGrader,
		groundedGrader,
		usecase.WithTopK(cfg.RetrievalTopK),
		usecase.WithStepTracer(stepTracer),
		usecase.WithAnswerLog(answerRepo),
	)

	return &App{
		Config: cfg,

		Queue:      queue,
		Repo:       repo,
		AnswerRepo: answerRepo,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		WorkflowUC: workflowUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
