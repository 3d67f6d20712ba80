package ports

import (
	"context"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// DocumentStore lists project documents and fetches their raw payloads.
// Implementations classify failures into domain error kinds.
type DocumentStore interface {
	ListDocuments(ctx context.Context, projectID string) ([]domain.Document, error)
	FetchFile(ctx context.Context, projectID, documentID string) (domain.DocumentFile, error)
}

// ParseCache returns the latest cached parse for a parser. A miss is reported
// with cached=false and a nil error.
type ParseCache interface {
	LatestParse(ctx context.Context, projectID, documentID, parser string) (result *domain.ParseResult, cached bool, err error)
}

// BatchJobService is the server side of batch parsing.
type BatchJobService interface {
	CreateBatchJob(ctx context.Context, projectID string, req domain.BatchProcessRequest) (*domain.BatchJob, error)
	GetBatchJob(ctx context.Context, jobID string) (*domain.BatchJob, error)
	ListBatchJobs(ctx context.Context, projectID string, filter domain.BatchJobFilter) ([]domain.BatchJob, error)
	CancelBatchJob(ctx context.Context, jobID string) (*domain.BatchJob, error)
}

// RenderSurface is the presentation side that displays documents and highlights.
type RenderSurface interface {
	ShowDocument(ctx context.Context, doc *domain.LoadedDocument) error
	HighlightChunk(ctx context.Context, chunk domain.Chunk) error
	GoToPage(ctx context.Context, page int) error
}

// PageCounter reports the number of pages in a document payload.
type PageCounter interface {
	CountPages(file domain.DocumentFile) (int, error)
}

// BatchEventPublisher announces terminal batch transitions to other processes.
type BatchEventPublisher interface {
	PublishBatchFinished(ctx context.Context, job domain.BatchJob) error
}
