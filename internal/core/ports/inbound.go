package ports

import (
	"context"

	"github.com/kirillkom/docnav/internal/core/domain"
)

// ChunkSelection is the payload of the host's onChunkSelect callback.
type ChunkSelection struct {
	ChunkIDs   []string               `json:"chunk_ids"`
	Page       *int                   `json:"page,omitempty"`
	DocumentID string                 `json:"document_id,omitempty"`
	Reference  *domain.ChunkReference `json:"reference,omitempty"`
}

// Navigator is the only boundary between presentation code and the navigation core.
type Navigator interface {
	OnChunkSelect(ctx context.Context, sel ChunkSelection) error
	OnAnnotationClick(ctx context.Context, annotation domain.Annotation) error
	OnDocumentSelect(ctx context.Context, documentID string) error
	SurfaceReady(ctx context.Context) (bool, error)
	ClearFocus()
	State() domain.NavigationState
}

// BatchTracker is the inbound contract for batch job progress tracking.
type BatchTracker interface {
	Start(ctx context.Context, projectID string, req domain.BatchProcessRequest) (*domain.BatchJob, error)
	Resume(ctx context.Context, projectID string) (*domain.BatchJob, error)
	Active() (domain.BatchJob, bool)
	Cancel(ctx context.Context)
}
