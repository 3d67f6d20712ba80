package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

var _ ports.ParseCache = (*ParseCacheRepository)(nil)

// ParseCacheRepository reads cached parse results straight from the backend
// database. It never writes.
type ParseCacheRepository struct {
	db *sql.DB
}

func NewParseCacheRepository(db *sql.DB) *ParseCacheRepository {
	return &ParseCacheRepository{db: db}
}

type parseRow struct {
	id           string
	parser       string
	model        sql.NullString
	markdown     sql.NullString
	pageCount    sql.NullInt64
	creditUsage  sql.NullFloat64
	inputTokens  sql.NullInt64
	outputTokens sql.NullInt64
}

func (r *ParseCacheRepository) LatestParse(ctx context.Context, projectID, documentID, parser string) (*domain.ParseResult, bool, error) {
	if err := r.ensureDocument(ctx, projectID, documentID); err != nil {
		return nil, false, err
	}

	const query = `
SELECT id, parser, model, markdown, page_count, credit_usage, input_tokens, output_tokens
FROM parse_results
WHERE document_id = $1 AND status = 'completed' AND ($2 = '' OR parser = $2)
ORDER BY created_at DESC
LIMIT 1
`
	var row parseRow
	err := r.db.QueryRowContext(ctx, query, documentID, parser).Scan(
		&row.id, &row.parser, &row.model, &row.markdown,
		&row.pageCount, &row.creditUsage, &row.inputTokens, &row.outputTokens,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyDBError("select latest parse result", err)
	}

	chunks, err := r.chunks(ctx, row.id)
	if err != nil {
		return nil, false, err
	}
	return row.toDomain(chunks), true, nil
}

func (r *ParseCacheRepository) ensureDocument(ctx context.Context, projectID, documentID string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE id = $1 AND project_id = $2`,
		documentID, projectID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrNotFound, "select document", fmt.Errorf("id=%s project=%s", documentID, projectID))
	}
	if err != nil {
		return classifyDBError("select document", err)
	}
	return nil
}

func (r *ParseCacheRepository) chunks(ctx context.Context, parseResultID string) ([]domain.Chunk, error) {
	const query = `
SELECT chunk_id, markdown, chunk_type, page_number, bbox_left, bbox_top, bbox_right, bbox_bottom
FROM chunks
WHERE parse_result_id = $1
ORDER BY chunk_index
`
	rows, err := r.db.QueryContext(ctx, query, parseResultID)
	if err != nil {
		return nil, classifyDBError("select chunks", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var (
			chunk                    domain.Chunk
			markdown, chunkType      sql.NullString
			pageNumber               sql.NullInt64
			left, top, right, bottom sql.NullFloat64
		)
		if err := rows.Scan(&chunk.ID, &markdown, &chunkType, &pageNumber, &left, &top, &right, &bottom); err != nil {
			return nil, classifyDBError("scan chunk", err)
		}
		chunk.Markdown = markdown.String
		chunk.Type = domain.ChunkType(chunkType.String)
		// stored pages are 1-based
		if pageNumber.Valid {
			page := int(pageNumber.Int64) - 1
			if page < 0 {
				page = 0
			}
			chunk.Grounding = &domain.Grounding{
				Page: page,
				Box: domain.BoundingBox{
					Left:   left.Float64,
					Top:    top.Float64,
					Right:  right.Float64,
					Bottom: bottom.Float64,
				},
			}
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("iterate chunks", err)
	}
	return out, nil
}

func (p parseRow) toDomain(chunks []domain.Chunk) *domain.ParseResult {
	result := &domain.ParseResult{
		ID:       p.id,
		Markdown: p.markdown.String,
		Chunks:   chunks,
		Metadata: domain.ParseMetadata{
			PageCount:   int(p.pageCount.Int64),
			CreditUsage: p.creditUsage.Float64,
			Parser:      p.parser,
			Model:       p.model.String,
		},
	}
	if p.inputTokens.Valid && p.inputTokens.Int64 > 0 {
		result.Metadata.Usage = &domain.TokenUsage{
			InputTokens:  int(p.inputTokens.Int64),
			OutputTokens: int(p.outputTokens.Int64),
			Model:        p.model.String,
		}
	}
	return result
}

func classifyDBError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrTransport, operation, err)
}
