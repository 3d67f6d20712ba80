package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

// defaultContentType applies when the store could not tell the file type.
const defaultContentType = "application/octet-stream"

var loadErrorKinds = []error{
	domain.ErrTransport,
	domain.ErrNotFound,
	domain.ErrForbidden,
	domain.ErrServer,
	domain.ErrEmptyPayload,
	domain.ErrInvalidInput,
	domain.ErrTemporary,
}

// DocumentLoader fetches a document payload together with its cached parse.
// It never retries.
type DocumentLoader struct {
	store  ports.DocumentStore
	cache  ports.ParseCache
	pages  ports.PageCounter
	logger *slog.Logger
}

func NewDocumentLoader(
	store ports.DocumentStore,
	cache ports.ParseCache,
	pages ports.PageCounter,
	logger *slog.Logger,
) *DocumentLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentLoader{
		store:  store,
		cache:  cache,
		pages:  pages,
		logger: logger,
	}
}

func (l *DocumentLoader) Load(ctx context.Context, projectID, documentID, parser string) (*domain.LoadedDocument, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(documentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load document", errors.New("project and document ids are required"))
	}

	file, err := l.fetchFile(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(file); err != nil {
		return nil, err
	}
	file = l.describeFile(file, documentID)

	result, err := l.lookupParse(ctx, projectID, documentID, parser)
	if err != nil {
		return nil, err
	}

	return &domain.LoadedDocument{
		ProjectID:  projectID,
		DocumentID: documentID,
		Parser:     parser,
		File:       file,
		Result:     result,
	}, nil
}

func (l *DocumentLoader) fetchFile(ctx context.Context, projectID, documentID string) (domain.DocumentFile, error) {
	file, err := l.store.FetchFile(ctx, projectID, documentID)
	if err != nil {
		return domain.DocumentFile{}, classifyLoadError("fetch document file", err)
	}
	return file, nil
}

func validatePayload(file domain.DocumentFile) error {
	if len(file.Data) == 0 {
		return domain.WrapError(domain.ErrEmptyPayload, "validate document file", errors.New("document payload has zero bytes"))
	}
	return nil
}

func (l *DocumentLoader) describeFile(file domain.DocumentFile, documentID string) domain.DocumentFile {
	file.Name = sanitizeFilename(file.Name, documentID)
	if strings.TrimSpace(file.ContentType) == "" {
		file.ContentType = defaultContentType
	}
	if l.pages != nil && file.PageCount == 0 {
		count, err := l.pages.CountPages(file)
		if err != nil {
			l.logger.Debug("page_count_unavailable", "document_id", documentID, "error", err)
		} else {
			file.PageCount = count
		}
	}
	return file
}

func (l *DocumentLoader) lookupParse(ctx context.Context, projectID, documentID, parser string) (*domain.ParseResult, error) {
	result, cached, err := l.cache.LatestParse(ctx, projectID, documentID, parser)
	if err != nil {
		return nil, classifyLoadError("lookup cached parse", err)
	}
	if !cached || result == nil {
		l.logger.Debug("parse_cache_miss", "document_id", documentID, "parser", parser)
		return nil, nil
	}
	return result, nil
}

// classifyLoadError keeps known kinds and treats anything else as a transport failure.
func classifyLoadError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	for _, kind := range loadErrorKinds {
		if domain.IsKind(err, kind) {
			return fmt.Errorf("%s: %w", operation, err)
		}
	}
	return domain.WrapError(domain.ErrTransport, operation, err)
}

func sanitizeFilename(name, fallback string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		base = fallback
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		default:
			return r
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
