package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

var errNoActiveDocument = errors.New("no active document")

var _ ports.Navigator = (*NavigationOrchestrator)(nil)

type OrchestratorOptions struct {
	ProjectID string
	// Parser is the parser whose cached results are shown. Empty falls back to
	// the latest parser recorded on each document.
	Parser   string
	Logger   *slog.Logger
	Observer NavigationObserver
	// Preview turns chunk markdown into the text shown in focus mode.
	Preview func(markdown string) string
}

// NavigationOrchestrator composes loading, resolution and highlight
// synchronization behind the host callbacks and owns the UI-facing state.
type NavigationOrchestrator struct {
	highlights *HighlightSynchronizer
	store      ports.DocumentStore
	surface    ports.RenderSurface
	logger     *slog.Logger
	observer   NavigationObserver
	preview    func(string) string

	mu          sync.Mutex
	projectID   string
	parser      string
	documents   []domain.Document
	highlighted *domain.Chunk
	currentPage int
	focus       bool
	focusText   string
	banner      string
	generation  uint64
	applied     uint64
}

func NewNavigationOrchestrator(
	highlights *HighlightSynchronizer,
	store ports.DocumentStore,
	surface ports.RenderSurface,
	opts OrchestratorOptions,
) *NavigationOrchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Preview == nil {
		opts.Preview = strings.TrimSpace
	}
	return &NavigationOrchestrator{
		highlights: highlights,
		store:      store,
		surface:    surface,
		logger:     opts.Logger,
		observer:   opts.Observer,
		preview:    opts.Preview,
		projectID:  opts.ProjectID,
		parser:     opts.Parser,
	}
}

// RefreshDocuments replaces the document list with the server's current one.
func (o *NavigationOrchestrator) RefreshDocuments(ctx context.Context) ([]domain.Document, error) {
	projectID := o.project()
	docs, err := o.store.ListDocuments(ctx, projectID)
	if err != nil {
		o.logger.Warn("document_list_refresh_failed", "project_id", projectID, "error", err)
		return nil, err
	}
	o.mu.Lock()
	o.documents = docs
	o.mu.Unlock()
	o.logger.Debug("document_list_refreshed", "project_id", projectID, "documents", len(docs))
	return docs, nil
}

// SelectChunk highlights a chunk of the displayed document. It is a manual
// interaction and leaves focus mode.
func (o *NavigationOrchestrator) SelectChunk(ctx context.Context, chunkID string) error {
	active := o.highlights.Active()
	if active == nil {
		return o.fail(domain.WrapError(domain.ErrInvalidInput, "select chunk", errNoActiveDocument))
	}
	if !active.Parsed() {
		return o.fail(domain.WrapError(domain.ErrInvalidInput, "select chunk", fmt.Errorf("document %s is not parsed", active.DocumentID)))
	}
	chunk, ok := active.Result.ChunkByID(chunkID)
	if !ok {
		return o.fail(domain.WrapError(domain.ErrNotFound, "select chunk", fmt.Errorf("chunk %s", chunkID)))
	}
	o.supersede()
	if err := o.highlightNow(ctx, chunk, chunk.DisplayPage()); err != nil {
		return o.fail(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setHighlightLocked(&chunk, chunk.DisplayPage(), false)
	o.banner = ""
	return nil
}

// SelectReference navigates to a reference that may point into another
// document. An empty documentID means the displayed document.
func (o *NavigationOrchestrator) SelectReference(ctx context.Context, documentID string, ref domain.ChunkReference, explicitPage int) error {
	active := o.highlights.Active()
	if documentID == "" && active == nil {
		return o.fail(domain.WrapError(domain.ErrInvalidInput, "select reference", errNoActiveDocument))
	}
	if active != nil && (documentID == "" || documentID == active.DocumentID) {
		return o.selectInActive(ctx, active, ref, explicitPage)
	}
	return o.switchTo(ctx, documentID, &ref, explicitPage, true)
}

// OpenDocument displays a document, optionally at a page or reference.
func (o *NavigationOrchestrator) OpenDocument(ctx context.Context, documentID string, page int, ref *domain.ChunkReference) error {
	return o.switchTo(ctx, documentID, ref, page, ref != nil)
}

func (o *NavigationOrchestrator) OnChunkSelect(ctx context.Context, sel ports.ChunkSelection) error {
	ref := domain.ChunkReference{ChunkIDs: sel.ChunkIDs, Page: sel.Page}
	if sel.Reference != nil {
		ref = *sel.Reference
	}
	if ref.Empty() {
		return o.fail(domain.WrapError(domain.ErrInvalidInput, "chunk select", errors.New("chunk ids or location are required")))
	}
	return o.SelectReference(ctx, sel.DocumentID, ref, 0)
}

func (o *NavigationOrchestrator) OnAnnotationClick(ctx context.Context, annotation domain.Annotation) error {
	if strings.TrimSpace(annotation.DocumentID) == "" {
		return o.fail(domain.WrapError(domain.ErrInvalidInput, "annotation click", errors.New("document id is required")))
	}
	return o.SelectReference(ctx, annotation.DocumentID, annotation.Reference(), annotation.PageNumber)
}

func (o *NavigationOrchestrator) OnDocumentSelect(ctx context.Context, documentID string) error {
	return o.OpenDocument(ctx, documentID, 0, nil)
}

// SurfaceReady forwards the render-complete signal and records what was applied.
func (o *NavigationOrchestrator) SurfaceReady(ctx context.Context) (bool, error) {
	applied, err := o.highlights.SurfaceReady(ctx)
	if err != nil {
		return false, err
	}
	if applied == nil {
		return false, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if applied.Generation < o.generation {
		return false, nil
	}
	o.generation = applied.Generation
	o.applied = applied.Generation
	o.setHighlightLocked(applied.Chunk, applied.Page, applied.Focus && applied.Chunk != nil)
	return true, nil
}

func (o *NavigationOrchestrator) ClearFocus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.focus = false
	o.focusText = ""
}

func (o *NavigationOrchestrator) State() domain.NavigationState {
	active := o.highlights.Active()

	o.mu.Lock()
	defer o.mu.Unlock()
	state := domain.NavigationState{
		ProjectID:    o.projectID,
		Parser:       o.parser,
		CurrentPage:  o.currentPage,
		FocusMode:    o.focus,
		FocusPreview: o.focusText,
		Banner:       o.banner,
		Documents:    append([]domain.Document(nil), o.documents...),
	}
	if o.highlighted != nil {
		c := *o.highlighted
		state.HighlightedChunk = &c
	}
	if active != nil {
		state.ActiveDocumentID = active.DocumentID
		state.ActiveFileName = active.File.Name
		state.Parsed = active.Parsed()
		state.PageCount = active.PageCount()
		if active.Parser != "" {
			state.Parser = active.Parser
		}
	}
	return state
}

func (o *NavigationOrchestrator) selectInActive(ctx context.Context, active *domain.LoadedDocument, ref domain.ChunkReference, explicitPage int) error {
	o.supersede()
	page := clampPage(explicitPage, active.PageCount())
	if active.Parsed() {
		chunk, resolution := ResolveChunkReference(ref, active.Result)
		o.observer.ObserveResolution(resolution)
		if resolution != domain.Unresolved {
			if page == 0 {
				page = chunk.DisplayPage()
			}
			if err := o.highlightNow(ctx, chunk, page); err != nil {
				return o.fail(err)
			}
			o.mu.Lock()
			defer o.mu.Unlock()
			o.setHighlightLocked(&chunk, page, true)
			o.banner = ""
			return nil
		}
	}

	if page == 0 && ref.Page != nil {
		page = clampPage(*ref.Page+1, active.PageCount())
	}
	if page > 0 {
		if err := o.surface.GoToPage(ctx, page); err != nil {
			return o.fail(fmt.Errorf("go to page: %w", err))
		}
	}
	o.observer.ObserveHighlight(highlightPageOnly)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setHighlightLocked(nil, page, false)
	o.banner = ""
	return nil
}

func (o *NavigationOrchestrator) highlightNow(ctx context.Context, chunk domain.Chunk, page int) error {
	if err := o.surface.HighlightChunk(ctx, chunk); err != nil {
		return fmt.Errorf("highlight chunk: %w", err)
	}
	if page > 0 {
		if err := o.surface.GoToPage(ctx, page); err != nil {
			return fmt.Errorf("go to page: %w", err)
		}
	}
	o.observer.ObserveHighlight(highlightImmediate)
	return nil
}

func (o *NavigationOrchestrator) switchTo(ctx context.Context, documentID string, ref *domain.ChunkReference, page int, focus bool) error {
	doc, err := o.lookupDocument(ctx, documentID)
	if err != nil {
		return o.fail(err)
	}

	outcome, err := o.highlights.SwitchRequested(ctx, SwitchRequest{
		ProjectID:    o.project(),
		DocumentID:   doc.ID,
		Parser:       o.parserFor(doc),
		Reference:    ref,
		ExplicitPage: page,
		Focus:        focus,
	})
	if err != nil {
		o.logger.Warn("document_switch_failed", "document_id", documentID, "error", err)
		return o.fail(err)
	}
	if outcome.Superseded {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if outcome.Generation < o.generation {
		return nil
	}
	o.generation = outcome.Generation
	o.banner = ""
	// surface-ready may already have applied this switch's highlight
	if o.applied < outcome.Generation {
		o.highlighted = nil
		o.currentPage = 1
		o.focus = false
		o.focusText = ""
	}
	return nil
}

// supersede claims a generation for a highlight applied in place so that a
// pending or still loading switch cannot overwrite it.
func (o *NavigationOrchestrator) supersede() {
	gen := o.highlights.Supersede()
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen > o.generation {
		o.generation = gen
	}
}

// lookupDocument re-resolves an id against the current list, refreshing it once
// when the id is unknown.
func (o *NavigationOrchestrator) lookupDocument(ctx context.Context, documentID string) (domain.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "open document", errors.New("document id is required"))
	}
	if doc, ok := o.findDocument(documentID); ok {
		return doc, nil
	}
	if _, err := o.RefreshDocuments(ctx); err != nil {
		return domain.Document{}, err
	}
	if doc, ok := o.findDocument(documentID); ok {
		return doc, nil
	}
	return domain.Document{}, domain.WrapError(domain.ErrNotFound, "open document", fmt.Errorf("document %s is not in project %s", documentID, o.project()))
}

func (o *NavigationOrchestrator) findDocument(documentID string) (domain.Document, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.documents {
		if doc.ID == documentID {
			return doc, true
		}
	}
	return domain.Document{}, false
}

func (o *NavigationOrchestrator) parserFor(doc domain.Document) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.parser != "" {
		return o.parser
	}
	return doc.LatestParser
}

func (o *NavigationOrchestrator) project() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.projectID
}

func (o *NavigationOrchestrator) setHighlightLocked(chunk *domain.Chunk, page int, focus bool) {
	o.highlighted = chunk
	if page > 0 {
		o.currentPage = page
	}
	o.focus = focus
	o.focusText = ""
	if focus && chunk != nil {
		o.focusText = o.preview(chunk.Markdown)
	}
}

func (o *NavigationOrchestrator) fail(err error) error {
	o.mu.Lock()
	o.banner = domain.Describe(err)
	o.mu.Unlock()
	return err
}
