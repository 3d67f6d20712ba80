package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

// DefaultSettleDelay lets the rendering surface finish its internal layout
// before a highlight is applied.
const DefaultSettleDelay = 150 * time.Millisecond

type documentLoader interface {
	Load(ctx context.Context, projectID, documentID, parser string) (*domain.LoadedDocument, error)
}

// SwitchRequest asks for a document to be displayed and, optionally, a target in it.
// ExplicitPage is 1-based; zero means none.
type SwitchRequest struct {
	ProjectID    string
	DocumentID   string
	Parser       string
	Reference    *domain.ChunkReference
	ExplicitPage int
	Focus        bool
}

type SwitchOutcome struct {
	Document   *domain.LoadedDocument
	Pending    domain.PendingHighlight
	Resolution domain.Resolution
	Generation uint64
	Superseded bool
}

type AppliedHighlight struct {
	Chunk      *domain.Chunk
	Page       int
	Focus      bool
	Generation uint64
}

type pendingEntry struct {
	highlight  domain.PendingHighlight
	generation uint64
	focus      bool
}

type SynchronizerOptions struct {
	SettleDelay time.Duration
	Logger      *slog.Logger
	Observer    NavigationObserver
}

// HighlightSynchronizer bridges a document load with the later, independent
// surface-ready signal. Every switch takes a generation; results older than the
// last committed switch are discarded.
type HighlightSynchronizer struct {
	loader   documentLoader
	surface  ports.RenderSurface
	delay    time.Duration
	logger   *slog.Logger
	observer NavigationObserver
	settle   func(ctx context.Context, d time.Duration) error

	generation atomic.Uint64
	committed  atomic.Uint64
	pending    atomic.Pointer[pendingEntry]

	mu     sync.Mutex
	active *domain.LoadedDocument
}

func NewHighlightSynchronizer(loader documentLoader, surface ports.RenderSurface, opts SynchronizerOptions) *HighlightSynchronizer {
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &HighlightSynchronizer{
		loader:   loader,
		surface:  surface,
		delay:    opts.SettleDelay,
		logger:   opts.Logger,
		observer: opts.Observer,
		settle:   sleepContext,
	}
}

// SwitchRequested loads the target document, resolves the reference, writes the
// pending slot and then swaps the displayed document. A failed load leaves the
// slot untouched.
func (s *HighlightSynchronizer) SwitchRequested(ctx context.Context, req SwitchRequest) (*SwitchOutcome, error) {
	gen := s.generation.Add(1)
	start := time.Now()

	doc, err := s.loader.Load(ctx, req.ProjectID, req.DocumentID, req.Parser)
	if err != nil {
		s.observer.ObserveSwitch(switchFailed, time.Since(start))
		return nil, err
	}

	highlight, resolution := planHighlight(doc, req)
	if req.Reference != nil {
		s.observer.ObserveResolution(resolution)
	}
	outcome := &SwitchOutcome{
		Document:   doc,
		Pending:    highlight,
		Resolution: resolution,
		Generation: gen,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.committed.Load() {
		s.logger.Info("switch_superseded",
			"document_id", req.DocumentID,
			"generation", gen,
			"committed", s.committed.Load(),
		)
		s.observer.ObserveSwitch(switchSuperseded, time.Since(start))
		outcome.Superseded = true
		return outcome, nil
	}

	var entry *pendingEntry
	if !highlight.Empty() {
		entry = &pendingEntry{highlight: highlight, generation: gen, focus: req.Focus}
	}
	s.pending.Store(entry)
	s.committed.Store(gen)

	if err := s.surface.ShowDocument(ctx, doc); err != nil {
		// the slot was already written, so a failed swap leaves no pending entry
		if entry != nil {
			s.pending.CompareAndSwap(entry, nil)
		}
		s.observer.ObserveSwitch(switchFailed, time.Since(start))
		return nil, fmt.Errorf("show document: %w", err)
	}
	s.active = doc

	s.logger.Debug("switch_committed",
		"document_id", req.DocumentID,
		"generation", gen,
		"resolution", string(resolution),
		"parsed", doc.Parsed(),
	)
	s.observer.ObserveSwitch(switchCommitted, time.Since(start))
	return outcome, nil
}

// Supersede takes a generation for a highlight applied directly to the displayed
// document. It discards the pending entry and any switch still loading.
func (s *HighlightSynchronizer) Supersede() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation.Add(1)
	s.committed.Store(gen)
	if entry := s.pending.Swap(nil); entry != nil {
		s.logger.Info("highlight_discarded",
			"generation", entry.generation,
			"committed", gen,
		)
		s.observer.ObserveHighlight(highlightDiscarded)
	}
	return gen
}

// SurfaceReady applies the pending highlight at most once. It returns nil when
// there is nothing to apply or the entry was superseded.
func (s *HighlightSynchronizer) SurfaceReady(ctx context.Context) (*AppliedHighlight, error) {
	entry := s.pending.Swap(nil)
	if entry == nil {
		return nil, nil
	}
	if s.stale(entry) {
		return nil, nil
	}

	if s.delay > 0 {
		if err := s.settle(ctx, s.delay); err != nil {
			return nil, err
		}
		if s.stale(entry) {
			return nil, nil
		}
	}

	applied := &AppliedHighlight{
		Page:       entry.highlight.TargetPage(),
		Focus:      entry.focus,
		Generation: entry.generation,
	}
	if chunk := entry.highlight.Chunk; chunk != nil {
		if err := s.surface.HighlightChunk(ctx, *chunk); err != nil {
			return nil, fmt.Errorf("highlight chunk: %w", err)
		}
		c := *chunk
		applied.Chunk = &c
	}
	if applied.Page > 0 {
		if err := s.surface.GoToPage(ctx, applied.Page); err != nil {
			return nil, fmt.Errorf("go to page: %w", err)
		}
	}

	if applied.Chunk != nil {
		s.observer.ObserveHighlight(highlightApplied)
	} else {
		s.observer.ObserveHighlight(highlightPageOnly)
	}
	s.logger.Debug("highlight_applied", "generation", entry.generation, "page", applied.Page)
	return applied, nil
}

// Pending returns the current slot value without consuming it.
func (s *HighlightSynchronizer) Pending() (domain.PendingHighlight, bool) {
	entry := s.pending.Load()
	if entry == nil {
		return domain.PendingHighlight{}, false
	}
	return entry.highlight, true
}

// Active returns the document currently displayed, nil before the first switch.
func (s *HighlightSynchronizer) Active() *domain.LoadedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *HighlightSynchronizer) stale(entry *pendingEntry) bool {
	committed := s.committed.Load()
	if entry.generation >= committed {
		return false
	}
	s.logger.Info("highlight_discarded", "generation", entry.generation, "committed", committed)
	s.observer.ObserveHighlight(highlightDiscarded)
	return true
}

func planHighlight(doc *domain.LoadedDocument, req SwitchRequest) (domain.PendingHighlight, domain.Resolution) {
	pages := doc.PageCount()
	if req.Reference != nil && doc.Parsed() {
		chunk, resolution := ResolveChunkReference(*req.Reference, doc.Result)
		if resolution != domain.Unresolved {
			return domain.PendingHighlight{
				Chunk:      &chunk,
				PageNumber: clampPage(req.ExplicitPage, pages),
			}, resolution
		}
	}

	page := req.ExplicitPage
	if page <= 0 && req.Reference != nil && req.Reference.Page != nil {
		page = *req.Reference.Page + 1
	}
	return domain.PendingHighlight{PageNumber: clampPage(page, pages)}, domain.Unresolved
}

// clampPage keeps a 1-based page inside the document when the page count is known.
func clampPage(page, count int) int {
	if page <= 0 {
		return 0
	}
	if count > 0 && page > count {
		return count
	}
	return page
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
