package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/docnav/internal/core/domain"
)

func TestLoadReturnsFileAndParseResult(t *testing.T) {
	store := newStoreFake()
	store.addDocument("doc-1", pdfFile("contract.pdf"))
	cache := newCacheFake()
	cache.put("doc-1", &domain.ParseResult{Markdown: "# Title", Chunks: []domain.Chunk{{ID: "c-1"}}})

	loader := NewDocumentLoader(store, cache, pageCounterFake{pages: 12}, nil)
	doc, err := loader.Load(context.Background(), "p-1", "doc-1", "landing_ai")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !doc.Parsed() {
		t.Fatalf("expected parsed document")
	}
	if doc.File.Name != "contract.pdf" || doc.File.ContentType != "application/pdf" {
		t.Fatalf("unexpected file: %+v", doc.File)
	}
	if doc.PageCount() != 12 {
		t.Fatalf("expected page count 12, got %d", doc.PageCount())
	}
	if len(cache.parsers) != 1 || cache.parsers[0] != "landing_ai" {
		t.Fatalf("expected cache lookup with parser, got %v", cache.parsers)
	}
}

func TestLoadCacheMissIsUnparsedNotError(t *testing.T) {
	store := newStoreFake()
	store.addDocument("doc-1", pdfFile("a.pdf"))

	doc, err := NewDocumentLoader(store, newCacheFake(), nil, nil).Load(context.Background(), "p-1", "doc-1", "claude_vision")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Parsed() {
		t.Fatalf("expected unparsed document")
	}
}

func TestLoadRejectsEmptyPayload(t *testing.T) {
	store := newStoreFake()
	store.addDocument("doc-1", domain.DocumentFile{Name: "empty.pdf"})

	_, err := NewDocumentLoader(store, newCacheFake(), nil, nil).Load(context.Background(), "p-1", "doc-1", "landing_ai")
	if !domain.IsKind(err, domain.ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestLoadPreservesClassifiedFetchErrors(t *testing.T) {
	for _, kind := range []error{domain.ErrNotFound, domain.ErrForbidden, domain.ErrServer} {
		store := newStoreFake()
		store.errs["doc-1"] = domain.WrapError(kind, "fetch", errBoom)

		_, err := NewDocumentLoader(store, newCacheFake(), nil, nil).Load(context.Background(), "p-1", "doc-1", "landing_ai")
		if !domain.IsKind(err, kind) {
			t.Fatalf("expected %v, got %v", kind, err)
		}
	}
}

func TestLoadClassifiesUnknownFailureAsTransport(t *testing.T) {
	store := newStoreFake()
	store.errs["doc-1"] = errBoom

	_, err := NewDocumentLoader(store, newCacheFake(), nil, nil).Load(context.Background(), "p-1", "doc-1", "landing_ai")
	if !domain.IsKind(err, domain.ErrTransport) || !errors.Is(err, errBoom) {
		t.Fatalf("expected transport error wrapping cause, got %v", err)
	}
}

func TestLoadFailsWhenCacheLookupFails(t *testing.T) {
	store := newStoreFake()
	store.addDocument("doc-1", pdfFile("a.pdf"))
	cache := newCacheFake()
	cache.err = domain.WrapError(domain.ErrServer, "latest parse", errBoom)

	_, err := NewDocumentLoader(store, cache, nil, nil).Load(context.Background(), "p-1", "doc-1", "landing_ai")
	if !domain.IsKind(err, domain.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestLoadFillsMissingNameAndContentType(t *testing.T) {
	store := newStoreFake()
	store.addDocument("doc-9", domain.DocumentFile{Data: []byte("%PDF-1.4\n")})

	doc, err := NewDocumentLoader(store, newCacheFake(), pageCounterFake{err: errBoom}, nil).Load(context.Background(), "p-1", "doc-9", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.File.Name != "doc-9" {
		t.Fatalf("expected fallback name, got %q", doc.File.Name)
	}
	if doc.File.ContentType != "application/octet-stream" {
		t.Fatalf("expected generic content type, got %q", doc.File.ContentType)
	}
	if doc.File.PageCount != 0 {
		t.Fatalf("expected unknown page count, got %d", doc.File.PageCount)
	}
}

func TestLoadRequiresIDs(t *testing.T) {
	_, err := NewDocumentLoader(newStoreFake(), newCacheFake(), nil, nil).Load(context.Background(), "", "doc-1", "x")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
