package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/docnav/internal/core/domain"
)

type storeFake struct {
	mu      sync.Mutex
	files   map[string]domain.DocumentFile
	errs    map[string]error
	gates   map[string]chan struct{}
	docs    []domain.Document
	listErr error
	fetches []string
	lists   int
}

func newStoreFake() *storeFake {
	return &storeFake{
		files: map[string]domain.DocumentFile{},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *storeFake) addDocument(id string, file domain.DocumentFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = file
	f.docs = append(f.docs, domain.Document{ID: id, ProjectID: "p-1", Filename: file.Name, OriginalFilename: file.Name})
}

// hold makes FetchFile for id block until the returned release func is called.
func (f *storeFake) hold(id string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *storeFake) ListDocuments(context.Context, string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *storeFake) FetchFile(ctx context.Context, _ string, documentID string) (domain.DocumentFile, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, documentID)
	gate := f.gates[documentID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.DocumentFile{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[documentID]; err != nil {
		return domain.DocumentFile{}, err
	}
	file, ok := f.files[documentID]
	if !ok {
		return domain.DocumentFile{}, domain.WrapError(domain.ErrNotFound, "fetch file", fmt.Errorf("id=%s", documentID))
	}
	return file, nil
}

type cacheFake struct {
	mu      sync.Mutex
	results map[string]*domain.ParseResult
	err     error
	parsers []string
}

func newCacheFake() *cacheFake {
	return &cacheFake{results: map[string]*domain.ParseResult{}}
}

func (f *cacheFake) put(documentID string, result *domain.ParseResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[documentID] = result
}

func (f *cacheFake) LatestParse(_ context.Context, _, documentID, parser string) (*domain.ParseResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parsers = append(f.parsers, parser)
	if f.err != nil {
		return nil, false, f.err
	}
	result, ok := f.results[documentID]
	return result, ok, nil
}

type pageCounterFake struct {
	pages int
	err   error
}

func (f pageCounterFake) CountPages(domain.DocumentFile) (int, error) {
	return f.pages, f.err
}

type surfaceCall struct {
	kind  string
	id    string
	page  int
	chunk string
}

type surfaceFake struct {
	mu      sync.Mutex
	calls   []surfaceCall
	showErr error
	// onShow runs after a document is shown, outside the fake's lock.
	onShow func()
}

func (f *surfaceFake) ShowDocument(_ context.Context, doc *domain.LoadedDocument) error {
	f.mu.Lock()
	if f.showErr != nil {
		f.mu.Unlock()
		return f.showErr
	}
	f.calls = append(f.calls, surfaceCall{kind: "show", id: doc.DocumentID})
	hook := f.onShow
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *surfaceFake) HighlightChunk(_ context.Context, chunk domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, surfaceCall{kind: "highlight", chunk: chunk.ID})
	return nil
}

func (f *surfaceFake) GoToPage(_ context.Context, page int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, surfaceCall{kind: "page", page: page})
	return nil
}

func (f *surfaceFake) snapshot() []surfaceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]surfaceCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *surfaceFake) count(kind string) int {
	n := 0
	for _, c := range f.snapshot() {
		if c.kind == kind {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func pdfFile(name string) domain.DocumentFile {
	return domain.DocumentFile{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.7 fake")}
}
