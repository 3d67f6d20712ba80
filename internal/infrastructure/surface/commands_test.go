package surface

import (
	"context"
	"testing"

	"github.com/kirillkom/docnav/internal/core/domain"
)

func TestCommandLogKeepsOrderAndDocument(t *testing.T) {
	log := NewCommandLog(0)
	ctx := context.Background()
	doc := &domain.LoadedDocument{
		DocumentID: "doc-1",
		File:       domain.DocumentFile{Name: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF"), PageCount: 4},
	}

	if err := log.ShowDocument(ctx, doc); err != nil {
		t.Fatalf("ShowDocument() error = %v", err)
	}
	chunk := domain.Chunk{ID: "c-1", Grounding: &domain.Grounding{Page: 2}}
	if err := log.HighlightChunk(ctx, chunk); err != nil {
		t.Fatalf("HighlightChunk() error = %v", err)
	}
	if err := log.GoToPage(ctx, 3); err != nil {
		t.Fatalf("GoToPage() error = %v", err)
	}

	cmds, last := log.Since(1)
	if last != 3 || len(cmds) != 2 {
		t.Fatalf("expected 2 commands after seq 1 with last=3, got %d last=%d", len(cmds), last)
	}
	if cmds[0].Kind != CommandHighlightChunk || cmds[0].Page != 3 || cmds[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected highlight command %+v", cmds[0])
	}
	if cmds[1].Kind != CommandGoToPage || cmds[1].Page != 3 {
		t.Fatalf("unexpected page command %+v", cmds[1])
	}

	current, ok := log.Current()
	if !ok || current.File.Name != "report.pdf" {
		t.Fatalf("expected current document, got %+v", current)
	}
}

func TestCommandLogDropsOldestBeyondCapacity(t *testing.T) {
	log := NewCommandLog(2)
	for page := 1; page <= 5; page++ {
		if err := log.GoToPage(context.Background(), page); err != nil {
			t.Fatalf("GoToPage() error = %v", err)
		}
	}
	cmds, last := log.Since(0)
	if last != 5 || len(cmds) != 2 {
		t.Fatalf("expected last two commands, got %d last=%d", len(cmds), last)
	}
	if cmds[0].Seq != 4 || cmds[1].Page != 5 {
		t.Fatalf("unexpected retained commands %+v", cmds)
	}
}

func TestShowDocumentRejectsNil(t *testing.T) {
	err := NewCommandLog(1).ShowDocument(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
