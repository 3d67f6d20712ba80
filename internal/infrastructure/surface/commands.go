// Package surface keeps the rendering commands issued by the navigation core so
// a remote host can replay them in order.
package surface

import (
	"context"
	"sync"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

const defaultCapacity = 256

type CommandKind string

const (
	CommandShowDocument   CommandKind = "show_document"
	CommandHighlightChunk CommandKind = "highlight_chunk"
	CommandGoToPage       CommandKind = "go_to_page"
)

type Command struct {
	Seq         uint64        `json:"seq"`
	Kind        CommandKind   `json:"kind"`
	DocumentID  string        `json:"document_id,omitempty"`
	FileName    string        `json:"file_name,omitempty"`
	ContentType string        `json:"content_type,omitempty"`
	PageCount   int           `json:"page_count,omitempty"`
	Chunk       *domain.Chunk `json:"chunk,omitempty"`
	Page        int           `json:"page,omitempty"`
}

var _ ports.RenderSurface = (*CommandLog)(nil)

// CommandLog is a bounded, ordered log of surface commands. The payload of the
// last shown document is kept so the host can download it.
type CommandLog struct {
	mu       sync.Mutex
	capacity int
	seq      uint64
	commands []Command
	current  *domain.LoadedDocument
}

func NewCommandLog(capacity int) *CommandLog {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &CommandLog{capacity: capacity}
}

func (l *CommandLog) ShowDocument(ctx context.Context, doc *domain.LoadedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return domain.WrapError(domain.ErrInvalidInput, "show document", errNilDocument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = doc
	l.appendLocked(Command{
		Kind:        CommandShowDocument,
		DocumentID:  doc.DocumentID,
		FileName:    doc.File.Name,
		ContentType: doc.File.ContentType,
		PageCount:   doc.PageCount(),
	})
	return nil
}

func (l *CommandLog) HighlightChunk(ctx context.Context, chunk domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(Command{
		Kind:       CommandHighlightChunk,
		DocumentID: l.currentIDLocked(),
		Chunk:      &chunk,
		Page:       chunk.DisplayPage(),
	})
	return nil
}

func (l *CommandLog) GoToPage(ctx context.Context, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(Command{
		Kind:       CommandGoToPage,
		DocumentID: l.currentIDLocked(),
		Page:       page,
	})
	return nil
}

// Since returns the commands with a sequence number greater than after, oldest
// first, and the latest sequence number issued.
func (l *CommandLog) Since(after uint64) ([]Command, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Command, 0, len(l.commands))
	for _, cmd := range l.commands {
		if cmd.Seq > after {
			out = append(out, cmd)
		}
	}
	return out, l.seq
}

// Current returns the last document handed to the surface.
func (l *CommandLog) Current() (*domain.LoadedDocument, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.current != nil
}

func (l *CommandLog) appendLocked(cmd Command) {
	l.seq++
	cmd.Seq = l.seq
	l.commands = append(l.commands, cmd)
	if over := len(l.commands) - l.capacity; over > 0 {
		l.commands = append(l.commands[:0:0], l.commands[over:]...)
	}
}

func (l *CommandLog) currentIDLocked() string {
	if l.current == nil {
		return ""
	}
	return l.current.DocumentID
}
