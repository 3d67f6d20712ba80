package domain

type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkTable      ChunkType = "table"
	ChunkFigure     ChunkType = "figure"
	ChunkTitle      ChunkType = "title"
	ChunkCaption    ChunkType = "caption"
	ChunkFormField  ChunkType = "form_field"
	ChunkList       ChunkType = "list"
	ChunkHeader     ChunkType = "header"
	ChunkFooter     ChunkType = "footer"
	ChunkPageNumber ChunkType = "page_number"
)

// Known reports whether t is one of the tags a parser is expected to emit.
// Unknown tags are kept verbatim and never rejected.
func (t ChunkType) Known() bool {
	switch t {
	case ChunkText, ChunkTable, ChunkFigure, ChunkTitle, ChunkCaption,
		ChunkFormField, ChunkList, ChunkHeader, ChunkFooter, ChunkPageNumber:
		return true
	default:
		return false
	}
}

// BoundingBox holds page-relative coordinates normalized to [0,1].
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Grounding anchors a chunk to a rendered page. Page is zero-based.
type Grounding struct {
	Page int         `json:"page"`
	Box  BoundingBox `json:"box"`
}

type Chunk struct {
	ID        string     `json:"id"`
	Type      ChunkType  `json:"type"`
	Markdown  string     `json:"markdown"`
	Grounding *Grounding `json:"grounding,omitempty"`
}

// DisplayPage returns the 1-based page of the chunk, or 0 when it has no grounding.
func (c Chunk) DisplayPage() int {
	if c.Grounding == nil {
		return 0
	}
	return c.Grounding.Page + 1
}

type TokenUsage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`
}

type ParseMetadata struct {
	PageCount   int         `json:"page_count,omitempty"`
	CreditUsage float64     `json:"credit_usage,omitempty"`
	Parser      string      `json:"parser,omitempty"`
	Model       string      `json:"model,omitempty"`
	Usage       *TokenUsage `json:"usage,omitempty"`
}

// ParseResult is produced once per (document, parser) pair and never mutated here.
type ParseResult struct {
	ID       string        `json:"parse_result_id,omitempty"`
	Markdown string        `json:"markdown"`
	Chunks   []Chunk       `json:"chunks"`
	Metadata ParseMetadata `json:"metadata"`
}

// ChunkByID returns the first chunk with the given id in document order.
func (r *ParseResult) ChunkByID(id string) (Chunk, bool) {
	if r == nil {
		return Chunk{}, false
	}
	for _, c := range r.Chunks {
		if c.ID == id {
			return c, true
		}
	}
	return Chunk{}, false
}

// ChunkReference points at a chunk that may live in a document not loaded yet.
// Page is zero-based, like Grounding.Page.
type ChunkReference struct {
	ChunkIDs []string     `json:"chunk_ids"`
	Page     *int         `json:"page,omitempty"`
	BBox     *BoundingBox `json:"bbox,omitempty"`
}

func (r ChunkReference) Empty() bool {
	return len(r.ChunkIDs) == 0 && r.Page == nil && r.BBox == nil
}

// PendingHighlight is the single-slot value carried from a document switch to the
// next surface-ready signal. PageNumber is 1-based; zero means unset.
type PendingHighlight struct {
	Chunk      *Chunk `json:"chunk,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

func (p PendingHighlight) Empty() bool {
	return p.Chunk == nil && p.PageNumber <= 0
}

// TargetPage is the page to navigate to once the highlight is applied.
func (p PendingHighlight) TargetPage() int {
	if p.PageNumber > 0 {
		return p.PageNumber
	}
	if p.Chunk != nil {
		return p.Chunk.DisplayPage()
	}
	return 0
}
