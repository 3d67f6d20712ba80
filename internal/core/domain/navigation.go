package domain

// Resolution tells how a chunk reference was matched.
type Resolution string

const (
	ResolvedByID       Resolution = "id"
	ResolvedByGeometry Resolution = "geometry"
	Unresolved         Resolution = "none"
)

// NavigationState is a read-only snapshot of what the host should display.
type NavigationState struct {
	ProjectID        string     `json:"project_id"`
	Parser           string     `json:"parser"`
	ActiveDocumentID string     `json:"active_document_id,omitempty"`
	ActiveFileName   string     `json:"active_file_name,omitempty"`
	Parsed           bool       `json:"parsed"`
	PageCount        int        `json:"page_count,omitempty"`
	HighlightedChunk *Chunk     `json:"highlighted_chunk,omitempty"`
	CurrentPage      int        `json:"current_page,omitempty"`
	FocusMode        bool       `json:"focus_mode"`
	FocusPreview     string     `json:"focus_preview,omitempty"`
	Banner           string     `json:"banner,omitempty"`
	Documents        []Document `json:"documents"`
}
