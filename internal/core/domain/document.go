package domain

type Document struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type,omitempty"`
	FileSize         int64     `json:"file_size,omitempty"`
	PageCount        int       `json:"page_count,omitempty"`
	HasCachedResult  bool      `json:"has_cached_result"`
	LatestParser     string    `json:"latest_parser,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
}

// DisplayName prefers the name the document was uploaded with.
func (d Document) DisplayName() string {
	if d.OriginalFilename != "" {
		return d.OriginalFilename
	}
	return d.Filename
}

// DocumentFile is the raw payload of a document ready to hand to a rendering surface.
type DocumentFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	PageCount   int    `json:"page_count,omitempty"`
}

// LoadedDocument is the outcome of a successful load. Result is nil when the
// document has no cached parse for the requested parser.
type LoadedDocument struct {
	ProjectID  string       `json:"project_id"`
	DocumentID string       `json:"document_id"`
	Parser     string       `json:"parser"`
	File       DocumentFile `json:"file"`
	Result     *ParseResult `json:"result,omitempty"`
}

func (d *LoadedDocument) Parsed() bool {
	return d != nil && d.Result != nil
}

// PageCount returns the best known page count, zero when unknown.
func (d *LoadedDocument) PageCount() int {
	if d == nil {
		return 0
	}
	if d.File.PageCount > 0 {
		return d.File.PageCount
	}
	if d.Result != nil {
		return d.Result.Metadata.PageCount
	}
	return 0
}

// Annotation is the payload the host sends when a user clicks a stored annotation.
// PageNumber is 1-based.
type Annotation struct {
	ID         string       `json:"id,omitempty"`
	DocumentID string       `json:"document_id"`
	ChunkID    string       `json:"chunk_id,omitempty"`
	PageNumber int          `json:"page_number,omitempty"`
	BBox       *BoundingBox `json:"bbox,omitempty"`
}

// Reference converts the annotation into a chunk reference with a zero-based page.
func (a Annotation) Reference() ChunkReference {
	ref := ChunkReference{BBox: a.BBox}
	if a.ChunkID != "" {
		ref.ChunkIDs = []string{a.ChunkID}
	}
	if a.PageNumber > 0 {
		page := a.PageNumber - 1
		ref.Page = &page
	}
	return ref
}
