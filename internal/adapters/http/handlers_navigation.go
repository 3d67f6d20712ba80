package httpadapter

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
	"github.com/kirillkom/docnav/internal/infrastructure/surface"
)

func (rt *Router) navigationState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) refreshDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.nav.RefreshDocuments(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) chunkSelect(w http.ResponseWriter, r *http.Request) {
	var sel ports.ChunkSelection
	if err := decodeBody(w, r, "chunk select", &sel); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.nav.OnChunkSelect(r.Context(), sel); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) chunkClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChunkID string `json:"chunk_id"`
	}
	if err := decodeBody(w, r, "chunk click", &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ChunkID) == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "chunk click", errors.New("chunk_id is required")))
		return
	}
	if err := rt.nav.SelectChunk(r.Context(), req.ChunkID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) annotationClick(w http.ResponseWriter, r *http.Request) {
	var annotation domain.Annotation
	if err := decodeBody(w, r, "annotation click", &annotation); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.nav.OnAnnotationClick(r.Context(), annotation); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) documentSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := decodeBody(w, r, "document select", &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "document select", errors.New("document_id is required")))
		return
	}
	if err := rt.nav.OnDocumentSelect(r.Context(), req.DocumentID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) surfaceReady(w http.ResponseWriter, r *http.Request) {
	applied, err := rt.nav.SurfaceReady(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"state":   rt.nav.State(),
	})
}

func (rt *Router) clearFocus(w http.ResponseWriter, _ *http.Request) {
	rt.nav.ClearFocus()
	writeJSON(w, http.StatusOK, rt.nav.State())
}

func (rt *Router) surfaceCommands(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "surface commands", errors.New("after must be a sequence number")))
			return
		}
		after = parsed
	}
	commands, last := rt.feed.Since(after)
	if commands == nil {
		commands = []surface.Command{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"commands": commands,
		"last_seq": last,
	})
}

func (rt *Router) surfaceDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := rt.feed.Current()
	if !ok {
		rt.writeError(w, r, domain.WrapError(domain.ErrNotFound, "surface document", errors.New("no document is displayed")))
		return
	}
	contentType := doc.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if doc.File.Name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.File.Name}))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.File.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.File.Data)
}
