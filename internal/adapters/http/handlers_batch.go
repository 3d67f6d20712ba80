package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/docnav/internal/core/domain"
)

type startBatchRequest struct {
	ProjectID         string   `json:"project_id"`
	DocumentIDs       []string `json:"document_ids"`
	Parser            string   `json:"parser"`
	Model             string   `json:"model"`
	SkipAlreadyParsed bool     `json:"skip_already_parsed"`
}

type batchResponse struct {
	Active          bool             `json:"active"`
	Job             *domain.BatchJob `json:"job,omitempty"`
	ProgressPercent float64          `json:"progress_percent"`
	Skipped         int              `json:"skipped"`
}

func newBatchResponse(job *domain.BatchJob) batchResponse {
	if job == nil {
		return batchResponse{}
	}
	return batchResponse{
		Active:          true,
		Job:             job,
		ProgressPercent: job.ProgressPercent(),
		Skipped:         job.SkippedCount(),
	}
}

func (rt *Router) startBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := decodeBody(w, r, "start batch", &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	projectID, err := rt.projectFor(req.ProjectID, "start batch")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	job, err := rt.batches.Start(r.Context(), projectID, domain.BatchProcessRequest{
		DocumentIDs:       req.DocumentIDs,
		Parser:            req.Parser,
		Model:             req.Model,
		SkipAlreadyParsed: req.SkipAlreadyParsed,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBatchResponse(job))
}

func (rt *Router) activeBatch(w http.ResponseWriter, _ *http.Request) {
	job, ok := rt.batches.Active()
	if !ok {
		writeJSON(w, http.StatusOK, newBatchResponse(nil))
		return
	}
	writeJSON(w, http.StatusOK, newBatchResponse(&job))
}

func (rt *Router) resumeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, "resume batch", &req); err != nil {
			rt.writeError(w, r, err)
			return
		}
	}
	projectID, err := rt.projectFor(req.ProjectID, "resume batch")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	job, err := rt.batches.Resume(r.Context(), projectID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchResponse(job))
}

// cancelBatch detaches from the request context so a client disconnect does not
// abort the server-side cancel.
func (rt *Router) cancelBatch(w http.ResponseWriter, r *http.Request) {
	rt.batches.Cancel(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, newBatchResponse(nil))
}

func (rt *Router) projectFor(requested, operation string) (string, error) {
	projectID := strings.TrimSpace(requested)
	if projectID == "" {
		projectID = rt.opts.ProjectID
	}
	if projectID == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, operation, errors.New("project_id is required"))
	}
	return projectID, nil
}
