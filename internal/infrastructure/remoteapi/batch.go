package remoteapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kirillkom/docnav/internal/core/domain"
)

type batchJobListResponse struct {
	Jobs  []domain.BatchJob `json:"jobs"`
	Total int               `json:"total"`
}

func (c *Client) CreateBatchJob(ctx context.Context, projectID string, req domain.BatchProcessRequest) (*domain.BatchJob, error) {
	var job domain.BatchJob
	err := c.do(ctx, call{
		operation: "create_batch_job",
		method:    http.MethodPost,
		path:      projectPath(projectID, "batch", "process"),
		body:      req,
		handle:    decodeJSON("create_batch_job", &job),
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetBatchJob(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	var job domain.BatchJob
	err := c.do(ctx, call{
		operation: "get_batch_job",
		method:    http.MethodGet,
		path:      "/projects/batch/jobs/" + url.PathEscape(jobID),
		handle:    decodeJSON("get_batch_job", &job),
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) ListBatchJobs(ctx context.Context, projectID string, filter domain.BatchJobFilter) ([]domain.BatchJob, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Skip > 0 {
		query.Set("skip", strconv.Itoa(filter.Skip))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp batchJobListResponse
	err := c.do(ctx, call{
		operation: "list_batch_jobs",
		method:    http.MethodGet,
		path:      projectPath(projectID, "batch", "jobs"),
		query:     query,
		handle:    decodeJSON("list_batch_jobs", &resp),
	})
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// CancelBatchJob asks the server to stop a job. The server marks pending tasks
// skipped and rejects jobs that already finished.
func (c *Client) CancelBatchJob(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	var job domain.BatchJob
	err := c.do(ctx, call{
		operation: "cancel_batch_job",
		method:    http.MethodPost,
		path:      "/projects/batch/jobs/" + url.PathEscape(jobID) + "/cancel",
		handle:    decodeJSON("cancel_batch_job", &job),
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}
