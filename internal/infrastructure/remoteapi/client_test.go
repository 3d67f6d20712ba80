package remoteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/infrastructure/resilience"
)

func TestFetchFileSendsHeadersAndReadsAttachment(t *testing.T) {
	var gotAuth, gotRequestID, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="annual report.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer server.Close()

	client := New(server.URL, Options{Token: "secret"})
	file, err := client.FetchFile(context.Background(), "p-1", "d-1")
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if gotPath != "/projects/p-1/documents/d-1/file" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" || gotRequestID == "" {
		t.Fatalf("unexpected headers auth=%q request_id=%q", gotAuth, gotRequestID)
	}
	if file.Name != "annual report.pdf" || file.ContentType != "application/pdf" || string(file.Data) != "%PDF-1.7" {
		t.Fatalf("unexpected file %+v", file)
	}
}

func TestFetchFileSniffsMissingContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nil suppresses the server's own sniffing
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("%PDF-1.4\n"))
	}))
	defer server.Close()

	file, err := New(server.URL, Options{}).FetchFile(context.Background(), "p-1", "d-1")
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if file.ContentType != "application/pdf" {
		t.Fatalf("expected sniffed pdf content type, got %q", file.ContentType)
	}
}

func TestStatusCodesMapToDomainKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusUnauthorized, domain.ErrForbidden},
		{http.StatusInternalServerError, domain.ErrServer},
		{http.StatusBadGateway, domain.ErrServer},
		{http.StatusTooManyRequests, domain.ErrTemporary},
		{http.StatusBadRequest, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"detail":"Document not found"}`))
			}))
			defer server.Close()

			_, err := New(server.URL, Options{}).FetchFile(context.Background(), "p-1", "d-1")
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url, Options{Timeout: time.Second}).FetchFile(context.Background(), "p-1", "d-1")
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestLatestParseMissIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("parser") != "landing_ai" {
			t.Errorf("expected parser query, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"cached":false,"result":null}`))
	}))
	defer server.Close()

	result, cached, err := New(server.URL, Options{}).LatestParse(context.Background(), "p-1", "d-1", "landing_ai")
	if err != nil || cached || result != nil {
		t.Fatalf("expected miss, got %+v %v %v", result, cached, err)
	}
}

func TestLatestParseDecodesChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"cached": true,
			"result": {
				"markdown": "# Report",
				"chunks": [
					{"id": "c-1", "markdown": "Revenue", "type": "table",
					 "grounding": {"box": {"left": 0.1, "top": 0.2, "right": 0.9, "bottom": 0.4}, "page": 2}},
					{"id": "c-2", "markdown": null, "type": "marginalia", "grounding": null}
				],
				"metadata": {"page_count": 7, "credit_usage": 3, "parser": "landing_ai", "model": "dpt-2", "usage": null},
				"parse_result_id": "pr-9"
			}
		}`))
	}))
	defer server.Close()

	result, cached, err := New(server.URL, Options{}).LatestParse(context.Background(), "p-1", "d-1", "")
	if err != nil || !cached {
		t.Fatalf("LatestParse() = %v, %v", cached, err)
	}
	if result.ID != "pr-9" || result.Metadata.PageCount != 7 || len(result.Chunks) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	first := result.Chunks[0]
	if first.Grounding == nil || first.Grounding.Page != 2 || first.Grounding.Box.Right != 0.9 {
		t.Fatalf("unexpected grounding %+v", first.Grounding)
	}
	if result.Chunks[1].Type != "marginalia" || result.Chunks[1].Grounding != nil {
		t.Fatalf("unknown chunk type must be kept verbatim, got %+v", result.Chunks[1])
	}
}

func TestListDocumentsPagesUntilTotal(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		skip := r.URL.Query().Get("skip")
		var docs []domain.Document
		n := documentPageSize
		if skip != "0" {
			n = 5
		}
		for i := 0; i < n; i++ {
			docs = append(docs, domain.Document{ID: fmt.Sprintf("%s-%d", skip, i)})
		}
		_ = json.NewEncoder(w).Encode(documentListResponse{Documents: docs, Total: documentPageSize + 5})
	}))
	defer server.Close()

	docs, err := New(server.URL, Options{}).ListDocuments(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != documentPageSize+5 || requests != 2 {
		t.Fatalf("expected %d docs in 2 requests, got %d in %d", documentPageSize+5, len(docs), requests)
	}
}

func TestCreateAndCancelBatchJob(t *testing.T) {
	var created domain.BatchProcessRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects/p-1/batch/process":
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Errorf("decode request: %v", err)
			}
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"job-1","project_id":"p-1","parser":"landing_ai","status":"pending","total_documents":3,"completed_documents":0,"failed_documents":0,"created_at":"2025-03-01T10:00:00Z","tasks":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/projects/batch/jobs/job-1/cancel":
			_, _ = w.Write([]byte(`{"id":"job-1","status":"cancelled","total_documents":3,"completed_documents":1,"failed_documents":0,"created_at":"2025-03-01T10:00:00Z",
				"tasks":[{"id":"t1","document_id":"d1","status":"completed","progress":100},{"id":"t2","document_id":"d2","status":"skipped","progress":0},{"id":"t3","document_id":"d3","status":"skipped","progress":0}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	job, err := client.CreateBatchJob(context.Background(), "p-1", domain.BatchProcessRequest{Parser: "landing_ai", SkipAlreadyParsed: true})
	if err != nil {
		t.Fatalf("CreateBatchJob() error = %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.BatchPending || job.Total != 3 {
		t.Fatalf("unexpected job %+v", job)
	}
	if created.Parser != "landing_ai" || !created.SkipAlreadyParsed {
		t.Fatalf("unexpected request %+v", created)
	}

	cancelled, err := client.CancelBatchJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("CancelBatchJob() error = %v", err)
	}
	if !cancelled.IsTerminal() || cancelled.SkippedCount() != 2 {
		t.Fatalf("unexpected cancelled job %+v", cancelled)
	}
}

func TestListBatchJobsSendsFilter(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"jobs":[{"id":"job-1","status":"processing"}],"total":1}`))
	}))
	defer server.Close()

	jobs, err := New(server.URL, Options{}).ListBatchJobs(context.Background(), "p-1", domain.BatchJobFilter{Status: domain.BatchProcessing, Limit: 5})
	if err != nil {
		t.Fatalf("ListBatchJobs() error = %v", err)
	}
	if len(jobs) != 1 || query != "limit=5&status=processing" {
		t.Fatalf("unexpected jobs %+v for query %q", jobs, query)
	}
}

func TestMalformedBodyIsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	}))
	defer server.Close()

	_, err := New(server.URL, Options{}).GetBatchJob(context.Background(), "job-1")
	if !domain.IsKind(err, domain.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestOpenCircuitIsTemporaryAndSkipsServer(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 2,
		BreakerOpenTimeout: time.Minute,
	})
	client := New(server.URL, Options{Executor: exec})

	for i := 0; i < 2; i++ {
		if _, err := client.GetBatchJob(context.Background(), "job-1"); !domain.IsKind(err, domain.ErrServer) {
			t.Fatalf("expected server error, got %v", err)
		}
	}
	_, err := client.GetBatchJob(context.Background(), "job-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error from open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 server calls, got %d", calls)
	}
}

func TestNotFoundDoesNotTripCircuit(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{BreakerEnabled: true, BreakerMinRequests: 1})
	client := New(server.URL, Options{Executor: exec})
	for i := 0; i < 3; i++ {
		if _, err := client.FetchFile(context.Background(), "p-1", "gone"); !domain.IsKind(err, domain.ErrNotFound) {
			t.Fatalf("expected not found on call %d, got %v", i, err)
		}
	}
}
