package domain

type BatchJobStatus string

const (
	BatchPending             BatchJobStatus = "pending"
	BatchProcessing          BatchJobStatus = "processing"
	BatchCompleted           BatchJobStatus = "completed"
	BatchCompletedWithErrors BatchJobStatus = "completed_with_errors"
	BatchFailed              BatchJobStatus = "failed"
	BatchCancelled           BatchJobStatus = "cancelled"
)

func (s BatchJobStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchCompletedWithErrors, BatchFailed, BatchCancelled:
		return true
	default:
		return false
	}
}

type BatchTaskStatus string

const (
	TaskPending    BatchTaskStatus = "pending"
	TaskProcessing BatchTaskStatus = "processing"
	TaskCompleted  BatchTaskStatus = "completed"
	TaskFailed     BatchTaskStatus = "failed"
	TaskSkipped    BatchTaskStatus = "skipped"
)

// BatchTask is reported verbatim from the server and only used for display.
type BatchTask struct {
	ID            string          `json:"id"`
	DocumentID    string          `json:"document_id"`
	Status        BatchTaskStatus `json:"status"`
	Progress      int             `json:"progress"`
	ParseResultID string          `json:"parse_result_id,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	StartedAt     *Timestamp      `json:"started_at,omitempty"`
	CompletedAt   *Timestamp      `json:"completed_at,omitempty"`
}

// BatchJob is always replaced wholesale with the latest server snapshot.
type BatchJob struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Parser       string         `json:"parser"`
	Model        string         `json:"model,omitempty"`
	Status       BatchJobStatus `json:"status"`
	Total        int            `json:"total_documents"`
	Completed    int            `json:"completed_documents"`
	Failed       int            `json:"failed_documents"`
	Skipped      int            `json:"skipped_documents,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    Timestamp      `json:"created_at"`
	StartedAt    *Timestamp     `json:"started_at,omitempty"`
	CompletedAt  *Timestamp     `json:"completed_at,omitempty"`
	Tasks        []BatchTask    `json:"tasks"`
}

func (j BatchJob) IsTerminal() bool {
	return j.Status.Terminal()
}

// ProgressPercent is (completed+failed)/total*100; zero when total is zero.
func (j BatchJob) ProgressPercent() float64 {
	if j.Total <= 0 {
		return 0
	}
	return float64((j.Completed+j.Failed)*100) / float64(j.Total)
}

// SkippedCount prefers the server total and falls back to counting skipped tasks.
func (j BatchJob) SkippedCount() int {
	if j.Skipped > 0 {
		return j.Skipped
	}
	n := 0
	for _, t := range j.Tasks {
		if t.Status == TaskSkipped {
			n++
		}
	}
	return n
}

type BatchProcessRequest struct {
	DocumentIDs       []string `json:"document_ids,omitempty"`
	Parser            string   `json:"parser"`
	Model             string   `json:"model,omitempty"`
	SkipAlreadyParsed bool     `json:"skip_already_parsed"`
}

type BatchJobFilter struct {
	Status BatchJobStatus
	Skip   int
	Limit  int
}
