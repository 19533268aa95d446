package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

// RecordServiceClient talks to the upstream KYC record service: terminal
// submission for self-service flows, incremental save and force-complete for
// admin-assisted flows.
type RecordServiceClient struct {
	baseURL string
	http    *http.Client
}

// NewRecordServiceClient builds a client for the given service base URL.
func NewRecordServiceClient(baseURL string, timeout time.Duration) *RecordServiceClient {
	return &RecordServiceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type submissionBody struct {
	SubmissionID     string                     `json:"submission_id"`
	ApplicantID      string                     `json:"applicant_id"`
	AccountType      string                     `json:"account_type"`
	Fields           map[schema.FieldKey]any    `json:"fields"`
	Documents        map[schema.SlotName]string `json:"documents"`
	ForceCompleted   bool                       `json:"force_completed"`
	IncompleteStages []int                      `json:"incomplete_stages,omitempty"`
	SubmittedAt      time.Time                  `json:"submitted_at"`
}

func toSubmissionBody(sub workflow.Submission) submissionBody {
	body := submissionBody{
		SubmissionID:   sub.SubmissionID.String(),
		ApplicantID:    sub.ApplicantID.String(),
		AccountType:    string(sub.AccountType),
		Fields:         sub.Fields,
		Documents:      sub.Documents,
		ForceCompleted: sub.ForceCompleted,
		SubmittedAt:    sub.SubmittedAt,
	}
	for _, st := range sub.IncompleteStages {
		body.IncompleteStages = append(body.IncompleteStages, int(st))
	}
	return body
}

// Submit posts a completed self-service submission.
func (c *RecordServiceClient) Submit(ctx context.Context, sub workflow.Submission) error {
	return c.post(ctx, "/kyc/submissions", toSubmissionBody(sub))
}

// SaveProgress persists a partial draft incrementally.
func (c *RecordServiceClient) SaveProgress(ctx context.Context, applicantID domain.ApplicantID, fields map[schema.FieldKey]any) error {
	payload := struct {
		ApplicantID string                  `json:"applicant_id"`
		Fields      map[schema.FieldKey]any `json:"fields"`
	}{ApplicantID: applicantID.String(), Fields: fields}
	return c.post(ctx, "/kyc/records/"+applicantID.String()+"/progress", payload)
}

// Complete posts an admin force-complete payload.
func (c *RecordServiceClient) Complete(ctx context.Context, sub workflow.Submission) error {
	return c.post(ctx, "/kyc/records/"+sub.ApplicantID.String()+"/complete", toSubmissionBody(sub))
}

// FetchRecord reads the applicant's partial record for admin pre-seeding.
func (c *RecordServiceClient) FetchRecord(ctx context.Context, applicantID domain.ApplicantID) (domain.AccountType, map[schema.FieldKey]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kyc/records/"+applicantID.String(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("build record request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("call record service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil, sentinel.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", nil, fmt.Errorf("record service fetch: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		AccountType string                  `json:"account_type"`
		Fields      map[schema.FieldKey]any `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", nil, fmt.Errorf("decode record response: %w", err)
	}
	return domain.AccountType(body.AccountType), body.Fields, nil
}

func (c *RecordServiceClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal record payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call record service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("record service %s: %w: status %d", path, sentinel.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// MockRecordClient records calls in memory. Used for wiring without a live
// record service and by tests that assert on autosave/submission traffic.
type MockRecordClient struct {
	mu          sync.Mutex
	Latency     time.Duration
	FailNext    bool
	Submissions []workflow.Submission
	Saves       int
	Records     map[domain.ApplicantID]MockRecord
}

// MockRecord is a canned partial record served by FetchRecord.
type MockRecord struct {
	AccountType domain.AccountType
	Fields      map[schema.FieldKey]any
}

func (c *MockRecordClient) FetchRecord(ctx context.Context, applicantID domain.ApplicantID) (domain.AccountType, map[schema.FieldKey]any, error) {
	if err := c.wait(ctx); err != nil {
		return "", nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.Records[applicantID]
	if !ok {
		return "", nil, sentinel.ErrNotFound
	}
	return rec.AccountType, rec.Fields, nil
}

func (c *MockRecordClient) Submit(ctx context.Context, sub workflow.Submission) error {
	return c.record(ctx, sub)
}

func (c *MockRecordClient) Complete(ctx context.Context, sub workflow.Submission) error {
	return c.record(ctx, sub)
}

func (c *MockRecordClient) SaveProgress(ctx context.Context, _ domain.ApplicantID, _ map[schema.FieldKey]any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext {
		c.FailNext = false
		return fmt.Errorf("mock save rejected: %w", sentinel.ErrUnavailable)
	}
	c.Saves++
	return nil
}

func (c *MockRecordClient) record(ctx context.Context, sub workflow.Submission) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext {
		c.FailNext = false
		return fmt.Errorf("mock submission rejected: %w", sentinel.ErrUnavailable)
	}
	c.Submissions = append(c.Submissions, sub)
	return nil
}

func (c *MockRecordClient) wait(ctx context.Context) error {
	if c.Latency == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.Latency):
		return nil
	}
}
