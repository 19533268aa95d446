// Package clients holds the HTTP clients for the two upstream collaborators:
// the document-storage service and the KYC record service. Both are consumed
// through narrow interfaces owned by the packages that use them; mock
// variants with deterministic data live here too for wiring and tests.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"veristage/internal/kyc/schema"
	"veristage/pkg/platform/sentinel"
)

// DocumentServiceClient uploads files to the document-storage service and
// returns the stable reference it mints.
type DocumentServiceClient struct {
	baseURL string
	http    *http.Client
}

// NewDocumentServiceClient builds a client for the given service base URL.
// The timeout bounds the whole upload; the engine imposes none of its own.
func NewDocumentServiceClient(baseURL string, timeout time.Duration) *DocumentServiceClient {
	return &DocumentServiceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	Reference string `json:"reference"`
}

// Upload posts the file as multipart form data tagged with the slot name.
func (c *DocumentServiceClient) Upload(ctx context.Context, slot schema.SlotName, filename string, contents io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		if err := form.WriteField("slot", string(slot)); err != nil {
			pw.CloseWithError(err)
			return
		}
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, contents); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload document: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.Reference == "" {
		return "", fmt.Errorf("upload response missing reference")
	}
	return parsed.Reference, nil
}

// MockDocumentClient returns deterministic references with a configurable
// latency to mimic real-world calls. FailSlots lists slots whose uploads
// reject, for exercising the failure path.
type MockDocumentClient struct {
	Latency   time.Duration
	FailSlots map[schema.SlotName]bool
}

func (c *MockDocumentClient) Upload(ctx context.Context, slot schema.SlotName, filename string, contents io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.Latency):
	}
	if c.FailSlots[slot] {
		return "", fmt.Errorf("mock upload rejected: %w", sentinel.ErrUnavailable)
	}
	if _, err := io.Copy(io.Discard, contents); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://docs.example.invalid/%s/%s", slot, filename), nil
}
