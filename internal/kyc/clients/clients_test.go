package clients_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veristage/internal/kyc/clients"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

func TestDocumentServiceClient_Upload(t *testing.T) {
	var gotSlot, gotFilename, gotContents string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/documents", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotSlot = r.FormValue("slot")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		gotContents = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"reference":"doc-123"}`))
	}))
	defer srv.Close()

	client := clients.NewDocumentServiceClient(srv.URL, 5*time.Second)
	ref, err := client.Upload(context.Background(), schema.SlotIDFront, "passport.jpg", bytes.NewReader([]byte("fake scan")))
	require.NoError(t, err)

	assert.Equal(t, "doc-123", ref)
	assert.Equal(t, "id-front", gotSlot)
	assert.Equal(t, "passport.jpg", gotFilename)
	assert.Equal(t, "fake scan", gotContents)
}

func TestDocumentServiceClient_Upload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := clients.NewDocumentServiceClient(srv.URL, 5*time.Second)
	_, err := client.Upload(context.Background(), schema.SlotIDFront, "passport.jpg", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestDocumentServiceClient_Upload_MissingReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := clients.NewDocumentServiceClient(srv.URL, 5*time.Second)
	_, err := client.Upload(context.Background(), schema.SlotIDFront, "passport.jpg", bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func testSubmission() workflow.Submission {
	return workflow.Submission{
		SubmissionID: domain.NewSubmissionID(),
		ApplicantID:  domain.ApplicantID(uuid.New()),
		AccountType:  domain.AccountIndividual,
		Fields: map[schema.FieldKey]any{
			schema.FieldFirstName: "Amina",
		},
		Documents: map[schema.SlotName]string{
			schema.SlotIDFront: "doc-123",
		},
		SubmittedAt: time.Now().UTC(),
	}
}

func TestRecordServiceClient_Submit(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sub := testSubmission()
	client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
	require.NoError(t, client.Submit(context.Background(), sub))

	assert.Equal(t, "/kyc/submissions", gotPath)
	assert.Equal(t, sub.ApplicantID.String(), gotBody["applicant_id"])
	assert.Equal(t, "individual", gotBody["account_type"])
	assert.Equal(t, false, gotBody["force_completed"])
	docs, ok := gotBody["documents"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "doc-123", docs["id-front"])
}

func TestRecordServiceClient_Complete(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	sub := testSubmission()
	sub.ForceCompleted = true
	sub.IncompleteStages = []schema.StageID{schema.StageContact, schema.StageIdentification}

	client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
	require.NoError(t, client.Complete(context.Background(), sub))

	assert.Equal(t, "/kyc/records/"+sub.ApplicantID.String()+"/complete", gotPath)
	assert.Equal(t, true, gotBody["force_completed"])
	assert.Equal(t, []any{float64(2), float64(3)}, gotBody["incomplete_stages"])
}

func TestRecordServiceClient_SaveProgress(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	applicantID := domain.ApplicantID(uuid.New())
	client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
	err := client.SaveProgress(context.Background(), applicantID, map[schema.FieldKey]any{
		schema.FieldFirstName: "Fatou",
	})
	require.NoError(t, err)

	assert.Equal(t, "/kyc/records/"+applicantID.String()+"/progress", gotPath)
	fields, ok := gotBody["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Fatou", fields["first_name"])
}

func TestRecordServiceClient_Submit_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "record store offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
	err := client.Submit(context.Background(), testSubmission())
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestRecordServiceClient_FetchRecord(t *testing.T) {
	applicantID := domain.ApplicantID(uuid.New())

	t.Run("found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/kyc/records/"+applicantID.String(), r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"account_type":"organization","fields":{"first_name":"Fatou"}}`))
		}))
		defer srv.Close()

		client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
		accountType, fields, err := client.FetchRecord(context.Background(), applicantID)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountOrganization, accountType)
		assert.Equal(t, "Fatou", fields[schema.FieldFirstName])
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
		_, _, err := client.FetchRecord(context.Background(), applicantID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := clients.NewRecordServiceClient(srv.URL, 5*time.Second)
		_, _, err := client.FetchRecord(context.Background(), applicantID)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}
