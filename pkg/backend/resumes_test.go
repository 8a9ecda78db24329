package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumesUploadFlow(t *testing.T) {
	var uploaded []byte
	fileHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
		w.WriteHeader(http.StatusOK)
	}))
	defer fileHost.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/resumes/upload-url":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "cv.pdf", body["file_name"])
			require.NoError(t, json.NewEncoder(w).Encode(UploadTicket{
				PresignedURL: fileHost.URL + "/bucket/user-1/r-1/cv.pdf",
				ResumeID:     "r-1",
			}))
		case r.Method == http.MethodPost && r.URL.Path == "/resumes":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r-1", body["resume_id"])
			w.WriteHeader(http.StatusCreated)
			require.NoError(t, json.NewEncoder(w).Encode(Resume{
				ID:           "r-1",
				UserID:       "user-1",
				FileName:     "cv.pdf",
				UploadStatus: UploadCompleted,
			}))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewResumesClient(srv.URL)
	ctx := context.Background()

	ticket, err := client.RequestUploadURL(ctx, "cv.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "r-1", ticket.ResumeID)

	require.NoError(t, client.UploadFile(ctx, ticket.PresignedURL, "application/pdf", []byte("%PDF-1.4")))
	assert.Equal(t, "%PDF-1.4", string(uploaded))

	confirmed, err := client.ConfirmUpload(ctx, ticket.ResumeID)
	require.NoError(t, err)
	assert.Equal(t, UploadCompleted, confirmed.UploadStatus)
}

func TestResumesRequestUploadURLRequiresFileName(t *testing.T) {
	client := NewResumesClient("http://127.0.0.1:0")
	_, err := client.RequestUploadURL(context.Background(), "", "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_name")
}

func TestResumesListAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resumes":
			require.NoError(t, json.NewEncoder(w).Encode([]Resume{
				{ID: "r-1", FileName: "cv.pdf", UploadStatus: UploadCompleted},
				{ID: "r-2", FileName: "cv-v2.pdf", UploadStatus: UploadPending},
			}))
		case "/resumes/r-1":
			require.NoError(t, json.NewEncoder(w).Encode(Resume{ID: "r-1", FileName: "cv.pdf"}))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "Resume not found"}`))
		}
	}))
	defer srv.Close()

	client := NewResumesClient(srv.URL)
	resumes, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, resumes, 2)
	assert.Equal(t, UploadPending, resumes[1].UploadStatus)

	got, err := client.Get(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", got.FileName)

	_, err = client.Get(context.Background(), "r-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResumesRename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/resumes/r-1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NoError(t, json.NewEncoder(w).Encode(Resume{ID: "r-1", FileName: body["file_name"]}))
	}))
	defer srv.Close()

	client := NewResumesClient(srv.URL)
	renamed, err := client.Rename(context.Background(), "r-1", "cv-final.pdf")
	require.NoError(t, err)
	assert.Equal(t, "cv-final.pdf", renamed.FileName)
}
