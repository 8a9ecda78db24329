package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ResumesClient talks to the resume service. Uploads are a two-step flow:
// request a pre-signed URL, PUT the file there, then confirm the upload so
// the record flips from pending to completed.
type ResumesClient struct {
	client *resty.Client
}

func NewResumesClient(baseURL string) *ResumesClient {
	return &ResumesClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultClientTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// RequestUploadURL creates a pending resume record and returns the
// pre-signed URL to upload the file to.
func (c *ResumesClient) RequestUploadURL(ctx context.Context, fileName, contentType string) (*UploadTicket, error) {
	if fileName == "" {
		return nil, errors.New("file_name is required")
	}
	body := map[string]string{"file_name": fileName}
	if contentType != "" {
		body["content_type"] = contentType
	}
	var out UploadTicket
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/resumes/upload-url")
	if err != nil {
		return nil, errors.Wrap(err, "request upload url")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("POST /resumes/upload-url", resp)
	}
	return &out, nil
}

// ConfirmUpload marks a pending resume as completed after the file landed.
func (c *ResumesClient) ConfirmUpload(ctx context.Context, resumeID string) (*Resume, error) {
	if resumeID == "" {
		return nil, errors.New("resume_id is required")
	}
	var out Resume
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"resume_id": resumeID}).
		SetResult(&out).
		Post("/resumes")
	if err != nil {
		return nil, errors.Wrapf(err, "confirm upload %s", resumeID)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Errorf("resume %s not found", resumeID)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, apiError("POST /resumes", resp)
	}
	return &out, nil
}

// List returns the caller's resumes.
func (c *ResumesClient) List(ctx context.Context) ([]Resume, error) {
	var out []Resume
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/resumes")
	if err != nil {
		return nil, errors.Wrap(err, "list resumes")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET /resumes", resp)
	}
	return out, nil
}

// Get fetches one resume by id.
func (c *ResumesClient) Get(ctx context.Context, id string) (*Resume, error) {
	var out Resume
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/resumes/" + id)
	if err != nil {
		return nil, errors.Wrapf(err, "get resume %s", id)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Errorf("resume %s not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(fmt.Sprintf("GET /resumes/%s", id), resp)
	}
	return &out, nil
}

// Rename updates a resume's display file name, the only mutable field.
func (c *ResumesClient) Rename(ctx context.Context, id, fileName string) (*Resume, error) {
	if fileName == "" {
		return nil, errors.New("file_name is required")
	}
	var out Resume
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"file_name": fileName}).
		SetResult(&out).
		Patch("/resumes/" + id)
	if err != nil {
		return nil, errors.Wrapf(err, "rename resume %s", id)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Errorf("resume %s not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(fmt.Sprintf("PATCH /resumes/%s", id), resp)
	}
	return &out, nil
}

// UploadFile PUTs file contents to a pre-signed URL. The URL is absolute,
// so this bypasses the client's base URL.
func (c *ResumesClient) UploadFile(ctx context.Context, presignedURL, contentType string, contents []byte) error {
	resp, err := resty.New().
		SetTimeout(2 * time.Minute).
		R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(contents).
		Put(presignedURL)
	if err != nil {
		return errors.Wrap(err, "upload file")
	}
	if resp.StatusCode() != http.StatusOK {
		return errors.Errorf("upload file: unexpected status %d", resp.StatusCode())
	}
	return nil
}
