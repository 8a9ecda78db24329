package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const defaultClientTimeout = 30 * time.Second

// ApplicationsClient talks to the job-application service.
type ApplicationsClient struct {
	client *resty.Client
}

func NewApplicationsClient(baseURL string) *ApplicationsClient {
	return &ApplicationsClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultClientTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func apiError(op string, resp *resty.Response) error {
	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)
	if body.Error != "" {
		return errors.Errorf("%s: %s (status %d)", op, body.Error, resp.StatusCode())
	}
	return errors.Errorf("%s: unexpected status %d", op, resp.StatusCode())
}

// Create registers a new application. UserID is required; Status defaults
// to applied on the server side.
func (c *ApplicationsClient) Create(ctx context.Context, app Application) (*Application, error) {
	if app.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	if app.Status != "" {
		if err := ValidateApplicationStatus(app.Status); err != nil {
			return nil, err
		}
	}
	var out Application
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(app).
		SetResult(&out).
		Post("/applications")
	if err != nil {
		return nil, errors.Wrap(err, "create application")
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, apiError("POST /applications", resp)
	}
	return &out, nil
}

// Get fetches one application by id.
func (c *ApplicationsClient) Get(ctx context.Context, id string) (*Application, error) {
	var out Application
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/applications/" + id)
	if err != nil {
		return nil, errors.Wrapf(err, "get application %s", id)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Errorf("application %s not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(fmt.Sprintf("GET /applications/%s", id), resp)
	}
	return &out, nil
}

// ListFilter narrows a List call. UserID is mandatory, the rest optional.
type ListFilter struct {
	UserID   string
	Status   ApplicationStatus
	JobTitle string
	Company  string
	Limit    int
}

// List queries applications for a user, optionally filtered.
func (c *ApplicationsClient) List(ctx context.Context, filter ListFilter) ([]Application, error) {
	if filter.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	if filter.Status != "" {
		if err := ValidateApplicationStatus(filter.Status); err != nil {
			return nil, err
		}
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("user_id", filter.UserID)
	if filter.Status != "" {
		req.SetQueryParam("status", string(filter.Status))
	}
	if filter.JobTitle != "" {
		req.SetQueryParam("job_title", filter.JobTitle)
	}
	if filter.Company != "" {
		req.SetQueryParam("company", filter.Company)
	}
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}

	var out struct {
		Applications []Application `json:"applications"`
		Count        int           `json:"count"`
	}
	resp, err := req.SetResult(&out).Get("/applications")
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET /applications", resp)
	}
	return out.Applications, nil
}

// Update patches fields on an existing application.
func (c *ApplicationsClient) Update(ctx context.Context, id string, fields map[string]any) (*Application, error) {
	if status, ok := fields["status"].(string); ok {
		if err := ValidateApplicationStatus(ApplicationStatus(status)); err != nil {
			return nil, err
		}
	}
	var out Application
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(fields).
		SetResult(&out).
		Patch("/applications/" + id)
	if err != nil {
		return nil, errors.Wrapf(err, "update application %s", id)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Errorf("application %s not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(fmt.Sprintf("PATCH /applications/%s", id), resp)
	}
	return &out, nil
}

// Delete removes an application.
func (c *ApplicationsClient) Delete(ctx context.Context, id string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete("/applications/" + id)
	if err != nil {
		return errors.Wrapf(err, "delete application %s", id)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return errors.Errorf("application %s not found", id)
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError(fmt.Sprintf("DELETE /applications/%s", id), resp)
	}
	return nil
}
