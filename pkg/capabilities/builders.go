package capabilities

import (
	"context"

	"github.com/applyflow/applyflow/pkg/backend"
	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/inference/tools"
)

const analyticsInstructions = `You are a specialized job application analytics and insights assistant.
Your role is to:
- Analyze job application data and provide actionable insights
- Track application success rates and patterns
- Identify trends in interview processes and outcomes
- Provide data-driven recommendations for improving application success
- Generate reports on application status, response times, and conversion rates
- Analyze which types of jobs, companies, or industries yield better results

Always provide data-backed insights and practical recommendations.`

const applicationManagementInstructions = `You are a specialized application management assistant.
Your role is to:
- Help create new job applications with all necessary details
- Retrieve and display application information
- Update application status and details
- Delete or archive applications
- Organize applications by status, date, company, or other criteria
- Track deadlines and important dates
- Manage application-related documents and links

Be precise and thorough when handling application data. Always confirm actions
that modify or delete data.`

const resumeInstructions = `You are a specialized resume optimization and career coaching assistant.
Your role is to:
- Provide expert tips for improving resumes and cover letters
- Analyze job descriptions and tailor resume content accordingly
- Suggest keywords and phrases that match specific job postings
- Review resume sections and provide actionable feedback
- Recommend skills and experiences to highlight for different roles
- Help optimize resume format and structure
- Provide insights on ATS (Applicant Tracking System) compatibility
- Suggest quantifiable achievements and impact statements

Always provide specific, actionable advice tailored to the user's target role
and industry.`

type listApplicationsInput struct {
	UserID   string `json:"user_id" jsonschema:"required,description=The user whose applications to fetch"`
	Status   string `json:"status,omitempty" jsonschema:"description=Filter by status: applied interviewing offer accepted or rejected"`
	JobTitle string `json:"job_title,omitempty" jsonschema:"description=Filter by job title"`
	Company  string `json:"company,omitempty" jsonschema:"description=Filter by company name"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Maximum number of records to return"`
}

type getApplicationInput struct {
	ID string `json:"id" jsonschema:"required,description=The application id"`
}

type createApplicationInput struct {
	UserID   string `json:"user_id" jsonschema:"required,description=The user this application belongs to"`
	JobTitle string `json:"job_title,omitempty" jsonschema:"description=The job title applied for"`
	Company  string `json:"company,omitempty" jsonschema:"description=The company name"`
	Pay      *int   `json:"pay,omitempty" jsonschema:"description=The offered or listed pay"`
	Location string `json:"location,omitempty" jsonschema:"description=The job location"`
	JobURL   string `json:"job_url,omitempty" jsonschema:"description=Link to the job posting"`
	ResumeID string `json:"resume_id,omitempty" jsonschema:"description=The resume used for this application"`
	Status   string `json:"status,omitempty" jsonschema:"description=Initial status, defaults to applied"`
}

type updateApplicationInput struct {
	ID     string         `json:"id" jsonschema:"required,description=The application id"`
	Fields map[string]any `json:"fields" jsonschema:"required,description=Fields to change, for example status or pay"`
}

func applicationTools(client *backend.ApplicationsClient) ([]*tools.Definition, error) {
	listTool, err := tools.NewToolFromFunc("list_applications",
		"List a user's job applications, optionally filtered by status, job title, or company.",
		func(ctx context.Context, in listApplicationsInput) ([]backend.Application, error) {
			return client.List(ctx, backend.ListFilter{
				UserID:   in.UserID,
				Status:   backend.ApplicationStatus(in.Status),
				JobTitle: in.JobTitle,
				Company:  in.Company,
				Limit:    in.Limit,
			})
		})
	if err != nil {
		return nil, err
	}

	getTool, err := tools.NewToolFromFunc("get_application",
		"Fetch one job application by id.",
		func(ctx context.Context, in getApplicationInput) (*backend.Application, error) {
			return client.Get(ctx, in.ID)
		})
	if err != nil {
		return nil, err
	}

	createTool, err := tools.NewToolFromFunc("create_application",
		"Create a new job application record.",
		func(ctx context.Context, in createApplicationInput) (*backend.Application, error) {
			return client.Create(ctx, backend.Application{
				UserID:   in.UserID,
				JobTitle: in.JobTitle,
				Company:  in.Company,
				Pay:      in.Pay,
				Location: in.Location,
				JobURL:   in.JobURL,
				ResumeID: in.ResumeID,
				Status:   backend.ApplicationStatus(in.Status),
			})
		})
	if err != nil {
		return nil, err
	}

	updateTool, err := tools.NewToolFromFunc("update_application",
		"Update fields on an existing job application, such as its status.",
		func(ctx context.Context, in updateApplicationInput) (*backend.Application, error) {
			return client.Update(ctx, in.ID, in.Fields)
		})
	if err != nil {
		return nil, err
	}

	deleteTool, err := tools.NewToolFromFunc("delete_application",
		"Delete a job application by id.",
		func(ctx context.Context, in getApplicationInput) (string, error) {
			if err := client.Delete(ctx, in.ID); err != nil {
				return "", err
			}
			return "Application deleted successfully", nil
		})
	if err != nil {
		return nil, err
	}

	return []*tools.Definition{listTool, getTool, createTool, updateTool, deleteTool}, nil
}

type countByStatusInput struct {
	UserID string `json:"user_id" jsonschema:"required,description=The user whose applications to count"`
}

// NewJobAnalytics builds the analytics assistant. It reads application data
// but never mutates it.
func NewJobAnalytics(eng engine.Engine, client *backend.ApplicationsClient) (*Capability, error) {
	listTool, err := tools.NewToolFromFunc("list_applications",
		"List a user's job applications, optionally filtered by status, job title, or company.",
		func(ctx context.Context, in listApplicationsInput) ([]backend.Application, error) {
			return client.List(ctx, backend.ListFilter{
				UserID:   in.UserID,
				Status:   backend.ApplicationStatus(in.Status),
				JobTitle: in.JobTitle,
				Company:  in.Company,
				Limit:    in.Limit,
			})
		})
	if err != nil {
		return nil, err
	}

	getTool, err := tools.NewToolFromFunc("get_application",
		"Fetch one job application by id.",
		func(ctx context.Context, in getApplicationInput) (*backend.Application, error) {
			return client.Get(ctx, in.ID)
		})
	if err != nil {
		return nil, err
	}

	countTool, err := tools.NewToolFromFunc("count_applications_by_status",
		"Count a user's job applications grouped by pipeline status.",
		func(ctx context.Context, in countByStatusInput) (map[string]int, error) {
			apps, err := client.List(ctx, backend.ListFilter{UserID: in.UserID, Limit: 1000})
			if err != nil {
				return nil, err
			}
			counts := map[string]int{}
			for _, app := range apps {
				counts[string(app.Status)]++
			}
			return counts, nil
		})
	if err != nil {
		return nil, err
	}

	return New(
		"job_analytics_assistant",
		"Analyze job application data and provide insights, trends, success rates, and data-driven recommendations about the application process.",
		analyticsInstructions,
		eng,
		WithTools(listTool, getTool, countTool),
	)
}

// NewApplicationManagement builds the CRUD assistant for job applications.
func NewApplicationManagement(eng engine.Engine, client *backend.ApplicationsClient) (*Capability, error) {
	defs, err := applicationTools(client)
	if err != nil {
		return nil, err
	}
	return New(
		"application_management_assistant",
		"Create, view, update, delete, and organize job application records.",
		applicationManagementInstructions,
		eng,
		WithTools(defs...),
	)
}

type listResumesInput struct{}

type getResumeInput struct {
	ID string `json:"id" jsonschema:"required,description=The resume id"`
}

type renameResumeInput struct {
	ID       string `json:"id" jsonschema:"required,description=The resume id"`
	FileName string `json:"file_name" jsonschema:"required,description=The new display file name"`
}

type requestUploadInput struct {
	FileName    string `json:"file_name" jsonschema:"required,description=The name of the file the user wants to upload"`
	ContentType string `json:"content_type,omitempty" jsonschema:"description=The MIME type of the file, defaults to application/octet-stream"`
}

// NewResume builds the resume coaching assistant.
func NewResume(eng engine.Engine, client *backend.ResumesClient) (*Capability, error) {
	listTool, err := tools.NewToolFromFunc("list_resumes",
		"List the user's uploaded resumes and their upload status.",
		func(ctx context.Context, _ listResumesInput) ([]backend.Resume, error) {
			return client.List(ctx)
		})
	if err != nil {
		return nil, err
	}

	getTool, err := tools.NewToolFromFunc("get_resume",
		"Fetch one resume record by id.",
		func(ctx context.Context, in getResumeInput) (*backend.Resume, error) {
			return client.Get(ctx, in.ID)
		})
	if err != nil {
		return nil, err
	}

	renameTool, err := tools.NewToolFromFunc("rename_resume",
		"Change a resume's display file name.",
		func(ctx context.Context, in renameResumeInput) (*backend.Resume, error) {
			return client.Rename(ctx, in.ID, in.FileName)
		})
	if err != nil {
		return nil, err
	}

	uploadURLTool, err := tools.NewToolFromFunc("request_resume_upload_url",
		"Create a pending resume record and return a pre-signed URL the user can upload the file to.",
		func(ctx context.Context, in requestUploadInput) (*backend.UploadTicket, error) {
			return client.RequestUploadURL(ctx, in.FileName, in.ContentType)
		})
	if err != nil {
		return nil, err
	}

	return New(
		"resume_assistant",
		"Provide resume tips, job description analysis, resume tailoring recommendations, and career positioning guidance.",
		resumeInstructions,
		eng,
		WithTools(listTool, getTool, renameTool, uploadURLTool),
	)
}
