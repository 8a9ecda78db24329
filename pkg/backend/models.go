// Package backend holds typed HTTP clients for the job-application and
// resume services the capabilities call into.
package backend

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ApplicationStatus tracks where an application sits in the pipeline.
type ApplicationStatus string

const (
	StatusApplied      ApplicationStatus = "applied"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusOffer        ApplicationStatus = "offer"
	StatusAccepted     ApplicationStatus = "accepted"
	StatusRejected     ApplicationStatus = "rejected"
)

var validApplicationStatuses = map[ApplicationStatus]struct{}{
	StatusApplied:      {},
	StatusInterviewing: {},
	StatusOffer:        {},
	StatusAccepted:     {},
	StatusRejected:     {},
}

// ValidateApplicationStatus rejects statuses the application service would
// refuse, so bad values fail before a round trip.
func ValidateApplicationStatus(s ApplicationStatus) error {
	if _, ok := validApplicationStatuses[s]; !ok {
		names := make([]string, 0, len(validApplicationStatuses))
		for k := range validApplicationStatuses {
			names = append(names, string(k))
		}
		sort.Strings(names)
		return fmt.Errorf("invalid status %q, must be one of %s", s, strings.Join(names, ", "))
	}
	return nil
}

// Application mirrors the application service's record shape.
type Application struct {
	ID         string            `json:"id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	JobTitle   string            `json:"job_title,omitempty"`
	Company    string            `json:"company,omitempty"`
	Pay        *int              `json:"pay,omitempty"`
	Location   string            `json:"location,omitempty"`
	ResumeUsed string            `json:"resume_used,omitempty"`
	ResumeID   string            `json:"resume_id,omitempty"`
	JobURL     string            `json:"job_url,omitempty"`
	Status     ApplicationStatus `json:"status,omitempty"`
	CreatedAt  *time.Time        `json:"created_at,omitempty"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}

// UploadStatus tracks the lifecycle of a resume file upload.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// Resume mirrors the resume service's record shape.
type Resume struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	FileName     string       `json:"file_name"`
	StorageKey   string       `json:"s3_key,omitempty"`
	UploadStatus UploadStatus `json:"upload_status,omitempty"`
	CreatedAt    *time.Time   `json:"created_at,omitempty"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

// UploadTicket is the response to an upload-URL request: a pre-signed PUT
// target plus the record id the caller confirms afterwards.
type UploadTicket struct {
	PresignedURL string `json:"presigned_url"`
	ResumeID     string `json:"resume_id"`
}
