package interfaces

import (
	"context"
	"time"
)

// VendorCredentials carries the authentication material for the translation
// vendor. Which fields are required depends on the vendor binding.
type VendorCredentials struct {
	Username string
	Password string
	APIKey   string
}

// VendorProject is the vendor-side container grouping the jobs of one
// translation request.
type VendorProject struct {
	ID         string
	Name       string
	Status     string
	TemplateID string
}

// VendorJob is one unit of translatable work inside a vendor project,
// scoped to a single target language.
type VendorJob struct {
	ID             string
	ProjectID      string
	Filename       string
	Status         string
	Provider       string
	TargetLanguage string
	WorkflowLevel  int
	WorkflowStep   string
	DueDate        *time.Time
}

// CreateProjectInput names the source/target languages and the vendor project
// template used to create a project. Languages use vendor codes.
type CreateProjectInput struct {
	Name            string
	TemplateID      string
	SourceLanguage  string
	TargetLanguages []string
	DueDate         *time.Time
}

// CreateJobInput carries the serialized content payload for one job creation
// call. The vendor fans the payload out into one job per target language.
type CreateJobInput struct {
	ProjectID       string
	Filename        string
	TargetLanguages []string
	Payload         []byte
	Preview         []byte
}

// VendorClient is the logical contract of the external translation vendor.
// Wire formats and HTTP bindings are the vendor client's own concern.
type VendorClient interface {
	Authenticate(ctx context.Context, creds VendorCredentials) (string, error)
	CreateProject(ctx context.Context, input CreateProjectInput) (*VendorProject, error)
	CreateJob(ctx context.Context, input CreateJobInput) ([]VendorJob, error)
	GetJobPreview(ctx context.Context, projectID, jobID string) ([]byte, error)
	DeleteProject(ctx context.Context, projectID string) error
}
