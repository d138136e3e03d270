package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-tms/pkg/interfaces"
)

// VendorFake is an in-memory VendorClient that records every call and can be
// scripted to fail at a chosen step.
type VendorFake struct {
	mu sync.Mutex

	AuthenticateErr  error
	CreateProjectErr error
	CreateJobErr     error
	PreviewErr       error
	DeleteProjectErr error

	// JobStatus is assigned to newly created jobs. Defaults to IN_PROGRESS.
	JobStatus string

	calls           []string
	projects        map[string]*interfaces.VendorProject
	jobs            map[string][]interfaces.VendorJob
	previews        map[string][]byte
	deletedProjects []string
	nextProject     int
	nextJob         int
}

func NewVendorFake() *VendorFake {
	return &VendorFake{
		projects: map[string]*interfaces.VendorProject{},
		jobs:     map[string][]interfaces.VendorJob{},
		previews: map[string][]byte{},
	}
}

func (v *VendorFake) record(call string) {
	v.calls = append(v.calls, call)
}

func (v *VendorFake) Authenticate(ctx context.Context, creds interfaces.VendorCredentials) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("Authenticate")
	if v.AuthenticateErr != nil {
		return "", v.AuthenticateErr
	}
	return "token", nil
}

func (v *VendorFake) CreateProject(ctx context.Context, input interfaces.CreateProjectInput) (*interfaces.VendorProject, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("CreateProject")
	if v.CreateProjectErr != nil {
		return nil, v.CreateProjectErr
	}
	v.nextProject++
	project := &interfaces.VendorProject{
		ID:         fmt.Sprintf("project-%d", v.nextProject),
		Name:       input.Name,
		Status:     "NEW",
		TemplateID: input.TemplateID,
	}
	v.projects[project.ID] = project
	return project, nil
}

func (v *VendorFake) CreateJob(ctx context.Context, input interfaces.CreateJobInput) ([]interfaces.VendorJob, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("CreateJob")
	if v.CreateJobErr != nil {
		return nil, v.CreateJobErr
	}
	status := v.JobStatus
	if status == "" {
		status = "IN_PROGRESS"
	}
	created := make([]interfaces.VendorJob, 0, len(input.TargetLanguages))
	for _, lang := range input.TargetLanguages {
		v.nextJob++
		job := interfaces.VendorJob{
			ID:             fmt.Sprintf("job-%d", v.nextJob),
			ProjectID:      input.ProjectID,
			Filename:       input.Filename,
			Status:         status,
			TargetLanguage: lang,
		}
		created = append(created, job)
		v.previews[previewKey(input.ProjectID, job.ID)] = input.Payload
	}
	v.jobs[input.ProjectID] = append(v.jobs[input.ProjectID], created...)
	return created, nil
}

func (v *VendorFake) GetJobPreview(ctx context.Context, projectID, jobID string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("GetJobPreview")
	if v.PreviewErr != nil {
		return nil, v.PreviewErr
	}
	payload, ok := v.previews[previewKey(projectID, jobID)]
	if !ok {
		return nil, fmt.Errorf("no preview for project %s job %s", projectID, jobID)
	}
	return payload, nil
}

func (v *VendorFake) DeleteProject(ctx context.Context, projectID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("DeleteProject")
	if v.DeleteProjectErr != nil {
		return v.DeleteProjectErr
	}
	delete(v.projects, projectID)
	delete(v.jobs, projectID)
	v.deletedProjects = append(v.deletedProjects, projectID)
	return nil
}

// SetPreview replaces the payload returned for one job, simulating vendor-side
// translation progress.
func (v *VendorFake) SetPreview(projectID, jobID string, payload []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previews[previewKey(projectID, jobID)] = payload
}

// Calls returns the ordered method names invoked so far.
func (v *VendorFake) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	copy(out, v.calls)
	return out
}

// CallCount counts invocations of one method.
func (v *VendorFake) CallCount(method string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, call := range v.calls {
		if call == method {
			n++
		}
	}
	return n
}

// DeletedProjects returns the project ids passed to DeleteProject.
func (v *VendorFake) DeletedProjects() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.deletedProjects))
	copy(out, v.deletedProjects)
	return out
}

// Jobs returns the jobs created under one project.
func (v *VendorFake) Jobs(projectID string) []interfaces.VendorJob {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]interfaces.VendorJob, len(v.jobs[projectID]))
	copy(out, v.jobs[projectID])
	return out
}

// ProjectCount reports how many projects currently exist vendor-side.
func (v *VendorFake) ProjectCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.projects)
}

func previewKey(projectID, jobID string) string {
	return projectID + "/" + jobID
}

var _ interfaces.VendorClient = (*VendorFake)(nil)
