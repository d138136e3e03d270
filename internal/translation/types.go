package translation

import (
	"time"

	"github.com/goliatone/go-tms/internal/document"
)

// DocumentType is the repository type of translation metadata records.
const DocumentType = "tms.translation.metadata"

// Status is the lifecycle state of a translation metadata record. Between
// NEW and COMPLETED the vendor's own project status strings pass through
// unchanged, so unknown values are legal mid-lifecycle states.
type Status string

const (
	// StatusCreating marks the record written before any vendor call; its
	// existence is what locks the source document.
	StatusCreating Status = "CREATING"
	// StatusNew marks a fully persisted record whose vendor jobs exist.
	StatusNew Status = "NEW"
	// StatusCompleted marks a record whose vendor jobs all finished.
	StatusCompleted Status = "COMPLETED"
	// StatusCommitted marks merged-and-cleaned-up records. Terminal.
	StatusCommitted Status = "COMMITTED"
	// StatusFailedPersisting marks records whose vendor project and jobs
	// exist but whose local persistence failed; the salvaged payload allows
	// retrying persistence alone.
	StatusFailedPersisting Status = "FAILED_PERSISTING"
	// StatusCancelled reflects a vendor-observed cancellation. Terminal.
	StatusCancelled Status = "CANCELLED"
	// StatusDeleted reflects a vendor-observed project deletion. Terminal.
	StatusDeleted Status = "DELETED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCommitted, StatusCancelled, StatusDeleted:
		return true
	default:
		return false
	}
}

// Active reports whether the record still locks its path scope.
func (s Status) Active() bool {
	return !s.Terminal()
}

// CanTransition validates a lifecycle move. Vendor project statuses are
// accepted as intermediate states from any non-terminal status, CREATING
// included, up to COMPLETED.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusCommitted:
		return s == StatusCompleted
	case StatusFailedPersisting:
		return s == StatusCreating
	case StatusCancelled, StatusDeleted:
		return true
	case StatusCreating:
		return false
	case StatusNew:
		return s == StatusCreating || s == StatusFailedPersisting
	default:
		// COMPLETED or a vendor passthrough status. A vendor event can land
		// while the record is still CREATING, so those are reachable from
		// every non-terminal state.
		return true
	}
}

// DocumentRef identifies a content-repository document at a point in time.
type DocumentRef struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Revision string `json:"revision,omitempty"`
	Language string `json:"language,omitempty"`
}

// JobRecord mirrors one vendor job for a target language.
type JobRecord struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Provider      string     `json:"provider,omitempty"`
	WorkflowLevel int        `json:"workflowLevel,omitempty"`
	WorkflowStep  string     `json:"workflowStep,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

// Target tracks one target language of a metadata record: the real target
// document, the vendor-bound working document, the vendor jobs, and the
// append-only cache mapping source references to target-language identities.
type Target struct {
	Language          string            `json:"language"`
	VendorLanguage    string            `json:"vendorLanguage"`
	Document          DocumentRef       `json:"document"`
	WorkingDocumentID string            `json:"workingDocumentId,omitempty"`
	Jobs              []JobRecord       `json:"jobs,omitempty"`
	ReferenceCache    map[string]string `json:"referenceCache,omitempty"`
}

// Salvage preserves the vendor payload when local persistence failed after
// billable vendor jobs were already created.
type Salvage struct {
	ProjectID string                 `json:"projectId"`
	Jobs      map[string][]JobRecord `json:"jobs"` // keyed by target language
}

// Metadata is the permanent record of one translation request group (TMD),
// spanning all its target languages and named by the translation key.
type Metadata struct {
	Key          string            `json:"key"`
	Status       Status            `json:"status"`
	Source       DocumentRef       `json:"source"`
	Snapshot     document.Document `json:"snapshot,omitempty"`
	Paths        []document.Path   `json:"paths"`
	Targets      []Target          `json:"targets,omitempty"`
	ProjectID    string            `json:"projectId,omitempty"`
	TemplateID   string            `json:"templateId,omitempty"`
	DueDate      *time.Time        `json:"dueDate,omitempty"`
	Salvage      *Salvage          `json:"salvage,omitempty"`
	TranslatedAt *time.Time        `json:"translatedAt,omitempty"`
	CommittedAt  *time.Time        `json:"committedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Target returns the record for a host language code, nil when absent.
func (m *Metadata) Target(language string) *Target {
	for i := range m.Targets {
		if m.Targets[i].Language == language {
			return &m.Targets[i]
		}
	}
	return nil
}

// Languages lists the host language codes of all targets.
func (m *Metadata) Languages() []string {
	out := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		out = append(out, t.Language)
	}
	return out
}
