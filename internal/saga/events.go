package saga

import (
	"context"

	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// EventKind is the closed set of vendor notifications the refresh path
// understands. Anything else is an unhandled event and a deliberate no-op.
type EventKind string

const (
	EventJobProgressed    EventKind = "job.progressed"
	EventJobCompleted     EventKind = "job.completed"
	EventJobCancelled     EventKind = "job.cancelled"
	EventProjectCancelled EventKind = "project.cancelled"
	EventProjectDeleted   EventKind = "project.deleted"
)

// Event is a vendor-observed notification, normalized from whatever webhook
// shape the vendor binding receives.
type Event struct {
	Kind           EventKind
	TranslationKey string
	ProjectID      string
	JobID          string
	Status         string
	WorkflowLevel  int
	WorkflowStep   string
}

// HandleEvent applies one vendor notification to the matching record. Job
// progress and completion record the new job status and run a refresh;
// vendor-side cancellation or deletion marks the record terminally and
// removes its working documents. There is no mid-flight abort of a running
// saga step; cancellation only ever arrives through this declarative path.
func (s *Service) HandleEvent(ctx context.Context, event Event) (*translation.Metadata, error) {
	logger := s.opLogger("translation.event", event.TranslationKey)

	switch event.Kind {
	case EventJobProgressed, EventJobCompleted:
		status := event.Status
		if event.Kind == EventJobCompleted {
			status = vendorJobCompleted
		}
		if err := s.recordJobStatus(ctx, event, status); err != nil {
			return nil, err
		}
		return s.Refresh(ctx, event.TranslationKey)

	case EventJobCancelled:
		if err := s.recordJobStatus(ctx, event, "CANCELLED"); err != nil {
			return nil, err
		}
		md, err := s.store.Get(ctx, event.TranslationKey)
		if err != nil {
			return nil, transient(err, "reading translation metadata", codeStorageFailed)
		}
		if anyActiveJob(md) {
			return md, nil
		}
		return s.terminate(ctx, md, translation.StatusCancelled)

	case EventProjectCancelled, EventProjectDeleted:
		md, err := s.store.Get(ctx, event.TranslationKey)
		if err != nil {
			return nil, transient(err, "reading translation metadata", codeStorageFailed)
		}
		next := translation.StatusCancelled
		if event.Kind == EventProjectDeleted {
			next = translation.StatusDeleted
		}
		return s.terminate(ctx, md, next)

	default:
		logger.Debug("saga.event.unhandled", "kind", string(event.Kind))
		return s.store.Get(ctx, event.TranslationKey)
	}
}

func (s *Service) recordJobStatus(ctx context.Context, event Event, status string) error {
	err := s.store.Mutate(ctx, event.TranslationKey, func(md *translation.Metadata) error {
		for i := range md.Targets {
			jobs := md.Targets[i].Jobs
			for j := range jobs {
				if jobs[j].ID != event.JobID {
					continue
				}
				jobs[j].Status = status
				if event.WorkflowLevel > 0 {
					jobs[j].WorkflowLevel = event.WorkflowLevel
				}
				if event.WorkflowStep != "" {
					jobs[j].WorkflowStep = event.WorkflowStep
				}
			}
		}
		return nil
	})
	if err != nil {
		return transient(err, "recording vendor job status", codeStorageFailed)
	}
	return nil
}

// terminate marks a record with a vendor-observed terminal status and removes
// its working documents in the same transaction.
func (s *Service) terminate(ctx context.Context, md *translation.Metadata, next translation.Status) (*translation.Metadata, error) {
	if md.Status.Terminal() {
		return md, nil
	}

	record := cloneRecord(md)
	record.Status = next
	record.UpdatedAt = s.clock()
	encoded, err := translation.EncodeMetadata(&record)
	if err != nil {
		return nil, transient(err, "encoding translation metadata", codeStorageFailed)
	}

	tx := s.repo.Transaction().CreateOrReplace(encoded)
	for _, target := range record.Targets {
		if target.WorkingDocumentID != "" {
			tx = tx.Delete(target.WorkingDocumentID)
		}
	}
	tx = tx.Patch(record.Source.ID, interfaces.PatchSpec{
		Mutate: func(source interfaces.Document) (interfaces.Document, error) {
			return translation.UpsertHistory(source, record.HistoryEntry()), nil
		},
	})
	if err := tx.Commit(ctx); err != nil {
		return nil, transient(err, "terminating translation record", codeStorageFailed)
	}
	return &record, nil
}

func anyActiveJob(md *translation.Metadata) bool {
	for _, target := range md.Targets {
		for _, job := range target.Jobs {
			switch job.Status {
			case "CANCELLED", "DELETED":
			default:
				return true
			}
		}
	}
	return false
}
