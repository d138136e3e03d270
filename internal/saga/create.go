package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/locks"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/internal/vendorcontent"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// Create runs the translation creation saga. Steps run strictly sequentially;
// each step's effects are preconditions for the next, and each failure maps
// to a specific compensation:
//
//	1. fetch or create per-language document shells    (failure surfaced directly)
//	2. verify the source revision is still current     (failure surfaced directly)
//	3. check lock over the requested paths             (failure surfaced directly)
//	4. write the metadata record (this is the lock)    (failure surfaced directly)
//	5. create the vendor project (retried)             (failure undoes 4)
//	6. create the vendor jobs (retried)                (failure undoes 5 then 4)
//	7. persist jobs + working documents (retried)      (failure keeps the billed vendor
//	   state, transitions to FAILED_PERSISTING with a salvage payload, and
//	   leaves step 7 retryable alone)
//
// Retrying Create with identical inputs is idempotent: the derived key names
// every record, so an already-persisted record is returned as-is and a
// salvaged one resumes at step 7.
func (s *Service) Create(ctx context.Context, req translation.Request) (*translation.Metadata, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	key := req.Key()
	logger := s.opLogger("translation.create", key)
	logger.Info("saga.create.start", "source", req.Source.ID, "languages", strings.Join(req.TargetLanguages, ","))

	if existing, err := s.store.Get(ctx, key); err == nil {
		if existing.Status == translation.StatusFailedPersisting {
			logger.Info("saga.create.resume_salvaged")
			return s.RetryPersist(ctx, key)
		}
		logger.Info("saga.create.already_exists", "status", string(existing.Status))
		return existing, nil
	} else if !errors.Is(err, translation.ErrNotFound) {
		return nil, transient(err, "reading translation metadata", codeStorageFailed)
	}

	// Step 1: per-language document shells.
	targets, err := s.resolveTargets(ctx, req, key)
	if err != nil {
		return nil, err
	}

	// Step 2: the source must not have changed since the request was formed.
	source, err := s.fetchSource(ctx, req.Source.ID)
	if err != nil {
		return nil, transient(err, "fetching source document", codeStorageFailed)
	}
	if rev, _ := source[document.RevisionField].(string); rev != req.Source.Revision {
		return nil, precondition(translation.ErrRevisionMismatch,
			fmt.Sprintf("expected revision %s, found %s", req.Source.Revision, rev), codeRevisionMismatch)
	}

	// Step 3: nothing may already be translating an overlapping scope.
	if err := s.checkLocks(ctx, source, req); err != nil {
		return nil, err
	}

	// Encode the vendor payload up front so a scope that selects nothing
	// fails before any record is written.
	payload, err := vendorcontent.Encode(source, req.Paths)
	if err != nil {
		return nil, invalid(err)
	}
	content, err := vendorcontent.Decode(payload)
	if err != nil {
		return nil, invalid(err)
	}
	preview, err := vendorcontent.Preview(content)
	if err != nil {
		return nil, invalid(err)
	}

	// Step 4: the record's existence is the lock.
	md := &translation.Metadata{
		Key:        key,
		Status:     translation.StatusCreating,
		Source:     req.Source,
		Snapshot:   document.Clone(source),
		Paths:      req.Paths,
		Targets:    targets,
		TemplateID: req.TemplateID,
		DueDate:    req.DueDate,
	}
	if err := s.store.Create(ctx, md); err != nil {
		return nil, transient(err, "writing translation lock", codeStorageFailed)
	}
	logger.Debug("saga.create.lock_acquired")

	// Step 5: vendor project.
	project, err := s.createProject(ctx, logger, md)
	if err != nil {
		undoErr := s.retry.Do(ctx, logger, "undo_lock", func(ctx context.Context) error {
			return s.store.Delete(ctx, md)
		})
		if undoErr != nil {
			return nil, terminal(err, undoErr)
		}
		logger.Warn("saga.create.project_failed", "error", err)
		return nil, transient(err, "creating vendor project", codeVendorFailed)
	}

	// Step 6: vendor jobs.
	filename := vendorcontent.JobFilename(source, key)
	jobs, err := s.createJobs(ctx, logger, md, project.ID, filename, payload, preview)
	if err != nil {
		if undoErr := s.undoProjectAndLock(ctx, logger, md, project.ID); undoErr != nil {
			return nil, terminal(err, undoErr)
		}
		logger.Warn("saga.create.jobs_failed", "project", project.ID, "error", err)
		return nil, transient(err, "creating vendor jobs", codeVendorFailed)
	}

	// Step 7: local persistence. The vendor jobs are billed, so a failure
	// here never deletes them; the payload is salvaged for a later retry.
	jobsByLanguage := s.groupJobs(jobs)
	persistErr := s.retry.Do(ctx, logger, "persist", func(ctx context.Context) error {
		return s.persist(ctx, md, project.ID, jobsByLanguage, payload)
	})
	if persistErr != nil {
		markErr := s.store.Mutate(ctx, key, func(record *translation.Metadata) error {
			record.Status = translation.StatusFailedPersisting
			record.Salvage = &translation.Salvage{ProjectID: project.ID, Jobs: jobsByLanguage}
			return nil
		})
		if markErr != nil {
			return nil, terminal(persistErr, markErr)
		}
		logger.Error("saga.create.persist_failed", "project", project.ID, "error", persistErr)
		return nil, salvage(persistErr, "vendor project and jobs exist but local persistence failed")
	}

	logger.Info("saga.create.done", "project", project.ID, "jobs", len(jobs))
	return s.store.Get(ctx, key)
}

// RetryPersist reruns step 7 of the creation saga for a salvaged record,
// without touching the already-created vendor project or jobs.
func (s *Service) RetryPersist(ctx context.Context, key string) (*translation.Metadata, error) {
	logger := s.opLogger("translation.retry_persist", key)

	md, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, transient(err, "reading translation metadata", codeStorageFailed)
	}
	if md.Status != translation.StatusFailedPersisting {
		return md, nil
	}
	if md.Salvage == nil {
		return nil, precondition(translation.ErrNoSalvagePayload, "record has nothing to salvage", codePersistFailed)
	}
	if md.Snapshot == nil {
		return nil, precondition(translation.ErrSnapshotMissing, "record has no source snapshot", codePersistFailed)
	}

	payload, err := vendorcontent.Encode(md.Snapshot, md.Paths)
	if err != nil {
		return nil, invalid(err)
	}

	persistErr := s.retry.Do(ctx, logger, "persist", func(ctx context.Context) error {
		return s.persist(ctx, md, md.Salvage.ProjectID, md.Salvage.Jobs, payload)
	})
	if persistErr != nil {
		return nil, salvage(persistErr, "salvaged persistence retry failed")
	}
	logger.Info("saga.retry_persist.done")
	return s.store.Get(ctx, key)
}

// resolveTargets maps requested languages onto vendor codes and per-language
// document shells supplied by the host adapter.
func (s *Service) resolveTargets(ctx context.Context, req translation.Request, key string) ([]translation.Target, error) {
	shells, err := s.adapter.GetOrCreateTranslatedDocuments(ctx, interfaces.TranslatedDocumentsRequest{
		SourceID:        req.Source.ID,
		SourceType:      req.Source.Type,
		SourceLanguage:  req.Source.Language,
		TargetLanguages: req.TargetLanguages,
	})
	if err != nil {
		return nil, transient(err, "resolving per-language documents", codeStorageFailed)
	}
	if len(shells) != len(req.TargetLanguages) {
		return nil, invalid(translation.ErrTargetDocMismatch)
	}

	targets := make([]translation.Target, 0, len(req.TargetLanguages))
	for i, lang := range req.TargetLanguages {
		vendorCode, ok := s.adapter.VendorLanguageCode(lang)
		if !ok {
			return nil, invalid(fmt.Errorf("%w: %s", translation.ErrLanguageUnmapped, lang))
		}
		shell := shells[i]
		id, _ := shell[document.IDField].(string)
		docType, _ := shell[document.TypeField].(string)
		targets = append(targets, translation.Target{
			Language:          lang,
			VendorLanguage:    vendorCode,
			Document:          translation.DocumentRef{ID: id, Type: docType, Language: lang},
			WorkingDocumentID: translation.WorkingDocumentID(key, vendorCode),
		})
	}
	return targets, nil
}

func (s *Service) fetchSource(ctx context.Context, id string) (document.Document, error) {
	docs, err := s.repo.FetchByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 || docs[0] == nil {
		return nil, fmt.Errorf("source document %q not found", id)
	}
	return docs[0], nil
}

// checkLocks applies both gates: the document's own history entries and the
// sibling metadata records for the same language and scope. There is a
// narrow, accepted race between this check and the lock write in step 4,
// bounded by both running within the same short request.
func (s *Service) checkLocks(ctx context.Context, source document.Document, req translation.Request) error {
	if locks.IsDocLocked(historyLockRecords(source), req.Paths) {
		return precondition(translation.ErrDocumentLocked, "document scope is locked", codeLocked)
	}
	siblings, err := s.store.ForSource(ctx, req.Source.ID)
	if err != nil {
		return transient(err, "listing sibling translations", codeStorageFailed)
	}
	records := translation.LockRecords(siblings)
	for _, lang := range req.TargetLanguages {
		if locks.IsTranslationLocked(records, lang, req.Paths) {
			return precondition(translation.ErrDocumentLocked,
				fmt.Sprintf("language %s is locked for the requested scope", lang), codeLocked)
		}
	}
	return nil
}

func historyLockRecords(source document.Document) []locks.Record {
	entries := translation.History(source)
	records := make([]locks.Record, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Languages) == 0 {
			records = append(records, locks.Record{
				Key:    entry.Key,
				Paths:  entry.Paths,
				Active: entry.Status.Active(),
			})
			continue
		}
		for _, lang := range entry.Languages {
			records = append(records, locks.Record{
				Key:      entry.Key,
				Language: lang,
				Paths:    entry.Paths,
				Active:   entry.Status.Active(),
			})
		}
	}
	return records
}

func (s *Service) createProject(ctx context.Context, logger interfaces.Logger, md *translation.Metadata) (*interfaces.VendorProject, error) {
	sourceLang := md.Source.Language
	if vendorCode, ok := s.adapter.VendorLanguageCode(sourceLang); ok {
		sourceLang = vendorCode
	}
	targetLangs := make([]string, 0, len(md.Targets))
	for _, target := range md.Targets {
		targetLangs = append(targetLangs, target.VendorLanguage)
	}

	var project *interfaces.VendorProject
	err := s.retry.Do(ctx, logger, "create_project", func(ctx context.Context) error {
		if _, err := s.vendor.Authenticate(ctx, s.credentials); err != nil {
			return err
		}
		created, err := s.vendor.CreateProject(ctx, interfaces.CreateProjectInput{
			Name:            "tms-" + md.Key,
			TemplateID:      md.TemplateID,
			SourceLanguage:  sourceLang,
			TargetLanguages: targetLangs,
			DueDate:         md.DueDate,
		})
		if err != nil {
			return err
		}
		project = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) createJobs(ctx context.Context, logger interfaces.Logger, md *translation.Metadata, projectID, filename string, payload, preview []byte) ([]interfaces.VendorJob, error) {
	targetLangs := make([]string, 0, len(md.Targets))
	for _, target := range md.Targets {
		targetLangs = append(targetLangs, target.VendorLanguage)
	}

	var jobs []interfaces.VendorJob
	err := s.retry.Do(ctx, logger, "create_jobs", func(ctx context.Context) error {
		created, err := s.vendor.CreateJob(ctx, interfaces.CreateJobInput{
			ProjectID:       projectID,
			Filename:        filename,
			TargetLanguages: targetLangs,
			Payload:         payload,
			Preview:         preview,
		})
		if err != nil {
			return err
		}
		jobs = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// undoProjectAndLock compensates a failed job creation: the vendor project
// deletion and the lock removal proceed concurrently, each under the retry
// policy so a transient blip does not strand the record or the project.
func (s *Service) undoProjectAndLock(ctx context.Context, logger interfaces.Logger, md *translation.Metadata, projectID string) error {
	var wg sync.WaitGroup
	var projectErr, lockErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		projectErr = s.retry.Do(ctx, logger, "undo_project", func(ctx context.Context) error {
			return s.vendor.DeleteProject(ctx, projectID)
		})
	}()
	go func() {
		defer wg.Done()
		lockErr = s.retry.Do(ctx, logger, "undo_lock", func(ctx context.Context) error {
			return s.store.Delete(ctx, md)
		})
	}()
	wg.Wait()

	return errors.Join(projectErr, lockErr)
}

// groupJobs indexes vendor jobs by host language code.
func (s *Service) groupJobs(jobs []interfaces.VendorJob) map[string][]translation.JobRecord {
	grouped := make(map[string][]translation.JobRecord)
	for _, job := range jobs {
		lang := job.TargetLanguage
		if host, ok := s.adapter.HostLanguageCode(job.TargetLanguage); ok {
			lang = host
		}
		grouped[lang] = append(grouped[lang], translation.JobRecord{
			ID:            job.ID,
			Status:        job.Status,
			Provider:      job.Provider,
			WorkflowLevel: job.WorkflowLevel,
			WorkflowStep:  job.WorkflowStep,
			DueDate:       job.DueDate,
		})
	}
	return grouped
}

// persist runs step 7: job metadata plus per-language working documents in
// one transaction.
func (s *Service) persist(ctx context.Context, md *translation.Metadata, projectID string, jobsByLanguage map[string][]translation.JobRecord, payload []byte) error {
	content, err := vendorcontent.Decode(payload)
	if err != nil {
		return err
	}

	record := cloneRecord(md)
	record.ProjectID = projectID
	record.Status = translation.StatusNew
	record.Salvage = nil
	record.UpdatedAt = s.clock()
	for i := range record.Targets {
		record.Targets[i].Jobs = jobsByLanguage[record.Targets[i].Language]
	}

	encoded, err := translation.EncodeMetadata(&record)
	if err != nil {
		return err
	}

	tx := s.repo.Transaction().CreateOrReplace(encoded)
	for _, target := range record.Targets {
		working := document.Clone(content)
		working[document.IDField] = target.WorkingDocumentID
		working[document.TypeField] = md.Source.Type
		working = s.adapter.InjectDocumentLanguage(working, target.Language)
		tx = tx.CreateOrReplace(working)
	}
	tx = tx.Patch(md.Source.ID, interfaces.PatchSpec{
		Mutate: func(source interfaces.Document) (interfaces.Document, error) {
			return translation.UpsertHistory(source, record.HistoryEntry()), nil
		},
	})
	return tx.Commit(ctx)
}
