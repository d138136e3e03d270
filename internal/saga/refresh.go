package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-tms/internal/diff"
	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/patch"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/internal/vendorcontent"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// vendorJobCompleted is the vendor's terminal job status observed through
// events and previews.
const vendorJobCompleted = "COMPLETED"

// refreshDownload is one target's decoded vendor rendering.
type refreshDownload struct {
	target  translation.Target
	jobID   string
	content document.Document
	err     error
}

// Refresh pulls the vendor's current rendering for every active job of a
// record, merges each rendering into its working document, and commits all
// merges plus the metadata update in a single transaction. Downloads fan out
// up to the configured concurrency limit; the merge-and-commit is serialized.
// Each working-document patch carries the document's last-known revision as a
// precondition, so a concurrent writer fails the whole transaction instead of
// being silently overwritten.
func (s *Service) Refresh(ctx context.Context, key string) (*translation.Metadata, error) {
	logger := s.opLogger("translation.refresh", key)

	md, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, transient(err, "reading translation metadata", codeStorageFailed)
	}
	if !refreshable(md) {
		logger.Debug("saga.refresh.skip", "status", string(md.Status))
		return md, nil
	}

	downloads := s.download(ctx, logger, md)

	// Resolve reference identities before opening the transaction. The cache
	// is append-only: lookups fill holes, existing entries are never evicted.
	caches := make(map[string]map[string]string, len(downloads))
	for i := range downloads {
		if downloads[i].err != nil || downloads[i].content == nil {
			continue
		}
		cache, err := s.resolveReferences(ctx, downloads[i].target, downloads[i].content)
		if err != nil {
			downloads[i].err = err
			continue
		}
		caches[downloads[i].target.Language] = cache
		downloads[i].content = asDocument(vendorcontent.RemapReferences(downloads[i].content, cache))
	}

	workingIDs := make([]string, 0, len(downloads))
	for _, d := range downloads {
		if d.err == nil && d.content != nil {
			workingIDs = append(workingIDs, d.target.WorkingDocumentID)
		}
	}
	working, err := s.fetchByID(ctx, workingIDs)
	if err != nil {
		return nil, transient(err, "fetching working documents", codeStorageFailed)
	}

	tx := s.repo.Transaction()
	merged := 0
	var firstErr error
	for _, d := range downloads {
		if d.err != nil {
			if firstErr == nil {
				firstErr = d.err
			}
			logger.Warn("saga.refresh.target_failed", "language", d.target.Language, "job", d.jobID, "error", d.err)
			continue
		}
		if d.content == nil {
			continue
		}
		doc, ok := working[d.target.WorkingDocumentID]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s", translation.ErrWorkingDocMissing, d.target.WorkingDocumentID)
			}
			continue
		}
		ops, err := diff.Diff(d.content, doc)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(scopedOps(ops, md.Paths)) == 0 {
			continue
		}
		revision, _ := doc[document.RevisionField].(string)
		content := d.content
		tx = tx.Patch(d.target.WorkingDocumentID, interfaces.PatchSpec{
			IfRevision: revision,
			Mutate: func(current interfaces.Document) (interfaces.Document, error) {
				ops, err := diff.Diff(content, current)
				if err != nil {
					return nil, err
				}
				// The vendor rendering only speaks for the requested scope;
				// everything else on the working document stays put.
				return patch.Merge(current, scopedOps(ops, md.Paths))
			},
		})
		merged++
	}

	now := s.clock()
	record := cloneRecord(md)
	for i := range record.Targets {
		if cache, ok := caches[record.Targets[i].Language]; ok && len(cache) > 0 {
			record.Targets[i].ReferenceCache = cache
		}
	}
	if allJobsCompleted(&record) && record.Status.CanTransition(translation.StatusCompleted) {
		record.Status = translation.StatusCompleted
		record.TranslatedAt = &now
	}
	record.UpdatedAt = now
	encoded, err := translation.EncodeMetadata(&record)
	if err != nil {
		return nil, transient(err, "encoding translation metadata", codeStorageFailed)
	}
	tx = tx.CreateOrReplace(encoded).
		Patch(record.Source.ID, interfaces.PatchSpec{
			Mutate: func(source interfaces.Document) (interfaces.Document, error) {
				return translation.UpsertHistory(source, record.HistoryEntry()), nil
			},
		})

	if err := tx.Commit(ctx); err != nil {
		return nil, transient(err, "committing refresh transaction", codeStorageFailed)
	}
	logger.Info("saga.refresh.done", "merged", merged, "status", string(record.Status))
	if firstErr != nil {
		return &record, transient(firstErr, "refreshing one or more targets", codeVendorFailed)
	}
	return &record, nil
}

// RefreshSource refreshes every active record of a source document.
// Per-record failures are collected; siblings keep refreshing.
func (s *Service) RefreshSource(ctx context.Context, sourceID string) ([]*translation.Metadata, error) {
	records, err := s.store.ForSource(ctx, sourceID)
	if err != nil {
		return nil, transient(err, "listing translations for source", codeStorageFailed)
	}
	out := make([]*translation.Metadata, 0, len(records))
	var firstErr error
	for _, md := range records {
		if !refreshable(md) {
			out = append(out, md)
			continue
		}
		refreshed, err := s.Refresh(ctx, md.Key)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if refreshed != nil {
			out = append(out, refreshed)
		}
	}
	return out, firstErr
}

// Commit merges every working document into its real target document,
// deletes the working documents, and marks the record COMMITTED. Only valid
// from COMPLETED. Each target-document patch is guarded by the document's
// last-known revision.
func (s *Service) Commit(ctx context.Context, key string) (*translation.Metadata, error) {
	logger := s.opLogger("translation.commit", key)

	md, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, transient(err, "reading translation metadata", codeStorageFailed)
	}
	if !md.Status.CanTransition(translation.StatusCommitted) {
		return nil, precondition(translation.ErrStatusTransition,
			fmt.Sprintf("cannot commit from status %s", md.Status), codePersistFailed)
	}

	ids := make([]string, 0, 2*len(md.Targets))
	for _, target := range md.Targets {
		ids = append(ids, target.WorkingDocumentID, target.Document.ID)
	}
	docs, err := s.fetchByID(ctx, ids)
	if err != nil {
		return nil, transient(err, "fetching documents for commit", codeStorageFailed)
	}

	tx := s.repo.Transaction()
	for _, target := range md.Targets {
		workingDoc, ok := docs[target.WorkingDocumentID]
		if !ok {
			return nil, precondition(translation.ErrWorkingDocMissing, target.WorkingDocumentID, codePersistFailed)
		}
		targetDoc, ok := docs[target.Document.ID]
		if !ok {
			return nil, precondition(fmt.Errorf("target document %q not found", target.Document.ID),
				"commit target missing", codePersistFailed)
		}
		revision, _ := targetDoc[document.RevisionField].(string)
		source := document.Clone(workingDoc)
		tx = tx.
			Patch(target.Document.ID, interfaces.PatchSpec{
				IfRevision: revision,
				Mutate: func(current interfaces.Document) (interfaces.Document, error) {
					ops, err := diff.Diff(source, current)
					if err != nil {
						return nil, err
					}
					// Fields of the target outside the requested scope are
					// not the translation's to change.
					return patch.Merge(current, scopedOps(ops, md.Paths))
				},
			}).
			Delete(target.WorkingDocumentID)
	}

	now := s.clock()
	record := cloneRecord(md)
	record.Status = translation.StatusCommitted
	record.CommittedAt = &now
	record.UpdatedAt = now
	encoded, err := translation.EncodeMetadata(&record)
	if err != nil {
		return nil, transient(err, "encoding translation metadata", codeStorageFailed)
	}
	tx = tx.CreateOrReplace(encoded).
		Patch(record.Source.ID, interfaces.PatchSpec{
			Mutate: func(source interfaces.Document) (interfaces.Document, error) {
				return translation.UpsertHistory(source, record.HistoryEntry()), nil
			},
		})

	if err := tx.Commit(ctx); err != nil {
		return nil, transient(err, "committing merge transaction", codeStorageFailed)
	}
	logger.Info("saga.commit.done", "targets", len(record.Targets))
	return &record, nil
}

// download fans out preview fetches across targets, bounded by the refresh
// concurrency limit. Each target pulls its most recent non-cancelled job.
func (s *Service) download(ctx context.Context, logger interfaces.Logger, md *translation.Metadata) []refreshDownload {
	downloads := make([]refreshDownload, 0, len(md.Targets))
	for _, target := range md.Targets {
		job := latestActiveJob(target)
		if job == nil {
			continue
		}
		downloads = append(downloads, refreshDownload{target: target, jobID: job.ID})
	}

	sem := make(chan struct{}, s.refreshLimit)
	var wg sync.WaitGroup
	for i := range downloads {
		wg.Add(1)
		go func(d *refreshDownload) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var payload []byte
			err := s.retry.Do(ctx, logger, "job_preview", func(ctx context.Context) error {
				var fetchErr error
				payload, fetchErr = s.vendor.GetJobPreview(ctx, md.ProjectID, d.jobID)
				return fetchErr
			})
			if err != nil {
				d.err = err
				return
			}
			d.content, d.err = vendorcontent.Decode(payload)
		}(&downloads[i])
	}
	wg.Wait()
	return downloads
}

// resolveReferences returns the target's reference cache extended with
// target-language identities for any source reference the cache does not
// know yet.
func (s *Service) resolveReferences(ctx context.Context, target translation.Target, content document.Document) (map[string]string, error) {
	refs := vendorcontent.CollectReferences(content)
	if len(refs) == 0 {
		return target.ReferenceCache, nil
	}

	cache := make(map[string]string, len(target.ReferenceCache)+len(refs))
	for k, v := range target.ReferenceCache {
		cache[k] = v
	}
	missing := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := cache[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) == 0 {
		return cache, nil
	}
	resolved, err := s.adapter.GetTranslatedReferences(ctx, missing, target.Language)
	if err != nil {
		return nil, transient(err, "resolving translated references", codeStorageFailed)
	}
	for k, v := range resolved {
		cache[k] = v
	}
	return cache, nil
}

func (s *Service) fetchByID(ctx context.Context, ids []string) (map[string]document.Document, error) {
	if len(ids) == 0 {
		return map[string]document.Document{}, nil
	}
	docs, err := s.repo.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]document.Document, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if id, ok := doc[document.IDField].(string); ok {
			out[id] = doc
		}
	}
	return out, nil
}

func refreshable(md *translation.Metadata) bool {
	switch md.Status {
	case translation.StatusCreating, translation.StatusFailedPersisting:
		return false
	}
	return !md.Status.Terminal()
}

// latestActiveJob picks the job whose rendering represents the target's
// current state: the last non-cancelled entry.
func latestActiveJob(target translation.Target) *translation.JobRecord {
	for i := len(target.Jobs) - 1; i >= 0; i-- {
		job := target.Jobs[i]
		switch job.Status {
		case "CANCELLED", "DELETED":
			continue
		}
		return &target.Jobs[i]
	}
	return nil
}

func allJobsCompleted(md *translation.Metadata) bool {
	seen := false
	for _, target := range md.Targets {
		for _, job := range target.Jobs {
			seen = true
			if job.Status != vendorJobCompleted {
				return false
			}
		}
	}
	return seen
}

// scopedOps drops operations outside the requested path scope. An empty
// scope, or any empty path in it, covers the whole document.
func scopedOps(ops []patch.Operation, paths []document.Path) []patch.Operation {
	if len(paths) == 0 {
		return ops
	}
	for _, p := range paths {
		if p.IsEmpty() {
			return ops
		}
	}
	out := make([]patch.Operation, 0, len(ops))
	for _, op := range ops {
		for _, p := range paths {
			if op.Path.Intersects(p) {
				out = append(out, op)
				break
			}
		}
	}
	return out
}

func asDocument(v any) document.Document {
	if doc, ok := v.(map[string]any); ok {
		return doc
	}
	return document.Document{}
}

// cloneRecord copies a record so lifecycle mutations never alias the caller's
// target slice.
func cloneRecord(md *translation.Metadata) translation.Metadata {
	record := *md
	record.Targets = make([]translation.Target, len(md.Targets))
	copy(record.Targets, md.Targets)
	return record
}
