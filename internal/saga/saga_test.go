package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-tms/internal/contentstore"
	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/internal/vendorcontent"
	"github.com/goliatone/go-tms/pkg/interfaces"
	"github.com/goliatone/go-tms/pkg/testsupport"
)

// flakyRepo fails the next N transaction commits, then behaves normally.
type flakyRepo struct {
	inner    interfaces.ContentRepository
	failNext int
}

func (r *flakyRepo) FetchByIDs(ctx context.Context, ids []string) ([]interfaces.Document, error) {
	return r.inner.FetchByIDs(ctx, ids)
}

func (r *flakyRepo) FetchByQuery(ctx context.Context, query interfaces.Query) ([]interfaces.Document, error) {
	return r.inner.FetchByQuery(ctx, query)
}

func (r *flakyRepo) Transaction() interfaces.Transaction {
	return &flakyTx{repo: r, inner: r.inner.Transaction()}
}

type flakyTx struct {
	repo  *flakyRepo
	inner interfaces.Transaction
}

func (t *flakyTx) Create(doc interfaces.Document) interfaces.Transaction {
	t.inner = t.inner.Create(doc)
	return t
}

func (t *flakyTx) CreateOrReplace(doc interfaces.Document) interfaces.Transaction {
	t.inner = t.inner.CreateOrReplace(doc)
	return t
}

func (t *flakyTx) Patch(id string, spec interfaces.PatchSpec) interfaces.Transaction {
	t.inner = t.inner.Patch(id, spec)
	return t
}

func (t *flakyTx) Delete(id string) interfaces.Transaction {
	t.inner = t.inner.Delete(id)
	return t
}

func (t *flakyTx) Commit(ctx context.Context) error {
	if t.repo.failNext > 0 {
		t.repo.failNext--
		return errors.New("storage unavailable")
	}
	return t.inner.Commit(ctx)
}

// armingVendor trips the repository right after vendor jobs are created, so
// the very next commit (persistence) fails.
type armingVendor struct {
	*testsupport.VendorFake
	repo     *flakyRepo
	failures int
}

func (v *armingVendor) CreateJob(ctx context.Context, input interfaces.CreateJobInput) ([]interfaces.VendorJob, error) {
	jobs, err := v.VendorFake.CreateJob(ctx, input)
	if err == nil && v.failures > 0 {
		v.repo.failNext = v.failures
		v.failures = 0
	}
	return jobs, err
}

// projectRejectingVendor fails project creation and trips the repository at
// the same moment, so the first commit of the lock-release compensation fails
// too.
type projectRejectingVendor struct {
	*testsupport.VendorFake
	repo *flakyRepo
}

func (v *projectRejectingVendor) CreateProject(ctx context.Context, input interfaces.CreateProjectInput) (*interfaces.VendorProject, error) {
	v.repo.failNext = 1
	return nil, errors.New("vendor unavailable")
}

type env struct {
	memory  *contentstore.Memory
	repo    *flakyRepo
	vendor  *testsupport.VendorFake
	adapter *testsupport.AdapterFake
	svc     *Service
}

func fastRetry() RetryPolicy {
	return RetryPolicy{Attempts: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func newEnv(t *testing.T, vendorOverride interfaces.VendorClient) *env {
	t.Helper()
	memory := contentstore.NewMemory()
	if err := memory.Seed(testsupport.SamplePost("post-1", "rev-1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := &flakyRepo{inner: memory}
	vendor := testsupport.NewVendorFake()
	adapter := testsupport.NewAdapterFake(map[string]string{
		"en": "en-US",
		"fr": "fr-FR",
		"de": "de-DE",
	})
	adapter.Seeder = memory

	var client interfaces.VendorClient = vendor
	if vendorOverride != nil {
		client = vendorOverride
	}
	svc := NewService(repo, client, adapter,
		WithRetryPolicy(fastRetry()),
		WithCredentials(interfaces.VendorCredentials{APIKey: "test"}),
	)
	return &env{memory: memory, repo: repo, vendor: vendor, adapter: adapter, svc: svc}
}

func titleBodyRequest(languages ...string) translation.Request {
	return translation.Request{
		Source: translation.DocumentRef{ID: "post-1", Type: "post", Revision: "rev-1", Language: "en"},
		Paths: []document.Path{
			document.NewPath(document.Field("title")),
			document.NewPath(document.Field("body")),
		},
		TargetLanguages: languages,
		TemplateID:      "template-1",
	}
}

func fetchOne(t *testing.T, e *env, id string) interfaces.Document {
	t.Helper()
	docs, err := e.memory.FetchByIDs(context.Background(), []string{id})
	if err != nil {
		t.Fatalf("fetch %s: %v", id, err)
	}
	if len(docs) == 0 {
		t.Fatalf("document %s not found", id)
	}
	return docs[0]
}

func missing(t *testing.T, e *env, id string) {
	t.Helper()
	docs, err := e.memory.FetchByIDs(context.Background(), []string{id})
	if err != nil {
		t.Fatalf("fetch %s: %v", id, err)
	}
	if len(docs) != 0 {
		t.Fatalf("document %s should not exist", id)
	}
}

func TestCreateHappyPath(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if md.Status != translation.StatusNew {
		t.Fatalf("status = %s, want NEW", md.Status)
	}
	if md.ProjectID != "project-1" {
		t.Fatalf("project id = %s", md.ProjectID)
	}
	target := md.Target("fr")
	if target == nil || len(target.Jobs) != 1 {
		t.Fatalf("fr target jobs = %+v", target)
	}
	if target.Document.ID != "post-1-fr" {
		t.Fatalf("target document id = %s", target.Document.ID)
	}

	working := fetchOne(t, e, target.WorkingDocumentID)
	if working["title"] != "Hello" {
		t.Fatalf("working document content = %v", working["title"])
	}
	if working["_type"] != "post" {
		t.Fatalf("working document type = %v", working["_type"])
	}
	if working[testsupport.LanguageField] != "fr" {
		t.Fatalf("working document language = %v", working[testsupport.LanguageField])
	}

	source := fetchOne(t, e, "post-1")
	entries := translation.History(source)
	if len(entries) != 1 || entries[0].Key != md.Key {
		t.Fatalf("source history = %+v", entries)
	}
	if !entries[0].Status.Active() {
		t.Fatal("the new record must lock the source scope")
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	first, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.Key != second.Key {
		t.Fatalf("keys differ: %s vs %s", first.Key, second.Key)
	}
	if got := e.vendor.CallCount("CreateProject"); got != 1 {
		t.Fatalf("CreateProject called %d times, want 1", got)
	}
}

func TestCreateRejectsInvalidRequest(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.svc.Create(context.Background(), translation.Request{})
	if err == nil {
		t.Fatal("expected a validation failure")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("got %v, want a validation category", err)
	}
	if e.vendor.CallCount("CreateProject") != 0 {
		t.Fatal("validation must reject before any vendor call")
	}
}

func TestCreateRevisionMismatch(t *testing.T) {
	e := newEnv(t, nil)
	req := titleBodyRequest("fr")
	req.Source.Revision = "rev-stale"

	_, err := e.svc.Create(context.Background(), req)
	if !IsPrecondition(err) {
		t.Fatalf("got %v, want a precondition failure", err)
	}
	if e.vendor.CallCount("CreateProject") != 0 {
		t.Fatal("a stale revision must reject before any vendor call")
	}
}

func TestCreateLockConflictOnOverlappingScope(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	if _, err := e.svc.Create(ctx, titleBodyRequest("fr")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Narrower scope, fresh revision: different key, overlapping paths.
	req := titleBodyRequest("fr")
	req.Paths = req.Paths[:1]
	source := fetchOne(t, e, "post-1")
	req.Source.Revision, _ = source["_rev"].(string)
	_, err := e.svc.Create(ctx, req)
	if !IsPrecondition(err) {
		t.Fatalf("got %v, want a lock precondition failure", err)
	}
	if e.vendor.CallCount("CreateProject") != 1 {
		t.Fatal("a locked scope must reject before any vendor call")
	}
}

func TestCreateUnmappedLanguageRejected(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.svc.Create(context.Background(), titleBodyRequest("xx"))
	if err == nil {
		t.Fatal("expected an unmapped-language failure")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("got %v, want a validation category", err)
	}
}

func TestCreateJobFailureCompensates(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.vendor.CreateJobErr = errors.New("vendor rejected the file")

	req := titleBodyRequest("fr")
	_, err := e.svc.Create(ctx, req)
	if !IsTransient(err) {
		t.Fatalf("got %v, want a transient failure", err)
	}

	deleted := e.vendor.DeletedProjects()
	if len(deleted) != 1 || deleted[0] != "project-1" {
		t.Fatalf("deleted projects = %v, want the project created in this run", deleted)
	}
	if e.vendor.ProjectCount() != 0 {
		t.Fatal("no vendor project may survive the compensation")
	}
	if _, err := e.svc.Store().Get(ctx, req.Key()); !errors.Is(err, translation.ErrNotFound) {
		t.Fatalf("the lock record must be gone, got %v", err)
	}

	// With the lock released, the request succeeds from scratch against the
	// source's current revision.
	e.vendor.CreateJobErr = nil
	source := fetchOne(t, e, "post-1")
	req.Source.Revision, _ = source["_rev"].(string)
	md, err := e.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("retry after compensation: %v", err)
	}
	if md.Status != translation.StatusNew {
		t.Fatalf("status = %s, want NEW", md.Status)
	}
}

func TestCreateProjectFailureRetriesLockRelease(t *testing.T) {
	memory := contentstore.NewMemory()
	if err := memory.Seed(testsupport.SamplePost("post-1", "rev-1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := &flakyRepo{inner: memory}
	vendor := testsupport.NewVendorFake()
	rejecting := &projectRejectingVendor{VendorFake: vendor, repo: repo}
	adapter := testsupport.NewAdapterFake(map[string]string{"en": "en-US", "fr": "fr-FR"})
	adapter.Seeder = memory
	svc := NewService(repo, rejecting, adapter,
		WithRetryPolicy(RetryPolicy{Attempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
		WithCredentials(interfaces.VendorCredentials{APIKey: "test"}),
	)
	ctx := context.Background()

	req := titleBodyRequest("fr")
	_, err := svc.Create(ctx, req)
	if err == nil {
		t.Fatal("create must fail when the vendor rejects the project")
	}
	if !IsTransient(err) {
		t.Fatalf("got %v, want a transient failure after a recovered compensation", err)
	}
	// The first lock-release commit fails; the retry must still free the
	// record so nothing stays locked behind a dead project.
	if _, getErr := svc.Store().Get(ctx, req.Key()); !errors.Is(getErr, translation.ErrNotFound) {
		t.Fatalf("record after compensation = %v, want not found", getErr)
	}
	if repo.failNext != 0 {
		t.Fatalf("armed failures left over: %d", repo.failNext)
	}
}

func TestCreatePersistFailureSalvages(t *testing.T) {
	vendor := testsupport.NewVendorFake()
	arming := &armingVendor{VendorFake: vendor, failures: 1}
	e := newEnv(t, arming)
	arming.repo = e.repo
	ctx := context.Background()

	req := titleBodyRequest("fr")
	_, err := e.svc.Create(ctx, req)
	if !IsSalvage(err) {
		t.Fatalf("got %v, want a salvage failure", err)
	}

	md, getErr := e.svc.Store().Get(ctx, req.Key())
	if getErr != nil {
		t.Fatalf("read salvaged record: %v", getErr)
	}
	if md.Status != translation.StatusFailedPersisting {
		t.Fatalf("status = %s, want FAILED_PERSISTING", md.Status)
	}
	if md.Salvage == nil || md.Salvage.ProjectID != "project-1" {
		t.Fatalf("salvage payload = %+v", md.Salvage)
	}
	if len(md.Salvage.Jobs["fr"]) != 1 {
		t.Fatalf("salvaged jobs = %+v", md.Salvage.Jobs)
	}
	missing(t, e, md.Target("fr").WorkingDocumentID)

	// Persistence retries alone: the vendor is not touched again.
	projectCalls := vendor.CallCount("CreateProject")
	jobCalls := vendor.CallCount("CreateJob")

	md, err = e.svc.RetryPersist(ctx, req.Key())
	if err != nil {
		t.Fatalf("retry persist: %v", err)
	}
	if md.Status != translation.StatusNew {
		t.Fatalf("status after retry = %s, want NEW", md.Status)
	}
	if md.ProjectID != "project-1" || md.Salvage != nil {
		t.Fatalf("record after retry = %+v", md)
	}
	fetchOne(t, e, md.Target("fr").WorkingDocumentID)

	if vendor.CallCount("CreateProject") != projectCalls || vendor.CallCount("CreateJob") != jobCalls {
		t.Fatal("retrying persistence must not create vendor state")
	}
}

func TestCreateResumesSalvagedRecord(t *testing.T) {
	vendor := testsupport.NewVendorFake()
	arming := &armingVendor{VendorFake: vendor, failures: 1}
	e := newEnv(t, arming)
	arming.repo = e.repo
	ctx := context.Background()

	req := titleBodyRequest("fr")
	if _, err := e.svc.Create(ctx, req); !IsSalvage(err) {
		t.Fatalf("expected a salvage failure, got %v", err)
	}

	md, err := e.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create resuming salvage: %v", err)
	}
	if md.Status != translation.StatusNew {
		t.Fatalf("status = %s, want NEW", md.Status)
	}
	if vendor.CallCount("CreateProject") != 1 {
		t.Fatal("resuming a salvaged record must not create another vendor project")
	}
}

// completeTranslation drives a created record through vendor completion with
// a translated rendering.
func completeTranslation(t *testing.T, e *env, md *translation.Metadata, lang, title string) *translation.Metadata {
	t.Helper()
	ctx := context.Background()

	translated := testsupport.SamplePost("post-1", "rev-1")
	translated["title"] = title
	payload, err := vendorcontent.Encode(translated, md.Paths)
	if err != nil {
		t.Fatalf("encode translated payload: %v", err)
	}
	target := md.Target(lang)
	e.vendor.SetPreview(md.ProjectID, target.Jobs[0].ID, payload)

	updated, err := e.svc.HandleEvent(ctx, Event{
		Kind:           EventJobCompleted,
		TranslationKey: md.Key,
		ProjectID:      md.ProjectID,
		JobID:          target.Jobs[0].ID,
	})
	if err != nil {
		t.Fatalf("handle completion event: %v", err)
	}
	return updated
}

func TestJobCompletionRefreshesWorkingDocument(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	md = completeTranslation(t, e, md, "fr", "Bonjour")

	if md.Status != translation.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", md.Status)
	}
	if md.TranslatedAt == nil {
		t.Fatal("completion must stamp TranslatedAt")
	}

	working := fetchOne(t, e, md.Target("fr").WorkingDocumentID)
	if working["title"] != "Bonjour" {
		t.Fatalf("working title = %v, want Bonjour", working["title"])
	}
	if working["_id"] != md.Target("fr").WorkingDocumentID {
		t.Fatal("the merge must never change the working document's identity")
	}
	if working[testsupport.LanguageField] != "fr" {
		t.Fatal("fields outside the requested scope must survive the merge")
	}
}

func TestCommitMergesIntoTargetAndReleasesLock(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	md = completeTranslation(t, e, md, "fr", "Bonjour")

	md, err = e.svc.Commit(ctx, md.Key)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if md.Status != translation.StatusCommitted {
		t.Fatalf("status = %s, want COMMITTED", md.Status)
	}
	if md.CommittedAt == nil {
		t.Fatal("commit must stamp CommittedAt")
	}

	target := fetchOne(t, e, "post-1-fr")
	if target["title"] != "Bonjour" {
		t.Fatalf("target title = %v, want Bonjour", target["title"])
	}
	if target["_id"] != "post-1-fr" {
		t.Fatal("commit must never change the target document's identity")
	}
	missing(t, e, md.Target("fr").WorkingDocumentID)

	source := fetchOne(t, e, "post-1")
	records := translation.LockRecords([]*translation.Metadata{md})
	if translation.History(source)[0].Status != translation.StatusCommitted {
		t.Fatalf("source history = %+v", translation.History(source))
	}
	if records[0].Active {
		t.Fatal("a committed record must not lock")
	}
}

func TestCommitRequiresCompleted(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.svc.Commit(ctx, md.Key); !IsPrecondition(err) {
		t.Fatalf("got %v, want a precondition failure from NEW", err)
	}
}

func TestHandleEventUnknownKindIsNoOp(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	previews := e.vendor.CallCount("GetJobPreview")

	got, err := e.svc.HandleEvent(ctx, Event{Kind: EventKind("vendor.surprise"), TranslationKey: md.Key})
	if err != nil {
		t.Fatalf("unhandled event: %v", err)
	}
	if got.Status != md.Status {
		t.Fatalf("status changed to %s", got.Status)
	}
	if e.vendor.CallCount("GetJobPreview") != previews {
		t.Fatal("an unhandled event must not trigger a refresh")
	}
}

func TestHandleEventProjectCancelled(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	md, err = e.svc.HandleEvent(ctx, Event{Kind: EventProjectCancelled, TranslationKey: md.Key})
	if err != nil {
		t.Fatalf("cancel event: %v", err)
	}
	if md.Status != translation.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", md.Status)
	}
	missing(t, e, md.Target("fr").WorkingDocumentID)

	source := fetchOne(t, e, "post-1")
	if translation.History(source)[0].Status != translation.StatusCancelled {
		t.Fatalf("source history = %+v", translation.History(source))
	}
}

func TestHandleEventJobCancelledKeepsActiveSiblings(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr", "de"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	frJob := md.Target("fr").Jobs[0].ID
	deJob := md.Target("de").Jobs[0].ID

	md, err = e.svc.HandleEvent(ctx, Event{Kind: EventJobCancelled, TranslationKey: md.Key, JobID: frJob})
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if md.Status.Terminal() {
		t.Fatalf("record went terminal with an active job left: %s", md.Status)
	}

	md, err = e.svc.HandleEvent(ctx, Event{Kind: EventJobCancelled, TranslationKey: md.Key, JobID: deJob})
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if md.Status != translation.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED once every job is cancelled", md.Status)
	}
}

func TestRefreshSkipsUnrefreshableStatuses(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md := &translation.Metadata{
		Key:    "manual-key",
		Status: translation.StatusCreating,
		Source: translation.DocumentRef{ID: "post-1", Type: "post"},
		Paths:  []document.Path{document.NewPath(document.Field("title"))},
	}
	if err := e.svc.Store().Create(ctx, md); err != nil {
		t.Fatalf("create record: %v", err)
	}

	got, err := e.svc.Refresh(ctx, "manual-key")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Status != translation.StatusCreating {
		t.Fatalf("status = %s, want untouched CREATING", got.Status)
	}
	if e.vendor.CallCount("GetJobPreview") != 0 {
		t.Fatal("unrefreshable records must not reach the vendor")
	}
}

func TestRefreshSourceCoversEveryRecord(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	md, err := e.svc.Create(ctx, titleBodyRequest("fr"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	records, err := e.svc.RefreshSource(ctx, "post-1")
	if err != nil {
		t.Fatalf("refresh source: %v", err)
	}
	if len(records) != 1 || records[0].Key != md.Key {
		t.Fatalf("records = %+v", records)
	}
}
