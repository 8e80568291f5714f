package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/diffreview"
	"inkwell/internal/models"
)

type docFixture struct {
	projects *fakeProjectRepo
	docs     *fakeDocRepo
	waitRepo *fakeWaitRepo
	waitSvc  *WaitAreaService
	reviews  *ReviewService
	svc      *DocumentService
	project  *models.Project
	doc      *models.Document
}

func newDocFixture(t *testing.T, provider *stubProvider) *docFixture {
	t.Helper()

	projects := newFakeProjectRepo()
	docs := newFakeDocRepo()
	waitRepo := newFakeWaitRepo()
	registry := stubRegistry(provider)
	waitSvc := NewWaitAreaService(waitRepo, fakeTxManager{}, registry, "stub-model", testLogger())
	reviews := NewReviewService(testLogger())
	templates := testTemplates()

	svc := NewDocumentService(projects, docs, waitSvc, reviews, registry, templates, "stub-model", testLogger())

	project := &models.Project{
		UserID:     "u1",
		Name:       "demo",
		Vision:     "an online shop",
		TemplateID: "preset-coding-standard",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := projects.Create(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	doc := &models.Document{
		ProjectID: project.ID,
		NodeID:    "node-roles",
		Name:      "02-用户与角色体系.md",
		Status:    models.DocStatusPending,
		Versions:  []models.DocumentVersion{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	return &docFixture{
		projects: projects,
		docs:     docs,
		waitRepo: waitRepo,
		waitSvc:  waitSvc,
		reviews:  reviews,
		svc:      svc,
		project:  project,
		doc:      doc,
	}
}

func drain(t *testing.T, events <-chan DocEvent) (string, *DocEvent) {
	t.Helper()
	var b strings.Builder
	var final *DocEvent
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		if ev.Document != nil {
			final = &ev
			continue
		}
		b.WriteString(ev.Text)
	}
	if final == nil {
		t.Fatal("no final event")
	}
	return b.String(), final
}

func TestGenerateStreamsAndPersists(t *testing.T) {
	provider := &stubProvider{
		chunks:   []string{"# 业务流程\n\n", "订单状态：待支付、已支付\n"},
		complete: `{}`,
	}
	f := newDocFixture(t, provider)

	events, err := f.svc.Generate(context.Background(), f.doc.ID, "u1", "需要支持退款", "stub-model")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	text, final := drain(t, events)
	f.waitSvc.Wait()

	want := "# 业务流程\n\n订单状态：待支付、已支付\n"
	if text != want {
		t.Errorf("streamed text = %q, want %q", text, want)
	}
	if final.Document.Status != models.DocStatusCompleted {
		t.Errorf("status = %q, want completed", final.Document.Status)
	}
	if len(final.Document.Versions) != 1 {
		t.Fatalf("versions = %d, want 1", len(final.Document.Versions))
	}
	if final.Document.Versions[0].Source != models.VersionSourceAI {
		t.Errorf("version source = %q, want ai", final.Document.Versions[0].Source)
	}
	if final.Document.UserInput != "需要支持退款" {
		t.Errorf("user input = %q", final.Document.UserInput)
	}
	if final.Usage == nil || final.Usage.StopReason != "end_turn" {
		t.Errorf("usage = %+v", final.Usage)
	}

	// node-roles feeds an auto-sync waiting area, so generation
	// triggers extraction over the generated text
	states, _ := f.waitRepo.ListStates(context.Background(), f.project.ID)
	if len(states) != 1 || states[0].Name != "订单状态" {
		t.Errorf("extracted states = %+v", states)
	}

	stored, err := f.svc.GetDocument(context.Background(), f.doc.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Content != want {
		t.Errorf("persisted content = %q", stored.Content)
	}
}

func TestGenerateRejectsConcurrent(t *testing.T) {
	f := newDocFixture(t, &stubProvider{chunks: []string{"x"}, complete: `{}`})

	f.doc.Status = models.DocStatusGenerating
	if err := f.docs.Update(context.Background(), f.doc); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Generate(context.Background(), f.doc.ID, "u1", "", "")
	if err == nil {
		t.Fatal("expected conflict error")
	}
}

func TestFollowUpOpensReviewSession(t *testing.T) {
	f := newDocFixture(t, &stubProvider{chunks: []string{"line one\n", "line CHANGED\n"}, complete: `{}`})

	f.doc.Content = "line one\nline two\n"
	f.doc.Status = models.DocStatusCompleted
	if err := f.docs.Update(context.Background(), f.doc); err != nil {
		t.Fatal(err)
	}

	events, err := f.svc.FollowUp(context.Background(), f.doc.ID, "u1", "change line two", "")
	if err != nil {
		t.Fatalf("FollowUp: %v", err)
	}
	_, final := drain(t, events)

	if final.Session == nil {
		t.Fatal("no review session on final event")
	}
	session, err := f.reviews.Get(final.Session.ID, "u1")
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if len(session.Review.Hunks) == 0 {
		t.Fatal("review has no hunks")
	}

	// Document untouched until finalize
	doc, _ := f.svc.GetDocument(context.Background(), f.doc.ID, "u1")
	if doc.Content != "line one\nline two\n" {
		t.Errorf("content changed before finalize: %q", doc.Content)
	}

	if _, err := f.reviews.AcceptAll(session.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	doc, err = f.svc.FinalizeReview(context.Background(), session.ID, "u1")
	if err != nil {
		t.Fatalf("FinalizeReview: %v", err)
	}
	if doc.Content != "line one\nline CHANGED\n" {
		t.Errorf("finalized content = %q", doc.Content)
	}
	if doc.Versions[len(doc.Versions)-1].Source != models.VersionSourceManual {
		t.Error("finalize should record a manual version")
	}
	if _, err := f.reviews.Get(session.ID, "u1"); err == nil {
		t.Error("session should be discarded after finalize")
	}
}

func TestFollowUpRequiresContent(t *testing.T) {
	f := newDocFixture(t, &stubProvider{})

	_, err := f.svc.FollowUp(context.Background(), f.doc.ID, "u1", "edit it", "")
	if err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestSaveManualCapsVersions(t *testing.T) {
	f := newDocFixture(t, &stubProvider{})

	var doc *models.Document
	var err error
	for i := 0; i < config.MaxDocumentVersions+5; i++ {
		doc, err = f.svc.SaveManual(context.Background(), f.doc.ID, "u1", strings.Repeat("x", i+1))
		if err != nil {
			t.Fatal(err)
		}
	}

	if len(doc.Versions) != config.MaxDocumentVersions {
		t.Fatalf("versions = %d, want %d", len(doc.Versions), config.MaxDocumentVersions)
	}
	if doc.CurrentVersion != config.MaxDocumentVersions-1 {
		t.Errorf("current version = %d", doc.CurrentVersion)
	}
	// Oldest snapshots dropped, newest kept
	last := doc.Versions[len(doc.Versions)-1]
	if len(last.Content) != config.MaxDocumentVersions+5 {
		t.Errorf("newest snapshot length = %d", len(last.Content))
	}
}

func TestSwitchVersion(t *testing.T) {
	f := newDocFixture(t, &stubProvider{})

	if _, err := f.svc.SaveManual(context.Background(), f.doc.ID, "u1", "first"); err != nil {
		t.Fatal(err)
	}
	doc, err := f.svc.SaveManual(context.Background(), f.doc.ID, "u1", "second")
	if err != nil {
		t.Fatal(err)
	}

	doc, err = f.svc.SwitchVersion(context.Background(), doc.ID, "u1", doc.Versions[0].ID)
	if err != nil {
		t.Fatalf("SwitchVersion: %v", err)
	}
	if doc.Content != "first" {
		t.Errorf("content = %q, want first", doc.Content)
	}
	if doc.CurrentVersion != 0 {
		t.Errorf("current version = %d, want 0", doc.CurrentVersion)
	}
}

func TestInjectRewritesStates(t *testing.T) {
	f := newDocFixture(t, &stubProvider{})

	f.doc.Content = "## 状态\n\n订单状态：旧值\n"
	if err := f.docs.Update(context.Background(), f.doc); err != nil {
		t.Fatal(err)
	}
	f.waitRepo.states[f.project.ID] = []models.StateRecord{
		{ID: "s1", Name: "订单状态", Values: []string{"待支付", "已支付"}},
	}

	result, err := f.svc.Inject(context.Background(), f.doc.ID, "u1")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if result.NeedsAssistedMerge {
		t.Fatal("unexpected assisted merge")
	}
	if result.Matched != 1 {
		t.Fatalf("matched = %d, want 1", result.Matched)
	}
	if !strings.Contains(result.Document.Content, "订单状态：待支付、已支付") {
		t.Errorf("content = %q", result.Document.Content)
	}
}

func TestInjectNeedsAssistedMerge(t *testing.T) {
	f := newDocFixture(t, &stubProvider{})

	f.doc.Content = "completely unrelated text\n"
	if err := f.docs.Update(context.Background(), f.doc); err != nil {
		t.Fatal(err)
	}
	f.waitRepo.states[f.project.ID] = []models.StateRecord{
		{ID: "s1", Name: "订单状态", Values: []string{"待支付"}},
	}

	result, err := f.svc.Inject(context.Background(), f.doc.ID, "u1")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if !result.NeedsAssistedMerge {
		t.Fatal("expected assisted merge flag")
	}
	if !strings.Contains(result.Prompt, "订单状态") {
		t.Error("prompt should carry the records")
	}
}

func TestReviewSessionStatusFlow(t *testing.T) {
	reviews := NewReviewService(testLogger())
	session := reviews.Open("doc-1", "u1", "a\nb\n", "a\nc\n")

	if len(session.Review.Hunks) != 1 {
		t.Fatalf("hunks = %d, want 1", len(session.Review.Hunks))
	}
	hunkID := session.Review.Hunks[0].ID

	for _, status := range []diffreview.HunkStatus{
		diffreview.StatusAccepted,
		diffreview.StatusRejected,
		diffreview.StatusPending,
		diffreview.StatusAccepted,
	} {
		if _, err := reviews.SetStatus(session.ID, "u1", hunkID, status); err != nil {
			t.Fatalf("SetStatus(%s): %v", status, err)
		}
	}
	if _, err := reviews.SetStatus(session.ID, "u1", hunkID, "bogus"); err == nil {
		t.Error("bogus status should be rejected")
	}
	if _, err := reviews.SetStatus(session.ID, "other-user", hunkID, diffreview.StatusAccepted); err == nil {
		t.Error("other users must not see the session")
	}

	decided, accepted, total := session.Review.Progress()
	if decided != 1 || accepted != 1 || total != 1 {
		t.Errorf("progress = %d/%d/%d", decided, accepted, total)
	}
}
