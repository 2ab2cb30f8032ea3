package domain

import (
	"testing"
	"time"
)

func buildPipeline() []*StageProgress {
	stages := []*StageProgress{
		{StageID: "ST-1", PhaseID: "PH-1", Order: 1, Organization: OrganizationLender, WaitForAllDocuments: true, OnRejection: RejectionCascadeBack, SLAHours: 48},
		{StageID: "ST-2", PhaseID: "PH-1", Order: 2, Organization: OrganizationLegal, WaitForAllDocuments: true, OnRejection: RejectionCascadeBack, SLAHours: 72},
		{StageID: "ST-3", PhaseID: "PH-1", Order: 3, Organization: OrganizationPlatform, WaitForAllDocuments: false, OnRejection: RejectionRestartCurrent},
	}
	stages[0].Activate(time.Now())
	return stages
}

func buildDocuments() []*Document {
	return []*Document{
		{DocumentID: "DOC-1", PhaseID: "PH-1", DocumentType: "INCOME_PROOF", RequiredUploader: OrganizationLender},
		{DocumentID: "DOC-2", PhaseID: "PH-1", DocumentType: "CREDIT_REPORT", RequiredUploader: OrganizationLender},
		{DocumentID: "DOC-3", PhaseID: "PH-1", DocumentType: "TITLE_DEED", RequiredUploader: OrganizationLegal},
	}
}

func TestScopedDocumentsMatchesStageOrganization(t *testing.T) {
	stages := buildPipeline()
	docs := buildDocuments()

	scoped := ScopedDocuments(stages[0], docs)
	if len(scoped) != 2 {
		t.Fatalf("lender stage should own 2 documents, got %d", len(scoped))
	}
	for _, doc := range scoped {
		if doc.RequiredUploader != OrganizationLender {
			t.Fatalf("unexpected document in scope: %s", doc.DocumentID)
		}
	}

	docs[0].Skipped = true
	if got := len(ScopedDocuments(stages[0], docs)); got != 1 {
		t.Fatalf("skipped document must leave the scope, got %d", got)
	}
}

func TestShouldAutoApprove(t *testing.T) {
	stages := buildPipeline()
	docs := buildDocuments()

	if !ShouldAutoApprove(stages[0], docs[0]) {
		t.Fatal("lender document uploaded during lender stage must auto-approve")
	}
	if ShouldAutoApprove(stages[0], docs[2]) {
		t.Fatal("legal document must not auto-approve during lender stage")
	}
	if ShouldAutoApprove(nil, docs[0]) {
		t.Fatal("no active stage means no auto-approval")
	}
}

func TestStageSatisfiedWaitForAll(t *testing.T) {
	stages := buildPipeline()
	docs := buildDocuments()

	if StageSatisfied(stages[0], docs) {
		t.Fatal("stage with pending documents must not be satisfied")
	}

	docs[0].Status = DocumentStatusApproved
	if StageSatisfied(stages[0], docs) {
		t.Fatal("wait_for_all_documents requires every scoped document approved")
	}

	docs[1].Status = DocumentStatusApproved
	if !StageSatisfied(stages[0], docs) {
		t.Fatal("stage should be satisfied once all scoped documents approved")
	}
}

func TestStageSatisfiedSingleApproval(t *testing.T) {
	stage := &StageProgress{Order: 1, Organization: OrganizationLender, WaitForAllDocuments: false}
	docs := buildDocuments()

	if StageSatisfied(stage, docs) {
		t.Fatal("no approvals yet")
	}
	docs[1].Status = DocumentStatusApproved
	if !StageSatisfied(stage, docs) {
		t.Fatal("a single approved document should satisfy the stage")
	}
}

func TestAdvanceActivatesSuccessorAndStartsSLA(t *testing.T) {
	stages := buildPipeline()
	now := time.Now()

	pointer := Advance(stages, stages[0], now)
	if pointer != 2 {
		t.Fatalf("expected pointer 2, got %d", pointer)
	}
	if stages[0].Status != StageStatusCompleted {
		t.Fatalf("expected completed stage, got %s", stages[0].Status)
	}
	if stages[1].Status != StageStatusInProgress {
		t.Fatalf("expected successor in progress, got %s", stages[1].Status)
	}
	if stages[1].ReviewDeadline == nil {
		t.Fatal("successor activation must start the SLA clock")
	}
	want := now.Add(72 * time.Hour)
	if !stages[1].ReviewDeadline.Equal(want) {
		t.Fatalf("expected deadline %s, got %s", want, stages[1].ReviewDeadline)
	}
}

func TestAdvancePastLastStageClearsPointer(t *testing.T) {
	stages := buildPipeline()
	now := time.Now()
	Advance(stages, stages[0], now)
	Advance(stages, stages[1], now)
	pointer := Advance(stages, stages[2], now)

	if pointer != 0 {
		t.Fatalf("expected cleared pointer, got %d", pointer)
	}
	if !PipelineCompleted(stages) {
		t.Fatal("all stages completed, pipeline should report done")
	}
}

func TestApplyRejectionCascadeBack(t *testing.T) {
	stages := buildPipeline()
	docs := buildDocuments()
	now := time.Now()

	// 推进到第 2 阶段后从那里驳回
	Advance(stages, stages[0], now)
	docs[0].Status = DocumentStatusApproved
	docs[2].Status = DocumentStatusUploaded

	pointer := ApplyRejection(stages, docs, stages[1], now)
	if pointer != 1 {
		t.Fatalf("cascade back must point at stage 1, got %d", pointer)
	}
	if stages[0].Status != StageStatusInProgress {
		t.Fatalf("stage 1 must be re-activated, got %s", stages[0].Status)
	}
	for _, stage := range stages[1:] {
		if stage.Status != StageStatusPending {
			t.Fatalf("stage %d must reset to pending, got %s", stage.Order, stage.Status)
		}
	}
	for _, doc := range docs {
		if doc.Status != DocumentStatusPending {
			t.Fatalf("document %s must reset to pending, got %s", doc.DocumentID, doc.Status)
		}
	}
}

func TestApplyRejectionRestartCurrent(t *testing.T) {
	stages := buildPipeline()
	stages[1].OnRejection = RejectionRestartCurrent
	docs := buildDocuments()
	now := time.Now()

	Advance(stages, stages[0], now)
	pointer := ApplyRejection(stages, docs, stages[1], now)

	if pointer != 2 {
		t.Fatalf("restart current must keep pointer at 2, got %d", pointer)
	}
	if stages[0].Status != StageStatusCompleted {
		t.Fatalf("earlier stage must keep its completion, got %s", stages[0].Status)
	}
	if stages[1].Status != StageStatusInProgress {
		t.Fatalf("active stage must restart in progress, got %s", stages[1].Status)
	}
}

func TestApplyRejectionRestartFromStage(t *testing.T) {
	stages := buildPipeline()
	stages[2].OnRejection = RejectionRestartFromStage
	stages[2].RestartFromOrder = 2
	docs := buildDocuments()
	now := time.Now()

	Advance(stages, stages[0], now)
	Advance(stages, stages[1], now)

	pointer := ApplyRejection(stages, docs, stages[2], now)
	if pointer != 2 {
		t.Fatalf("expected pointer 2, got %d", pointer)
	}
	if stages[0].Status != StageStatusCompleted {
		t.Fatalf("stage below restart point must be untouched, got %s", stages[0].Status)
	}
	if stages[1].Status != StageStatusInProgress {
		t.Fatalf("restart stage must be in progress, got %s", stages[1].Status)
	}
	if stages[2].Status != StageStatusPending {
		t.Fatalf("stage above restart point must reset, got %s", stages[2].Status)
	}
}
