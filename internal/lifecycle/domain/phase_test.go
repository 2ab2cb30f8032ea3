package domain

import (
	"errors"
	"testing"
)

func newTestPhase(order int, status PhaseStatus) *Phase {
	return &Phase{
		PhaseID:          "PH-1",
		ApplicationID:    "APP-1",
		TenantID:         "T-1",
		Order:            order,
		Category:         PhaseCategoryGate,
		Status:           status,
		RequiresPrevious: true,
	}
}

func TestPhaseActivateFirstPhase(t *testing.T) {
	phase := newTestPhase(0, PhaseStatusPending)
	if err := phase.Activate(nil); err != nil {
		t.Fatalf("first phase should activate without predecessor: %v", err)
	}
	if phase.Status != PhaseStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", phase.Status)
	}
	if phase.ActivatedAt == nil {
		t.Fatal("expected activation timestamp")
	}
}

func TestPhaseActivateRequiresPendingStatus(t *testing.T) {
	for _, status := range []PhaseStatus{PhaseStatusInProgress, PhaseStatusCompleted, PhaseStatusSkipped, PhaseStatusSuperseded} {
		phase := newTestPhase(0, status)
		if err := phase.Activate(nil); !errors.Is(err, ErrPhaseNotPending) {
			t.Fatalf("status %s: expected ErrPhaseNotPending, got %v", status, err)
		}
	}
}

func TestPhaseActivateRequiresPreviousTerminal(t *testing.T) {
	phase := newTestPhase(1, PhaseStatusPending)

	prev := newTestPhase(0, PhaseStatusInProgress)
	if err := phase.Activate(prev); !errors.Is(err, ErrPreviousPhaseIncomplete) {
		t.Fatalf("expected ErrPreviousPhaseIncomplete, got %v", err)
	}

	prev.Status = PhaseStatusCompleted
	if err := phase.Activate(prev); err != nil {
		t.Fatalf("completed predecessor should unblock activation: %v", err)
	}
}

func TestPhaseActivateAcceptsSupersededPrevious(t *testing.T) {
	phase := newTestPhase(2, PhaseStatusPending)
	prev := newTestPhase(1, PhaseStatusSuperseded)
	if err := phase.Activate(prev); err != nil {
		t.Fatalf("superseded predecessor must gate like completed: %v", err)
	}
}

func TestPhaseActivateSkipsGateWhenNotRequired(t *testing.T) {
	phase := newTestPhase(3, PhaseStatusPending)
	phase.RequiresPrevious = false
	if err := phase.Activate(nil); err != nil {
		t.Fatalf("phase without previous requirement should activate: %v", err)
	}
}

func TestPhaseCompleteOnlyFromInProgress(t *testing.T) {
	phase := newTestPhase(0, PhaseStatusPending)
	if err := phase.Complete(); !errors.Is(err, ErrPhaseNotActive) {
		t.Fatalf("expected ErrPhaseNotActive, got %v", err)
	}

	phase.Status = PhaseStatusInProgress
	if err := phase.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phase.Status != PhaseStatusCompleted || phase.CompletedAt == nil {
		t.Fatalf("expected COMPLETED with timestamp, got %s", phase.Status)
	}
}

func TestPhaseSkipOnlyFromPending(t *testing.T) {
	phase := newTestPhase(0, PhaseStatusInProgress)
	if err := phase.Skip(); !errors.Is(err, ErrPhaseNotPending) {
		t.Fatalf("expected ErrPhaseNotPending, got %v", err)
	}

	phase.Status = PhaseStatusPending
	if err := phase.Skip(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phase.Status != PhaseStatusSkipped {
		t.Fatalf("expected SKIPPED, got %s", phase.Status)
	}
}

func TestPhaseSupersedeRejectsTerminal(t *testing.T) {
	phase := newTestPhase(0, PhaseStatusCompleted)
	if err := phase.Supersede(); !errors.Is(err, ErrPhaseTerminal) {
		t.Fatalf("expected ErrPhaseTerminal, got %v", err)
	}

	phase.Status = PhaseStatusInProgress
	if err := phase.Supersede(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phase.Status != PhaseStatusSuperseded {
		t.Fatalf("expected SUPERSEDED, got %s", phase.Status)
	}
}

func TestActivePhaseFindsInProgress(t *testing.T) {
	doc := newTestPhase(1, PhaseStatusInProgress)
	doc.PhaseID = "PH-DOC"
	doc.Category = PhaseCategoryDocumentation
	oldPayment := newTestPhase(2, PhaseStatusSuperseded)
	oldPayment.PhaseID = "PH-OLD"
	oldPayment.Category = PhaseCategoryPayment
	newPayment := newTestPhase(3, PhaseStatusPending)
	newPayment.PhaseID = "PH-NEW"
	newPayment.Category = PhaseCategoryPayment

	// 前序已被取代，单看激活前置条件新阶段是可激活的
	if err := newPayment.CanActivate(oldPayment); err != nil {
		t.Fatalf("superseded predecessor must gate like completed: %v", err)
	}

	// 但文档阶段仍在进行中，必须先被找到，阻止立刻激活
	active := ActivePhase([]*Phase{doc, oldPayment, newPayment})
	if active == nil || active.PhaseID != "PH-DOC" {
		t.Fatalf("expected in-progress documentation phase, got %+v", active)
	}

	if err := doc.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active := ActivePhase([]*Phase{doc, oldPayment, newPayment}); active != nil {
		t.Fatalf("no phase should be active, got %s", active.PhaseID)
	}
}

func TestPhaseDetailRoundTrip(t *testing.T) {
	phase := newTestPhase(0, PhaseStatusPending)
	phase.Category = PhaseCategoryDocumentation

	detail := DocumentationDetail{
		CurrentStageOrder: 1,
		Stages: []StageDefinition{
			{Order: 1, Name: "Lender review", Organization: OrganizationLender, OnRejection: RejectionCascadeBack, SLAHours: 48},
		},
		Documents: []DocumentDefinition{
			{DocumentType: "INCOME_PROOF", RequiredUploader: OrganizationLender},
		},
	}
	if err := phase.SetDetail(&detail); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := phase.DocumentationDetail()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CurrentStageOrder != 1 || len(got.Stages) != 1 || got.Stages[0].Organization != OrganizationLender {
		t.Fatalf("snapshot did not round-trip: %+v", got)
	}

	if _, err := phase.PaymentDetail(); !errors.Is(err, ErrWrongPhaseCategory) {
		t.Fatalf("expected ErrWrongPhaseCategory, got %v", err)
	}
}
