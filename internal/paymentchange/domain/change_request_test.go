package domain

import (
	"errors"
	"testing"
	"time"
)

func newRequest(status RequestStatus) *ChangeRequest {
	return &ChangeRequest{
		RequestID:       "PMC-1",
		ApplicationID:   "APP-1",
		TenantID:        "T-1",
		CurrentMethodID: "PM-CASH",
		TargetMethodID:  "PM-INSTALLMENT",
		Status:          status,
	}
}

func TestChangeRequestHappyPath(t *testing.T) {
	request := newRequest(RequestStatusPendingDocuments)

	if err := request.SubmitDocuments(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := request.StartReview(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := request.Approve("REV-1", "ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := request.MarkExecuted([]string{"PH-1"}, []string{"PH-9"}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Status != RequestStatusExecuted || request.ExecutedAt == nil {
		t.Fatalf("expected EXECUTED, got %s", request.Status)
	}
	if len(request.SupersededPhases) == 0 || len(request.CreatedPhases) == 0 {
		t.Fatal("executed request must snapshot superseded and created phases")
	}
}

func TestChangeRequestTransitionGuards(t *testing.T) {
	request := newRequest(RequestStatusPendingDocuments)
	if err := request.StartReview(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := request.Approve("REV-1", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := request.MarkExecuted(nil, nil, time.Now()); !errors.Is(err, ErrRequestNotExecutable) {
		t.Fatalf("expected ErrRequestNotExecutable, got %v", err)
	}
}

func TestChangeRequestRejectFromAnyNonTerminal(t *testing.T) {
	for _, status := range []RequestStatus{
		RequestStatusPendingDocuments,
		RequestStatusDocumentsSubmitted,
		RequestStatusUnderReview,
		RequestStatusApproved,
	} {
		request := newRequest(status)
		if err := request.Reject("REV-1", "missing docs"); err != nil {
			t.Fatalf("status %s: unexpected error: %v", status, err)
		}
		if request.Status != RequestStatusRejected {
			t.Fatalf("status %s: expected REJECTED, got %s", status, request.Status)
		}
	}

	executed := newRequest(RequestStatusExecuted)
	if err := executed.Reject("REV-1", ""); !errors.Is(err, ErrRequestTerminal) {
		t.Fatalf("expected ErrRequestTerminal, got %v", err)
	}
}

func TestChangeRequestCancel(t *testing.T) {
	request := newRequest(RequestStatusUnderReview)
	if err := request.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Status != RequestStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", request.Status)
	}
	if err := request.Cancel(); !errors.Is(err, ErrRequestTerminal) {
		t.Fatalf("expected ErrRequestTerminal, got %v", err)
	}
}
