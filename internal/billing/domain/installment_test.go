package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInstallmentPay(t *testing.T) {
	installment := &Installment{
		InstallmentID: "INS-1",
		Amount:        decimal.NewFromFloat(1050.25),
		Principal:     decimal.NewFromInt(1000),
		Interest:      decimal.NewFromFloat(50.25),
		Status:        InstallmentStatusPending,
	}

	if err := installment.Pay(decimal.NewFromInt(1000), "PAY-1", time.Now()); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	if err := installment.Pay(decimal.NewFromFloat(1050.25), "PAY-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if installment.Status != InstallmentStatusPaid || installment.PaidAt == nil {
		t.Fatalf("expected PAID with timestamp, got %s", installment.Status)
	}

	if err := installment.Pay(installment.Amount, "PAY-2", time.Now()); !errors.Is(err, ErrInstallmentNotPayable) {
		t.Fatalf("double payment must fail, got %v", err)
	}
}

func TestInstallmentWaiveAndOverdue(t *testing.T) {
	installment := &Installment{InstallmentID: "INS-1", Amount: decimal.NewFromInt(100), Status: InstallmentStatusOverdue}
	if err := installment.Waive("ADMIN-1"); err != nil {
		t.Fatalf("overdue installment should be waivable: %v", err)
	}
	if installment.Status != InstallmentStatusWaived || installment.WaivedBy != "ADMIN-1" {
		t.Fatalf("unexpected state: %s / %s", installment.Status, installment.WaivedBy)
	}
}

func TestAllSettled(t *testing.T) {
	installments := []*Installment{
		{Status: InstallmentStatusPaid},
		{Status: InstallmentStatusWaived},
		{Status: InstallmentStatusPending},
	}
	if AllSettled(installments) {
		t.Fatal("pending installment must block settlement")
	}
	installments[2].Status = InstallmentStatusPaid
	if !AllSettled(installments) {
		t.Fatal("paid+waived installments should settle the schedule")
	}
	if AllSettled(nil) {
		t.Fatal("empty schedule is not settled")
	}
}

func TestPaidPrincipal(t *testing.T) {
	installments := []*Installment{
		{Status: InstallmentStatusPaid, Principal: decimal.NewFromInt(1000)},
		{Status: InstallmentStatusWaived, Principal: decimal.NewFromInt(500)},
		{Status: InstallmentStatusPending, Principal: decimal.NewFromInt(700)},
	}
	got := PaidPrincipal(installments)
	if !got.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected 1500, got %s", got)
	}
}
