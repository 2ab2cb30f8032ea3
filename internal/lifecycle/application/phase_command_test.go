package application

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestExpandPaymentPhasesSplitsPrincipal(t *testing.T) {
	app := &domain.FinanceApplication{ApplicationID: "APP-1", TenantID: "t1"}
	templates := []domain.PaymentPhaseTemplate{
		{Name: "首付", Share: dec("30"), InstallmentCount: 1},
		{Name: "按揭", Share: dec("70"), InstallmentCount: 240, IntervalDays: 30, AnnualRate: dec("4.5")},
	}

	phases, err := ExpandPaymentPhases(app, templates, dec("1000000.00"), 2)
	if err != nil {
		t.Fatalf("ExpandPaymentPhases: %v", err)
	}
	if len(phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(phases))
	}

	sum := decimal.Zero
	for i, phase := range phases {
		if phase.Order != 2+i {
			t.Fatalf("phase %d: order = %d, want %d", i, phase.Order, 2+i)
		}
		if phase.Category != domain.PhaseCategoryPayment {
			t.Fatalf("phase %d: category = %s", i, phase.Category)
		}
		if phase.Status != domain.PhaseStatusPending {
			t.Fatalf("phase %d: status = %s", i, phase.Status)
		}
		detail, err := phase.PaymentDetail()
		if err != nil {
			t.Fatalf("phase %d: PaymentDetail: %v", i, err)
		}
		sum = sum.Add(detail.Principal)
	}
	if !sum.Equal(dec("1000000.00")) {
		t.Fatalf("principal sum = %s, want 1000000.00", sum)
	}

	first, _ := phases[0].PaymentDetail()
	if !first.Principal.Equal(dec("300000.00")) {
		t.Fatalf("down payment principal = %s, want 300000.00", first.Principal)
	}
}

func TestExpandPaymentPhasesLastTakesRemainder(t *testing.T) {
	app := &domain.FinanceApplication{ApplicationID: "APP-1", TenantID: "t1"}
	templates := []domain.PaymentPhaseTemplate{
		{Name: "a", Share: dec("33.33"), InstallmentCount: 1},
		{Name: "b", Share: dec("33.33"), InstallmentCount: 1},
		{Name: "c", Share: dec("33.34"), InstallmentCount: 1},
	}

	phases, err := ExpandPaymentPhases(app, templates, dec("100.01"), 0)
	if err != nil {
		t.Fatalf("ExpandPaymentPhases: %v", err)
	}
	sum := decimal.Zero
	for _, phase := range phases {
		detail, _ := phase.PaymentDetail()
		sum = sum.Add(detail.Principal)
	}
	if !sum.Equal(dec("100.01")) {
		t.Fatalf("principal sum = %s, want 100.01", sum)
	}
}

func TestExpandPaymentPhasesRejectsInvalidTemplate(t *testing.T) {
	app := &domain.FinanceApplication{ApplicationID: "APP-1", TenantID: "t1"}

	_, err := ExpandPaymentPhases(app, []domain.PaymentPhaseTemplate{
		{Name: "bad", Share: dec("100"), InstallmentCount: 0},
	}, dec("1000"), 0)
	if !errors.Is(err, domain.ErrInvalidPhaseTemplate) {
		t.Fatalf("zero installment count: err = %v, want ErrInvalidPhaseTemplate", err)
	}

	_, err = ExpandPaymentPhases(app, []domain.PaymentPhaseTemplate{
		{Name: "zero", Share: dec("0"), InstallmentCount: 1},
		{Name: "all", Share: dec("100"), InstallmentCount: 1},
	}, dec("1000"), 0)
	if !errors.Is(err, domain.ErrInvalidPhaseTemplate) {
		t.Fatalf("zero share: err = %v, want ErrInvalidPhaseTemplate", err)
	}
}

func TestValidateStages(t *testing.T) {
	ok := []domain.StageDefinition{
		{Order: 1, Name: "dev", Organization: domain.OrganizationDeveloper},
		{Order: 2, Name: "lender", Organization: domain.OrganizationLender},
	}
	if err := validateStages(ok); err != nil {
		t.Fatalf("contiguous stages: %v", err)
	}

	cases := map[string][]domain.StageDefinition{
		"empty":          {},
		"starts at zero": {{Order: 0}},
		"gap":            {{Order: 1}, {Order: 3}},
		"duplicate":      {{Order: 1}, {Order: 1}},
	}
	for name, stages := range cases {
		if err := validateStages(stages); !errors.Is(err, domain.ErrInvalidPhaseTemplate) {
			t.Fatalf("%s: err = %v, want ErrInvalidPhaseTemplate", name, err)
		}
	}
}

func TestScoreAnswers(t *testing.T) {
	detail := &domain.QuestionnaireDetail{
		Fields: []domain.FieldDefinition{
			{Key: "income", Required: true, Weight: dec("40")},
			{Key: "employment", Required: true, Weight: dec("30")},
			{Key: "guarantor", Required: false, Weight: dec("30")},
		},
		PassScore: dec("60"),
	}

	score, err := scoreAnswers(detail, map[string]any{
		"income":     "85000",
		"employment": "permanent",
	})
	if err != nil {
		t.Fatalf("scoreAnswers: %v", err)
	}
	if !score.Equal(dec("70")) {
		t.Fatalf("score = %s, want 70", score)
	}
}

func TestScoreAnswersMissingRequired(t *testing.T) {
	detail := &domain.QuestionnaireDetail{
		Fields: []domain.FieldDefinition{
			{Key: "income", Required: true, Weight: dec("40")},
		},
	}

	if _, err := scoreAnswers(detail, map[string]any{}); !errors.Is(err, domain.ErrInvalidAnswerSet) {
		t.Fatalf("missing answer: err = %v, want ErrInvalidAnswerSet", err)
	}
	if _, err := scoreAnswers(detail, map[string]any{"income": ""}); !errors.Is(err, domain.ErrInvalidAnswerSet) {
		t.Fatalf("empty answer: err = %v, want ErrInvalidAnswerSet", err)
	}
}

func TestScoreAnswersIgnoresSkippedFields(t *testing.T) {
	detail := &domain.QuestionnaireDetail{
		Fields: []domain.FieldDefinition{
			{Key: "income", Required: true, Weight: dec("50")},
			{Key: "spouse_income", Required: true, Weight: dec("50")},
		},
		SkippedKeys: []string{"spouse_income"},
	}

	score, err := scoreAnswers(detail, map[string]any{"income": "90000"})
	if err != nil {
		t.Fatalf("scoreAnswers: %v", err)
	}
	if !score.Equal(dec("50")) {
		t.Fatalf("score = %s, want 50", score)
	}
}
