package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAmortizeSinglePayment(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lines := Amortize(decimal.NewFromInt(500000), decimal.NewFromInt(12), 1, start, 30, 0)

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].Amount.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("expected amount 500000, got %s", lines[0].Amount)
	}
	if !lines[0].Interest.IsZero() {
		t.Fatalf("expected zero interest, got %s", lines[0].Interest)
	}
	want := start.AddDate(0, 0, 30)
	if !lines[0].DueDate.Equal(want) {
		t.Fatalf("expected due date %s, got %s", want, lines[0].DueDate)
	}
}

func TestAmortizeZeroRate(t *testing.T) {
	principal := decimal.NewFromInt(120000)
	lines := Amortize(principal, decimal.Zero, 12, time.Now(), 30, 0)

	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(lines))
	}
	sum := decimal.Zero
	for _, line := range lines {
		if !line.Interest.IsZero() {
			t.Fatalf("line %d: expected zero interest, got %s", line.Number, line.Interest)
		}
		sum = sum.Add(line.Principal)
	}
	// 逐期独立舍入，允许每期最多 1 分的漂移
	drift := sum.Sub(principal).Abs()
	if drift.GreaterThan(decimal.NewFromFloat(0.12)) {
		t.Fatalf("principal drift too large: %s", drift)
	}
}

func TestAmortizeMonthlySchedule(t *testing.T) {
	principal := decimal.NewFromInt(1200000)
	lines := Amortize(principal, decimal.NewFromInt(12), 12, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 30, 0)

	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(lines))
	}

	// 月利率 1%：首期利息恰为 12000
	first := lines[0]
	if !first.Interest.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("expected first interest 12000, got %s", first.Interest)
	}
	if !first.Amount.Equal(first.Principal.Add(first.Interest)) {
		t.Fatalf("amount %s != principal %s + interest %s", first.Amount, first.Principal, first.Interest)
	}

	// 等额本息：每期总额相同
	for _, line := range lines[1:] {
		if !line.Amount.Equal(first.Amount) {
			t.Fatalf("line %d: amount %s differs from %s", line.Number, line.Amount, first.Amount)
		}
	}

	// 利息逐期递减、本金逐期递增
	for i := 1; i < len(lines); i++ {
		if lines[i].Interest.GreaterThanOrEqual(lines[i-1].Interest) {
			t.Fatalf("interest not decreasing at line %d", i+1)
		}
		if lines[i].Principal.LessThanOrEqual(lines[i-1].Principal) {
			t.Fatalf("principal not increasing at line %d", i+1)
		}
	}

	// 本金部分合计回到本金，容忍每期 1 分的舍入漂移
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Principal)
	}
	if sum.Sub(principal).Abs().GreaterThan(decimal.NewFromFloat(0.12)) {
		t.Fatalf("principal sum %s drifts too far from %s", sum, principal)
	}
}

func TestPeriodsPerYear(t *testing.T) {
	if !PeriodsPerYear(30).Equal(decimal.NewFromInt(12)) {
		t.Fatalf("30d interval should map to 12 periods")
	}
	if !PeriodsPerYear(14).Equal(decimal.NewFromInt(26)) {
		t.Fatalf("14d interval should map to 26 periods")
	}
	if !PeriodsPerYear(7).Equal(decimal.NewFromInt(52)) {
		t.Fatalf("7d interval should map to 52 periods")
	}
	got := PeriodsPerYear(73)
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("73d interval: expected 5 periods, got %s", got)
	}
}
