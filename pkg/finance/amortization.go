// Package finance - 等额本息分期计算
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentLine 还款计划中的一期
type InstallmentLine struct {
	Number    int             // 期数，从 1 开始
	Amount    decimal.Decimal // 本期应还总额
	Principal decimal.Decimal // 本金部分
	Interest  decimal.Decimal // 利息部分
	DueDate   time.Time       // 到期日
}

// PeriodsPerYear 根据还款间隔天数换算每年期数
// 常见间隔使用约定值（月供 12 期、双周 26 期、周供 52 期），其余按 365 天折算
func PeriodsPerYear(intervalDays int) decimal.Decimal {
	switch intervalDays {
	case 30:
		return decimal.NewFromInt(12)
	case 14:
		return decimal.NewFromInt(26)
	case 7:
		return decimal.NewFromInt(52)
	default:
		return decimal.NewFromInt(365).Div(decimal.NewFromInt(int64(intervalDays)))
	}
}

// Amortize 生成等额本息还款计划
// principal 为本金，annualRate 为年化利率百分数（12 表示 12%）。
// 首期到期日 = startDate + gracePeriodDays + intervalDays。
// 每期金额/本金/利息各自独立保留两位小数，跨期的累计舍入误差不做补偿。
func Amortize(principal, annualRate decimal.Decimal, count int, startDate time.Time, intervalDays, gracePeriodDays int) []InstallmentLine {
	if count <= 0 || intervalDays <= 0 {
		return nil
	}

	dueDate := func(number int) time.Time {
		return startDate.AddDate(0, 0, gracePeriodDays+number*intervalDays)
	}

	// 单期：一次性还清本金，不计息
	if count == 1 {
		return []InstallmentLine{{
			Number:    1,
			Amount:    principal.Round(2),
			Principal: principal.Round(2),
			Interest:  decimal.Zero,
			DueDate:   dueDate(1),
		}}
	}

	periodicRate := annualRate.
		Div(decimal.NewFromInt(100)).
		Div(PeriodsPerYear(intervalDays))

	n := decimal.NewFromInt(int64(count))
	var payment decimal.Decimal
	if periodicRate.IsZero() {
		payment = principal.Div(n)
	} else {
		// payment = P * r * (1+r)^n / ((1+r)^n - 1)
		compound := decimal.NewFromInt(1).Add(periodicRate).Pow(n)
		payment = principal.Mul(periodicRate).Mul(compound).
			Div(compound.Sub(decimal.NewFromInt(1)))
	}

	lines := make([]InstallmentLine, 0, count)
	remaining := principal
	for i := 1; i <= count; i++ {
		interest := remaining.Mul(periodicRate)
		principalPortion := payment.Sub(interest)
		remaining = remaining.Sub(principalPortion)

		lines = append(lines, InstallmentLine{
			Number:    i,
			Amount:    payment.Round(2),
			Principal: principalPortion.Round(2),
			Interest:  interest.Round(2),
			DueDate:   dueDate(i),
		})
	}
	return lines
}
