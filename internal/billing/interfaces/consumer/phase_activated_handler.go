// 包 账单侧的事件消费
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/propertyfinance/internal/billing/application"
)

// PhaseActivatedHandler 消费付款阶段激活事件并生成分期排期
// 排期生成自身幂等，重复投递安全
type PhaseActivatedHandler struct {
	svc    *application.BillingService
	logger *slog.Logger
}

// NewPhaseActivatedHandler 创建 PhaseActivatedHandler 实例
func NewPhaseActivatedHandler(svc *application.BillingService, logger *slog.Logger) *PhaseActivatedHandler {
	return &PhaseActivatedHandler{svc: svc, logger: logger}
}

// Handle 处理一条付款阶段激活消息
func (h *PhaseActivatedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payload struct {
		TenantID         string `json:"tenant_id"`
		PhaseID          string `json:"phase_id"`
		ApplicationID    string `json:"application_id"`
		Principal        string `json:"principal"`
		AnnualRate       string `json:"annual_rate"`
		InstallmentCount int    `json:"installment_count"`
		IntervalDays     int    `json:"interval_days"`
		GracePeriodDays  int    `json:"grace_period_days"`
	}
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal phase activated event", "error", err)
		return err
	}
	if payload.PhaseID == "" {
		return nil
	}

	principal, err := decimal.NewFromString(payload.Principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid principal in phase activated event", "phase_id", payload.PhaseID, "error", err)
		return nil // 畸形消息重试无意义
	}
	annualRate, err := decimal.NewFromString(payload.AnnualRate)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid annual rate in phase activated event", "phase_id", payload.PhaseID, "error", err)
		return nil
	}

	return h.svc.GenerateSchedule(ctx, application.GenerateScheduleCommand{
		TenantID:         payload.TenantID,
		PhaseID:          payload.PhaseID,
		ApplicationID:    payload.ApplicationID,
		Principal:        principal,
		AnnualRate:       annualRate,
		InstallmentCount: payload.InstallmentCount,
		IntervalDays:     payload.IntervalDays,
		GracePeriodDays:  payload.GracePeriodDays,
	})
}
