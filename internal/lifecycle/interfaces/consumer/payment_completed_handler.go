// 包 生命周期侧的事件消费
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/application"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

// PaymentCompletedHandler 消费账单上下文的付款阶段结清事件，驱动阶段完成与后继激活
type PaymentCompletedHandler struct {
	orchestrator *application.PhaseOrchestrator
	logger       *slog.Logger
}

// NewPaymentCompletedHandler 创建 PaymentCompletedHandler 实例
func NewPaymentCompletedHandler(orchestrator *application.PhaseOrchestrator, logger *slog.Logger) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{orchestrator: orchestrator, logger: logger}
}

// Handle 处理一条付款阶段结清消息
func (h *PaymentCompletedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payload struct {
		TenantID string `json:"tenant_id"`
		PhaseID  string `json:"phase_id"`
	}
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payment completed event", "error", err)
		return err
	}
	if payload.PhaseID == "" {
		return nil
	}

	err := h.orchestrator.CompletePhase(ctx, application.CompletePhaseCommand{
		TenantID: payload.TenantID,
		PhaseID:  payload.PhaseID,
		ActorID:  "system",
	})
	if errors.Is(err, domain.ErrPhaseNotFound) {
		h.logger.WarnContext(ctx, "phase not found for payment completed event", "phase_id", payload.PhaseID)
		return nil
	}
	return err
}
