// 包 付款阶段账单的用例逻辑
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/propertyfinance/internal/billing/domain"
	"github.com/wyfcoding/propertyfinance/pkg/finance"
	"gorm.io/gorm"
)

// GenerateScheduleCommand 生成分期排期命令，来自付款阶段激活事件
type GenerateScheduleCommand struct {
	TenantID         string
	PhaseID          string
	ApplicationID    string
	Principal        decimal.Decimal
	AnnualRate       decimal.Decimal
	InstallmentCount int
	IntervalDays     int
	GracePeriodDays  int
}

// RecordPaymentCommand 登记一笔分期付款命令
type RecordPaymentCommand struct {
	TenantID      string
	InstallmentID string
	Amount        decimal.Decimal
	PaymentRef    string
	ActorID       string
}

// WaiveInstallmentCommand 豁免分期命令
type WaiveInstallmentCommand struct {
	TenantID      string
	InstallmentID string
	Reason        string
	ActorID       string
}

// InstallmentDTO 分期视图
type InstallmentDTO struct {
	InstallmentID string `json:"installment_id"`
	PhaseID       string `json:"phase_id"`
	Number        int    `json:"number"`
	Amount        string `json:"amount"`
	Principal     string `json:"principal"`
	Interest      string `json:"interest"`
	DueDate       int64  `json:"due_date"`
	Status        string `json:"status"`
	PaidAt        int64  `json:"paid_at,omitempty"`
	PaymentRef    string `json:"payment_ref,omitempty"`
}

// BillingService 分期排期与收款
type BillingService struct {
	repo       domain.InstallmentRepository
	eventStore domain.EventStore
	publisher  domain.EventPublisher
	db         *gorm.DB
}

// NewBillingService 创建 BillingService 实例
func NewBillingService(repo domain.InstallmentRepository, eventStore domain.EventStore, publisher domain.EventPublisher, db *gorm.DB) *BillingService {
	return &BillingService{repo: repo, eventStore: eventStore, publisher: publisher, db: db}
}

// GenerateSchedule 按等额本息展开分期排期
// 消费侧至少一次投递：该阶段已有分期行时直接返回，不重复生成
func (s *BillingService) GenerateSchedule(ctx context.Context, cmd GenerateScheduleCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		count, err := s.repo.CountByPhase(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		if count > 0 {
			logging.Info(ctx, "schedule already generated, skipping", "phase_id", cmd.PhaseID)
			return nil
		}

		lines := finance.Amortize(cmd.Principal, cmd.AnnualRate, cmd.InstallmentCount, time.Now(), cmd.IntervalDays, cmd.GracePeriodDays)
		installments := make([]*domain.Installment, 0, len(lines))
		for _, line := range lines {
			installments = append(installments, &domain.Installment{
				InstallmentID: fmt.Sprintf("INST-%d", idgen.GenID()),
				PhaseID:       cmd.PhaseID,
				ApplicationID: cmd.ApplicationID,
				TenantID:      cmd.TenantID,
				Number:        line.Number,
				Amount:        line.Amount,
				Principal:     line.Principal,
				Interest:      line.Interest,
				DueDate:       line.DueDate,
				Status:        domain.InstallmentStatusPending,
			})
		}
		if err := s.repo.SaveAll(txCtx, installments); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.ScheduleGeneratedEvent,
			AggregateType: domain.AggregateSchedule,
			AggregateID:   cmd.PhaseID,
			Payload: map[string]any{
				"application_id":    cmd.ApplicationID,
				"principal":         cmd.Principal.String(),
				"installment_count": cmd.InstallmentCount,
			},
		}); err != nil {
			return err
		}

		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.ScheduleGeneratedEvent, cmd.PhaseID, map[string]any{
			"phase_id":          cmd.PhaseID,
			"application_id":    cmd.ApplicationID,
			"tenant_id":         cmd.TenantID,
			"installment_count": cmd.InstallmentCount,
		})
	})
}

// RecordPayment 登记付款，末笔结清时发布付款阶段完成事件
func (s *BillingService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		installment, err := s.repo.Get(txCtx, cmd.TenantID, cmd.InstallmentID)
		if err != nil {
			return err
		}
		if err := installment.Pay(cmd.Amount, cmd.PaymentRef, time.Now()); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, installment); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.InstallmentPaidEvent,
			AggregateType: domain.AggregateInstallment,
			AggregateID:   installment.InstallmentID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"phase_id":    installment.PhaseID,
				"number":      installment.Number,
				"amount":      installment.Amount.String(),
				"payment_ref": cmd.PaymentRef,
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.InstallmentPaidEvent, installment.InstallmentID, map[string]any{
			"installment_id": installment.InstallmentID,
			"phase_id":       installment.PhaseID,
			"tenant_id":      installment.TenantID,
			"amount":         installment.Amount.String(),
		}); err != nil {
			return err
		}

		return s.publishIfPhaseSettled(txCtx, installment)
	})
}

// WaiveInstallment 豁免一笔分期，豁免视同结清
func (s *BillingService) WaiveInstallment(ctx context.Context, cmd WaiveInstallmentCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		installment, err := s.repo.Get(txCtx, cmd.TenantID, cmd.InstallmentID)
		if err != nil {
			return err
		}
		if err := installment.Waive(cmd.ActorID); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, installment); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.InstallmentWaivedEvent,
			AggregateType: domain.AggregateInstallment,
			AggregateID:   installment.InstallmentID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"phase_id": installment.PhaseID,
				"number":   installment.Number,
				"reason":   cmd.Reason,
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.InstallmentWaivedEvent, installment.InstallmentID, map[string]any{
			"installment_id": installment.InstallmentID,
			"phase_id":       installment.PhaseID,
			"tenant_id":      installment.TenantID,
		}); err != nil {
			return err
		}

		return s.publishIfPhaseSettled(txCtx, installment)
	})
}

// publishIfPhaseSettled 该阶段全部分期结清后通知生命周期侧完成付款阶段
func (s *BillingService) publishIfPhaseSettled(txCtx context.Context, installment *domain.Installment) error {
	installments, err := s.repo.ListByPhase(txCtx, installment.TenantID, installment.PhaseID)
	if err != nil {
		return err
	}
	if !domain.AllSettled(installments) {
		return nil
	}
	return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.PaymentPhaseCompletedEvent, installment.PhaseID, map[string]any{
		"phase_id":       installment.PhaseID,
		"application_id": installment.ApplicationID,
		"tenant_id":      installment.TenantID,
	})
}

// GetSchedule 某付款阶段的分期排期
func (s *BillingService) GetSchedule(ctx context.Context, tenantID, phaseID string) ([]*InstallmentDTO, error) {
	installments, err := s.repo.ListByPhase(ctx, tenantID, phaseID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*InstallmentDTO, 0, len(installments))
	for _, installment := range installments {
		dto := &InstallmentDTO{
			InstallmentID: installment.InstallmentID,
			PhaseID:       installment.PhaseID,
			Number:        installment.Number,
			Amount:        installment.Amount.String(),
			Principal:     installment.Principal.String(),
			Interest:      installment.Interest.String(),
			DueDate:       installment.DueDate.Unix(),
			Status:        string(installment.Status),
			PaymentRef:    installment.PaymentRef,
		}
		if installment.PaidAt != nil {
			dto.PaidAt = installment.PaidAt.Unix()
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// OutstandingBalance 申请下未结清分期的本金合计
func (s *BillingService) OutstandingBalance(ctx context.Context, tenantID, applicationID string) (decimal.Decimal, error) {
	installments, err := s.repo.ListByApplication(ctx, tenantID, applicationID)
	if err != nil {
		return decimal.Zero, err
	}
	outstanding := decimal.Zero
	for _, installment := range installments {
		if !installment.Settled() {
			outstanding = outstanding.Add(installment.Principal)
		}
	}
	return outstanding, nil
}

// MarkOverdue 把逾期未付的分期批量标记为 OVERDUE，由定时任务调用
func (s *BillingService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	marked, err := s.repo.MarkOverdueBefore(ctx, asOf)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		logging.Info(ctx, "installments marked overdue", "count", marked)
	}
	return marked, nil
}
