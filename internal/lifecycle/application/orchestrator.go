package application

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// CompletePhaseCommand 完成阶段命令
type CompletePhaseCommand struct {
	TenantID string
	PhaseID  string
	ActorID  string
}

// PhaseOrchestrator 阶段完成的唯一授权路径
// 完成当前阶段与激活后继阶段在同一事务内落库；对已完成阶段重放时
// 跳过状态变更但仍推进后继，保证消费侧至少一次投递下的幂等
type PhaseOrchestrator struct {
	commands   *PhaseCommandService
	appRepo    domain.ApplicationRepository
	phaseRepo  domain.PhaseRepository
	unitRepo   domain.PropertyUnitRepository
	docReady   domain.DocumentationReadiness
	payReady   domain.PaymentReadiness
	eventStore domain.EventStore
	publisher  domain.EventPublisher
	db         *gorm.DB
}

// NewPhaseOrchestrator 创建 PhaseOrchestrator 实例
func NewPhaseOrchestrator(
	commands *PhaseCommandService,
	appRepo domain.ApplicationRepository,
	phaseRepo domain.PhaseRepository,
	unitRepo domain.PropertyUnitRepository,
	docReady domain.DocumentationReadiness,
	payReady domain.PaymentReadiness,
	eventStore domain.EventStore,
	publisher domain.EventPublisher,
	db *gorm.DB,
) *PhaseOrchestrator {
	return &PhaseOrchestrator{
		commands:   commands,
		appRepo:    appRepo,
		phaseRepo:  phaseRepo,
		unitRepo:   unitRepo,
		docReady:   docReady,
		payReady:   payReady,
		eventStore: eventStore,
		publisher:  publisher,
		db:         db,
	}
}

// CompletePhase 完成阶段并推进申请
func (o *PhaseOrchestrator) CompletePhase(ctx context.Context, cmd CompletePhaseCommand) error {
	err := o.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		phase, err := o.phaseRepo.Get(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		app, err := o.appRepo.Get(txCtx, cmd.TenantID, phase.ApplicationID)
		if err != nil {
			return err
		}

		if phase.Status != domain.PhaseStatusCompleted {
			if err := o.completeCurrent(txCtx, phase, cmd.ActorID); err != nil {
				return err
			}
		}

		return o.advance(txCtx, app, phase, cmd.ActorID)
	})
	if err != nil {
		return err
	}

	logging.Info(ctx, "phase completed", "phase_id", cmd.PhaseID, "tenant_id", cmd.TenantID)
	return nil
}

// completeCurrent 按类别校验完成前置条件后落库
func (o *PhaseOrchestrator) completeCurrent(txCtx context.Context, phase *domain.Phase, actorID string) error {
	switch phase.Category {
	case domain.PhaseCategoryQuestionnaire:
		detail, err := phase.QuestionnaireDetail()
		if err != nil {
			return err
		}
		if !detail.Passed {
			return domain.ErrQuestionnaireNotPassed
		}

	case domain.PhaseCategoryDocumentation:
		done, err := o.docReady.AllStagesCompleted(txCtx, phase.TenantID, phase.PhaseID)
		if err != nil {
			return err
		}
		if !done {
			return domain.ErrPhaseNotReady
		}
		detail, err := phase.DocumentationDetail()
		if err != nil {
			return err
		}
		detail.CurrentStageOrder = 0
		if err := phase.SetDetail(detail); err != nil {
			return err
		}

	case domain.PhaseCategoryPayment:
		settled, err := o.payReady.AllInstallmentsSettled(txCtx, phase.TenantID, phase.PhaseID)
		if err != nil {
			return err
		}
		if !settled {
			return domain.ErrPhaseNotReady
		}
	}

	if err := phase.Complete(); err != nil {
		return err
	}
	if err := o.phaseRepo.Save(txCtx, phase); err != nil {
		return err
	}

	if err := o.eventStore.Append(txCtx, &domain.AuditEvent{
		TenantID:      phase.TenantID,
		EventType:     domain.PhaseCompletedEvent,
		AggregateType: domain.AggregatePhase,
		AggregateID:   phase.PhaseID,
		ActorID:       actorID,
		Payload: map[string]any{
			"application_id": phase.ApplicationID,
			"order":          phase.Order,
			"category":       string(phase.Category),
		},
	}); err != nil {
		return err
	}

	return o.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.PhaseCompletedEvent, phase.PhaseID, map[string]any{
		"phase_id":       phase.PhaseID,
		"application_id": phase.ApplicationID,
		"tenant_id":      phase.TenantID,
		"category":       string(phase.Category),
	})
}

// advance 激活首个未开始的后继阶段；全部终结时关闭申请并过户
func (o *PhaseOrchestrator) advance(txCtx context.Context, app *domain.FinanceApplication, completed *domain.Phase, actorID string) error {
	phases, err := o.phaseRepo.ListByApplication(txCtx, app.TenantID, app.ApplicationID)
	if err != nil {
		return err
	}

	var next *domain.Phase
	for _, candidate := range phases {
		if candidate.Order <= completed.Order {
			continue
		}
		if candidate.Status == domain.PhaseStatusInProgress {
			// 重放场景：后继已激活，无需推进
			return nil
		}
		if candidate.IsTerminal() {
			continue
		}
		next = candidate
		break
	}

	if next == nil {
		return o.completeApplication(txCtx, app, actorID)
	}

	if err := o.commands.activateInTx(txCtx, app, next, completed, actorID); err != nil {
		return err
	}
	return o.appRepo.Save(txCtx, app)
}

// completeApplication 所有阶段终结：关闭申请并把房源过户给买家
// 末阶段完成消息重投时申请已关闭、房源已过户，直接返回
func (o *PhaseOrchestrator) completeApplication(txCtx context.Context, app *domain.FinanceApplication, actorID string) error {
	if app.Status == domain.ApplicationStatusCompleted {
		return nil
	}
	if err := app.Complete(); err != nil {
		return err
	}
	if err := o.appRepo.Save(txCtx, app); err != nil {
		return err
	}

	unit, err := o.unitRepo.Get(txCtx, app.TenantID, app.PropertyUnitID)
	if err != nil {
		return err
	}
	unit.TransferTo(app.BuyerID)
	if err := o.unitRepo.Save(txCtx, unit); err != nil {
		return err
	}

	if err := o.eventStore.Append(txCtx, &domain.AuditEvent{
		TenantID:      app.TenantID,
		EventType:     domain.ApplicationCompletedEvent,
		AggregateType: domain.AggregateApplication,
		AggregateID:   app.ApplicationID,
		ActorID:       actorID,
		Payload:       map[string]any{"buyer_id": app.BuyerID, "unit_id": unit.UnitID},
	}); err != nil {
		return err
	}
	if err := o.eventStore.Append(txCtx, &domain.AuditEvent{
		TenantID:      app.TenantID,
		EventType:     domain.UnitOwnershipTransferredEvent,
		AggregateType: domain.AggregateUnit,
		AggregateID:   unit.UnitID,
		ActorID:       actorID,
		Payload:       map[string]any{"application_id": app.ApplicationID, "owner_id": unit.OwnerID},
	}); err != nil {
		return err
	}

	if err := o.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ApplicationCompletedEvent, app.ApplicationID, map[string]any{
		"application_id": app.ApplicationID,
		"tenant_id":      app.TenantID,
		"buyer_id":       app.BuyerID,
	}); err != nil {
		return err
	}
	return o.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.UnitOwnershipTransferredEvent, unit.UnitID, map[string]any{
		"unit_id":  unit.UnitID,
		"owner_id": unit.OwnerID,
	})
}
