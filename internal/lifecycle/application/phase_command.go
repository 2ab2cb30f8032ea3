// 包 申请生命周期的用例逻辑
package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	approvaldomain "github.com/wyfcoding/propertyfinance/internal/approval/domain"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// QuestionnairePhaseInput 问卷阶段模板输入
type QuestionnairePhaseInput struct {
	Fields    []domain.FieldDefinition
	PassScore decimal.Decimal
}

// DocumentationPhaseInput 文档阶段模板输入
type DocumentationPhaseInput struct {
	Stages    []domain.StageDefinition
	Documents []domain.DocumentDefinition
}

// PhaseInput 创建申请时的单个阶段模板
// 付款阶段不在此列，由付款方式模板展开后追加
type PhaseInput struct {
	Name             string
	Category         domain.PhaseCategory
	RequiresPrevious bool
	Questionnaire    *QuestionnairePhaseInput
	Documentation    *DocumentationPhaseInput
	GateNote         string
}

// CreateApplicationCommand 创建申请命令
type CreateApplicationCommand struct {
	TenantID        string
	BuyerID         string
	PropertyUnitID  string
	PaymentMethodID string
	Phases          []PhaseInput
	ActorID         string
}

// ActivatePhaseCommand 激活阶段命令
type ActivatePhaseCommand struct {
	TenantID string
	PhaseID  string
	ActorID  string
}

// SkipPhaseCommand 跳过阶段命令
type SkipPhaseCommand struct {
	TenantID string
	PhaseID  string
	Reason   string
	ActorID  string
}

// PhaseCommandService 处理申请与阶段的命令操作
// 阶段激活是唯一入口 activateInTx：问卷/文档阶段在激活时固化快照并按
// 条件裁剪，付款阶段在激活事务内发布账单侧排期事件（Outbox）
type PhaseCommandService struct {
	appRepo    domain.ApplicationRepository
	phaseRepo  domain.PhaseRepository
	unitRepo   domain.PropertyUnitRepository
	methodRepo domain.PaymentMethodRepository
	stageRepo  approvaldomain.StageRepository
	docRepo    approvaldomain.DocumentRepository
	eventStore domain.EventStore
	publisher  domain.EventPublisher
	db         *gorm.DB
}

// NewPhaseCommandService 创建 PhaseCommandService 实例
func NewPhaseCommandService(
	appRepo domain.ApplicationRepository,
	phaseRepo domain.PhaseRepository,
	unitRepo domain.PropertyUnitRepository,
	methodRepo domain.PaymentMethodRepository,
	stageRepo approvaldomain.StageRepository,
	docRepo approvaldomain.DocumentRepository,
	eventStore domain.EventStore,
	publisher domain.EventPublisher,
	db *gorm.DB,
) *PhaseCommandService {
	return &PhaseCommandService{
		appRepo:    appRepo,
		phaseRepo:  phaseRepo,
		unitRepo:   unitRepo,
		methodRepo: methodRepo,
		stageRepo:  stageRepo,
		docRepo:    docRepo,
		eventStore: eventStore,
		publisher:  publisher,
		db:         db,
	}
}

// CreateApplication 创建申请：锁定房源、按模板展开阶段并激活首阶段
func (s *PhaseCommandService) CreateApplication(ctx context.Context, cmd CreateApplicationCommand) (*ApplicationDTO, error) {
	if cmd.TenantID == "" || cmd.BuyerID == "" || cmd.PropertyUnitID == "" || cmd.PaymentMethodID == "" {
		return nil, fmt.Errorf("invalid request parameters")
	}

	var dto *ApplicationDTO
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		unit, err := s.unitRepo.Get(txCtx, cmd.TenantID, cmd.PropertyUnitID)
		if err != nil {
			return err
		}
		if err := unit.Reserve(); err != nil {
			return err
		}

		method, err := s.methodRepo.Get(txCtx, cmd.TenantID, cmd.PaymentMethodID)
		if err != nil {
			return err
		}
		templates, err := method.PhaseTemplates()
		if err != nil {
			return err
		}

		app := &domain.FinanceApplication{
			ApplicationID:   fmt.Sprintf("APP-%d", idgen.GenID()),
			TenantID:        cmd.TenantID,
			BuyerID:         cmd.BuyerID,
			PropertyUnitID:  cmd.PropertyUnitID,
			PaymentMethodID: cmd.PaymentMethodID,
			Status:          domain.ApplicationStatusActive,
			TotalAmount:     unit.Price,
		}

		phases, err := buildPhases(app, cmd.Phases, templates, unit.Price)
		if err != nil {
			return err
		}

		if err := s.appRepo.Save(txCtx, app); err != nil {
			return err
		}
		if err := s.unitRepo.Save(txCtx, unit); err != nil {
			return err
		}
		if err := s.phaseRepo.SaveAll(txCtx, phases); err != nil {
			return err
		}

		// 首阶段立即激活
		if err := s.activateInTx(txCtx, app, phases[0], nil, cmd.ActorID); err != nil {
			return err
		}
		if err := s.appRepo.Save(txCtx, app); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.ApplicationCreatedEvent,
			AggregateType: domain.AggregateApplication,
			AggregateID:   app.ApplicationID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"buyer_id":          app.BuyerID,
				"property_unit_id":  app.PropertyUnitID,
				"payment_method_id": app.PaymentMethodID,
				"total_amount":      app.TotalAmount.String(),
				"phase_count":       len(phases),
			},
		}); err != nil {
			return err
		}

		if err := s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.ApplicationCreatedEvent, app.ApplicationID, map[string]any{
			"application_id": app.ApplicationID,
			"tenant_id":      app.TenantID,
			"buyer_id":       app.BuyerID,
			"total_amount":   app.TotalAmount.String(),
		}); err != nil {
			return err
		}

		dto = toApplicationDTO(app, phases)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "finance application created",
		"application_id", dto.ApplicationID,
		"buyer_id", cmd.BuyerID,
		"unit_id", cmd.PropertyUnitID,
	)
	return dto, nil
}

// buildPhases 展开阶段模板为阶段实体，付款阶段按份额拆分总价后追加
func buildPhases(app *domain.FinanceApplication, inputs []PhaseInput, templates []domain.PaymentPhaseTemplate, total decimal.Decimal) ([]*domain.Phase, error) {
	if len(inputs) == 0 && len(templates) == 0 {
		return nil, domain.ErrInvalidPhaseTemplate
	}

	phases := make([]*domain.Phase, 0, len(inputs)+len(templates))
	order := 0

	for _, in := range inputs {
		phase := &domain.Phase{
			PhaseID:          fmt.Sprintf("PH-%d", idgen.GenID()),
			ApplicationID:    app.ApplicationID,
			TenantID:         app.TenantID,
			Name:             in.Name,
			Order:            order,
			Category:         in.Category,
			Status:           domain.PhaseStatusPending,
			RequiresPrevious: in.RequiresPrevious,
		}

		switch in.Category {
		case domain.PhaseCategoryQuestionnaire:
			if in.Questionnaire == nil || len(in.Questionnaire.Fields) == 0 {
				return nil, domain.ErrInvalidPhaseTemplate
			}
			if err := phase.SetDetail(&domain.QuestionnaireDetail{
				Fields:    in.Questionnaire.Fields,
				PassScore: in.Questionnaire.PassScore,
			}); err != nil {
				return nil, err
			}
		case domain.PhaseCategoryDocumentation:
			if in.Documentation == nil {
				return nil, domain.ErrInvalidPhaseTemplate
			}
			if err := validateStages(in.Documentation.Stages); err != nil {
				return nil, err
			}
			if err := phase.SetDetail(&domain.DocumentationDetail{
				Stages:    in.Documentation.Stages,
				Documents: in.Documentation.Documents,
			}); err != nil {
				return nil, err
			}
		case domain.PhaseCategoryGate:
			if err := phase.SetDetail(&domain.GateDetail{Note: in.GateNote}); err != nil {
				return nil, err
			}
		default:
			return nil, domain.ErrInvalidPhaseTemplate
		}

		phases = append(phases, phase)
		order++
	}

	paymentPhases, err := ExpandPaymentPhases(app, templates, total, order)
	if err != nil {
		return nil, err
	}
	phases = append(phases, paymentPhases...)

	if len(phases) == 0 {
		return nil, domain.ErrInvalidPhaseTemplate
	}
	return phases, nil
}

// validateStages 阶段序号必须从 1 起连续
func validateStages(stages []domain.StageDefinition) error {
	if len(stages) == 0 {
		return domain.ErrInvalidPhaseTemplate
	}
	seen := make(map[int]bool, len(stages))
	for _, stage := range stages {
		if stage.Order < 1 || seen[stage.Order] {
			return domain.ErrInvalidPhaseTemplate
		}
		seen[stage.Order] = true
	}
	for i := 1; i <= len(stages); i++ {
		if !seen[i] {
			return domain.ErrInvalidPhaseTemplate
		}
	}
	return nil
}

// ExpandPaymentPhases 按付款方式模板拆分金额展开付款阶段
// 末阶段取剩余额，保证各阶段本金之和严格等于总额；付款方式变更
// 执行时也用它就剩余本金重新展开
func ExpandPaymentPhases(app *domain.FinanceApplication, templates []domain.PaymentPhaseTemplate, total decimal.Decimal, startOrder int) ([]*domain.Phase, error) {
	hundred := decimal.NewFromInt(100)
	phases := make([]*domain.Phase, 0, len(templates))
	remaining := total

	for i, tpl := range templates {
		if tpl.InstallmentCount < 1 {
			return nil, domain.ErrInvalidPhaseTemplate
		}
		principal := total.Mul(tpl.Share).Div(hundred).Round(2)
		if i == len(templates)-1 {
			principal = remaining
		}
		if principal.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidPhaseTemplate
		}
		remaining = remaining.Sub(principal)

		phase := &domain.Phase{
			PhaseID:          fmt.Sprintf("PH-%d", idgen.GenID()),
			ApplicationID:    app.ApplicationID,
			TenantID:         app.TenantID,
			Name:             tpl.Name,
			Order:            startOrder + i,
			Category:         domain.PhaseCategoryPayment,
			Status:           domain.PhaseStatusPending,
			RequiresPrevious: true,
		}
		if err := phase.SetDetail(&domain.PaymentDetail{
			Principal:        principal,
			AnnualRate:       tpl.AnnualRate,
			InstallmentCount: tpl.InstallmentCount,
			IntervalDays:     tpl.IntervalDays,
			GracePeriodDays:  tpl.GracePeriodDays,
			PaidAmount:       decimal.Zero,
		}); err != nil {
			return nil, err
		}
		phases = append(phases, phase)
	}
	return phases, nil
}

// ActivatePhase 显式激活一个待处理阶段
func (s *PhaseCommandService) ActivatePhase(ctx context.Context, cmd ActivatePhaseCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		phase, err := s.phaseRepo.Get(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		app, err := s.appRepo.Get(txCtx, cmd.TenantID, phase.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != domain.ApplicationStatusActive {
			return domain.ErrApplicationNotActive
		}

		previous, err := s.previousSatisfying(txCtx, phase)
		if err != nil {
			return err
		}
		if err := s.activateInTx(txCtx, app, phase, previous, cmd.ActorID); err != nil {
			return err
		}
		return s.appRepo.Save(txCtx, app)
	})
}

// previousSatisfying 返回紧邻的前序阶段，被跳过的阶段对激活判定透明
func (s *PhaseCommandService) previousSatisfying(ctx context.Context, phase *domain.Phase) (*domain.Phase, error) {
	for order := phase.Order - 1; order >= 0; order-- {
		previous, err := s.phaseRepo.GetByOrder(ctx, phase.TenantID, phase.ApplicationID, order)
		if err != nil {
			return nil, err
		}
		if previous.Status == domain.PhaseStatusSkipped {
			continue
		}
		return previous, nil
	}
	return nil, nil
}

// activateInTx 激活阶段的唯一路径，必须在事务上下文内调用
// 问卷与文档阶段在此固化模板快照并按既有答案裁剪条件项；
// 文档阶段同时物化审批阶段行与文档行；付款阶段通过 Outbox 通知账单侧排期
func (s *PhaseCommandService) activateInTx(txCtx context.Context, app *domain.FinanceApplication, phase *domain.Phase, previous *domain.Phase, actorID string) error {
	if err := phase.Activate(previous); err != nil {
		return err
	}

	switch phase.Category {
	case domain.PhaseCategoryQuestionnaire:
		if err := s.pruneQuestionnaire(txCtx, phase); err != nil {
			return err
		}
	case domain.PhaseCategoryDocumentation:
		if err := s.materializeDocumentation(txCtx, phase); err != nil {
			return err
		}
	case domain.PhaseCategoryPayment:
		detail, err := phase.PaymentDetail()
		if err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.PaymentPhaseActivatedEvent, phase.PhaseID, map[string]any{
			"tenant_id":         phase.TenantID,
			"phase_id":          phase.PhaseID,
			"application_id":    phase.ApplicationID,
			"principal":         detail.Principal.String(),
			"annual_rate":       detail.AnnualRate.String(),
			"installment_count": detail.InstallmentCount,
			"interval_days":     detail.IntervalDays,
			"grace_period_days": detail.GracePeriodDays,
		}); err != nil {
			return err
		}
	}

	if err := s.phaseRepo.Save(txCtx, phase); err != nil {
		return err
	}
	app.SetCurrentPhase(phase.PhaseID)

	if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
		TenantID:      phase.TenantID,
		EventType:     domain.PhaseActivatedEvent,
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

	return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.PhaseActivatedEvent, phase.PhaseID, map[string]any{
		"phase_id":       phase.PhaseID,
		"application_id": phase.ApplicationID,
		"tenant_id":      phase.TenantID,
		"category":       string(phase.Category),
	})
}

// pruneQuestionnaire 激活时按既有答案裁剪不适用字段
func (s *PhaseCommandService) pruneQuestionnaire(ctx context.Context, phase *domain.Phase) error {
	detail, err := phase.QuestionnaireDetail()
	if err != nil {
		return err
	}
	answers, err := s.collectAnswers(ctx, phase.TenantID, phase.ApplicationID)
	if err != nil {
		return err
	}

	detail.SkippedKeys = detail.SkippedKeys[:0]
	for _, field := range detail.Fields {
		if !field.Condition.Evaluate(answers) {
			detail.SkippedKeys = append(detail.SkippedKeys, field.Key)
		}
	}
	return phase.SetDetail(detail)
}

// materializeDocumentation 从快照物化审批阶段行与文档行并激活第 1 阶段
func (s *PhaseCommandService) materializeDocumentation(ctx context.Context, phase *domain.Phase) error {
	detail, err := phase.DocumentationDetail()
	if err != nil {
		return err
	}
	if len(detail.Stages) == 0 {
		return domain.ErrInvalidPhaseTemplate
	}
	answers, err := s.collectAnswers(ctx, phase.TenantID, phase.ApplicationID)
	if err != nil {
		return err
	}

	now := phase.ActivatedAt
	stages := make([]*approvaldomain.StageProgress, 0, len(detail.Stages))
	for _, def := range detail.Stages {
		stage := &approvaldomain.StageProgress{
			StageID:             fmt.Sprintf("STG-%d", idgen.GenID()),
			PhaseID:             phase.PhaseID,
			TenantID:            phase.TenantID,
			Order:               def.Order,
			Name:                def.Name,
			Organization:        approvaldomain.OrganizationType(def.Organization),
			AutoTransition:      def.AutoTransition,
			WaitForAllDocuments: def.WaitForAllDocuments,
			OnRejection:         approvaldomain.RejectionPolicy(def.OnRejection),
			RestartFromOrder:    def.RestartFromOrder,
			SLAHours:            def.SLAHours,
			Status:              approvaldomain.StageStatusPending,
		}
		if def.Order == 1 {
			stage.Activate(*now)
		}
		stages = append(stages, stage)
	}

	docs := make([]*approvaldomain.Document, 0, len(detail.Documents))
	for _, def := range detail.Documents {
		docs = append(docs, &approvaldomain.Document{
			DocumentID:       fmt.Sprintf("DOC-%d", idgen.GenID()),
			PhaseID:          phase.PhaseID,
			TenantID:         phase.TenantID,
			DocumentType:     def.DocumentType,
			Name:             def.Name,
			RequiredUploader: approvaldomain.OrganizationType(def.RequiredUploader),
			Status:           approvaldomain.DocumentStatusPending,
			Skipped:          def.Condition != nil && !def.Condition.Evaluate(answers),
		})
	}

	if err := s.stageRepo.SaveAll(ctx, stages); err != nil {
		return err
	}
	if len(docs) > 0 {
		if err := s.docRepo.SaveAll(ctx, docs); err != nil {
			return err
		}
	}

	detail.CurrentStageOrder = 1
	return phase.SetDetail(detail)
}

// collectAnswers 汇总申请内已完成问卷阶段的全部答案，供条件裁剪使用
func (s *PhaseCommandService) collectAnswers(ctx context.Context, tenantID, applicationID string) (map[string]any, error) {
	phases, err := s.phaseRepo.ListByApplication(ctx, tenantID, applicationID)
	if err != nil {
		return nil, err
	}
	answers := make(map[string]any)
	for _, phase := range phases {
		if phase.Category != domain.PhaseCategoryQuestionnaire || phase.Status != domain.PhaseStatusCompleted {
			continue
		}
		detail, err := phase.QuestionnaireDetail()
		if err != nil {
			return nil, err
		}
		for key, value := range detail.Answers {
			answers[key] = value
		}
	}
	return answers, nil
}

// SkipPhase 跳过一个待处理阶段，被跳过的阶段不阻塞后继激活
func (s *PhaseCommandService) SkipPhase(ctx context.Context, cmd SkipPhaseCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		phase, err := s.phaseRepo.Get(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		if err := phase.Skip(); err != nil {
			return err
		}
		if err := s.phaseRepo.Save(txCtx, phase); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.PhaseSkippedEvent,
			AggregateType: domain.AggregatePhase,
			AggregateID:   phase.PhaseID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"application_id": phase.ApplicationID,
				"reason":         cmd.Reason,
			},
		}); err != nil {
			return err
		}

		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.PhaseSkippedEvent, phase.PhaseID, map[string]any{
			"phase_id":       phase.PhaseID,
			"application_id": phase.ApplicationID,
			"tenant_id":      phase.TenantID,
		})
	})
}
