// 包 付款方式变更的用例逻辑
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	billingdomain "github.com/wyfcoding/propertyfinance/internal/billing/domain"
	lifecycleapp "github.com/wyfcoding/propertyfinance/internal/lifecycle/application"
	lifecycledomain "github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"github.com/wyfcoding/propertyfinance/internal/paymentchange/domain"
	"gorm.io/gorm"
)

// PhaseActivator 执行后激活新付款阶段的回调，提交后调用
type PhaseActivator interface {
	ActivatePhase(ctx context.Context, cmd lifecycleapp.ActivatePhaseCommand) error
}

// CreateRequestCommand 创建变更请求命令
type CreateRequestCommand struct {
	TenantID       string
	ApplicationID  string
	TargetMethodID string
	Reason         string
	RequestedBy    string
}

// DecideRequestCommand 审批/驳回变更请求命令
type DecideRequestCommand struct {
	TenantID  string
	RequestID string
	Approve   bool
	Comment   string
	DecidedBy string
}

// ExecuteRequestCommand 执行已批准的变更请求命令
type ExecuteRequestCommand struct {
	TenantID  string
	RequestID string
	ActorID   string
}

// ChangeRequestDTO 变更请求视图
type ChangeRequestDTO struct {
	RequestID       string `json:"request_id"`
	ApplicationID   string `json:"application_id"`
	CurrentMethodID string `json:"current_method_id"`
	TargetMethodID  string `json:"target_method_id"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	DecidedBy       string `json:"decided_by,omitempty"`
	DecisionComment string `json:"decision_comment,omitempty"`
	ExecutedAt      int64  `json:"executed_at,omitempty"`
}

// phaseSnapshot 执行时固化进请求的阶段快照
type phaseSnapshot struct {
	PhaseID   string `json:"phase_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	Status    string `json:"status"`
	Principal string `json:"principal,omitempty"`
}

// ChangeRequestService 变更请求的创建、审批与执行
// 执行是重活：取代全部未终结付款阶段、按目标方式模板就剩余本金重新
// 展开新阶段、重指申请的付款方式，全部在一个事务内落库
type ChangeRequestService struct {
	requestRepo     domain.ChangeRequestRepository
	appRepo         lifecycledomain.ApplicationRepository
	phaseRepo       lifecycledomain.PhaseRepository
	methodRepo      lifecycledomain.PaymentMethodRepository
	installmentRepo billingdomain.InstallmentRepository
	eventStore      lifecycledomain.EventStore
	publisher       lifecycledomain.EventPublisher
	activator       PhaseActivator
	db              *gorm.DB
}

// NewChangeRequestService 创建 ChangeRequestService 实例
func NewChangeRequestService(
	requestRepo domain.ChangeRequestRepository,
	appRepo lifecycledomain.ApplicationRepository,
	phaseRepo lifecycledomain.PhaseRepository,
	methodRepo lifecycledomain.PaymentMethodRepository,
	installmentRepo billingdomain.InstallmentRepository,
	eventStore lifecycledomain.EventStore,
	publisher lifecycledomain.EventPublisher,
	activator PhaseActivator,
	db *gorm.DB,
) *ChangeRequestService {
	return &ChangeRequestService{
		requestRepo:     requestRepo,
		appRepo:         appRepo,
		phaseRepo:       phaseRepo,
		methodRepo:      methodRepo,
		installmentRepo: installmentRepo,
		eventStore:      eventStore,
		publisher:       publisher,
		activator:       activator,
		db:              db,
	}
}

// CreateRequest 创建变更请求
func (s *ChangeRequestService) CreateRequest(ctx context.Context, cmd CreateRequestCommand) (*ChangeRequestDTO, error) {
	var dto *ChangeRequestDTO
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		app, err := s.appRepo.Get(txCtx, cmd.TenantID, cmd.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != lifecycledomain.ApplicationStatusActive {
			return lifecycledomain.ErrApplicationNotActive
		}
		if app.PaymentMethodID == cmd.TargetMethodID {
			return domain.ErrSameMethod
		}
		if _, err := s.methodRepo.Get(txCtx, cmd.TenantID, cmd.TargetMethodID); err != nil {
			return err
		}

		request := &domain.ChangeRequest{
			RequestID:       fmt.Sprintf("PMC-%d", idgen.GenID()),
			ApplicationID:   cmd.ApplicationID,
			TenantID:        cmd.TenantID,
			RequestedBy:     cmd.RequestedBy,
			CurrentMethodID: app.PaymentMethodID,
			TargetMethodID:  cmd.TargetMethodID,
			Status:          domain.RequestStatusPendingDocuments,
			Reason:          cmd.Reason,
		}
		if err := s.requestRepo.Save(txCtx, request); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.RequestCreatedEvent,
			AggregateType: domain.AggregateChangeRequest,
			AggregateID:   request.RequestID,
			ActorID:       cmd.RequestedBy,
			Payload: map[string]any{
				"application_id":   cmd.ApplicationID,
				"current_method":   request.CurrentMethodID,
				"target_method_id": cmd.TargetMethodID,
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.RequestCreatedEvent, request.RequestID, map[string]any{
			"request_id":     request.RequestID,
			"application_id": cmd.ApplicationID,
			"tenant_id":      cmd.TenantID,
		}); err != nil {
			return err
		}

		dto = toChangeRequestDTO(request)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// SubmitDocuments 请求人提交证明材料
func (s *ChangeRequestService) SubmitDocuments(ctx context.Context, tenantID, requestID, actorID string) error {
	return s.transition(ctx, tenantID, requestID, actorID, func(r *domain.ChangeRequest) error {
		return r.SubmitDocuments()
	})
}

// StartReview 进入人工评审
func (s *ChangeRequestService) StartReview(ctx context.Context, tenantID, requestID, actorID string) error {
	return s.transition(ctx, tenantID, requestID, actorID, func(r *domain.ChangeRequest) error {
		return r.StartReview()
	})
}

// Cancel 请求人撤回，任何未终结状态均可
func (s *ChangeRequestService) Cancel(ctx context.Context, tenantID, requestID, actorID string) error {
	return s.transition(ctx, tenantID, requestID, actorID, func(r *domain.ChangeRequest) error {
		return r.Cancel()
	})
}

// Decide 审批通过或驳回，决定事件带上结论
func (s *ChangeRequestService) Decide(ctx context.Context, cmd DecideRequestCommand) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		request, err := s.requestRepo.Get(txCtx, cmd.TenantID, cmd.RequestID)
		if err != nil {
			return err
		}
		if cmd.Approve {
			err = request.Approve(cmd.DecidedBy, cmd.Comment)
		} else {
			err = request.Reject(cmd.DecidedBy, cmd.Comment)
		}
		if err != nil {
			return err
		}
		if err := s.requestRepo.Save(txCtx, request); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.RequestDecidedEvent,
			AggregateType: domain.AggregateChangeRequest,
			AggregateID:   request.RequestID,
			ActorID:       cmd.DecidedBy,
			Payload: map[string]any{
				"application_id": request.ApplicationID,
				"approved":       cmd.Approve,
				"comment":        cmd.Comment,
			},
		}); err != nil {
			return err
		}
		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.RequestDecidedEvent, request.RequestID, map[string]any{
			"request_id":     request.RequestID,
			"application_id": request.ApplicationID,
			"tenant_id":      cmd.TenantID,
			"approved":       cmd.Approve,
		})
	})
}

// Execute 执行已批准的变更
// 未终结付款阶段全部 SUPERSEDED，剩余本金 = Σ(阶段本金 - 已付本金)，
// 按目标方式模板重新展开新阶段；提交后若无进行中阶段再激活首个新阶段
func (s *ChangeRequestService) Execute(ctx context.Context, cmd ExecuteRequestCommand) error {
	var firstNewPhaseID, applicationID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		firstNewPhaseID = ""

		request, err := s.requestRepo.Get(txCtx, cmd.TenantID, cmd.RequestID)
		if err != nil {
			return err
		}
		if request.Status != domain.RequestStatusApproved {
			return domain.ErrRequestNotExecutable
		}
		app, err := s.appRepo.Get(txCtx, cmd.TenantID, request.ApplicationID)
		if err != nil {
			return err
		}
		applicationID = request.ApplicationID
		method, err := s.methodRepo.Get(txCtx, cmd.TenantID, request.TargetMethodID)
		if err != nil {
			return err
		}
		templates, err := method.PhaseTemplates()
		if err != nil {
			return err
		}

		open, err := s.phaseRepo.ListOpenByCategory(txCtx, cmd.TenantID, request.ApplicationID, lifecycledomain.PhaseCategoryPayment)
		if err != nil {
			return err
		}

		outstanding := decimal.Zero
		superseded := make([]phaseSnapshot, 0, len(open))
		for _, phase := range open {
			detail, err := phase.PaymentDetail()
			if err != nil {
				return err
			}
			installments, err := s.installmentRepo.ListByPhase(txCtx, cmd.TenantID, phase.PhaseID)
			if err != nil {
				return err
			}
			paid := billingdomain.PaidPrincipal(installments)
			outstanding = outstanding.Add(detail.Principal.Sub(paid))

			if err := phase.Supersede(); err != nil {
				return err
			}
			if err := s.phaseRepo.Save(txCtx, phase); err != nil {
				return err
			}
			superseded = append(superseded, phaseSnapshot{
				PhaseID:   phase.PhaseID,
				Name:      phase.Name,
				Order:     phase.Order,
				Status:    string(phase.Status),
				Principal: detail.Principal.String(),
			})

			if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
				TenantID:      cmd.TenantID,
				EventType:     lifecycledomain.PhaseSupersededEvent,
				AggregateType: lifecycledomain.AggregatePhase,
				AggregateID:   phase.PhaseID,
				ActorID:       cmd.ActorID,
				Payload:       map[string]any{"request_id": request.RequestID},
			}); err != nil {
				return err
			}
		}

		maxOrder, err := s.phaseRepo.MaxOrder(txCtx, cmd.TenantID, request.ApplicationID)
		if err != nil {
			return err
		}
		newPhases, err := lifecycleapp.ExpandPaymentPhases(app, templates, outstanding, maxOrder+1)
		if err != nil {
			return err
		}
		if err := s.phaseRepo.SaveAll(txCtx, newPhases); err != nil {
			return err
		}
		firstNewPhaseID = newPhases[0].PhaseID

		created := make([]phaseSnapshot, 0, len(newPhases))
		for _, phase := range newPhases {
			detail, err := phase.PaymentDetail()
			if err != nil {
				return err
			}
			created = append(created, phaseSnapshot{
				PhaseID:   phase.PhaseID,
				Name:      phase.Name,
				Order:     phase.Order,
				Status:    string(phase.Status),
				Principal: detail.Principal.String(),
			})
		}

		if err := app.Amend(request.TargetMethodID); err != nil {
			return err
		}
		if err := s.appRepo.Save(txCtx, app); err != nil {
			return err
		}
		if err := request.MarkExecuted(superseded, created, time.Now()); err != nil {
			return err
		}
		if err := s.requestRepo.Save(txCtx, request); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.RequestExecutedEvent,
			AggregateType: domain.AggregateChangeRequest,
			AggregateID:   request.RequestID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"application_id":   request.ApplicationID,
				"outstanding":      outstanding.String(),
				"superseded_count": len(superseded),
				"created_count":    len(created),
			},
		}); err != nil {
			return err
		}
		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     lifecycledomain.ApplicationAmendedEvent,
			AggregateType: lifecycledomain.AggregateApplication,
			AggregateID:   request.ApplicationID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"request_id":        request.RequestID,
				"payment_method_id": request.TargetMethodID,
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.RequestExecutedEvent, request.RequestID, map[string]any{
			"request_id":     request.RequestID,
			"application_id": request.ApplicationID,
			"tenant_id":      cmd.TenantID,
			"outstanding":    outstanding.String(),
		}); err != nil {
			return err
		}
		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), lifecycledomain.ApplicationAmendedEvent, request.ApplicationID, map[string]any{
			"application_id":    request.ApplicationID,
			"tenant_id":         cmd.TenantID,
			"payment_method_id": request.TargetMethodID,
		})
	})
	if err != nil {
		return err
	}

	logging.Info(ctx, "payment method change executed",
		"request_id", cmd.RequestID,
		"first_new_phase", firstNewPhaseID,
	)

	// 申请当前无进行中阶段时才立刻激活首个新付款阶段；
	// 有阶段在进行中则保持 PENDING，由编排器在其完成时顺序推进
	phases, err := s.phaseRepo.ListByApplication(ctx, cmd.TenantID, applicationID)
	if err != nil {
		logging.Warn(ctx, "could not check active phases after change execution",
			"application_id", applicationID,
			"error", err,
		)
		return nil
	}
	if active := lifecycledomain.ActivePhase(phases); active != nil {
		logging.Info(ctx, "new payment phase left pending, another phase is active",
			"phase_id", firstNewPhaseID,
			"active_phase_id", active.PhaseID,
		)
		return nil
	}

	if err := s.activator.ActivatePhase(ctx, lifecycleapp.ActivatePhaseCommand{
		TenantID: cmd.TenantID,
		PhaseID:  firstNewPhaseID,
		ActorID:  cmd.ActorID,
	}); err != nil {
		logging.Warn(ctx, "new payment phase not activated immediately",
			"phase_id", firstNewPhaseID,
			"error", err,
		)
	}
	return nil
}

// GetRequest 变更请求详情
func (s *ChangeRequestService) GetRequest(ctx context.Context, tenantID, requestID string) (*ChangeRequestDTO, error) {
	request, err := s.requestRepo.Get(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	return toChangeRequestDTO(request), nil
}

// ListRequests 申请下的变更请求列表
func (s *ChangeRequestService) ListRequests(ctx context.Context, tenantID, applicationID string) ([]*ChangeRequestDTO, error) {
	requests, err := s.requestRepo.ListByApplication(ctx, tenantID, applicationID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ChangeRequestDTO, 0, len(requests))
	for _, request := range requests {
		dtos = append(dtos, toChangeRequestDTO(request))
	}
	return dtos, nil
}

// transition 简单状态迁移的公共事务骨架
func (s *ChangeRequestService) transition(ctx context.Context, tenantID, requestID, actorID string, fn func(*domain.ChangeRequest) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		request, err := s.requestRepo.Get(txCtx, tenantID, requestID)
		if err != nil {
			return err
		}
		if err := fn(request); err != nil {
			return err
		}
		if err := s.requestRepo.Save(txCtx, request); err != nil {
			return err
		}
		return s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      tenantID,
			EventType:     domain.RequestDecidedEvent,
			AggregateType: domain.AggregateChangeRequest,
			AggregateID:   request.RequestID,
			ActorID:       actorID,
			Payload:       map[string]any{"status": string(request.Status)},
		})
	})
}

func toChangeRequestDTO(request *domain.ChangeRequest) *ChangeRequestDTO {
	dto := &ChangeRequestDTO{
		RequestID:       request.RequestID,
		ApplicationID:   request.ApplicationID,
		CurrentMethodID: request.CurrentMethodID,
		TargetMethodID:  request.TargetMethodID,
		Status:          string(request.Status),
		Reason:          request.Reason,
		DecidedBy:       request.DecidedBy,
		DecisionComment: request.DecisionComment,
	}
	if request.ExecutedAt != nil {
		dto.ExecutedAt = request.ExecutedAt.Unix()
	}
	return dto
}
