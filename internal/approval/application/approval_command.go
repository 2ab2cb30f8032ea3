// 包 文档审批流水线的用例逻辑
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/propertyfinance/internal/approval/domain"
	lifecycleapp "github.com/wyfcoding/propertyfinance/internal/lifecycle/application"
	lifecycledomain "github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// PhaseCompleter 流水线走完后把阶段完成交还给生命周期编排器
type PhaseCompleter interface {
	CompletePhase(ctx context.Context, cmd lifecycleapp.CompletePhaseCommand) error
}

// UploadDocumentCommand 上传文档命令
type UploadDocumentCommand struct {
	TenantID    string
	DocumentID  string
	UploaderID  string
	UploaderOrg domain.OrganizationType
	FileRef     string
}

// ReviewDocumentCommand 评审文档命令
type ReviewDocumentCommand struct {
	TenantID    string
	DocumentID  string
	ReviewerID  string
	ReviewerOrg domain.OrganizationType
	Decision    domain.Decision
	Comment     string
}

// AdvanceStageCommand 手动推进阶段命令（auto_transition 为假的阶段使用）
type AdvanceStageCommand struct {
	TenantID string
	PhaseID  string
	ActorID  string
}

// ApprovalCommandService 处理上传与评审命令
// 一次命令内的全部行变更（文档、阶段、指针）在同一事务落库；
// 机构通知在事务提交后发送，失败只记日志不回滚
type ApprovalCommandService struct {
	stageRepo    domain.StageRepository
	docRepo      domain.DocumentRepository
	approvalRepo domain.ApprovalRepository
	phaseRepo    lifecycledomain.PhaseRepository
	eventStore   lifecycledomain.EventStore
	publisher    lifecycledomain.EventPublisher
	notifier     domain.Notifier
	completer    PhaseCompleter
	db           *gorm.DB
}

// NewApprovalCommandService 创建 ApprovalCommandService 实例
func NewApprovalCommandService(
	stageRepo domain.StageRepository,
	docRepo domain.DocumentRepository,
	approvalRepo domain.ApprovalRepository,
	phaseRepo lifecycledomain.PhaseRepository,
	eventStore lifecycledomain.EventStore,
	publisher lifecycledomain.EventPublisher,
	notifier domain.Notifier,
	completer PhaseCompleter,
	db *gorm.DB,
) *ApprovalCommandService {
	return &ApprovalCommandService{
		stageRepo:    stageRepo,
		docRepo:      docRepo,
		approvalRepo: approvalRepo,
		phaseRepo:    phaseRepo,
		eventStore:   eventStore,
		publisher:    publisher,
		notifier:     notifier,
		completer:    completer,
		db:           db,
	}
}

// UploadDocument 上传文档
// 要求上传方与当前阶段机构一致的文档自动通过（机构不评审自己上传的文件），
// 自动通过可能直接令阶段满足并推进
func (s *ApprovalCommandService) UploadDocument(ctx context.Context, cmd UploadDocumentCommand) error {
	var after afterCommit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		after = afterCommit{}

		doc, err := s.docRepo.Get(txCtx, cmd.TenantID, cmd.DocumentID)
		if err != nil {
			return err
		}
		if doc.Skipped {
			return domain.ErrDocumentSkipped
		}
		if doc.RequiredUploader != cmd.UploaderOrg {
			return domain.ErrWrongUploaderOrganization
		}

		stages, err := s.stageRepo.ListByPhase(txCtx, cmd.TenantID, doc.PhaseID)
		if err != nil {
			return err
		}
		active := domain.ActiveStage(stages)
		if active == nil {
			return domain.ErrNoActiveStage
		}

		now := time.Now()
		doc.Upload(cmd.UploaderID, cmd.FileRef, now)

		autoApproved := domain.ShouldAutoApprove(active, doc)
		if autoApproved {
			doc.Status = domain.DocumentStatusApproved
			if err := s.approvalRepo.Append(txCtx, &domain.DocumentApproval{
				ApprovalID:  fmt.Sprintf("APR-%d", idgen.GenID()),
				DocumentID:  doc.DocumentID,
				PhaseID:     doc.PhaseID,
				TenantID:    doc.TenantID,
				StageOrder:  active.Order,
				ReviewerID:  cmd.UploaderID,
				ReviewerOrg: cmd.UploaderOrg,
				Decision:    domain.DecisionApproved,
				Synthetic:   true,
			}); err != nil {
				return err
			}
		}

		if err := s.docRepo.Save(txCtx, doc); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.DocumentUploadedEvent,
			AggregateType: domain.AggregateDocument,
			AggregateID:   doc.DocumentID,
			ActorID:       cmd.UploaderID,
			Payload: map[string]any{
				"phase_id":      doc.PhaseID,
				"document_type": doc.DocumentType,
				"auto_approved": autoApproved,
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentUploadedEvent, doc.DocumentID, map[string]any{
			"document_id":   doc.DocumentID,
			"phase_id":      doc.PhaseID,
			"tenant_id":     doc.TenantID,
			"auto_approved": autoApproved,
		}); err != nil {
			return err
		}

		if autoApproved && active.AutoTransition {
			docs, err := s.docRepo.ListByPhase(txCtx, cmd.TenantID, doc.PhaseID)
			if err != nil {
				return err
			}
			if domain.StageSatisfied(active, docs) {
				return s.advanceInTx(txCtx, doc.PhaseID, stages, active, now, cmd.UploaderID, &after)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.runAfterCommit(ctx, after)
	return nil
}

// ReviewDocument 评审文档
// APPROVED 可能推进阶段；REJECTED 按阶段驳回策略回退整条流水线；
// CHANGES_REQUESTED 只把该文档退回重传，不触发回退
func (s *ApprovalCommandService) ReviewDocument(ctx context.Context, cmd ReviewDocumentCommand) error {
	if !cmd.Decision.Valid() {
		return domain.ErrInvalidDecision
	}

	var after afterCommit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		after = afterCommit{}

		doc, err := s.docRepo.Get(txCtx, cmd.TenantID, cmd.DocumentID)
		if err != nil {
			return err
		}
		if doc.Skipped {
			return domain.ErrDocumentSkipped
		}

		stages, err := s.stageRepo.ListByPhase(txCtx, cmd.TenantID, doc.PhaseID)
		if err != nil {
			return err
		}
		active := domain.ActiveStage(stages)
		if active == nil {
			return domain.ErrNoActiveStage
		}
		if active.Organization != cmd.ReviewerOrg {
			return domain.ErrWrongReviewerOrganization
		}
		if doc.RequiredUploader != active.Organization {
			return domain.ErrDocumentNotInStageScope
		}
		if doc.Status != domain.DocumentStatusUploaded {
			return domain.ErrDocumentNotReviewable
		}

		now := time.Now()
		if err := s.approvalRepo.Append(txCtx, &domain.DocumentApproval{
			ApprovalID:  fmt.Sprintf("APR-%d", idgen.GenID()),
			DocumentID:  doc.DocumentID,
			PhaseID:     doc.PhaseID,
			TenantID:    doc.TenantID,
			StageOrder:  active.Order,
			ReviewerID:  cmd.ReviewerID,
			ReviewerOrg: cmd.ReviewerOrg,
			Decision:    cmd.Decision,
			Comment:     cmd.Comment,
		}); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.DocumentReviewedEvent,
			AggregateType: domain.AggregateDocument,
			AggregateID:   doc.DocumentID,
			ActorID:       cmd.ReviewerID,
			Payload: map[string]any{
				"phase_id":    doc.PhaseID,
				"stage_order": active.Order,
				"decision":    string(cmd.Decision),
			},
		}); err != nil {
			return err
		}
		if err := s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentReviewedEvent, doc.DocumentID, map[string]any{
			"document_id": doc.DocumentID,
			"phase_id":    doc.PhaseID,
			"tenant_id":   doc.TenantID,
			"decision":    string(cmd.Decision),
		}); err != nil {
			return err
		}

		switch cmd.Decision {
		case domain.DecisionApproved:
			doc.Status = domain.DocumentStatusApproved
			if err := s.docRepo.Save(txCtx, doc); err != nil {
				return err
			}
			if !active.AutoTransition {
				return nil
			}
			docs, err := s.docRepo.ListByPhase(txCtx, cmd.TenantID, doc.PhaseID)
			if err != nil {
				return err
			}
			if domain.StageSatisfied(active, docs) {
				return s.advanceInTx(txCtx, doc.PhaseID, stages, active, now, cmd.ReviewerID, &after)
			}
			return nil

		case domain.DecisionChangesRequested:
			doc.Status = domain.DocumentStatusNeedsReupload
			if err := s.docRepo.Save(txCtx, doc); err != nil {
				return err
			}
			after.rejectedDoc = doc
			after.rejectionComment = cmd.Comment
			return nil

		default: // REJECTED
			doc.Status = domain.DocumentStatusRejected
			if err := s.docRepo.Save(txCtx, doc); err != nil {
				return err
			}
			return s.applyRejectionInTx(txCtx, doc, stages, active, now, cmd.ReviewerID, cmd.Comment, &after)
		}
	})
	if err != nil {
		return err
	}

	s.runAfterCommit(ctx, after)
	return nil
}

// AdvanceStage 手动推进：当前阶段满足但 auto_transition 为假时由机构显式确认
func (s *ApprovalCommandService) AdvanceStage(ctx context.Context, cmd AdvanceStageCommand) error {
	var after afterCommit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		after = afterCommit{}

		stages, err := s.stageRepo.ListByPhase(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		active := domain.ActiveStage(stages)
		if active == nil {
			return domain.ErrNoActiveStage
		}
		docs, err := s.docRepo.ListByPhase(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		if !domain.StageSatisfied(active, docs) {
			return domain.ErrStageNotInProgress
		}
		return s.advanceInTx(txCtx, cmd.PhaseID, stages, active, time.Now(), cmd.ActorID, &after)
	})
	if err != nil {
		return err
	}

	s.runAfterCommit(ctx, after)
	return nil
}

// advanceInTx 完成当前阶段并激活后继，同步回写文档阶段的指针快照
// 指针清零（无后继）时流水线结束，交给生命周期编排器完成整个阶段
func (s *ApprovalCommandService) advanceInTx(txCtx context.Context, phaseID string, stages []*domain.StageProgress, active *domain.StageProgress, now time.Time, actorID string, after *afterCommit) error {
	pointer := domain.Advance(stages, active, now)
	if err := s.stageRepo.SaveAll(txCtx, stages); err != nil {
		return err
	}
	if err := s.savePointer(txCtx, active.TenantID, phaseID, pointer); err != nil {
		return err
	}

	if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
		TenantID:      active.TenantID,
		EventType:     domain.StageAdvancedEvent,
		AggregateType: domain.AggregateStage,
		AggregateID:   active.StageID,
		ActorID:       actorID,
		Payload: map[string]any{
			"phase_id":        phaseID,
			"completed_order": active.Order,
			"new_pointer":     pointer,
		},
	}); err != nil {
		return err
	}

	if pointer == 0 {
		after.completedPhase = &lifecycleapp.CompletePhaseCommand{
			TenantID: active.TenantID,
			PhaseID:  phaseID,
			ActorID:  actorID,
		}
		return nil
	}

	after.activatedStage = domain.StageByOrder(stages, pointer)
	return nil
}

// applyRejectionInTx 按驳回策略回退并回写指针
func (s *ApprovalCommandService) applyRejectionInTx(txCtx context.Context, doc *domain.Document, stages []*domain.StageProgress, active *domain.StageProgress, now time.Time, actorID, comment string, after *afterCommit) error {
	docs, err := s.docRepo.ListByPhase(txCtx, doc.TenantID, doc.PhaseID)
	if err != nil {
		return err
	}

	pointer := domain.ApplyRejection(stages, docs, active, now)
	if err := s.stageRepo.SaveAll(txCtx, stages); err != nil {
		return err
	}
	if err := s.docRepo.SaveAll(txCtx, docs); err != nil {
		return err
	}
	if err := s.savePointer(txCtx, doc.TenantID, doc.PhaseID, pointer); err != nil {
		return err
	}

	if err := s.eventStore.Append(txCtx, &lifecycledomain.AuditEvent{
		TenantID:      doc.TenantID,
		EventType:     domain.PipelineRestartedEvent,
		AggregateType: domain.AggregateStage,
		AggregateID:   active.StageID,
		ActorID:       actorID,
		Payload: map[string]any{
			"phase_id":    doc.PhaseID,
			"policy":      string(active.OnRejection),
			"new_pointer": pointer,
			"document_id": doc.DocumentID,
		},
	}); err != nil {
		return err
	}

	after.rejectedDoc = doc
	after.rejectionComment = comment
	after.activatedStage = domain.StageByOrder(stages, pointer)
	return nil
}

// savePointer 同步文档阶段快照里的当前阶段指针
func (s *ApprovalCommandService) savePointer(txCtx context.Context, tenantID, phaseID string, pointer int) error {
	phase, err := s.phaseRepo.Get(txCtx, tenantID, phaseID)
	if err != nil {
		return err
	}
	detail, err := phase.DocumentationDetail()
	if err != nil {
		return err
	}
	detail.CurrentStageOrder = pointer
	if err := phase.SetDetail(detail); err != nil {
		return err
	}
	return s.phaseRepo.Save(txCtx, phase)
}

// afterCommit 事务提交后要做的事：机构通知与阶段完成回调
type afterCommit struct {
	activatedStage   *domain.StageProgress
	rejectedDoc      *domain.Document
	rejectionComment string
	completedPhase   *lifecycleapp.CompletePhaseCommand
}

func (s *ApprovalCommandService) runAfterCommit(ctx context.Context, after afterCommit) {
	if after.activatedStage != nil {
		if err := s.notifier.NotifyStageActivated(ctx, after.activatedStage); err != nil {
			logging.Warn(ctx, "stage activation notification failed",
				"stage_id", after.activatedStage.StageID,
				"error", err,
			)
		}
	}
	if after.rejectedDoc != nil {
		if err := s.notifier.NotifyDocumentRejected(ctx, after.rejectedDoc, after.rejectionComment); err != nil {
			logging.Warn(ctx, "document rejection notification failed",
				"document_id", after.rejectedDoc.DocumentID,
				"error", err,
			)
		}
	}
	if after.completedPhase != nil {
		if err := s.completer.CompletePhase(ctx, *after.completedPhase); err != nil {
			logging.Error(ctx, "phase completion after pipeline finish failed",
				"phase_id", after.completedPhase.PhaseID,
				"error", err,
			)
		}
	}
}
