package domain

import "context"

// StageRepository 审批阶段仓储接口
type StageRepository interface {
	SaveAll(ctx context.Context, stages []*StageProgress) error
	ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*StageProgress, error)
	AllCompleted(ctx context.Context, tenantID, phaseID string) (bool, error)
}

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	Save(ctx context.Context, doc *Document) error
	SaveAll(ctx context.Context, docs []*Document) error
	Get(ctx context.Context, tenantID, documentID string) (*Document, error)
	ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*Document, error)
}

// ApprovalRepository 评审记录仓储接口，只追加
type ApprovalRepository interface {
	Append(ctx context.Context, approval *DocumentApproval) error
	ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*DocumentApproval, error)
}

// Notifier 阶段激活/驳回后的机构通知，提交后调用，失败只记日志
type Notifier interface {
	NotifyStageActivated(ctx context.Context, stage *StageProgress) error
	NotifyDocumentRejected(ctx context.Context, doc *Document, comment string) error
}
