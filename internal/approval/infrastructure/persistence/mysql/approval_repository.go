// 包 审批上下文的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/approval/domain"
	"gorm.io/gorm"
)

// stageRepository 审批阶段仓储实现
type stageRepository struct {
	db *gorm.DB
}

// NewStageRepository 创建审批阶段仓储实例
func NewStageRepository(db *gorm.DB) domain.StageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// SaveAll 批量保存阶段行
func (r *stageRepository) SaveAll(ctx context.Context, stages []*domain.StageProgress) error {
	if len(stages) == 0 {
		return nil
	}
	return r.getDB(ctx).WithContext(ctx).Save(stages).Error
}

// ListByPhase 某文档阶段的全部审批阶段，按序号升序
func (r *stageRepository) ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*domain.StageProgress, error) {
	var stages []*domain.StageProgress
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		Order("stage_order ASC").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

// AllCompleted 是否全部阶段 COMPLETED（无阶段视为未完成）
func (r *stageRepository) AllCompleted(ctx context.Context, tenantID, phaseID string) (bool, error) {
	var total, completed int64
	db := r.getDB(ctx).WithContext(ctx).Model(&domain.StageProgress{})
	if err := db.Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).Count(&total).Error; err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.StageProgress{}).
		Where("tenant_id = ? AND phase_id = ? AND status = ?", tenantID, phaseID, domain.StageStatusCompleted).
		Count(&completed).Error
	if err != nil {
		return false, err
	}
	return total == completed, nil
}

// documentRepository 文档仓储实现
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓储实例
func NewDocumentRepository(db *gorm.DB) domain.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存文档
func (r *documentRepository) Save(ctx context.Context, doc *domain.Document) error {
	return r.getDB(ctx).WithContext(ctx).Save(doc).Error
}

// SaveAll 批量保存文档
func (r *documentRepository) SaveAll(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return r.getDB(ctx).WithContext(ctx).Save(docs).Error
}

// Get 按文档 ID 获取
func (r *documentRepository) Get(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	var doc domain.Document
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByPhase 某文档阶段的全部文档
func (r *documentRepository) ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// approvalRepository 评审记录仓储实现，只追加
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository 创建评审记录仓储实例
func NewApprovalRepository(db *gorm.DB) domain.ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Append 追加一条评审记录
func (r *approvalRepository) Append(ctx context.Context, approval *domain.DocumentApproval) error {
	return r.getDB(ctx).WithContext(ctx).Create(approval).Error
}

// ListByPhase 某文档阶段的全部评审记录，按时间升序
func (r *approvalRepository) ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*domain.DocumentApproval, error) {
	var approvals []*domain.DocumentApproval
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		Order("id ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}
