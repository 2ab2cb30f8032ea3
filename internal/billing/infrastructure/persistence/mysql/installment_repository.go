// 包 账单上下文的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/billing/domain"
	"gorm.io/gorm"
)

// installmentRepository 分期仓储实现
type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository 创建分期仓储实例
func NewInstallmentRepository(db *gorm.DB) domain.InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// SaveAll 批量保存分期
func (r *installmentRepository) SaveAll(ctx context.Context, installments []*domain.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.getDB(ctx).WithContext(ctx).Save(installments).Error
}

// Save 保存分期
func (r *installmentRepository) Save(ctx context.Context, installment *domain.Installment) error {
	return r.getDB(ctx).WithContext(ctx).Save(installment).Error
}

// Get 按分期 ID 获取
func (r *installmentRepository) Get(ctx context.Context, tenantID, installmentID string) (*domain.Installment, error) {
	var installment domain.Installment
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND installment_id = ?", tenantID, installmentID).
		First(&installment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

// ListByPhase 某付款阶段的分期，按期数升序
func (r *installmentRepository) ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*domain.Installment, error) {
	var installments []*domain.Installment
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		Order("number ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

// ListByApplication 某申请的全部分期
func (r *installmentRepository) ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*domain.Installment, error) {
	var installments []*domain.Installment
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ?", tenantID, applicationID).
		Order("phase_id ASC, number ASC").
		Find(&installments).Error
	if err != nil {
		return nil, err
	}
	return installments, nil
}

// CountByPhase 某付款阶段的分期行数，用于排期生成的幂等判断
func (r *installmentRepository) CountByPhase(ctx context.Context, tenantID, phaseID string) (int64, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.Installment{}).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		Count(&count).Error
	return count, err
}

// MarkOverdueBefore 到期未付的 PENDING 分期批量置为 OVERDUE
func (r *installmentRepository) MarkOverdueBefore(ctx context.Context, before time.Time) (int, error) {
	result := r.getDB(ctx).WithContext(ctx).Model(&domain.Installment{}).
		Where("status = ? AND due_date < ?", domain.InstallmentStatusPending, before).
		Update("status", domain.InstallmentStatusOverdue)
	return int(result.RowsAffected), result.Error
}
