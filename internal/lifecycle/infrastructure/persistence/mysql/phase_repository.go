package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// phaseRepository 阶段仓储实现，所有查询按 phase_order 排序
type phaseRepository struct {
	db *gorm.DB
}

// NewPhaseRepository 创建阶段仓储实例
func NewPhaseRepository(db *gorm.DB) domain.PhaseRepository {
	return &phaseRepository{db: db}
}

func (r *phaseRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存阶段
func (r *phaseRepository) Save(ctx context.Context, phase *domain.Phase) error {
	return r.getDB(ctx).WithContext(ctx).Save(phase).Error
}

// SaveAll 批量保存阶段
func (r *phaseRepository) SaveAll(ctx context.Context, phases []*domain.Phase) error {
	if len(phases) == 0 {
		return nil
	}
	return r.getDB(ctx).WithContext(ctx).Save(phases).Error
}

// Get 按阶段 ID 获取
func (r *phaseRepository) Get(ctx context.Context, tenantID, phaseID string) (*domain.Phase, error) {
	var phase domain.Phase
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND phase_id = ?", tenantID, phaseID).
		First(&phase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPhaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

// ListByApplication 申请下全部阶段，按序号升序
func (r *phaseRepository) ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*domain.Phase, error) {
	var phases []*domain.Phase
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ?", tenantID, applicationID).
		Order("phase_order ASC").
		Find(&phases).Error
	if err != nil {
		return nil, err
	}
	return phases, nil
}

// GetByOrder 按序号获取
func (r *phaseRepository) GetByOrder(ctx context.Context, tenantID, applicationID string, order int) (*domain.Phase, error) {
	var phase domain.Phase
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ? AND phase_order = ?", tenantID, applicationID, order).
		First(&phase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPhaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

// NextAfter 给定序号之后的第一个阶段，没有则返回 nil
func (r *phaseRepository) NextAfter(ctx context.Context, tenantID, applicationID string, order int) (*domain.Phase, error) {
	var phase domain.Phase
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ? AND phase_order > ?", tenantID, applicationID, order).
		Order("phase_order ASC").
		First(&phase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

// MaxOrder 申请下最大阶段序号，无阶段时返回 -1
func (r *phaseRepository) MaxOrder(ctx context.Context, tenantID, applicationID string) (int, error) {
	var max *int
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Phase{}).
		Where("tenant_id = ? AND application_id = ?", tenantID, applicationID).
		Select("MAX(phase_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// ListOpenByCategory 某类别下未终结（PENDING/IN_PROGRESS）的阶段
func (r *phaseRepository) ListOpenByCategory(ctx context.Context, tenantID, applicationID string, category domain.PhaseCategory) ([]*domain.Phase, error) {
	var phases []*domain.Phase
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ? AND category = ? AND status IN ?",
			tenantID, applicationID, category,
			[]domain.PhaseStatus{domain.PhaseStatusPending, domain.PhaseStatusInProgress}).
		Order("phase_order ASC").
		Find(&phases).Error
	if err != nil {
		return nil, err
	}
	return phases, nil
}
