// 包 付款方式变更上下文的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/paymentchange/domain"
	"gorm.io/gorm"
)

// changeRequestRepository 变更请求仓储实现
type changeRequestRepository struct {
	db *gorm.DB
}

// NewChangeRequestRepository 创建变更请求仓储实例
func NewChangeRequestRepository(db *gorm.DB) domain.ChangeRequestRepository {
	return &changeRequestRepository{db: db}
}

func (r *changeRequestRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存变更请求
func (r *changeRequestRepository) Save(ctx context.Context, request *domain.ChangeRequest) error {
	return r.getDB(ctx).WithContext(ctx).Save(request).Error
}

// Get 按请求 ID 获取
func (r *changeRequestRepository) Get(ctx context.Context, tenantID, requestID string) (*domain.ChangeRequest, error) {
	var request domain.ChangeRequest
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByApplication 申请下的变更请求，按创建时间倒序
func (r *changeRequestRepository) ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*domain.ChangeRequest, error) {
	var requests []*domain.ChangeRequest
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ?", tenantID, applicationID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
