// 包 生命周期上下文的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// applicationRepository 申请仓储实现
type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建申请仓储实例
func NewApplicationRepository(db *gorm.DB) domain.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存申请
func (r *applicationRepository) Save(ctx context.Context, app *domain.FinanceApplication) error {
	return r.getDB(ctx).WithContext(ctx).Save(app).Error
}

// Get 按申请 ID 获取
func (r *applicationRepository) Get(ctx context.Context, tenantID, applicationID string) (*domain.FinanceApplication, error) {
	var app domain.FinanceApplication
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND application_id = ?", tenantID, applicationID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByBuyer 买家名下申请，按创建时间倒序
func (r *applicationRepository) ListByBuyer(ctx context.Context, tenantID, buyerID string, limit, offset int) ([]*domain.FinanceApplication, error) {
	var apps []*domain.FinanceApplication
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND buyer_id = ?", tenantID, buyerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// propertyUnitRepository 房产单元仓储实现
type propertyUnitRepository struct {
	db *gorm.DB
}

// NewPropertyUnitRepository 创建房产单元仓储实例
func NewPropertyUnitRepository(db *gorm.DB) domain.PropertyUnitRepository {
	return &propertyUnitRepository{db: db}
}

func (r *propertyUnitRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存房产单元
func (r *propertyUnitRepository) Save(ctx context.Context, unit *domain.PropertyUnit) error {
	return r.getDB(ctx).WithContext(ctx).Save(unit).Error
}

// Get 按单元 ID 获取
func (r *propertyUnitRepository) Get(ctx context.Context, tenantID, unitID string) (*domain.PropertyUnit, error) {
	var unit domain.PropertyUnit
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND unit_id = ?", tenantID, unitID).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPropertyUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// paymentMethodRepository 付款方式仓储实现
type paymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository 创建付款方式仓储实例
func NewPaymentMethodRepository(db *gorm.DB) domain.PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

func (r *paymentMethodRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 保存付款方式
func (r *paymentMethodRepository) Save(ctx context.Context, method *domain.PaymentMethod) error {
	return r.getDB(ctx).WithContext(ctx).Save(method).Error
}

// Get 按方式 ID 获取
func (r *paymentMethodRepository) Get(ctx context.Context, tenantID, methodID string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := r.getDB(ctx).WithContext(ctx).
		Where("tenant_id = ? AND method_id = ?", tenantID, methodID).
		First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}
