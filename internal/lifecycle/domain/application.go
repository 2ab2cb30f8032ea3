package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplicationStatus 申请状态
type ApplicationStatus string

const (
	ApplicationStatusActive    ApplicationStatus = "ACTIVE"
	ApplicationStatusCompleted ApplicationStatus = "COMPLETED"
	ApplicationStatusCancelled ApplicationStatus = "CANCELLED"
)

// FinanceApplication 购房分期申请聚合根
type FinanceApplication struct {
	gorm.Model
	ApplicationID   string            `gorm:"column:application_id;type:varchar(32);uniqueIndex;not null" json:"application_id"`
	TenantID        string            `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	BuyerID         string            `gorm:"column:buyer_id;type:varchar(32);index;not null" json:"buyer_id"`
	PropertyUnitID  string            `gorm:"column:property_unit_id;type:varchar(32);index;not null" json:"property_unit_id"`
	PaymentMethodID string            `gorm:"column:payment_method_id;type:varchar(32);not null" json:"payment_method_id"`
	Status          ApplicationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'ACTIVE'" json:"status"`
	CurrentPhaseID  string            `gorm:"column:current_phase_id;type:varchar(32)" json:"current_phase_id"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	CompletedAt     *time.Time        `gorm:"column:completed_at" json:"completed_at"`
}

// TableName 表名
func (FinanceApplication) TableName() string {
	return "finance_applications"
}

// SetCurrentPhase 更新当前阶段指针
func (a *FinanceApplication) SetCurrentPhase(phaseID string) {
	a.CurrentPhaseID = phaseID
}

// Complete 最后一个阶段完成后关闭申请
func (a *FinanceApplication) Complete() error {
	if a.Status != ApplicationStatusActive {
		return ErrApplicationNotActive
	}
	now := time.Now()
	a.Status = ApplicationStatusCompleted
	a.CurrentPhaseID = ""
	a.CompletedAt = &now
	return nil
}

// Amend 付款方式变更执行后重指付款方式
func (a *FinanceApplication) Amend(paymentMethodID string) error {
	if a.Status != ApplicationStatusActive {
		return ErrApplicationNotActive
	}
	a.PaymentMethodID = paymentMethodID
	return nil
}

// UnitStatus 房产单元状态
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "AVAILABLE"
	UnitStatusReserved  UnitStatus = "RESERVED"
	UnitStatusSold      UnitStatus = "SOLD"
)

// PropertyUnit 房产单元
type PropertyUnit struct {
	gorm.Model
	UnitID   string          `gorm:"column:unit_id;type:varchar(32);uniqueIndex;not null" json:"unit_id"`
	TenantID string          `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	Project  string          `gorm:"column:project;type:varchar(100)" json:"project"`
	Price    decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	Status   UnitStatus      `gorm:"column:status;type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	OwnerID  string          `gorm:"column:owner_id;type:varchar(32)" json:"owner_id"`
}

// TableName 表名
func (PropertyUnit) TableName() string {
	return "property_units"
}

// Reserve 申请创建时锁定房源
func (u *PropertyUnit) Reserve() error {
	if u.Status != UnitStatusAvailable {
		return ErrUnitNotAvailable
	}
	u.Status = UnitStatusReserved
	return nil
}

// TransferTo 申请完成后过户给买家
func (u *PropertyUnit) TransferTo(buyerID string) {
	u.Status = UnitStatusSold
	u.OwnerID = buyerID
}

// PaymentPhaseTemplate 付款方式内单个付款阶段的模板
// Share 为该阶段占总额（或剩余额）的百分比，所有阶段合计 100
type PaymentPhaseTemplate struct {
	Name             string          `json:"name"`
	Share            decimal.Decimal `json:"share"`
	InstallmentCount int             `json:"installment_count"`
	IntervalDays     int             `json:"interval_days"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	GracePeriodDays  int             `json:"grace_period_days"`
}

// PaymentMethod 付款方式及其付款阶段模板
type PaymentMethod struct {
	gorm.Model
	MethodID string          `gorm:"column:method_id;type:varchar(32);uniqueIndex;not null" json:"method_id"`
	TenantID string          `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	Name     string          `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Phases   json.RawMessage `gorm:"column:phases;type:json" json:"phases"`
	Active   bool            `gorm:"column:active;not null;default:true" json:"active"`
}

// TableName 表名
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// PhaseTemplates 解析付款阶段模板
func (m *PaymentMethod) PhaseTemplates() ([]PaymentPhaseTemplate, error) {
	var templates []PaymentPhaseTemplate
	if err := json.Unmarshal(m.Phases, &templates); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrInvalidPhaseTemplate
	}
	return templates, nil
}
