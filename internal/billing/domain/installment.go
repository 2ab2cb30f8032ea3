// Package domain 包含付款阶段分期账单的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrScheduleNotFound    = errors.New("installment schedule not found")

	ErrInstallmentNotPayable = errors.New("installment is not payable")
	ErrAmountMismatch        = errors.New("payment amount does not match installment amount")
	ErrScheduleExists        = errors.New("schedule already generated for phase")
)

// InstallmentStatus 分期状态
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusWaived  InstallmentStatus = "WAIVED"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

// Installment 一期应还账单
type Installment struct {
	gorm.Model
	InstallmentID string            `gorm:"column:installment_id;type:varchar(32);uniqueIndex;not null" json:"installment_id"`
	PhaseID       string            `gorm:"column:phase_id;type:varchar(32);index;not null" json:"phase_id"`
	ApplicationID string            `gorm:"column:application_id;type:varchar(32);index;not null" json:"application_id"`
	TenantID      string            `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	Number        int               `gorm:"column:number;not null" json:"number"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Principal     decimal.Decimal   `gorm:"column:principal;type:decimal(20,2);not null" json:"principal"`
	Interest      decimal.Decimal   `gorm:"column:interest;type:decimal(20,2);not null" json:"interest"`
	DueDate       time.Time         `gorm:"column:due_date;index;not null" json:"due_date"`
	Status        InstallmentStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	PaidAt        *time.Time        `gorm:"column:paid_at" json:"paid_at"`
	PaymentRef    string            `gorm:"column:payment_ref;type:varchar(64)" json:"payment_ref"`
	WaivedBy      string            `gorm:"column:waived_by;type:varchar(32)" json:"waived_by"`
}

// TableName 表名
func (Installment) TableName() string {
	return "installments"
}

// Pay 记录实付，金额必须与账单一致
func (i *Installment) Pay(amount decimal.Decimal, paymentRef string, now time.Time) error {
	if i.Status != InstallmentStatusPending && i.Status != InstallmentStatusOverdue {
		return ErrInstallmentNotPayable
	}
	if !amount.Equal(i.Amount) {
		return ErrAmountMismatch
	}
	i.Status = InstallmentStatusPaid
	i.PaidAt = &now
	i.PaymentRef = paymentRef
	return nil
}

// Waive 豁免本期
func (i *Installment) Waive(actorID string) error {
	if i.Status != InstallmentStatusPending && i.Status != InstallmentStatusOverdue {
		return ErrInstallmentNotPayable
	}
	i.Status = InstallmentStatusWaived
	i.WaivedBy = actorID
	return nil
}

// Settled 本期是否不再需要付款
func (i *Installment) Settled() bool {
	return i.Status == InstallmentStatusPaid || i.Status == InstallmentStatusWaived
}

// AllSettled 整个计划是否已结清
func AllSettled(installments []*Installment) bool {
	if len(installments) == 0 {
		return false
	}
	for _, installment := range installments {
		if !installment.Settled() {
			return false
		}
	}
	return true
}

// PaidPrincipal 已付/已豁免期数覆盖的本金合计
func PaidPrincipal(installments []*Installment) decimal.Decimal {
	total := decimal.Zero
	for _, installment := range installments {
		if installment.Settled() {
			total = total.Add(installment.Principal)
		}
	}
	return total
}

// InstallmentRepository 分期仓储接口
type InstallmentRepository interface {
	SaveAll(ctx context.Context, installments []*Installment) error
	Save(ctx context.Context, installment *Installment) error
	Get(ctx context.Context, tenantID, installmentID string) (*Installment, error)
	ListByPhase(ctx context.Context, tenantID, phaseID string) ([]*Installment, error)
	ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*Installment, error)
	CountByPhase(ctx context.Context, tenantID, phaseID string) (int64, error)
	MarkOverdueBefore(ctx context.Context, before time.Time) (int, error)
}

// EventPublisher 集成事件发布接口（Outbox 模式）
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}

// 账单侧发布的事件主题
const (
	ScheduleGeneratedEvent     = "billing.schedule.generated"
	InstallmentPaidEvent       = "billing.installment.paid"
	InstallmentWaivedEvent     = "billing.installment.waived"
	PaymentPhaseCompletedEvent = "billing.payment.phase.completed"
)
