// Package domain 包含付款方式变更请求的领域模型
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound = errors.New("payment method change request not found")

	ErrInvalidTransition    = errors.New("illegal change request transition")
	ErrRequestTerminal      = errors.New("change request already terminal")
	ErrRequestNotExecutable = errors.New("change request is not approved for execution")
	ErrSameMethod           = errors.New("target payment method equals current method")
)

// RequestStatus 变更请求状态
type RequestStatus string

const (
	RequestStatusPendingDocuments   RequestStatus = "PENDING_DOCUMENTS"
	RequestStatusDocumentsSubmitted RequestStatus = "DOCUMENTS_SUBMITTED"
	RequestStatusUnderReview        RequestStatus = "UNDER_REVIEW"
	RequestStatusApproved           RequestStatus = "APPROVED"
	RequestStatusExecuted           RequestStatus = "EXECUTED"
	RequestStatusRejected           RequestStatus = "REJECTED"
	RequestStatusCancelled          RequestStatus = "CANCELLED"
)

// ChangeRequest 付款方式变更请求
// 执行后保留被取代与新建阶段的快照，便于审计回放
type ChangeRequest struct {
	gorm.Model
	RequestID        string          `gorm:"column:request_id;type:varchar(32);uniqueIndex;not null" json:"request_id"`
	ApplicationID    string          `gorm:"column:application_id;type:varchar(32);index;not null" json:"application_id"`
	TenantID         string          `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	RequestedBy      string          `gorm:"column:requested_by;type:varchar(32);not null" json:"requested_by"`
	CurrentMethodID  string          `gorm:"column:current_method_id;type:varchar(32);not null" json:"current_method_id"`
	TargetMethodID   string          `gorm:"column:target_method_id;type:varchar(32);not null" json:"target_method_id"`
	Status           RequestStatus   `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING_DOCUMENTS'" json:"status"`
	Reason           string          `gorm:"column:reason;type:varchar(512)" json:"reason"`
	DecidedBy        string          `gorm:"column:decided_by;type:varchar(32)" json:"decided_by"`
	DecisionComment  string          `gorm:"column:decision_comment;type:varchar(512)" json:"decision_comment"`
	SupersededPhases json.RawMessage `gorm:"column:superseded_phases;type:json" json:"superseded_phases"`
	CreatedPhases    json.RawMessage `gorm:"column:created_phases;type:json" json:"created_phases"`
	ExecutedAt       *time.Time      `gorm:"column:executed_at" json:"executed_at"`
}

// TableName 表名
func (ChangeRequest) TableName() string {
	return "payment_method_change_requests"
}

// IsTerminal 是否处于终态
func (r *ChangeRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusExecuted, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// SubmitDocuments PENDING_DOCUMENTS -> DOCUMENTS_SUBMITTED
func (r *ChangeRequest) SubmitDocuments() error {
	if r.Status != RequestStatusPendingDocuments {
		return ErrInvalidTransition
	}
	r.Status = RequestStatusDocumentsSubmitted
	return nil
}

// StartReview DOCUMENTS_SUBMITTED -> UNDER_REVIEW
func (r *ChangeRequest) StartReview() error {
	if r.Status != RequestStatusDocumentsSubmitted {
		return ErrInvalidTransition
	}
	r.Status = RequestStatusUnderReview
	return nil
}

// Approve UNDER_REVIEW -> APPROVED
func (r *ChangeRequest) Approve(decidedBy, comment string) error {
	if r.Status != RequestStatusUnderReview {
		return ErrInvalidTransition
	}
	r.Status = RequestStatusApproved
	r.DecidedBy = decidedBy
	r.DecisionComment = comment
	return nil
}

// Reject 任意非终态均可驳回
func (r *ChangeRequest) Reject(decidedBy, comment string) error {
	if r.IsTerminal() {
		return ErrRequestTerminal
	}
	r.Status = RequestStatusRejected
	r.DecidedBy = decidedBy
	r.DecisionComment = comment
	return nil
}

// Cancel 任意非终态均可由申请人撤销
func (r *ChangeRequest) Cancel() error {
	if r.IsTerminal() {
		return ErrRequestTerminal
	}
	r.Status = RequestStatusCancelled
	return nil
}

// MarkExecuted APPROVED -> EXECUTED，同时固化阶段快照
func (r *ChangeRequest) MarkExecuted(superseded, created any, now time.Time) error {
	if r.Status != RequestStatusApproved {
		return ErrRequestNotExecutable
	}
	supersededRaw, err := json.Marshal(superseded)
	if err != nil {
		return err
	}
	createdRaw, err := json.Marshal(created)
	if err != nil {
		return err
	}
	r.Status = RequestStatusExecuted
	r.SupersededPhases = supersededRaw
	r.CreatedPhases = createdRaw
	r.ExecutedAt = &now
	return nil
}

// ChangeRequestRepository 变更请求仓储接口
type ChangeRequestRepository interface {
	Save(ctx context.Context, request *ChangeRequest) error
	Get(ctx context.Context, tenantID, requestID string) (*ChangeRequest, error)
	ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*ChangeRequest, error)
}

// 变更请求事件主题
const (
	RequestCreatedEvent  = "paymentchange.request.created"
	RequestDecidedEvent  = "paymentchange.request.decided"
	RequestExecutedEvent = "paymentchange.request.executed"
)

// AggregateChangeRequest 审计聚合类型
const AggregateChangeRequest = "CHANGE_REQUEST"
