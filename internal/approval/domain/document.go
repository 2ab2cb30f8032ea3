package domain

import (
	"time"

	"gorm.io/gorm"
)

// DocumentStatus 文档状态
type DocumentStatus string

const (
	DocumentStatusPending       DocumentStatus = "PENDING"
	DocumentStatusUploaded      DocumentStatus = "UPLOADED"
	DocumentStatusApproved      DocumentStatus = "APPROVED"
	DocumentStatusRejected      DocumentStatus = "REJECTED"
	DocumentStatusNeedsReupload DocumentStatus = "NEEDS_REUPLOAD"
)

// Document 文档阶段的一份待收文件
type Document struct {
	gorm.Model
	DocumentID       string           `gorm:"column:document_id;type:varchar(32);uniqueIndex;not null" json:"document_id"`
	PhaseID          string           `gorm:"column:phase_id;type:varchar(32);index;not null" json:"phase_id"`
	TenantID         string           `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	DocumentType     string           `gorm:"column:document_type;type:varchar(50);not null" json:"document_type"`
	Name             string           `gorm:"column:name;type:varchar(100)" json:"name"`
	RequiredUploader OrganizationType `gorm:"column:required_uploader;type:varchar(20);not null" json:"required_uploader"`
	Status           DocumentStatus   `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	Skipped          bool             `gorm:"column:skipped;not null;default:false" json:"skipped"`
	FileRef          string           `gorm:"column:file_ref;type:varchar(255)" json:"file_ref"`
	UploadedBy       string           `gorm:"column:uploaded_by;type:varchar(32)" json:"uploaded_by"`
	UploadedAt       *time.Time       `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName 表名
func (Document) TableName() string {
	return "documents"
}

// Upload 记录一次上传，等待当前阶段评审
func (d *Document) Upload(uploaderID, fileRef string, now time.Time) {
	d.Status = DocumentStatusUploaded
	d.FileRef = fileRef
	d.UploadedBy = uploaderID
	d.UploadedAt = &now
}

// ResetToPending 驳回回退时清空上传与评审结果
func (d *Document) ResetToPending() {
	d.Status = DocumentStatusPending
	d.FileRef = ""
	d.UploadedBy = ""
	d.UploadedAt = nil
}

// Decision 评审结论
type Decision string

const (
	DecisionApproved         Decision = "APPROVED"
	DecisionRejected         Decision = "REJECTED"
	DecisionChangesRequested Decision = "CHANGES_REQUESTED"
)

// Valid 是否为已知结论
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionChangesRequested:
		return true
	}
	return false
}

// DocumentApproval 一条不可变的评审记录
// Synthetic 表示由自动通过策略生成（机构不评审自己上传的文件）
type DocumentApproval struct {
	gorm.Model
	ApprovalID  string           `gorm:"column:approval_id;type:varchar(32);uniqueIndex;not null" json:"approval_id"`
	DocumentID  string           `gorm:"column:document_id;type:varchar(32);index;not null" json:"document_id"`
	PhaseID     string           `gorm:"column:phase_id;type:varchar(32);index;not null" json:"phase_id"`
	TenantID    string           `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	StageOrder  int              `gorm:"column:stage_order;not null" json:"stage_order"`
	ReviewerID  string           `gorm:"column:reviewer_id;type:varchar(32);not null" json:"reviewer_id"`
	ReviewerOrg OrganizationType `gorm:"column:reviewer_org;type:varchar(20);not null" json:"reviewer_org"`
	Decision    Decision         `gorm:"column:decision;type:varchar(20);not null" json:"decision"`
	Comment     string           `gorm:"column:comment;type:varchar(512)" json:"comment"`
	Synthetic   bool             `gorm:"column:synthetic;not null;default:false" json:"synthetic"`
}

// TableName 表名
func (DocumentApproval) TableName() string {
	return "document_approvals"
}
