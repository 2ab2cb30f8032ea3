// Package domain 包含文档审批流水线的领域模型
// 流水线是图不是队列：既有顺序向前推进，也有驳回触发的向后重置
package domain

import (
	"time"

	"gorm.io/gorm"
)

// OrganizationType 阶段/文件归属的机构角色
type OrganizationType string

const (
	OrganizationDeveloper  OrganizationType = "DEVELOPER"
	OrganizationLender     OrganizationType = "LENDER"
	OrganizationLegal      OrganizationType = "LEGAL"
	OrganizationPlatform   OrganizationType = "PLATFORM"
	OrganizationGovernment OrganizationType = "GOVERNMENT"
)

// RejectionPolicy 驳回后的回退策略
type RejectionPolicy string

const (
	RejectionCascadeBack      RejectionPolicy = "CASCADE_BACK"
	RejectionRestartCurrent   RejectionPolicy = "RESTART_CURRENT"
	RejectionRestartFromStage RejectionPolicy = "RESTART_FROM_STAGE"
)

// StageStatus 审批阶段状态
type StageStatus string

const (
	StageStatusPending    StageStatus = "PENDING"
	StageStatusInProgress StageStatus = "IN_PROGRESS"
	StageStatusCompleted  StageStatus = "COMPLETED"
)

// StageProgress 某文档阶段实例化出的一个审批阶段行
// 定义字段来自阶段快照，激活后不再受模板编辑影响
type StageProgress struct {
	gorm.Model
	StageID             string           `gorm:"column:stage_id;type:varchar(32);uniqueIndex;not null" json:"stage_id"`
	PhaseID             string           `gorm:"column:phase_id;type:varchar(32);index;not null" json:"phase_id"`
	TenantID            string           `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	Order               int              `gorm:"column:stage_order;not null" json:"order"`
	Name                string           `gorm:"column:name;type:varchar(100)" json:"name"`
	Organization        OrganizationType `gorm:"column:organization;type:varchar(20);not null" json:"organization"`
	AutoTransition      bool             `gorm:"column:auto_transition;not null;default:true" json:"auto_transition"`
	WaitForAllDocuments bool             `gorm:"column:wait_for_all_documents;not null;default:true" json:"wait_for_all_documents"`
	OnRejection         RejectionPolicy  `gorm:"column:on_rejection;type:varchar(20);not null;default:'CASCADE_BACK'" json:"on_rejection"`
	RestartFromOrder    int              `gorm:"column:restart_from_order" json:"restart_from_order"`
	SLAHours            int              `gorm:"column:sla_hours;default:48" json:"sla_hours"`
	Status              StageStatus      `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	ActivatedAt         *time.Time       `gorm:"column:activated_at" json:"activated_at"`
	ReviewDeadline      *time.Time       `gorm:"column:review_deadline" json:"review_deadline"`
	CompletedAt         *time.Time       `gorm:"column:completed_at" json:"completed_at"`
}

// TableName 表名
func (StageProgress) TableName() string {
	return "approval_stage_progress"
}

// Activate 进入 IN_PROGRESS 并起动 SLA 计时
func (s *StageProgress) Activate(now time.Time) {
	s.Status = StageStatusInProgress
	s.ActivatedAt = &now
	if s.SLAHours > 0 {
		deadline := now.Add(time.Duration(s.SLAHours) * time.Hour)
		s.ReviewDeadline = &deadline
	}
	s.CompletedAt = nil
}

// Complete 进入 COMPLETED
func (s *StageProgress) Complete(now time.Time) {
	s.Status = StageStatusCompleted
	s.CompletedAt = &now
}

// Reset 驳回回退时重置为 PENDING
func (s *StageProgress) Reset() {
	s.Status = StageStatusPending
	s.ActivatedAt = nil
	s.ReviewDeadline = nil
	s.CompletedAt = nil
}
