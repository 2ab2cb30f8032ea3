// Package domain 包含购房分期申请生命周期的领域模型
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PhaseCategory 阶段类别
type PhaseCategory string

const (
	PhaseCategoryQuestionnaire PhaseCategory = "QUESTIONNAIRE"
	PhaseCategoryDocumentation PhaseCategory = "DOCUMENTATION"
	PhaseCategoryPayment       PhaseCategory = "PAYMENT"
	PhaseCategoryGate          PhaseCategory = "GATE"
)

// PhaseStatus 阶段状态
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "PENDING"
	PhaseStatusInProgress PhaseStatus = "IN_PROGRESS"
	PhaseStatusCompleted  PhaseStatus = "COMPLETED"
	PhaseStatusSkipped    PhaseStatus = "SKIPPED"
	PhaseStatusSuperseded PhaseStatus = "SUPERSEDED"
)

// Phase 申请的一个有序阶段
// 类别相关的数据以 Detail 快照列承载（激活时固化，不随模板后续编辑变化）
type Phase struct {
	gorm.Model
	PhaseID          string          `gorm:"column:phase_id;type:varchar(32);uniqueIndex;not null" json:"phase_id"`
	ApplicationID    string          `gorm:"column:application_id;type:varchar(32);index;not null" json:"application_id"`
	TenantID         string          `gorm:"column:tenant_id;type:varchar(32);index;not null" json:"tenant_id"`
	Name             string          `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Order            int             `gorm:"column:phase_order;not null" json:"order"`
	Category         PhaseCategory   `gorm:"column:category;type:varchar(20);not null" json:"category"`
	Status           PhaseStatus     `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	RequiresPrevious bool            `gorm:"column:requires_previous;not null;default:true" json:"requires_previous"`
	Detail           json.RawMessage `gorm:"column:detail;type:json" json:"detail"`
	ActivatedAt      *time.Time      `gorm:"column:activated_at" json:"activated_at"`
	CompletedAt      *time.Time      `gorm:"column:completed_at" json:"completed_at"`
}

// TableName 表名
func (Phase) TableName() string {
	return "phases"
}

// IsTerminal 是否处于终态
// SUPERSEDED 对后续阶段的激活判定等同于 COMPLETED
func (p *Phase) IsTerminal() bool {
	switch p.Status {
	case PhaseStatusCompleted, PhaseStatusSkipped, PhaseStatusSuperseded:
		return true
	}
	return false
}

// SatisfiesSuccessor 对后继阶段而言本阶段是否视为已完成
func (p *Phase) SatisfiesSuccessor() bool {
	return p.Status == PhaseStatusCompleted || p.Status == PhaseStatusSuperseded
}

// CanActivate 校验激活前置条件：自身 PENDING，且首阶段或前序阶段已完成/被取代
func (p *Phase) CanActivate(previous *Phase) error {
	if p.Status != PhaseStatusPending {
		return ErrPhaseNotPending
	}
	if p.Order == 0 || !p.RequiresPrevious {
		return nil
	}
	if previous == nil || !previous.SatisfiesSuccessor() {
		return ErrPreviousPhaseIncomplete
	}
	return nil
}

// Activate 进入 IN_PROGRESS
func (p *Phase) Activate(previous *Phase) error {
	if err := p.CanActivate(previous); err != nil {
		return err
	}
	now := time.Now()
	p.Status = PhaseStatusInProgress
	p.ActivatedAt = &now
	return nil
}

// Complete 进入 COMPLETED
func (p *Phase) Complete() error {
	if p.Status != PhaseStatusInProgress {
		return ErrPhaseNotActive
	}
	now := time.Now()
	p.Status = PhaseStatusCompleted
	p.CompletedAt = &now
	return nil
}

// Skip 仅允许 PENDING -> SKIPPED
func (p *Phase) Skip() error {
	if p.Status != PhaseStatusPending {
		return ErrPhaseNotPending
	}
	p.Status = PhaseStatusSkipped
	return nil
}

// Supersede 付款方式变更时取代未终结的阶段
func (p *Phase) Supersede() error {
	if p.IsTerminal() {
		return ErrPhaseTerminal
	}
	p.Status = PhaseStatusSuperseded
	return nil
}

// ActivePhase 返回申请当前进行中的阶段，没有则返回 nil
// 同一时刻至多一个阶段 IN_PROGRESS，据此判定能否再激活新阶段
func ActivePhase(phases []*Phase) *Phase {
	for _, phase := range phases {
		if phase.Status == PhaseStatusInProgress {
			return phase
		}
	}
	return nil
}
