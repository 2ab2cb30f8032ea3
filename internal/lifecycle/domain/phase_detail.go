package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
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

// RejectionPolicy 审批驳回后的回退策略
type RejectionPolicy string

const (
	RejectionCascadeBack      RejectionPolicy = "CASCADE_BACK"
	RejectionRestartCurrent   RejectionPolicy = "RESTART_CURRENT"
	RejectionRestartFromStage RejectionPolicy = "RESTART_FROM_STAGE"
)

// StageDefinition 文档审批阶段定义（激活时固化进快照）
type StageDefinition struct {
	Order               int              `json:"order"`
	Name                string           `json:"name"`
	Organization        OrganizationType `json:"organization"`
	AutoTransition      bool             `json:"auto_transition"`
	WaitForAllDocuments bool             `json:"wait_for_all_documents"`
	OnRejection         RejectionPolicy  `json:"on_rejection"`
	RestartFromOrder    int              `json:"restart_from_order,omitempty"`
	SLAHours            int              `json:"sla_hours"`
}

// DocumentDefinition 文档定义（激活时固化进快照）
type DocumentDefinition struct {
	DocumentType     string           `json:"document_type"`
	Name             string           `json:"name"`
	RequiredUploader OrganizationType `json:"required_uploader"`
	Condition        *Condition       `json:"condition,omitempty"`
}

// DocumentationDetail 文档收集阶段的类别数据
type DocumentationDetail struct {
	CurrentStageOrder int                  `json:"current_stage_order"` // 0 表示指针已清空
	Stages            []StageDefinition    `json:"stages"`
	Documents         []DocumentDefinition `json:"documents"`
}

// FieldDefinition 问卷字段定义
type FieldDefinition struct {
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	Required  bool            `json:"required"`
	Weight    decimal.Decimal `json:"weight"`
	Condition *Condition      `json:"condition,omitempty"`
}

// QuestionnaireDetail 问卷阶段的类别数据
type QuestionnaireDetail struct {
	Fields      []FieldDefinition `json:"fields"`
	SkippedKeys []string          `json:"skipped_keys,omitempty"`
	Answers     map[string]any    `json:"answers,omitempty"`
	PassScore   decimal.Decimal   `json:"pass_score"`
	Score       decimal.Decimal   `json:"score"`
	Passed      bool              `json:"passed"`
}

// PaymentDetail 付款阶段的类别数据
type PaymentDetail struct {
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	InstallmentCount int             `json:"installment_count"`
	IntervalDays     int             `json:"interval_days"`
	GracePeriodDays  int             `json:"grace_period_days"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
}

// GateDetail 人工闸门阶段的类别数据
type GateDetail struct {
	Note string `json:"note,omitempty"`
}

// DocumentationDetail 解析文档阶段快照
func (p *Phase) DocumentationDetail() (*DocumentationDetail, error) {
	if p.Category != PhaseCategoryDocumentation {
		return nil, ErrWrongPhaseCategory
	}
	var detail DocumentationDetail
	if err := json.Unmarshal(p.Detail, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// QuestionnaireDetail 解析问卷阶段数据
func (p *Phase) QuestionnaireDetail() (*QuestionnaireDetail, error) {
	if p.Category != PhaseCategoryQuestionnaire {
		return nil, ErrWrongPhaseCategory
	}
	var detail QuestionnaireDetail
	if err := json.Unmarshal(p.Detail, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// PaymentDetail 解析付款阶段数据
func (p *Phase) PaymentDetail() (*PaymentDetail, error) {
	if p.Category != PhaseCategoryPayment {
		return nil, ErrWrongPhaseCategory
	}
	var detail PaymentDetail
	if err := json.Unmarshal(p.Detail, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SetDetail 序列化并写回类别数据
func (p *Phase) SetDetail(detail any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	p.Detail = raw
	return nil
}
