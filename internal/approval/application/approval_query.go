package application

import (
	"context"

	"github.com/wyfcoding/propertyfinance/internal/approval/domain"
)

// StageDTO 审批阶段视图
type StageDTO struct {
	StageID        string `json:"stage_id"`
	Order          int    `json:"order"`
	Name           string `json:"name"`
	Organization   string `json:"organization"`
	Status         string `json:"status"`
	ReviewDeadline int64  `json:"review_deadline,omitempty"`
}

// DocumentDTO 文档视图
type DocumentDTO struct {
	DocumentID       string `json:"document_id"`
	DocumentType     string `json:"document_type"`
	Name             string `json:"name"`
	RequiredUploader string `json:"required_uploader"`
	Status           string `json:"status"`
	Skipped          bool   `json:"skipped"`
	FileRef          string `json:"file_ref,omitempty"`
	UploadedBy       string `json:"uploaded_by,omitempty"`
}

// ApprovalDTO 评审记录视图
type ApprovalDTO struct {
	ApprovalID  string `json:"approval_id"`
	DocumentID  string `json:"document_id"`
	StageOrder  int    `json:"stage_order"`
	ReviewerID  string `json:"reviewer_id"`
	ReviewerOrg string `json:"reviewer_org"`
	Decision    string `json:"decision"`
	Comment     string `json:"comment,omitempty"`
	Synthetic   bool   `json:"synthetic"`
}

// ApprovalQueryService 审批侧查询
type ApprovalQueryService struct {
	stageRepo    domain.StageRepository
	docRepo      domain.DocumentRepository
	approvalRepo domain.ApprovalRepository
}

// NewApprovalQueryService 创建 ApprovalQueryService 实例
func NewApprovalQueryService(stageRepo domain.StageRepository, docRepo domain.DocumentRepository, approvalRepo domain.ApprovalRepository) *ApprovalQueryService {
	return &ApprovalQueryService{stageRepo: stageRepo, docRepo: docRepo, approvalRepo: approvalRepo}
}

// ListStages 某文档阶段的审批阶段列表
func (q *ApprovalQueryService) ListStages(ctx context.Context, tenantID, phaseID string) ([]*StageDTO, error) {
	stages, err := q.stageRepo.ListByPhase(ctx, tenantID, phaseID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*StageDTO, 0, len(stages))
	for _, stage := range stages {
		dto := &StageDTO{
			StageID:      stage.StageID,
			Order:        stage.Order,
			Name:         stage.Name,
			Organization: string(stage.Organization),
			Status:       string(stage.Status),
		}
		if stage.ReviewDeadline != nil {
			dto.ReviewDeadline = stage.ReviewDeadline.Unix()
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// ListDocuments 某文档阶段的文档列表
func (q *ApprovalQueryService) ListDocuments(ctx context.Context, tenantID, phaseID string) ([]*DocumentDTO, error) {
	docs, err := q.docRepo.ListByPhase(ctx, tenantID, phaseID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		dtos = append(dtos, &DocumentDTO{
			DocumentID:       doc.DocumentID,
			DocumentType:     doc.DocumentType,
			Name:             doc.Name,
			RequiredUploader: string(doc.RequiredUploader),
			Status:           string(doc.Status),
			Skipped:          doc.Skipped,
			FileRef:          doc.FileRef,
			UploadedBy:       doc.UploadedBy,
		})
	}
	return dtos, nil
}

// ListApprovals 某文档阶段的评审记录（含自动通过的合成记录）
func (q *ApprovalQueryService) ListApprovals(ctx context.Context, tenantID, phaseID string) ([]*ApprovalDTO, error) {
	approvals, err := q.approvalRepo.ListByPhase(ctx, tenantID, phaseID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ApprovalDTO, 0, len(approvals))
	for _, approval := range approvals {
		dtos = append(dtos, &ApprovalDTO{
			ApprovalID:  approval.ApprovalID,
			DocumentID:  approval.DocumentID,
			StageOrder:  approval.StageOrder,
			ReviewerID:  approval.ReviewerID,
			ReviewerOrg: string(approval.ReviewerOrg),
			Decision:    string(approval.Decision),
			Comment:     approval.Comment,
			Synthetic:   approval.Synthetic,
		})
	}
	return dtos, nil
}
