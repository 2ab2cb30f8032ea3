package application

import (
	"context"
	"encoding/json"

	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

// PhaseQueryService 处理申请与阶段的查询操作
type PhaseQueryService struct {
	appRepo   domain.ApplicationRepository
	phaseRepo domain.PhaseRepository
}

// NewPhaseQueryService 创建 PhaseQueryService 实例
func NewPhaseQueryService(appRepo domain.ApplicationRepository, phaseRepo domain.PhaseRepository) *PhaseQueryService {
	return &PhaseQueryService{appRepo: appRepo, phaseRepo: phaseRepo}
}

// GetApplication 申请详情（含全部阶段）
func (q *PhaseQueryService) GetApplication(ctx context.Context, tenantID, applicationID string) (*ApplicationDTO, error) {
	app, err := q.appRepo.Get(ctx, tenantID, applicationID)
	if err != nil {
		return nil, err
	}
	phases, err := q.phaseRepo.ListByApplication(ctx, tenantID, applicationID)
	if err != nil {
		return nil, err
	}
	return toApplicationDTO(app, phases), nil
}

// ListApplicationsByBuyer 买家名下申请列表
func (q *PhaseQueryService) ListApplicationsByBuyer(ctx context.Context, tenantID, buyerID string, limit, offset int) ([]*ApplicationDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	apps, err := q.appRepo.ListByBuyer(ctx, tenantID, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ApplicationDTO, 0, len(apps))
	for _, app := range apps {
		dtos = append(dtos, toApplicationDTO(app, nil))
	}
	return dtos, nil
}

// GetPhase 阶段详情，Detail 原样返回类别数据快照
func (q *PhaseQueryService) GetPhase(ctx context.Context, tenantID, phaseID string) (*PhaseDTO, json.RawMessage, error) {
	phase, err := q.phaseRepo.Get(ctx, tenantID, phaseID)
	if err != nil {
		return nil, nil, err
	}
	return toPhaseDTO(phase), phase.Detail, nil
}
