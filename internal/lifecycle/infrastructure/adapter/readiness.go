// 包 生命周期编排器对接其他上下文的适配器
package adapter

import (
	"context"

	approvaldomain "github.com/wyfcoding/propertyfinance/internal/approval/domain"
	billingdomain "github.com/wyfcoding/propertyfinance/internal/billing/domain"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

// documentationReadiness 文档阶段完成前置条件，委托审批侧阶段仓储判定
type documentationReadiness struct {
	stageRepo approvaldomain.StageRepository
}

// NewDocumentationReadiness 创建文档阶段就绪判定适配器
func NewDocumentationReadiness(stageRepo approvaldomain.StageRepository) domain.DocumentationReadiness {
	return &documentationReadiness{stageRepo: stageRepo}
}

// AllStagesCompleted 全部审批阶段 COMPLETED 才允许完成文档阶段
func (a *documentationReadiness) AllStagesCompleted(ctx context.Context, tenantID, phaseID string) (bool, error) {
	return a.stageRepo.AllCompleted(ctx, tenantID, phaseID)
}

// paymentReadiness 付款阶段完成前置条件，基于账单侧分期行判定
// 两侧共用一个数据库实例，读取是一致的
type paymentReadiness struct {
	installmentRepo billingdomain.InstallmentRepository
}

// NewPaymentReadiness 创建付款阶段就绪判定适配器
func NewPaymentReadiness(installmentRepo billingdomain.InstallmentRepository) domain.PaymentReadiness {
	return &paymentReadiness{installmentRepo: installmentRepo}
}

// AllInstallmentsSettled 排期已生成且全部分期 PAID/WAIVED
func (a *paymentReadiness) AllInstallmentsSettled(ctx context.Context, tenantID, phaseID string) (bool, error) {
	installments, err := a.installmentRepo.ListByPhase(ctx, tenantID, phaseID)
	if err != nil {
		return false, err
	}
	return billingdomain.AllSettled(installments), nil
}
