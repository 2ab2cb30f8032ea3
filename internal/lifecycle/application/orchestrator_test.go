package application

import (
	"context"
	"testing"

	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

func TestCompleteApplicationReplayIsNoOp(t *testing.T) {
	app := &domain.FinanceApplication{
		ApplicationID: "APP-1",
		TenantID:      "T-1",
		BuyerID:       "B-1",
		Status:        domain.ApplicationStatusCompleted,
	}

	// 申请已关闭时立刻返回，不再触碰仓储与发布器（零值编排器，触碰即 panic）
	o := &PhaseOrchestrator{}
	if err := o.completeApplication(context.Background(), app, "system"); err != nil {
		t.Fatalf("redelivered completion of a closed application must be a no-op, got: %v", err)
	}
	if app.Status != domain.ApplicationStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", app.Status)
	}
}
