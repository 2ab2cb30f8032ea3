package domain

import "context"

// ApplicationRepository 申请仓储接口
type ApplicationRepository interface {
	Save(ctx context.Context, app *FinanceApplication) error
	Get(ctx context.Context, tenantID, applicationID string) (*FinanceApplication, error)
	ListByBuyer(ctx context.Context, tenantID, buyerID string, limit, offset int) ([]*FinanceApplication, error)
}

// PhaseRepository 阶段仓储接口，按 phase_order 提供有序访问
type PhaseRepository interface {
	Save(ctx context.Context, phase *Phase) error
	SaveAll(ctx context.Context, phases []*Phase) error
	Get(ctx context.Context, tenantID, phaseID string) (*Phase, error)
	ListByApplication(ctx context.Context, tenantID, applicationID string) ([]*Phase, error)
	GetByOrder(ctx context.Context, tenantID, applicationID string, order int) (*Phase, error)
	NextAfter(ctx context.Context, tenantID, applicationID string, order int) (*Phase, error)
	MaxOrder(ctx context.Context, tenantID, applicationID string) (int, error)
	ListOpenByCategory(ctx context.Context, tenantID, applicationID string, category PhaseCategory) ([]*Phase, error)
}

// PropertyUnitRepository 房产单元仓储接口
type PropertyUnitRepository interface {
	Save(ctx context.Context, unit *PropertyUnit) error
	Get(ctx context.Context, tenantID, unitID string) (*PropertyUnit, error)
}

// PaymentMethodRepository 付款方式仓储接口
type PaymentMethodRepository interface {
	Save(ctx context.Context, method *PaymentMethod) error
	Get(ctx context.Context, tenantID, methodID string) (*PaymentMethod, error)
}

// EventStore 审计事件追加接口，本引擎只写不读
type EventStore interface {
	Append(ctx context.Context, event *AuditEvent) error
}

// EventPublisher 集成事件发布接口（Outbox 模式）
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}

// DocumentationReadiness 文档阶段完成前置条件：全部审批阶段 COMPLETED
type DocumentationReadiness interface {
	AllStagesCompleted(ctx context.Context, tenantID, phaseID string) (bool, error)
}

// PaymentReadiness 付款阶段完成前置条件：全部分期 PAID 或 WAIVED
type PaymentReadiness interface {
	AllInstallmentsSettled(ctx context.Context, tenantID, phaseID string) (bool, error)
}
