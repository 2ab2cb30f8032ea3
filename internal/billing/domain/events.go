package domain

import "context"

// 聚合类型
const (
	AggregateInstallment = "INSTALLMENT"
	AggregateSchedule    = "SCHEDULE"
)

// AuditEvent 追加写入的审计记录
type AuditEvent struct {
	TenantID      string
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       map[string]any
	ActorID       string
}

// EventStore 审计事件追加接口
type EventStore interface {
	Append(ctx context.Context, event *AuditEvent) error
}
