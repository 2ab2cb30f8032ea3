package mysql

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/propertyfinance/internal/billing/domain"
	"gorm.io/gorm"
)

// EventPO 账单侧审计事件持久化对象
type EventPO struct {
	ID            uint      `gorm:"primaryKey"`
	TenantID      string    `gorm:"column:tenant_id;type:varchar(32);index;not null"`
	EventType     string    `gorm:"column:event_type;type:varchar(100);index;not null"`
	AggregateType string    `gorm:"column:aggregate_type;type:varchar(30);not null"`
	AggregateID   string    `gorm:"column:aggregate_id;type:varchar(32);index;not null"`
	Payload       string    `gorm:"column:payload;type:json"`
	ActorID       string    `gorm:"column:actor_id;type:varchar(32)"`
	CreatedAt     time.Time `gorm:"index"`
}

// TableName 表名
func (EventPO) TableName() string {
	return "billing_events"
}

// EventStore 账单侧审计事件存储
type EventStore struct {
	db *gorm.DB
}

// NewEventStore 创建 EventStore 实例
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Append 追加一条审计事件
func (s *EventStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	po := &EventPO{
		TenantID:      event.TenantID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       string(payload),
		ActorID:       event.ActorID,
	}
	return s.getDB(ctx).WithContext(ctx).Create(po).Error
}

func (s *EventStore) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return s.db
}
