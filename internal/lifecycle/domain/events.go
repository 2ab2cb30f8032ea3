package domain

// 生命周期事件主题，同时作为审计事件类型写入事件表
const (
	ApplicationCreatedEvent       = "lifecycle.application.created"
	ApplicationCompletedEvent     = "lifecycle.application.completed"
	ApplicationAmendedEvent       = "lifecycle.application.amended"
	PhaseActivatedEvent           = "lifecycle.phase.activated"
	PhaseCompletedEvent           = "lifecycle.phase.completed"
	PhaseSkippedEvent             = "lifecycle.phase.skipped"
	PhaseSupersededEvent          = "lifecycle.phase.superseded"
	QuestionnaireSubmittedEvent   = "lifecycle.questionnaire.submitted"
	PaymentPhaseActivatedEvent    = "lifecycle.payment.phase.activated"
	UnitOwnershipTransferredEvent = "lifecycle.unit.ownership.transferred"
)

// 聚合类型
const (
	AggregateApplication = "APPLICATION"
	AggregatePhase       = "PHASE"
	AggregateUnit        = "PROPERTY_UNIT"
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
