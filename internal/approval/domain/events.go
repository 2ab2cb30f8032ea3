package domain

// 审批侧事件主题，同时作为审计事件类型
const (
	DocumentUploadedEvent  = "approval.document.uploaded"
	DocumentReviewedEvent  = "approval.document.reviewed"
	StageAdvancedEvent     = "approval.stage.advanced"
	PipelineRestartedEvent = "approval.pipeline.restarted"
)

// 聚合类型
const (
	AggregateDocument = "DOCUMENT"
	AggregateStage    = "APPROVAL_STAGE"
)
