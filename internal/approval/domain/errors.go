package domain

import "errors"

// 未找到类错误
var (
	ErrStageNotFound    = errors.New("approval stage not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoActiveStage    = errors.New("documentation phase has no active stage")
)

// 状态冲突类错误
var (
	ErrWrongUploaderOrganization = errors.New("uploader organization does not match document requirement")
	ErrWrongReviewerOrganization = errors.New("reviewer organization does not own the active stage")
	ErrDocumentNotInStageScope   = errors.New("document is not scoped to the active stage")
	ErrDocumentNotReviewable     = errors.New("document is not awaiting review")
	ErrDocumentSkipped           = errors.New("document was skipped by condition")
	ErrStageNotInProgress        = errors.New("stage is not in progress")
)

// 校验类错误
var (
	ErrInvalidDecision = errors.New("unknown review decision")
)
