package domain

import "errors"

// 未找到类错误
var (
	ErrApplicationNotFound   = errors.New("application not found")
	ErrPhaseNotFound         = errors.New("phase not found")
	ErrPropertyUnitNotFound  = errors.New("property unit not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

// 状态冲突类错误：当前状态不允许请求的迁移
var (
	ErrPhaseNotPending         = errors.New("phase is not pending")
	ErrPhaseNotActive          = errors.New("phase is not in progress")
	ErrPhaseNotReady           = errors.New("phase completion preconditions not met")
	ErrPhaseTerminal           = errors.New("phase already in terminal status")
	ErrPreviousPhaseIncomplete = errors.New("previous phase not completed")
	ErrApplicationNotActive    = errors.New("application is not active")
	ErrUnitNotAvailable        = errors.New("property unit is not available")
	ErrQuestionnaireNotPassed  = errors.New("questionnaire score below pass threshold")
	ErrWrongPhaseCategory      = errors.New("operation not valid for phase category")
)

// 校验类错误
var (
	ErrInvalidPhaseTemplate = errors.New("invalid phase template")
	ErrInvalidAnswerSet     = errors.New("invalid questionnaire answers")
)
