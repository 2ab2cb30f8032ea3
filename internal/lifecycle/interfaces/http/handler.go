// 包 生命周期上下文的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/application"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

// Handler 生命周期 HTTP 处理器
type Handler struct {
	cmd          *application.PhaseCommandService
	orchestrator *application.PhaseOrchestrator
	query        *application.PhaseQueryService
}

// NewHandler 创建 Handler 实例
func NewHandler(cmd *application.PhaseCommandService, orchestrator *application.PhaseOrchestrator, query *application.PhaseQueryService) *Handler {
	return &Handler{cmd: cmd, orchestrator: orchestrator, query: query}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	apps := r.Group("/v1/applications")
	{
		apps.POST("", h.CreateApplication)
		apps.GET("", h.ListApplications)
		apps.GET("/:id", h.GetApplication)
	}
	phases := r.Group("/v1/phases")
	{
		phases.GET("/:id", h.GetPhase)
		phases.POST("/:id/activate", h.ActivatePhase)
		phases.POST("/:id/complete", h.CompletePhase)
		phases.POST("/:id/skip", h.SkipPhase)
		phases.POST("/:id/questionnaire", h.SubmitQuestionnaire)
	}
}

type phaseRequest struct {
	Name             string                `json:"name" binding:"required"`
	Category         string                `json:"category" binding:"required"`
	RequiresPrevious *bool                 `json:"requires_previous"`
	Questionnaire    *questionnaireRequest `json:"questionnaire"`
	Documentation    *documentationRequest `json:"documentation"`
	GateNote         string                `json:"gate_note"`
}

type questionnaireRequest struct {
	Fields    []domain.FieldDefinition `json:"fields" binding:"required"`
	PassScore decimal.Decimal          `json:"pass_score"`
}

type documentationRequest struct {
	Stages    []domain.StageDefinition    `json:"stages" binding:"required"`
	Documents []domain.DocumentDefinition `json:"documents"`
}

type createApplicationRequest struct {
	BuyerID         string         `json:"buyer_id" binding:"required"`
	PropertyUnitID  string         `json:"property_unit_id" binding:"required"`
	PaymentMethodID string         `json:"payment_method_id" binding:"required"`
	Phases          []phaseRequest `json:"phases"`
}

// CreateApplication 创建申请
func (h *Handler) CreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.CreateApplicationCommand{
		TenantID:        tenantID(c),
		BuyerID:         req.BuyerID,
		PropertyUnitID:  req.PropertyUnitID,
		PaymentMethodID: req.PaymentMethodID,
		ActorID:         actorID(c),
	}
	for _, p := range req.Phases {
		in := application.PhaseInput{
			Name:             p.Name,
			Category:         domain.PhaseCategory(p.Category),
			RequiresPrevious: p.RequiresPrevious == nil || *p.RequiresPrevious,
			GateNote:         p.GateNote,
		}
		if p.Questionnaire != nil {
			in.Questionnaire = &application.QuestionnairePhaseInput{
				Fields:    p.Questionnaire.Fields,
				PassScore: p.Questionnaire.PassScore,
			}
		}
		if p.Documentation != nil {
			in.Documentation = &application.DocumentationPhaseInput{
				Stages:    p.Documentation.Stages,
				Documents: p.Documentation.Documents,
			}
		}
		cmd.Phases = append(cmd.Phases, in)
	}

	dto, err := h.cmd.CreateApplication(c.Request.Context(), cmd)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to create application", "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dto)
}

// GetApplication 申请详情
func (h *Handler) GetApplication(c *gin.Context) {
	dto, err := h.query.GetApplication(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dto)
}

// ListApplications 买家名下申请列表
func (h *Handler) ListApplications(c *gin.Context) {
	buyerID := c.Query("buyer_id")
	if buyerID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "buyer_id is required", "")
		return
	}
	dtos, err := h.query.ListApplicationsByBuyer(c.Request.Context(), tenantID(c), buyerID, intQuery(c, "limit", 20), intQuery(c, "offset", 0))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// GetPhase 阶段详情
func (h *Handler) GetPhase(c *gin.Context) {
	dto, detail, err := h.query.GetPhase(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"phase": dto, "detail": detail})
}

// ActivatePhase 激活阶段
func (h *Handler) ActivatePhase(c *gin.Context) {
	err := h.cmd.ActivatePhase(c.Request.Context(), application.ActivatePhaseCommand{
		TenantID: tenantID(c),
		PhaseID:  c.Param("id"),
		ActorID:  actorID(c),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to activate phase", "phase_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"phase_id": c.Param("id")})
}

// CompletePhase 完成阶段并推进后继
func (h *Handler) CompletePhase(c *gin.Context) {
	err := h.orchestrator.CompletePhase(c.Request.Context(), application.CompletePhaseCommand{
		TenantID: tenantID(c),
		PhaseID:  c.Param("id"),
		ActorID:  actorID(c),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to complete phase", "phase_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"phase_id": c.Param("id")})
}

// SkipPhase 跳过阶段
func (h *Handler) SkipPhase(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	err := h.cmd.SkipPhase(c.Request.Context(), application.SkipPhaseCommand{
		TenantID: tenantID(c),
		PhaseID:  c.Param("id"),
		Reason:   req.Reason,
		ActorID:  actorID(c),
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"phase_id": c.Param("id")})
}

// SubmitQuestionnaire 提交问卷，通过即完成阶段并推进
func (h *Handler) SubmitQuestionnaire(c *gin.Context) {
	var req struct {
		Answers map[string]any `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.SubmitQuestionnaire(c.Request.Context(), application.SubmitQuestionnaireCommand{
		TenantID: tenantID(c),
		PhaseID:  c.Param("id"),
		Answers:  req.Answers,
		ActorID:  actorID(c),
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}

	if result.Passed {
		if err := h.orchestrator.CompletePhase(c.Request.Context(), application.CompletePhaseCommand{
			TenantID: tenantID(c),
			PhaseID:  c.Param("id"),
			ActorID:  actorID(c),
		}); err != nil {
			logging.Error(c.Request.Context(), "questionnaire passed but phase completion failed",
				"phase_id", c.Param("id"), "error", err)
			response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
			return
		}
	}
	response.Success(c, result)
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrApplicationNotFound),
		errors.Is(err, domain.ErrPhaseNotFound),
		errors.Is(err, domain.ErrPropertyUnitNotFound),
		errors.Is(err, domain.ErrPaymentMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPhaseTemplate),
		errors.Is(err, domain.ErrInvalidAnswerSet):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPhaseNotPending),
		errors.Is(err, domain.ErrPhaseNotActive),
		errors.Is(err, domain.ErrPhaseNotReady),
		errors.Is(err, domain.ErrPhaseTerminal),
		errors.Is(err, domain.ErrPreviousPhaseIncomplete),
		errors.Is(err, domain.ErrApplicationNotActive),
		errors.Is(err, domain.ErrUnitNotAvailable),
		errors.Is(err, domain.ErrQuestionnaireNotPassed),
		errors.Is(err, domain.ErrWrongPhaseCategory):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
