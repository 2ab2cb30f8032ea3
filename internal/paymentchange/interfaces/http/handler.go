// 包 付款方式变更上下文的 HTTP 接口
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	lifecycledomain "github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"github.com/wyfcoding/propertyfinance/internal/paymentchange/application"
	"github.com/wyfcoding/propertyfinance/internal/paymentchange/domain"
)

// Handler 付款方式变更 HTTP 处理器
type Handler struct {
	svc *application.ChangeRequestService
}

// NewHandler 创建 Handler 实例
func NewHandler(svc *application.ChangeRequestService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/payment-method-changes")
	{
		g.POST("", h.CreateRequest)
		g.GET("", h.ListRequests)
		g.GET("/:id", h.GetRequest)
		g.POST("/:id/documents", h.SubmitDocuments)
		g.POST("/:id/review", h.StartReview)
		g.POST("/:id/decision", h.Decide)
		g.POST("/:id/execute", h.Execute)
		g.POST("/:id/cancel", h.Cancel)
	}
}

// CreateRequest 创建变更请求
func (h *Handler) CreateRequest(c *gin.Context) {
	var req struct {
		ApplicationID  string `json:"application_id" binding:"required"`
		TargetMethodID string `json:"target_method_id" binding:"required"`
		Reason         string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.CreateRequest(c.Request.Context(), application.CreateRequestCommand{
		TenantID:       c.GetHeader("X-Tenant-ID"),
		ApplicationID:  req.ApplicationID,
		TargetMethodID: req.TargetMethodID,
		Reason:         req.Reason,
		RequestedBy:    c.GetHeader("X-User-ID"),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to create change request", "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dto)
}

// GetRequest 变更请求详情
func (h *Handler) GetRequest(c *gin.Context) {
	dto, err := h.svc.GetRequest(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dto)
}

// ListRequests 申请下的变更请求列表
func (h *Handler) ListRequests(c *gin.Context) {
	applicationID := c.Query("application_id")
	if applicationID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "application_id is required", "")
		return
	}
	dtos, err := h.svc.ListRequests(c.Request.Context(), c.GetHeader("X-Tenant-ID"), applicationID)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// SubmitDocuments 提交证明材料
func (h *Handler) SubmitDocuments(c *gin.Context) {
	h.simpleTransition(c, h.svc.SubmitDocuments)
}

// StartReview 进入人工评审
func (h *Handler) StartReview(c *gin.Context) {
	h.simpleTransition(c, h.svc.StartReview)
}

// Cancel 撤回请求
func (h *Handler) Cancel(c *gin.Context) {
	h.simpleTransition(c, h.svc.Cancel)
}

// Decide 审批通过或驳回
func (h *Handler) Decide(c *gin.Context) {
	var req struct {
		Approve bool   `json:"approve"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.Decide(c.Request.Context(), application.DecideRequestCommand{
		TenantID:  c.GetHeader("X-Tenant-ID"),
		RequestID: c.Param("id"),
		Approve:   req.Approve,
		Comment:   req.Comment,
		DecidedBy: c.GetHeader("X-User-ID"),
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"request_id": c.Param("id")})
}

// Execute 执行已批准的变更
func (h *Handler) Execute(c *gin.Context) {
	err := h.svc.Execute(c.Request.Context(), application.ExecuteRequestCommand{
		TenantID:  c.GetHeader("X-Tenant-ID"),
		RequestID: c.Param("id"),
		ActorID:   c.GetHeader("X-User-ID"),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to execute change request", "request_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"request_id": c.Param("id")})
}

func (h *Handler) simpleTransition(c *gin.Context, fn func(ctx context.Context, tenantID, requestID, actorID string) error) {
	err := fn(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"), c.GetHeader("X-User-ID"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"request_id": c.Param("id")})
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, lifecycledomain.ErrApplicationNotFound),
		errors.Is(err, lifecycledomain.ErrPaymentMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSameMethod):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRequestTerminal),
		errors.Is(err, domain.ErrRequestNotExecutable),
		errors.Is(err, lifecycledomain.ErrApplicationNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
