// 包 账单上下文的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/propertyfinance/internal/billing/application"
	"github.com/wyfcoding/propertyfinance/internal/billing/domain"
)

// Handler 账单 HTTP 处理器
type Handler struct {
	svc *application.BillingService
}

// NewHandler 创建 Handler 实例
func NewHandler(svc *application.BillingService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/billing")
	{
		g.GET("/phases/:id/schedule", h.GetSchedule)
		g.GET("/applications/:id/outstanding", h.GetOutstanding)
		g.POST("/installments/:id/pay", h.RecordPayment)
		g.POST("/installments/:id/waive", h.WaiveInstallment)
	}
}

// GetSchedule 某付款阶段的分期排期
func (h *Handler) GetSchedule(c *gin.Context) {
	dtos, err := h.svc.GetSchedule(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// GetOutstanding 申请的未结清本金
func (h *Handler) GetOutstanding(c *gin.Context) {
	outstanding, err := h.svc.OutstandingBalance(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"application_id": c.Param("id"), "outstanding": outstanding.String()})
}

// RecordPayment 登记付款
func (h *Handler) RecordPayment(c *gin.Context) {
	var req struct {
		Amount     decimal.Decimal `json:"amount" binding:"required"`
		PaymentRef string          `json:"payment_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.RecordPayment(c.Request.Context(), application.RecordPaymentCommand{
		TenantID:      c.GetHeader("X-Tenant-ID"),
		InstallmentID: c.Param("id"),
		Amount:        req.Amount,
		PaymentRef:    req.PaymentRef,
		ActorID:       c.GetHeader("X-User-ID"),
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to record payment", "installment_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"installment_id": c.Param("id")})
}

// WaiveInstallment 豁免分期
func (h *Handler) WaiveInstallment(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.WaiveInstallment(c.Request.Context(), application.WaiveInstallmentCommand{
		TenantID:      c.GetHeader("X-Tenant-ID"),
		InstallmentID: c.Param("id"),
		Reason:        req.Reason,
		ActorID:       c.GetHeader("X-User-ID"),
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"installment_id": c.Param("id")})
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInstallmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInstallmentNotPayable),
		errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
