// 包 审批上下文的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/propertyfinance/internal/approval/application"
	"github.com/wyfcoding/propertyfinance/internal/approval/domain"
)

// Handler 审批 HTTP 处理器
type Handler struct {
	cmd   *application.ApprovalCommandService
	query *application.ApprovalQueryService
}

// NewHandler 创建 Handler 实例
func NewHandler(cmd *application.ApprovalCommandService, query *application.ApprovalQueryService) *Handler {
	return &Handler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	docs := r.Group("/v1/documents")
	{
		docs.POST("/:id/upload", h.UploadDocument)
		docs.POST("/:id/review", h.ReviewDocument)
	}
	phases := r.Group("/v1/phases/:id/approval")
	{
		phases.GET("/stages", h.ListStages)
		phases.GET("/documents", h.ListDocuments)
		phases.GET("/records", h.ListApprovals)
		phases.POST("/advance", h.AdvanceStage)
	}
}

// UploadDocument 上传文档
func (h *Handler) UploadDocument(c *gin.Context) {
	var req struct {
		UploaderOrg string `json:"uploader_org" binding:"required"`
		FileRef     string `json:"file_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.cmd.UploadDocument(c.Request.Context(), application.UploadDocumentCommand{
		TenantID:    c.GetHeader("X-Tenant-ID"),
		DocumentID:  c.Param("id"),
		UploaderID:  c.GetHeader("X-User-ID"),
		UploaderOrg: domain.OrganizationType(req.UploaderOrg),
		FileRef:     req.FileRef,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upload document", "document_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"document_id": c.Param("id")})
}

// ReviewDocument 评审文档
func (h *Handler) ReviewDocument(c *gin.Context) {
	var req struct {
		ReviewerOrg string `json:"reviewer_org" binding:"required"`
		Decision    string `json:"decision" binding:"required"`
		Comment     string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.cmd.ReviewDocument(c.Request.Context(), application.ReviewDocumentCommand{
		TenantID:    c.GetHeader("X-Tenant-ID"),
		DocumentID:  c.Param("id"),
		ReviewerID:  c.GetHeader("X-User-ID"),
		ReviewerOrg: domain.OrganizationType(req.ReviewerOrg),
		Decision:    domain.Decision(req.Decision),
		Comment:     req.Comment,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to review document", "document_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"document_id": c.Param("id")})
}

// AdvanceStage 手动推进当前阶段
func (h *Handler) AdvanceStage(c *gin.Context) {
	err := h.cmd.AdvanceStage(c.Request.Context(), application.AdvanceStageCommand{
		TenantID: c.GetHeader("X-Tenant-ID"),
		PhaseID:  c.Param("id"),
		ActorID:  c.GetHeader("X-User-ID"),
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, gin.H{"phase_id": c.Param("id")})
}

// ListStages 审批阶段列表
func (h *Handler) ListStages(c *gin.Context) {
	dtos, err := h.query.ListStages(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// ListDocuments 文档列表
func (h *Handler) ListDocuments(c *gin.Context) {
	dtos, err := h.query.ListDocuments(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// ListApprovals 评审记录列表
func (h *Handler) ListApprovals(c *gin.Context) {
	dtos, err := h.query.ListApprovals(c.Request.Context(), c.GetHeader("X-Tenant-ID"), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, dtos)
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrStageNotFound),
		errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongUploaderOrganization),
		errors.Is(err, domain.ErrWrongReviewerOrganization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoActiveStage),
		errors.Is(err, domain.ErrDocumentNotInStageScope),
		errors.Is(err, domain.ErrDocumentNotReviewable),
		errors.Is(err, domain.ErrDocumentSkipped),
		errors.Is(err, domain.ErrStageNotInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
