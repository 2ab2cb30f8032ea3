// 包 审批侧机构通知实现
package notify

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/propertyfinance/internal/approval/domain"
)

// logNotifier 日志通知实现
// 通知渠道（邮件/站内信）由下游系统消费审批事件自行对接，
// 这里只保证激活与驳回在日志里可查
type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier 创建日志通知实例
func NewLogNotifier(logger *slog.Logger) domain.Notifier {
	return &logNotifier{logger: logger}
}

// NotifyStageActivated 通知机构有阶段等待评审
func (n *logNotifier) NotifyStageActivated(ctx context.Context, stage *domain.StageProgress) error {
	n.logger.InfoContext(ctx, "approval stage awaiting review",
		"stage_id", stage.StageID,
		"phase_id", stage.PhaseID,
		"organization", string(stage.Organization),
		"review_deadline", stage.ReviewDeadline,
	)
	return nil
}

// NotifyDocumentRejected 通知上传方文档被驳回
func (n *logNotifier) NotifyDocumentRejected(ctx context.Context, doc *domain.Document, comment string) error {
	n.logger.InfoContext(ctx, "document rejected, reupload required",
		"document_id", doc.DocumentID,
		"phase_id", doc.PhaseID,
		"uploader_org", string(doc.RequiredUploader),
		"comment", comment,
	)
	return nil
}
