package domain

import "time"

// 本文件实现流水线的纯转移逻辑：向前推进与驳回回退都表达为对
// 阶段/文档行集合的显式状态迁移，持久化与事件由应用层负责。

// ActiveStage 返回当前处于 IN_PROGRESS 的阶段
func ActiveStage(stages []*StageProgress) *StageProgress {
	for _, stage := range stages {
		if stage.Status == StageStatusInProgress {
			return stage
		}
	}
	return nil
}

// StageByOrder 按序号查找阶段
func StageByOrder(stages []*StageProgress, order int) *StageProgress {
	for _, stage := range stages {
		if stage.Order == order {
			return stage
		}
	}
	return nil
}

// ScopedDocuments 阶段只拥有要求上传方与其机构类型一致的文档（固定映射）
// 被条件裁剪跳过的文档不参与评审，也不计入可见范围
func ScopedDocuments(stage *StageProgress, documents []*Document) []*Document {
	scoped := make([]*Document, 0, len(documents))
	for _, doc := range documents {
		if doc.Skipped {
			continue
		}
		if doc.RequiredUploader == stage.Organization {
			scoped = append(scoped, doc)
		}
	}
	return scoped
}

// ShouldAutoApprove 上传文档的要求上传方与当前阶段机构一致时自动通过：
// 机构从不评审自己提交的文件
func ShouldAutoApprove(active *StageProgress, doc *Document) bool {
	if active == nil {
		return false
	}
	return active.Organization == doc.RequiredUploader
}

// StageSatisfied 阶段完成判定
// wait_for_all_documents 为真时要求范围内全部文档 APPROVED，否则一份 APPROVED 即可
func StageSatisfied(stage *StageProgress, documents []*Document) bool {
	scoped := ScopedDocuments(stage, documents)
	if len(scoped) == 0 {
		// 无在范围文档的阶段视为满足（全部被条件跳过时不得卡死流水线）
		return true
	}
	if stage.WaitForAllDocuments {
		for _, doc := range scoped {
			if doc.Status != DocumentStatusApproved {
				return false
			}
		}
		return true
	}
	for _, doc := range scoped {
		if doc.Status == DocumentStatusApproved {
			return true
		}
	}
	return false
}

// Advance 完成当前阶段并激活后继阶段
// 返回新的阶段指针；无后继时返回 0（指针清空，流水线结束）
func Advance(stages []*StageProgress, active *StageProgress, now time.Time) int {
	active.Complete(now)
	next := StageByOrder(stages, active.Order+1)
	if next == nil {
		return 0
	}
	next.Activate(now)
	return next.Order
}

// ApplyRejection 按阶段的驳回策略执行回退，返回新的阶段指针
// 所有分支都会把全部未跳过文档重置为 PENDING
func ApplyRejection(stages []*StageProgress, documents []*Document, active *StageProgress, now time.Time) int {
	for _, doc := range documents {
		if doc.Skipped {
			continue
		}
		doc.ResetToPending()
	}

	switch active.OnRejection {
	case RejectionRestartCurrent:
		active.Reset()
		active.Activate(now)
		return active.Order

	case RejectionRestartFromStage:
		from := active.RestartFromOrder
		if from <= 0 || from > active.Order {
			from = active.Order
		}
		for _, stage := range stages {
			if stage.Order >= from {
				stage.Reset()
			}
		}
		restart := StageByOrder(stages, from)
		restart.Activate(now)
		return from

	default: // CASCADE_BACK：整条流水线回到第 1 阶段
		for _, stage := range stages {
			stage.Reset()
		}
		first := StageByOrder(stages, 1)
		if first == nil {
			return 0
		}
		first.Activate(now)
		return first.Order
	}
}

// PipelineCompleted 是否所有阶段均已 COMPLETED
func PipelineCompleted(stages []*StageProgress) bool {
	for _, stage := range stages {
		if stage.Status != StageStatusCompleted {
			return false
		}
	}
	return len(stages) > 0
}
