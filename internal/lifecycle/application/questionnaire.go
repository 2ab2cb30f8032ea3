package application

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
	"gorm.io/gorm"
)

// SubmitQuestionnaireCommand 提交问卷命令
type SubmitQuestionnaireCommand struct {
	TenantID string
	PhaseID  string
	Answers  map[string]any
	ActorID  string
}

// QuestionnaireResultDTO 问卷评分结果
type QuestionnaireResultDTO struct {
	PhaseID   string `json:"phase_id"`
	Score     string `json:"score"`
	PassScore string `json:"pass_score"`
	Passed    bool   `json:"passed"`
}

// SubmitQuestionnaire 提交问卷并按权重计分
// 仅校验与计分，通过后的阶段完成由编排器另行触发
func (s *PhaseCommandService) SubmitQuestionnaire(ctx context.Context, cmd SubmitQuestionnaireCommand) (*QuestionnaireResultDTO, error) {
	var result *QuestionnaireResultDTO
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		phase, err := s.phaseRepo.Get(txCtx, cmd.TenantID, cmd.PhaseID)
		if err != nil {
			return err
		}
		if phase.Status != domain.PhaseStatusInProgress {
			return domain.ErrPhaseNotActive
		}
		detail, err := phase.QuestionnaireDetail()
		if err != nil {
			return err
		}

		score, err := scoreAnswers(detail, cmd.Answers)
		if err != nil {
			return err
		}

		detail.Answers = cmd.Answers
		detail.Score = score
		detail.Passed = score.GreaterThanOrEqual(detail.PassScore)
		if err := phase.SetDetail(detail); err != nil {
			return err
		}
		if err := s.phaseRepo.Save(txCtx, phase); err != nil {
			return err
		}

		if err := s.eventStore.Append(txCtx, &domain.AuditEvent{
			TenantID:      cmd.TenantID,
			EventType:     domain.QuestionnaireSubmittedEvent,
			AggregateType: domain.AggregatePhase,
			AggregateID:   phase.PhaseID,
			ActorID:       cmd.ActorID,
			Payload: map[string]any{
				"application_id": phase.ApplicationID,
				"score":          score.String(),
				"passed":         detail.Passed,
			},
		}); err != nil {
			return err
		}

		result = &QuestionnaireResultDTO{
			PhaseID:   phase.PhaseID,
			Score:     score.String(),
			PassScore: detail.PassScore.String(),
			Passed:    detail.Passed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "questionnaire submitted",
		"phase_id", cmd.PhaseID,
		"score", result.Score,
		"passed", result.Passed,
	)
	return result, nil
}

// scoreAnswers 必答且未被裁剪的字段缺失即拒绝整份提交，得分为已答字段权重之和
func scoreAnswers(detail *domain.QuestionnaireDetail, answers map[string]any) (decimal.Decimal, error) {
	score := decimal.Zero
	for _, field := range detail.Fields {
		if slices.Contains(detail.SkippedKeys, field.Key) {
			continue
		}
		value, ok := answers[field.Key]
		if !ok || value == nil || value == "" {
			if field.Required {
				return decimal.Zero, domain.ErrInvalidAnswerSet
			}
			continue
		}
		score = score.Add(field.Weight)
	}
	return score, nil
}
