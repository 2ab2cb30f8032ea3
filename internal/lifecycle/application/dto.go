package application

import (
	"github.com/wyfcoding/propertyfinance/internal/lifecycle/domain"
)

// ApplicationDTO 申请视图
type ApplicationDTO struct {
	ApplicationID   string      `json:"application_id"`
	BuyerID         string      `json:"buyer_id"`
	PropertyUnitID  string      `json:"property_unit_id"`
	PaymentMethodID string      `json:"payment_method_id"`
	Status          string      `json:"status"`
	CurrentPhaseID  string      `json:"current_phase_id"`
	TotalAmount     string      `json:"total_amount"`
	Phases          []*PhaseDTO `json:"phases,omitempty"`
}

// PhaseDTO 阶段视图
type PhaseDTO struct {
	PhaseID          string `json:"phase_id"`
	Name             string `json:"name"`
	Order            int    `json:"order"`
	Category         string `json:"category"`
	Status           string `json:"status"`
	RequiresPrevious bool   `json:"requires_previous"`
	ActivatedAt      int64  `json:"activated_at,omitempty"`
	CompletedAt      int64  `json:"completed_at,omitempty"`
}

func toApplicationDTO(app *domain.FinanceApplication, phases []*domain.Phase) *ApplicationDTO {
	dto := &ApplicationDTO{
		ApplicationID:   app.ApplicationID,
		BuyerID:         app.BuyerID,
		PropertyUnitID:  app.PropertyUnitID,
		PaymentMethodID: app.PaymentMethodID,
		Status:          string(app.Status),
		CurrentPhaseID:  app.CurrentPhaseID,
		TotalAmount:     app.TotalAmount.String(),
	}
	for _, phase := range phases {
		dto.Phases = append(dto.Phases, toPhaseDTO(phase))
	}
	return dto
}

func toPhaseDTO(phase *domain.Phase) *PhaseDTO {
	dto := &PhaseDTO{
		PhaseID:          phase.PhaseID,
		Name:             phase.Name,
		Order:            phase.Order,
		Category:         string(phase.Category),
		Status:           string(phase.Status),
		RequiresPrevious: phase.RequiresPrevious,
	}
	if phase.ActivatedAt != nil {
		dto.ActivatedAt = phase.ActivatedAt.Unix()
	}
	if phase.CompletedAt != nil {
		dto.CompletedAt = phase.CompletedAt.Unix()
	}
	return dto
}
