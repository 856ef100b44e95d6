// Package waitlist forwards waitlist joins to the scheduling core.
// Independent of the hold lifecycle.
package waitlist

import (
	"context"
	"fmt"

	"slotline/models"
	"slotline/repository/scheduling"

	"go.uber.org/zap"
)

// Service registers interest in slots that are currently unavailable.
type Service interface {
	Join(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error)
}

// DefaultWaitlistService implements Service.
type DefaultWaitlistService struct {
	Repo   scheduling.API
	Logger *zap.Logger
}

func (s *DefaultWaitlistService) Join(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error) {
	if req.ProfessionalID == "" || req.ServiceID == "" {
		return nil, fmt.Errorf("waitlist request needs a professional and a service")
	}
	if req.DesiredInstant.IsZero() {
		return nil, fmt.Errorf("waitlist request needs a desired instant")
	}

	entry, err := s.Repo.JoinWaitlist(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to join waitlist: %w", err)
	}
	s.Logger.Info("waitlist joined",
		zap.String("professionalId", req.ProfessionalID),
		zap.String("entryId", entry.ID))
	return entry, nil
}
