package service

import (
	"context"
	"fmt"
	"time"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

// promotionService is the concrete implementation of PromotionService
type promotionService struct {
	promotions repository.PromotionRepository
	log        zerolog.Logger
}

func newPromotionService(repos *repository.Repositories, log zerolog.Logger) *promotionService {
	return &promotionService{
		promotions: repos.Promotion,
		log:        log.With().Str("service", "promotion").Logger(),
	}
}

// Submit stores a promotion inquiry
func (s *promotionService) Submit(ctx context.Context, p *models.Promotion) error {
	if err := invalid(validation.ValidatePromotion(p)); err != nil {
		return err
	}
	p.CreatedAt = time.Now().UTC()
	if err := s.promotions.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Str("company", p.Company).Msg("Failed to store promotion inquiry")
		return fmt.Errorf("create promotion: %w", err)
	}
	s.log.Info().Str("promotion_id", p.ID).Msg("Promotion inquiry received")
	return nil
}
