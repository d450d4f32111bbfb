package services

import (
	"context"
	"errors"
	"strings"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/repositories"

	"github.com/jackc/pgx/v5"
)

type MaterialService struct {
	Repo *repositories.MaterialRepository
}

func NewMaterialService(repo *repositories.MaterialRepository) *MaterialService {
	return &MaterialService{Repo: repo}
}

func (s *MaterialService) Create(ctx context.Context, req *models.CreateMaterialRequest) (*models.Material, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("material name is required")
	}
	if strings.TrimSpace(req.Unit) == "" {
		return nil, apperr.Validation("unit is required")
	}
	if req.UnitPrice < 0 {
		return nil, apperr.Validation("unit_price cannot be negative")
	}

	m := &models.Material{
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Unit:      strings.TrimSpace(req.Unit),
		UnitPrice: req.UnitPrice,
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) Get(ctx context.Context, id int) (*models.Material, error) {
	m, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "material"}
		}
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) List(ctx context.Context) ([]*models.Material, error) {
	return s.Repo.List(ctx)
}

func (s *MaterialService) Update(ctx context.Context, id int, req *models.UpdateMaterialRequest) (*models.Material, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		m.Name = strings.TrimSpace(req.Name)
	}
	if req.Unit != "" {
		m.Unit = strings.TrimSpace(req.Unit)
	}
	m.Category = strings.TrimSpace(req.Category)
	if req.UnitPrice < 0 {
		return nil, apperr.Validation("unit_price cannot be negative")
	}
	m.UnitPrice = req.UnitPrice
	if err := s.Repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) Delete(ctx context.Context, id int) error {
	return s.Repo.Delete(ctx, id)
}
