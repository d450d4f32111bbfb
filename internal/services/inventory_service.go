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

// InventoryService maintains the append-only stock ledger. Stock is
// never stored, only aggregated: SUM(in) - SUM(out) per material.
type InventoryService struct {
	Repo      *repositories.InventoryRepository
	Materials *repositories.MaterialRepository
}

func NewInventoryService(repo *repositories.InventoryRepository, materials *repositories.MaterialRepository) *InventoryService {
	return &InventoryService{Repo: repo, Materials: materials}
}

// RecordMovement appends one ledger row. Outbound movements are
// rejected when they would take the material's stock negative.
func (s *InventoryService) RecordMovement(ctx context.Context, actorID int, req *models.CreateMovementRequest) (*models.InventoryMovement, error) {
	if req.MovementType != models.MovementIn && req.MovementType != models.MovementOut {
		return nil, apperr.Validation("movement_type must be %q or %q", models.MovementIn, models.MovementOut)
	}
	if req.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	if _, err := s.Materials.Get(ctx, req.MaterialID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "material"}
		}
		return nil, err
	}

	if req.MovementType == models.MovementOut {
		inStock, err := s.Repo.StockFor(ctx, req.MaterialID)
		if err != nil {
			return nil, err
		}
		if req.Quantity > inStock {
			return nil, apperr.Validation("insufficient stock: %.2f available", inStock)
		}
	}

	m := &models.InventoryMovement{
		MaterialID:      req.MaterialID,
		MovementType:    req.MovementType,
		Quantity:        req.Quantity,
		Note:            strings.TrimSpace(req.Note),
		CreatedByUserID: actorID,
	}
	if err := s.Repo.CreateMovement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMovements returns the paginated ledger, optionally filtered to
// one material
func (s *InventoryService) ListMovements(ctx context.Context, materialID, limit, offset int) ([]*models.InventoryMovement, int, error) {
	return s.Repo.ListMovements(ctx, materialID, limit, offset)
}

// StockSummaries returns the aggregated position of every material
func (s *InventoryService) StockSummaries(ctx context.Context) ([]*models.StockSummary, error) {
	return s.Repo.StockSummaries(ctx)
}
