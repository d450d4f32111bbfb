package services

import (
	"context"
	"errors"
	"strings"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/phone"
	"wallfloor-backend/internal/repositories"

	"github.com/jackc/pgx/v5"
)

type ClientService struct {
	Repo *repositories.ClientRepository
}

func NewClientService(repo *repositories.ClientRepository) *ClientService {
	return &ClientService{Repo: repo}
}

// Create registers a client. The primary phone is normalized at the
// door so every OTP send downstream starts from a canonical number.
func (s *ClientService) Create(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("client name is required")
	}
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return nil, apperr.Validation("invalid phone: %v", err)
	}

	c := &models.Client{
		Name:     strings.TrimSpace(req.Name),
		Phone:    normalized,
		AltPhone: strings.TrimSpace(req.AltPhone),
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		City:     strings.TrimSpace(req.City),
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id int) (*models.Client, error) {
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "client"}
		}
		return nil, err
	}
	return c, nil
}

// SearchByPhone finds a client by any phone spelling that normalizes
// to the same canonical number
func (s *ClientService) SearchByPhone(ctx context.Context, raw string) (*models.Client, error) {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return nil, apperr.Validation("invalid phone: %v", err)
	}
	c, err := s.Repo.SearchByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "client"}
		}
		return nil, err
	}
	return c, nil
}

func (s *ClientService) List(ctx context.Context, limit, offset int) ([]*models.Client, int, error) {
	return s.Repo.List(ctx, limit, offset)
}

func (s *ClientService) Update(ctx context.Context, id int, req *models.UpdateClientRequest) (*models.Client, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" {
		normalized, err := phone.Normalize(req.Phone)
		if err != nil {
			return nil, apperr.Validation("invalid phone: %v", err)
		}
		c.Phone = normalized
	}
	if req.Name != "" {
		c.Name = strings.TrimSpace(req.Name)
	}
	c.AltPhone = strings.TrimSpace(req.AltPhone)
	c.Email = strings.TrimSpace(req.Email)
	c.Address = strings.TrimSpace(req.Address)
	c.City = strings.TrimSpace(req.City)

	if err := s.Repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id int) error {
	return s.Repo.Delete(ctx, id)
}
