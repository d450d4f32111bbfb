package repositories

import (
	"context"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MaterialRepository struct {
	DB *pgxpool.Pool
}

func NewMaterialRepository(db *pgxpool.Pool) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(ctx context.Context, m *models.Material) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO materials(name, category, unit, unit_price)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		m.Name, m.Category, m.Unit, m.UnitPrice,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MaterialRepository) Get(ctx context.Context, id int) (*models.Material, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, COALESCE(category, ''), unit, COALESCE(unit_price, 0), created_at, updated_at
         FROM materials WHERE id=$1`, id)

	var m models.Material
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.UnitPrice, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *MaterialRepository) List(ctx context.Context) ([]*models.Material, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, COALESCE(category, ''), unit, COALESCE(unit_price, 0), created_at, updated_at
         FROM materials ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []*models.Material
	for rows.Next() {
		var m models.Material
		err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.UnitPrice, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		materials = append(materials, &m)
	}
	return materials, nil
}

func (r *MaterialRepository) Update(ctx context.Context, m *models.Material) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE materials SET name=$1, category=$2, unit=$3, unit_price=$4, updated_at=CURRENT_TIMESTAMP
         WHERE id=$5`,
		m.Name, m.Category, m.Unit, m.UnitPrice, m.ID)
	return err
}

func (r *MaterialRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM materials WHERE id=$1`, id)
	return err
}
