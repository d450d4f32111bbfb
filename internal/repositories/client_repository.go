package repositories

import (
	"context"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepository struct {
	DB *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO clients(name, phone, alt_phone, email, address, city)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		c.Name, c.Phone, c.AltPhone, c.Email, c.Address, c.City,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ClientRepository) Get(ctx context.Context, id int) (*models.Client, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, phone, COALESCE(alt_phone, ''), COALESCE(email, ''),
                COALESCE(address, ''), COALESCE(city, ''), created_at, updated_at
         FROM clients WHERE id=$1`, id)

	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.AltPhone, &c.Email,
		&c.Address, &c.City, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *ClientRepository) SearchByPhone(ctx context.Context, phone string) (*models.Client, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, phone, COALESCE(alt_phone, ''), COALESCE(email, ''),
                COALESCE(address, ''), COALESCE(city, ''), created_at, updated_at
         FROM clients WHERE phone=$1 OR alt_phone=$1`, phone)

	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.AltPhone, &c.Email,
		&c.Address, &c.City, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]*models.Client, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, name, phone, COALESCE(alt_phone, ''), COALESCE(email, ''),
                COALESCE(address, ''), COALESCE(city, ''), created_at, updated_at
         FROM clients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.AltPhone, &c.Email,
			&c.Address, &c.City, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, &c)
	}
	return clients, total, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE clients SET name=$1, phone=$2, alt_phone=$3, email=$4, address=$5, city=$6,
                updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		c.Name, c.Phone, c.AltPhone, c.Email, c.Address, c.City, c.ID)
	return err
}

func (r *ClientRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	return err
}
