package repositories

import (
	"context"
	"strconv"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryRepository manages the append-only stock ledger. Movements
// are never updated or deleted; stock is always derived by aggregation.
type InventoryRepository struct {
	DB *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{DB: db}
}

func (r *InventoryRepository) CreateMovement(ctx context.Context, m *models.InventoryMovement) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO inventory_movements(material_id, movement_type, quantity, note, created_by_user_id)
         VALUES($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		m.MaterialID, m.MovementType, m.Quantity, m.Note, m.CreatedByUserID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *InventoryRepository) ListMovements(ctx context.Context, materialID, limit, offset int) ([]*models.InventoryMovement, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM inventory_movements`
	listQuery := `
		SELECT im.id, im.material_id, m.name, im.movement_type, im.quantity,
		       COALESCE(im.note, ''), im.created_by_user_id, im.created_at
		FROM inventory_movements im
		JOIN materials m ON m.id = im.material_id`

	args := []interface{}{}
	if materialID > 0 {
		countQuery += ` WHERE material_id=$1`
		listQuery += ` WHERE im.material_id=$1`
		args = append(args, materialID)
	}

	if err := r.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	listQuery += ` ORDER BY im.created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []*models.InventoryMovement
	for rows.Next() {
		var m models.InventoryMovement
		err := rows.Scan(&m.ID, &m.MaterialID, &m.MaterialName, &m.MovementType,
			&m.Quantity, &m.Note, &m.CreatedByUserID, &m.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		movements = append(movements, &m)
	}
	return movements, total, nil
}

// StockSummaries aggregates the ledger into per-material positions
func (r *InventoryRepository) StockSummaries(ctx context.Context) ([]*models.StockSummary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT m.id, m.name, m.unit,
		       COALESCE(SUM(im.quantity) FILTER (WHERE im.movement_type = 'in'), 0),
		       COALESCE(SUM(im.quantity) FILTER (WHERE im.movement_type = 'out'), 0)
		FROM materials m
		LEFT JOIN inventory_movements im ON im.material_id = m.id
		GROUP BY m.id, m.name, m.unit
		ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.StockSummary
	for rows.Next() {
		var s models.StockSummary
		if err := rows.Scan(&s.MaterialID, &s.MaterialName, &s.Unit, &s.TotalIn, &s.TotalOut); err != nil {
			return nil, err
		}
		s.InStock = s.TotalIn - s.TotalOut
		summaries = append(summaries, &s)
	}
	return summaries, nil
}

// StockFor returns the current stock of one material
func (r *InventoryRepository) StockFor(ctx context.Context, materialID int) (float64, error) {
	var stock float64
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN movement_type = 'in' THEN quantity ELSE -quantity END), 0)
		FROM inventory_movements
		WHERE material_id = $1`, materialID).Scan(&stock)
	return stock, err
}

