package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"wallfloor-backend/internal/models"
)

const settingColumns = `id, setting_key, setting_value, COALESCE(description, ''), updated_at, COALESCE(updated_by_user_id, 0)`

type SystemSettingRepository struct {
	DB *pgxpool.Pool
}

func NewSystemSettingRepository(db *pgxpool.Pool) *SystemSettingRepository {
	return &SystemSettingRepository{DB: db}
}

func scanSetting(row interface{ Scan(...interface{}) error }) (*models.SystemSetting, error) {
	var s models.SystemSetting
	err := row.Scan(&s.ID, &s.SettingKey, &s.SettingValue, &s.Description,
		&s.UpdatedAt, &s.UpdatedByUserID)
	return &s, err
}

func (r *SystemSettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	return scanSetting(r.DB.QueryRow(ctx,
		`SELECT `+settingColumns+` FROM system_settings WHERE setting_key = $1`, key))
}

func (r *SystemSettingRepository) List(ctx context.Context) ([]*models.SystemSetting, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+settingColumns+` FROM system_settings ORDER BY setting_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.SystemSetting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SystemSettingRepository) Update(ctx context.Context, key, value string, userID int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE system_settings
		SET setting_value = $1, updated_at = CURRENT_TIMESTAMP, updated_by_user_id = $2
		WHERE setting_key = $3`, value, userID, key)
	return err
}

func (r *SystemSettingRepository) Upsert(ctx context.Context, key, value, description string, userID int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at, updated_by_user_id)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, $4)
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2, description = $3, updated_at = CURRENT_TIMESTAMP, updated_by_user_id = $4`,
		key, value, description, userID)
	return err
}
