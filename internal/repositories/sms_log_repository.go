package repositories

import (
	"context"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SMSLogRepository persists the append-only delivery ledger. Rows are
// inserted once and never updated.
type SMSLogRepository struct {
	DB *pgxpool.Pool
}

func NewSMSLogRepository(db *pgxpool.Pool) *SMSLogRepository {
	return &SMSLogRepository{DB: db}
}

func (r *SMSLogRepository) Create(ctx context.Context, l *models.SMSLog) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO sms_logs(phone, message_type, message, provider, status, error_message, reference_id)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		l.Phone, l.MessageType, l.Message, l.Provider, l.Status, l.ErrorMessage, l.ReferenceID,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *SMSLogRepository) List(ctx context.Context, limit, offset int, messageType string) ([]*models.SMSLog, int, error) {
	where := ` WHERE ($1 = '' OR message_type = $1)`

	var total int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM sms_logs`+where, messageType).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, phone, message_type, message, provider, status,
		       COALESCE(error_message, ''), COALESCE(reference_id, ''), created_at
		FROM sms_logs`+where+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		messageType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.SMSLog
	for rows.Next() {
		var l models.SMSLog
		err := rows.Scan(&l.ID, &l.Phone, &l.MessageType, &l.Message, &l.Provider,
			&l.Status, &l.ErrorMessage, &l.ReferenceID, &l.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, &l)
	}
	return logs, total, nil
}

// LastFailedByPhoneSuffix finds the most recent failed delivery whose
// phone ends with the given digits, used to enrich resend failures with
// the provider's last error.
func (r *SMSLogRepository) LastFailedByPhoneSuffix(ctx context.Context, last10 string) (*models.SMSLog, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, phone, message_type, message, provider, status,
		       COALESCE(error_message, ''), COALESCE(reference_id, ''), created_at
		FROM sms_logs
		WHERE status = $1 AND phone LIKE '%' || $2
		ORDER BY created_at DESC
		LIMIT 1`, models.SMSStatusFailed, last10)

	var l models.SMSLog
	err := row.Scan(&l.ID, &l.Phone, &l.MessageType, &l.Message, &l.Provider,
		&l.Status, &l.ErrorMessage, &l.ReferenceID, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetStats summarizes the ledger for the admin dashboard
func (r *SMSLogRepository) GetStats(ctx context.Context) (*models.SMSStats, error) {
	var stats models.SMSStats
	err := r.DB.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'sent' AND created_at >= CURRENT_DATE),
			COUNT(*) FILTER (WHERE status = 'failed' AND created_at >= CURRENT_DATE)
		FROM sms_logs`).Scan(
		&stats.TotalSent, &stats.TotalFailed, &stats.TodaySent, &stats.TodayFailed)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
