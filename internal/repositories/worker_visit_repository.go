package repositories

import (
	"context"
	"time"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkerVisitRepository struct {
	DB *pgxpool.Pool
}

func NewWorkerVisitRepository(db *pgxpool.Pool) *WorkerVisitRepository {
	return &WorkerVisitRepository{DB: db}
}

const workerVisitColumns = `
	w.id, w.engineer_id, u.name, w.client_id, c.name, w.visit_date,
	COALESCE(w.site_address, ''), COALESCE(w.worker_count, 0), COALESCE(w.remarks, ''),
	COALESCE(w.otp, ''), w.otp_sent_at, w.otp_expires_at, w.verified_at,
	w.admin_notified, w.status, w.created_at, w.updated_at`

func scanWorkerVisit(row interface{ Scan(...interface{}) error }) (*models.WorkerVisit, error) {
	var w models.WorkerVisit
	err := row.Scan(&w.ID, &w.EngineerID, &w.EngineerName, &w.ClientID, &w.ClientName,
		&w.VisitDate, &w.SiteAddress, &w.WorkerCount, &w.Remarks,
		&w.OTP, &w.OTPSentAt, &w.OTPExpiresAt, &w.VerifiedAt,
		&w.AdminNotified, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *WorkerVisitRepository) Create(ctx context.Context, w *models.WorkerVisit) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO worker_visits(engineer_id, client_id, visit_date, site_address,
		                          otp, otp_sent_at, otp_expires_at, admin_notified, status)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		w.EngineerID, w.ClientID, w.VisitDate, w.SiteAddress,
		w.OTP, w.OTPSentAt, w.OTPExpiresAt, w.AdminNotified, w.Status,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func (r *WorkerVisitRepository) Get(ctx context.Context, id int) (*models.WorkerVisit, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+workerVisitColumns+`
		FROM worker_visits w
		JOIN users u ON u.id = w.engineer_id
		JOIN clients c ON c.id = w.client_id
		WHERE w.id=$1`, id)
	return scanWorkerVisit(row)
}

func (r *WorkerVisitRepository) List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.WorkerVisit, int, error) {
	where := ` WHERE ($1 = 0 OR w.engineer_id = $1) AND ($2 = '' OR w.status = $2)`

	var total int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM worker_visits w`+where, engineerID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT `+workerVisitColumns+`
		FROM worker_visits w
		JOIN users u ON u.id = w.engineer_id
		JOIN clients c ON c.id = w.client_id`+where+`
		ORDER BY w.visit_date DESC LIMIT $3 OFFSET $4`,
		engineerID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []*models.WorkerVisit
	for rows.Next() {
		w, err := scanWorkerVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, w)
	}
	return visits, total, nil
}

func (r *WorkerVisitRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.WorkerVisit, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+workerVisitColumns+`
		FROM worker_visits w
		JOIN users u ON u.id = w.engineer_id
		JOIN clients c ON c.id = w.client_id
		WHERE w.visit_date BETWEEN $1 AND $2
		ORDER BY w.visit_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []*models.WorkerVisit
	for rows.Next() {
		w, err := scanWorkerVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, w)
	}
	return visits, nil
}

// SetOTP persists a regenerated code after a successful client-side delivery
func (r *WorkerVisitRepository) SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, adminNotified bool) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE worker_visits
		SET otp=$1, otp_sent_at=$2, otp_expires_at=$3, admin_notified=$4,
		    updated_at=CURRENT_TIMESTAMP
		WHERE id=$5`,
		code, sentAt, expiresAt, adminNotified, id)
	return err
}

// MarkVerified stores the head-count with the verification stamp
func (r *WorkerVisitRepository) MarkVerified(ctx context.Context, id int, verifiedAt time.Time, workerCount int, remarks string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE worker_visits
		SET status=$1, verified_at=$2, worker_count=$3, remarks=$4, updated_at=CURRENT_TIMESTAMP
		WHERE id=$5`,
		models.VisitOTPVerified, verifiedAt, workerCount, remarks, id)
	return err
}
