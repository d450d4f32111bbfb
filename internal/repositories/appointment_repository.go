package repositories

import (
	"context"
	"time"

	"wallfloor-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AppointmentRepository struct {
	DB *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

const appointmentColumns = `
	a.id, a.engineer_id, u.name, a.client_id, c.name, a.scheduled_at,
	COALESCE(a.purpose, ''), COALESCE(a.site_address, ''), COALESCE(a.otp_phone, ''),
	COALESCE(a.otp, ''), a.otp_sent_at, a.otp_expires_at, a.otp_attempts,
	a.verified_at, COALESCE(a.feedback, ''), a.status, a.created_at, a.updated_at`

func scanAppointment(row interface{ Scan(...interface{}) error }) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.EngineerID, &a.EngineerName, &a.ClientID, &a.ClientName,
		&a.ScheduledAt, &a.Purpose, &a.SiteAddress, &a.OTPPhone,
		&a.OTP, &a.OTPSentAt, &a.OTPExpiresAt, &a.OTPAttempts,
		&a.VerifiedAt, &a.Feedback, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO appointments(engineer_id, client_id, scheduled_at, purpose, site_address, otp_phone, status)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		a.EngineerID, a.ClientID, a.ScheduledAt, a.Purpose, a.SiteAddress, a.OTPPhone, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AppointmentRepository) Get(ctx context.Context, id int) (*models.Appointment, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN users u ON u.id = a.engineer_id
		JOIN clients c ON c.id = a.client_id
		WHERE a.id=$1`, id)
	return scanAppointment(row)
}

// List returns appointments, optionally scoped to one engineer and/or status
func (r *AppointmentRepository) List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.Appointment, int, error) {
	where := ` WHERE ($1 = 0 OR a.engineer_id = $1) AND ($2 = '' OR a.status = $2)`

	var total int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments a`+where, engineerID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN users u ON u.id = a.engineer_id
		JOIN clients c ON c.id = a.client_id`+where+`
		ORDER BY a.scheduled_at DESC LIMIT $3 OFFSET $4`,
		engineerID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, a)
	}
	return appointments, total, nil
}

// ListBetween returns appointments scheduled inside [from, to], for reports
func (r *AppointmentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Appointment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN users u ON u.id = a.engineer_id
		JOIN clients c ON c.id = a.client_id
		WHERE a.scheduled_at BETWEEN $1 AND $2
		ORDER BY a.scheduled_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, nil
}

// SetOTP persists a freshly issued code: send time, expiry, zeroed
// attempt counter and the new status in one update.
func (r *AppointmentRepository) SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, status string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE appointments
		SET otp=$1, otp_sent_at=$2, otp_expires_at=$3, otp_attempts=0, status=$4,
		    updated_at=CURRENT_TIMESTAMP
		WHERE id=$5`,
		code, sentAt, expiresAt, status, id)
	return err
}

func (r *AppointmentRepository) SetOTPAttempts(ctx context.Context, id, attempts int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE appointments SET otp_attempts=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		attempts, id)
	return err
}

func (r *AppointmentRepository) MarkVerified(ctx context.Context, id int, verifiedAt time.Time, attempts int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE appointments
		SET status=$1, verified_at=$2, otp_attempts=$3, updated_at=CURRENT_TIMESTAMP
		WHERE id=$4`,
		models.AppointmentVerified, verifiedAt, attempts, id)
	return err
}

func (r *AppointmentRepository) Complete(ctx context.Context, id int, feedback string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE appointments
		SET status=$1, feedback=$2, updated_at=CURRENT_TIMESTAMP
		WHERE id=$3`,
		models.AppointmentCompleted, feedback, id)
	return err
}

func (r *AppointmentRepository) Cancel(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE appointments
		SET status=$1, updated_at=CURRENT_TIMESTAMP
		WHERE id=$2`,
		models.AppointmentCancelled, id)
	return err
}
