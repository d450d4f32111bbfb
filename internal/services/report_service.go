package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/repositories"
	"wallfloor-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ReportService renders date-ranged appointment and worker-visit
// reports as PDFs.
type ReportService struct {
	AppointmentRepo *repositories.AppointmentRepository
	VisitRepo       *repositories.WorkerVisitRepository
	SMSLogRepo      *repositories.SMSLogRepository
	Uploader        ReportUploader
}

// ReportUploader persists a rendered report to object storage.
// *storage.R2Client satisfies it; nil disables uploads.
type ReportUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

func NewReportService(
	appointmentRepo *repositories.AppointmentRepository,
	visitRepo *repositories.WorkerVisitRepository,
	smsLogRepo *repositories.SMSLogRepository,
	uploader ReportUploader,
) *ReportService {
	return &ReportService{
		AppointmentRepo: appointmentRepo,
		VisitRepo:       visitRepo,
		SMSLogRepo:      smsLogRepo,
		Uploader:        uploader,
	}
}

// ParseRange turns "2006-01-02" bounds into an inclusive IST day range
func ParseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(timeutil.DateLayout, fromStr, timeutil.IST)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("invalid from date, expected %q", timeutil.DateLayout)
	}
	to, err := time.ParseInLocation(timeutil.DateLayout, toStr, timeutil.IST)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("invalid to date, expected %q", timeutil.DateLayout)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.Validation("to date is before from date")
	}
	return timeutil.StartOfDay(from), timeutil.EndOfDay(to), nil
}

// GenerateAppointmentsPDF renders every appointment scheduled in the
// range
func (s *ReportService) GenerateAppointmentsPDF(ctx context.Context, from, to time.Time) ([]byte, error) {
	appointments, err := s.AppointmentRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	pdf := newReportPDF("Appointments Report", from, to)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(12, 8, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Client", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Engineer", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Scheduled", "1", 0, "L", true, 0, "")
	pdf.CellFormat(28, 8, "Status", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Verified", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	verified := 0
	for _, a := range appointments {
		verifiedMark := "-"
		if a.VerifiedAt != nil {
			verifiedMark = "Yes"
			verified++
		}
		pdf.CellFormat(12, 7, fmt.Sprintf("%d", a.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, a.ClientName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, a.EngineerName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, timeutil.ToIST(a.ScheduledAt).Format(timeutil.DisplayLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, a.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, verifiedMark, "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(190, 7, fmt.Sprintf("Total: %d appointments, %d OTP-verified", len(appointments), verified), "", 1, "L", false, 0, "")

	return renderPDF(pdf)
}

// GenerateWorkerVisitsPDF renders every worker visit dated in the
// range, with the total head-count across verified visits
func (s *ReportService) GenerateWorkerVisitsPDF(ctx context.Context, from, to time.Time) ([]byte, error) {
	visits, err := s.VisitRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	pdf := newReportPDF("Worker Visits Report", from, to)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(12, 8, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Client", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Engineer", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 8, "Workers", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	totalWorkers := 0
	for _, v := range visits {
		workers := "-"
		if v.VerifiedAt != nil {
			workers = fmt.Sprintf("%d", v.WorkerCount)
			totalWorkers += v.WorkerCount
		}
		pdf.CellFormat(12, 7, fmt.Sprintf("%d", v.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, v.ClientName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, v.EngineerName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, timeutil.ToIST(v.VisitDate).Format(timeutil.DateLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, v.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 7, workers, "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(190, 7, fmt.Sprintf("Total: %d visits, %d workers across verified visits", len(visits), totalWorkers), "", 1, "L", false, 0, "")

	if stats, err := s.SMSLogRepo.GetStats(ctx); err == nil {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(190, 6, fmt.Sprintf("SMS ledger: %d sent, %d failed all-time", stats.TotalSent, stats.TotalFailed), "", 1, "L", false, 0, "")
	}

	return renderPDF(pdf)
}

// UploadReport pushes a rendered PDF to object storage and returns its
// key. No-op when no uploader is configured.
func (s *ReportService) UploadReport(ctx context.Context, name string, data []byte) (string, error) {
	if s.Uploader == nil {
		return "", nil
	}
	key := fmt.Sprintf("reports/%s-%s.pdf", name, timeutil.Now().Format("20060102-150405"))
	return s.Uploader.Upload(ctx, key, data, "application/pdf")
}

func newReportPDF(title string, from, to time.Time) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "WallFloor - "+title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("%s to %s", from.Format(timeutil.DateLayout), to.Format(timeutil.DateLayout)), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)
	return pdf
}

func renderPDF(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
