package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wallfloor-backend/internal/handlers"
	"wallfloor-backend/internal/middleware"
	"wallfloor-backend/internal/models"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	totpHandler *handlers.TOTPHandler,
	clientHandler *handlers.ClientHandler,
	appointmentHandler *handlers.AppointmentHandler,
	workerVisitHandler *handlers.WorkerVisitHandler,
	materialHandler *handlers.MaterialHandler,
	inventoryHandler *handlers.InventoryHandler,
	smsHandler *handlers.SMSHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	reportHandler *handlers.ReportHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	adminOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireRole(models.RoleAdmin)(h).ServeHTTP
	}

	// Public routes
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/2fa/verify", authHandler.Verify2FA).Methods("POST")
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Authenticated account routes
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")
	authAPI.HandleFunc("/2fa/setup", totpHandler.Setup).Methods("POST")
	authAPI.HandleFunc("/2fa/enable", totpHandler.Verify).Methods("POST")
	authAPI.HandleFunc("/2fa/disable", totpHandler.Disable).Methods("POST")

	// Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("", adminOnly(userHandler.List)).Methods("GET")
	usersAPI.HandleFunc("", adminOnly(userHandler.Create)).Methods("POST")
	usersAPI.HandleFunc("/engineers", userHandler.ListEngineers).Methods("GET")
	usersAPI.HandleFunc("/{id}", adminOnly(userHandler.Get)).Methods("GET")
	usersAPI.HandleFunc("/{id}", adminOnly(userHandler.Update)).Methods("PUT")
	usersAPI.HandleFunc("/{id}", adminOnly(userHandler.Delete)).Methods("DELETE")

	// Clients
	clientsAPI := r.PathPrefix("/api/clients").Subrouter()
	clientsAPI.Use(authMiddleware.Authenticate)
	clientsAPI.HandleFunc("", clientHandler.List).Methods("GET")
	clientsAPI.HandleFunc("", clientHandler.Create).Methods("POST")
	clientsAPI.HandleFunc("/search", clientHandler.SearchByPhone).Methods("GET")
	clientsAPI.HandleFunc("/{id}", clientHandler.Get).Methods("GET")
	clientsAPI.HandleFunc("/{id}", clientHandler.Update).Methods("PUT")
	clientsAPI.HandleFunc("/{id}", adminOnly(clientHandler.Delete)).Methods("DELETE")

	// Appointments
	appointmentsAPI := r.PathPrefix("/api/appointments").Subrouter()
	appointmentsAPI.Use(authMiddleware.Authenticate)
	appointmentsAPI.HandleFunc("", appointmentHandler.List).Methods("GET")
	appointmentsAPI.HandleFunc("", appointmentHandler.Create).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}", appointmentHandler.Get).Methods("GET")
	appointmentsAPI.HandleFunc("/{id}/cancel", appointmentHandler.Cancel).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/otp/send", appointmentHandler.SendOTP).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/otp/resend", appointmentHandler.ResendOTP).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/otp/verify", appointmentHandler.VerifyOTP).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/widget-token", appointmentHandler.IssueWidgetToken).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/widget-verify", appointmentHandler.VerifyWidgetToken).Methods("POST")
	appointmentsAPI.HandleFunc("/{id}/complete", appointmentHandler.Complete).Methods("POST")

	// Worker visits
	visitsAPI := r.PathPrefix("/api/worker-visits").Subrouter()
	visitsAPI.Use(authMiddleware.Authenticate)
	visitsAPI.HandleFunc("", workerVisitHandler.List).Methods("GET")
	visitsAPI.HandleFunc("", workerVisitHandler.Create).Methods("POST")
	visitsAPI.HandleFunc("/{id}", workerVisitHandler.Get).Methods("GET")
	visitsAPI.HandleFunc("/{id}/otp/resend", workerVisitHandler.ResendOTP).Methods("POST")
	visitsAPI.HandleFunc("/{id}/otp/verify", workerVisitHandler.VerifyOTP).Methods("POST")
	visitsAPI.HandleFunc("/{id}/widget-token", workerVisitHandler.IssueWidgetToken).Methods("POST")
	visitsAPI.HandleFunc("/{id}/widget-verify", workerVisitHandler.VerifyWidgetToken).Methods("POST")

	// Materials
	materialsAPI := r.PathPrefix("/api/materials").Subrouter()
	materialsAPI.Use(authMiddleware.Authenticate)
	materialsAPI.HandleFunc("", materialHandler.List).Methods("GET")
	materialsAPI.HandleFunc("", adminOnly(materialHandler.Create)).Methods("POST")
	materialsAPI.HandleFunc("/{id}", materialHandler.Get).Methods("GET")
	materialsAPI.HandleFunc("/{id}", adminOnly(materialHandler.Update)).Methods("PUT")
	materialsAPI.HandleFunc("/{id}", adminOnly(materialHandler.Delete)).Methods("DELETE")

	// Inventory
	inventoryAPI := r.PathPrefix("/api/inventory").Subrouter()
	inventoryAPI.Use(authMiddleware.Authenticate)
	inventoryAPI.HandleFunc("/movements", inventoryHandler.ListMovements).Methods("GET")
	inventoryAPI.HandleFunc("/movements", inventoryHandler.RecordMovement).Methods("POST")
	inventoryAPI.HandleFunc("/stock", inventoryHandler.StockSummaries).Methods("GET")

	// SMS logs (admin only)
	smsAPI := r.PathPrefix("/api/sms").Subrouter()
	smsAPI.Use(authMiddleware.Authenticate)
	smsAPI.HandleFunc("/logs", adminOnly(smsHandler.ListLogs)).Methods("GET")
	smsAPI.HandleFunc("/stats", adminOnly(smsHandler.GetStats)).Methods("GET")

	// System settings (admin only)
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.Use(authMiddleware.Authenticate)
	settingsAPI.HandleFunc("", adminOnly(systemSettingHandler.List)).Methods("GET")
	settingsAPI.HandleFunc("/{key}", adminOnly(systemSettingHandler.Get)).Methods("GET")
	settingsAPI.HandleFunc("/{key}", adminOnly(systemSettingHandler.Upsert)).Methods("PUT")

	// Reports (admin only)
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/appointments", adminOnly(reportHandler.Appointments)).Methods("GET")
	reportsAPI.HandleFunc("/worker-visits", adminOnly(reportHandler.WorkerVisits)).Methods("GET")

	return r
}
