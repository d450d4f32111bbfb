package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallfloor-backend/internal/auth"
	"wallfloor-backend/internal/cache"
	"wallfloor-backend/internal/config"
	"wallfloor-backend/internal/database"
	"wallfloor-backend/internal/db"
	"wallfloor-backend/internal/handlers"
	"wallfloor-backend/internal/health"
	wfhttp "wallfloor-backend/internal/http"
	"wallfloor-backend/internal/middleware"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/monitoring"
	"wallfloor-backend/internal/repositories"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/internal/sms"
	"wallfloor-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

const monitoringPort = 9090

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()

	if err := database.NewMigrator(pool).RunMigrations(context.Background()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Redis is optional; settings fall back to the database when it is
	// unavailable.
	if err := cache.Init(); err != nil {
		log.Printf("[Cache] Redis unavailable, continuing without cache: %v", err)
	}
	defer cache.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	clientRepo := repositories.NewClientRepository(pool)
	appointmentRepo := repositories.NewAppointmentRepository(pool)
	workerVisitRepo := repositories.NewWorkerVisitRepository(pool)
	materialRepo := repositories.NewMaterialRepository(pool)
	inventoryRepo := repositories.NewInventoryRepository(pool)
	smsLogRepo := repositories.NewSMSLogRepository(pool)
	settingRepo := repositories.NewSystemSettingRepository(pool)

	jwtManager := auth.NewJWTManager(cfg)

	// SMS provider: MSG91 when credentials are configured, otherwise the
	// console provider for local development.
	var smsProvider sms.Provider
	if cfg.SMS.AuthKey != "" {
		smsProvider = sms.NewMSG91Service(
			cfg.SMS.AuthKey,
			cfg.SMS.SenderID,
			cfg.SMS.Route,
			cfg.SMS.FlowTemplateID,
			cfg.SMS.OTPTemplateID,
		)
		log.Println("[SMS] Using MSG91 provider")
	} else {
		smsProvider = sms.NewMockSMSService()
		log.Println("[SMS] MSG91_AUTH_KEY not set, using mock provider")
	}
	smsProvider.SetLogRepository(smsLogRepo)

	var uploader services.ReportUploader
	if r2 := storage.NewR2Client(cfg); r2 != nil {
		uploader = r2
		log.Println("[Storage] R2 report uploads enabled")
	}

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	totpService := services.NewTOTPService(userRepo, jwtManager)
	clientService := services.NewClientService(clientRepo)
	settingService := services.NewSystemSettingService(settingRepo)
	appointmentService := services.NewAppointmentService(
		appointmentRepo, clientRepo, smsProvider, smsLogRepo, jwtManager)
	workerVisitService := services.NewWorkerVisitService(
		workerVisitRepo, clientRepo, userRepo, settingRepo, smsProvider,
		jwtManager, cfg.AdminPhone)
	materialService := services.NewMaterialService(materialRepo)
	inventoryService := services.NewInventoryService(inventoryRepo, materialRepo)
	reportService := services.NewReportService(
		appointmentRepo, workerVisitRepo, smsLogRepo, uploader)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, totpService)
	userHandler := handlers.NewUserHandler(userService)
	totpHandler := handlers.NewTOTPHandler(totpService, userService)
	clientHandler := handlers.NewClientHandler(clientService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	workerVisitHandler := handlers.NewWorkerVisitHandler(workerVisitService)
	materialHandler := handlers.NewMaterialHandler(materialService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	smsHandler := handlers.NewSMSHandler(smsLogRepo)
	settingHandler := handlers.NewSystemSettingHandler(settingService)
	reportHandler := handlers.NewReportHandler(reportService)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := wfhttp.NewRouter(
		authHandler,
		userHandler,
		totpHandler,
		clientHandler,
		appointmentHandler,
		workerVisitHandler,
		materialHandler,
		inventoryHandler,
		smsHandler,
		settingHandler,
		reportHandler,
		healthHandler,
		authMiddleware,
	)

	ensureDefaultAdmin(pool, userService)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(corsMiddleware(router))

	// Ops dashboard on a separate port, never exposed publicly
	go monitoring.NewServer(pool, monitoringPort).Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// ensureDefaultAdmin seeds the first admin account on an empty users
// table so a fresh install can log in. Credentials come from
// ADMIN_EMAIL/ADMIN_PASSWORD; without them the step is skipped.
func ensureDefaultAdmin(pool *pgxpool.Pool, users *services.UserService) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int
	if err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM users`).Scan(&count); err != nil || count > 0 {
		return
	}

	_, err := users.CreateUser(context.Background(), &models.CreateUserRequest{
		Name:     "Admin",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		log.Printf("[Bootstrap] failed to seed admin user: %v", err)
		return
	}
	log.Printf("[Bootstrap] seeded admin user %s", email)
}
