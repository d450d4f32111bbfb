package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wallfloor-backend/internal/cache"
)

type HealthChecker struct {
	db *pgxpool.Pool
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Cache    *ComponentHealth `json:"cache,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(db *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{db: db}
}

// CheckBasic reports overall readiness. Only the database gates the
// status; the cache is optional infrastructure.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds the cache component on top of the basic check.
func (h *HealthChecker) CheckDetailed() HealthStatus {
	status := h.CheckBasic()
	status.Cache = h.checkCache()
	return status
}

func (h *HealthChecker) checkDatabase() ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: elapsed}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: elapsed}
}

func (h *HealthChecker) checkCache() *ComponentHealth {
	client := cache.GetClient()
	if client == nil {
		return &ComponentHealth{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx).Err()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return &ComponentHealth{Status: "unhealthy", ResponseTime: elapsed}
	}
	return &ComponentHealth{Status: "healthy", ResponseTime: elapsed}
}
