package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Server exposes an ops dashboard on a separate port: host metrics,
// database health and the day's OTP activity, with a websocket feed
// for live updates.
type Server struct {
	db         *pgxpool.Pool
	port       int
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
}

type Stats struct {
	DatabaseStatus   string  `json:"database_status"`
	ResponseTimeMS   int64   `json:"response_time_ms"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	MemoryUsed       string  `json:"memory_used"`
	MemoryTotal      string  `json:"memory_total"`
	DiskPercent      float64 `json:"disk_percent"`
	TodayAppointments int    `json:"today_appointments"`
	PendingVisits    int     `json:"pending_visits"`
	TodaySMSSent     int     `json:"today_sms_sent"`
	TodaySMSFailed   int     `json:"today_sms_failed"`
	CollectedAt      time.Time `json:"collected_at"`
}

func NewServer(db *pgxpool.Pool, port int) *Server {
	return &Server{
		db:   db,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*websocket.Conn]bool{},
	}
}

// Start blocks serving the monitoring endpoints; run it in its own
// goroutine.
func (s *Server) Start() {
	r := mux.NewRouter()
	r.HandleFunc("/api/monitoring/stats", s.getStats).Methods("GET")
	r.HandleFunc("/api/monitoring/ws", s.handleWebSocket)

	go s.broadcastLoop()

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("[Monitoring] Dashboard listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Printf("[Monitoring] Server stopped: %v", err)
	}
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats := s.collectStats(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) collectStats(ctx context.Context) Stats {
	stats := Stats{CollectedAt: time.Now()}

	dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.db.Ping(dbCtx); err != nil {
		stats.DatabaseStatus = "unhealthy"
	} else {
		stats.DatabaseStatus = "healthy"
	}
	stats.ResponseTimeMS = time.Since(start).Milliseconds()

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsed = formatBytes(vm.Used)
		stats.MemoryTotal = formatBytes(vm.Total)
	}
	if du, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	}

	if stats.DatabaseStatus == "healthy" {
		s.db.QueryRow(dbCtx,
			`SELECT COUNT(*) FROM appointments WHERE scheduled_at::date = CURRENT_DATE`).
			Scan(&stats.TodayAppointments)
		s.db.QueryRow(dbCtx,
			`SELECT COUNT(*) FROM worker_visits WHERE status = 'pending'`).
			Scan(&stats.PendingVisits)
		s.db.QueryRow(dbCtx, `
			SELECT
				COUNT(*) FILTER (WHERE status = 'sent'),
				COUNT(*) FILTER (WHERE status = 'failed')
			FROM sms_logs WHERE created_at >= CURRENT_DATE`).
			Scan(&stats.TodaySMSSent, &stats.TodaySMSFailed)
	}

	return stats
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Monitoring] WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()

	// drain reads so close frames are processed
	go func() {
		defer func() {
			s.clientsMux.Lock()
			delete(s.clients, conn)
			s.clientsMux.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop pushes fresh stats to every connected dashboard every
// ten seconds
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.clientsMux.Lock()
		if len(s.clients) == 0 {
			s.clientsMux.Unlock()
			continue
		}
		stats := s.collectStats(context.Background())
		for conn := range s.clients {
			if err := conn.WriteJSON(stats); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.clientsMux.Unlock()
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
