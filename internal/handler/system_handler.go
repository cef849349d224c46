package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/response"
)

const pingTimeout = 2 * time.Second

// SystemHandler reports liveness and runtime metrics.
type SystemHandler struct {
	db        *sql.DB
	rdb       *redis.Client // nil when the cache is disabled
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db *sql.DB, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Database pool
	OpenConns int   `json:"db_open_conns"`
	InUse     int   `json:"db_in_use"`
	WaitCount int64 `json:"db_wait_count"`

	// Worker Queues
	QueueWarmCache int64 `json:"queue_warm_cache"`
}

// Health godoc
// GET /health
// Reports whether the database (and the cache, when enabled) answer a ping.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok"}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Database ping failed")
		status["database"] = "unavailable"
		healthy = false
	}

	if h.rdb != nil {
		status["cache"] = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			status["cache"] = "unavailable"
			healthy = false
		}
	}

	if !healthy {
		status["status"] = "degraded"
		response.Success(c, http.StatusServiceUnavailable, status)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// Metrics godoc
// GET /api/system/metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.NumGC = ms.NumGC

	// ── Database ──
	stats := h.db.Stats()
	m.OpenConns = stats.OpenConnections
	m.InUse = stats.InUse
	m.WaitCount = stats.WaitCount

	// ── Worker Queues ──
	if h.rdb != nil {
		if n, err := h.rdb.LLen(ctx, config.WorkerKey.WarmBankCacheQueue).Result(); err == nil {
			m.QueueWarmCache = n
		}
	}

	return m
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
