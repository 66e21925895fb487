package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// pinger is implemented by caches with a remote backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// --- GET: /health ---
// Reports the database and, when it has one, the cache backend.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "online", "database": "ok"}

	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}
	if p, ok := h.Cache.(pinger); ok {
		body["cache"] = "ok"
		if err := p.Ping(ctx); err != nil {
			// stats fall back to the database, so this only degrades
			body["status"] = "degraded"
			body["cache"] = "unreachable"
		}
	}
	c.JSON(status, body)
}

// --- POST: /api/system/reset ---
// Wipes products, sales, customers, cash entries and forecasts. Accounts stay.
func (h *Handler) ResetData(c *gin.Context) {
	if err := h.Ledger.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	log.Warn().Str("by", c.GetString(middleware.UsernameKey)).Msg("all shop data reset")
	c.JSON(http.StatusOK, gin.H{"message": "All data has been reset"})
}

// --- POST: /api/system/backup ---
// Snapshots a SQLite database into BackupDir.
func (h *Handler) BackupData(c *gin.Context) {
	if h.DB.Dialector.Name() != database.DriverSQLite {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Backup is only available for SQLite databases"})
		return
	}
	if err := os.MkdirAll(h.BackupDir, 0o755); err != nil {
		respondError(c, err)
		return
	}
	path := filepath.Join(h.BackupDir, fmt.Sprintf("dokan_%s.db", h.now().Format("20060102_150405")))
	if err := database.Backup(c.Request.Context(), h.DB, path); err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("path", path).Msg("database backup written")
	c.JSON(http.StatusOK, gin.H{"message": "Backup created", "path": path})
}
