// Package handlers exposes the scheduling engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/calendar"
	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/core/model"
	"github.com/greystones/roster/pkg/core/services"
	"github.com/greystones/roster/pkg/db"
	"github.com/greystones/roster/pkg/export"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Store  services.RunStore
	Logger *zap.Logger
	Opts   engine.Options
}

// Router builds the gin engine with all routes registered
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/generate", h.Generate)
	api.GET("/runs/:id", h.GetRun)
	api.POST("/runs/:id/regenerate", h.Regenerate)
	api.GET("/runs/:id/export.csv", h.ExportCSV)

	return r
}

// Health reports service liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindStrict decodes a JSON body rejecting unknown fields, so a typoed
// configuration key fails loudly instead of being dropped.
func bindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Generate runs the engine against a request body and persists the run
func (h *Handler) Generate(c *gin.Context) {
	var req model.ScheduleRequest
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dryRun := c.Query("dry_run") == "true"

	result, err := services.GenerateSchedule(c.Request.Context(), h.Store, h.Logger, &req, h.Opts, dryRun)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result.Result)
}

// GetRun returns a persisted run's result
func (h *Handler) GetRun(c *gin.Context) {
	_, result, err := services.LoadRun(c.Request.Context(), h.Store, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// regenerateBody is the request body for the regenerate endpoint
type regenerateBody struct {
	LockedIDs []string `json:"locked_ids"`
}

// Regenerate rebuilds a run keeping the named assignments fixed
func (h *Handler) Regenerate(c *gin.Context) {
	var body regenerateBody
	if err := bindStrict(c, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dryRun := c.Query("dry_run") == "true"

	result, err := services.RegenerateSchedule(c.Request.Context(), h.Store, h.Logger, c.Param("id"), body.LockedIDs, h.Opts, dryRun)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result.Result)
}

// ExportCSV streams a persisted run's assignments as CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	runID := c.Param("id")
	_, result, err := services.LoadRun(c.Request.Context(), h.Store, runID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule_"+runID+".csv"))
	if err := export.WriteCSV(c.Writer, result); err != nil {
		h.Logger.Error("Failed to write csv export", zap.String("run_id", runID), zap.Error(err))
	}
}

// respondError maps domain errors onto HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var lockErr *engine.InvalidLockError
	var cfgErr *calendar.ConfigurationError

	switch {
	case errors.Is(err, db.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &lockErr):
		c.JSON(http.StatusConflict, gin.H{"error": lockErr.Error(), "lock_id": lockErr.LockID})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error(), "field": cfgErr.Field})
	default:
		h.Logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
