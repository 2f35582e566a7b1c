package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotasul/transport-backend/internal/services"
)

// LifecycleHandler exposes manual triggers and status for the background scheduler
type LifecycleHandler struct {
	scheduler *services.SchedulerService
}

// NewLifecycleHandler creates a new LifecycleHandler
func NewLifecycleHandler(scheduler *services.SchedulerService) *LifecycleHandler {
	return &LifecycleHandler{scheduler: scheduler}
}

// Run handles POST /api/v1/admin/lifecycle/run
func (h *LifecycleHandler) Run(c *gin.Context) {
	summary, err := h.scheduler.RunLifecycleNow()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lifecycle_failed",
			"message": err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expired":     summary.Expired,
		"started":     summary.Trips.Started,
		"completed":   summary.Trips.Completed,
		"deactivated": summary.Trips.Deactivated,
	})
}

// Status handles GET /api/v1/admin/lifecycle/status
func (h *LifecycleHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.scheduler.GetJobStatus()})
}
