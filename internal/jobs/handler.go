package jobs

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cataloghub/pkg/models"
)

type Handler struct {
	Queue *Queue
}

func NewHandler(queue *Queue) *Handler {
	return &Handler{Queue: queue}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/item-stats", h.enqueueItemStats)
	rg.GET("/user-stats", h.enqueueUserStats)
	rg.GET("/:id", h.get)
}

// enqueueItemStats submits the aggregate job and acknowledges immediately.
// Whether or when it runs is up to the worker pool; the caller only gets the
// handle.
func (h *Handler) enqueueItemStats(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Query("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id required"})
		return
	}

	id, err := h.Queue.Enqueue(c.Request.Context(), models.JobTypeItemStats, ItemStatsPayload{ItemID: itemID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   id,
		"job_type": models.JobTypeItemStats,
		"status":   models.JobStatusQueued,
	})
}

func (h *Handler) enqueueUserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	id, err := h.Queue.Enqueue(c.Request.Context(), models.JobTypeUserStats, UserStatsPayload{UserID: userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   id,
		"job_type": models.JobTypeUserStats,
		"status":   models.JobStatusQueued,
	})
}

func (h *Handler) get(c *gin.Context) {
	job, err := h.Queue.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}
