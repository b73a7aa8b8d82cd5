package jobs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mid "WProject/middleware"
	midsec "WProject/middleware/security"
	jobsvc "WProject/service/jobs"
	"WProject/service/store"
	"WProject/tools/errs"
	sec "WProject/tools/security"
)

// Handler is the REST surface over the background job queue: create+enqueue,
// inspect, retry, stats. Completion and failure flow back through the jobs
// table, which is the status-callback surface clients poll.
type Handler struct {
	jobs  *store.JobStore
	queue *jobsvc.Queue
}

func NewHandler(jobs *store.JobStore, queue *jobsvc.Queue) *Handler {
	return &Handler{jobs: jobs, queue: queue}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes, auth sec.Options) {
	opt := mid.RouteOpt{IsAuth: true, Auth: auth}
	mid.POST(r, "/jobs", h.create, opt)
	mid.GET(r, "/jobs", h.list, opt)
	mid.GET(r, "/jobs/stats", h.stats, opt)
	mid.GET(r, "/jobs/:id", h.get, opt)
	mid.POST(r, "/jobs/:id/retry", h.retry, opt)
	mid.GET(r, "/workspaces/:id/jobs", h.listByWorkspace, opt)
}

// Upper bound for client-supplied maxAttempts; zero means the store default.
const maxRetryAttempts = 10

type createJobReq struct {
	Type        string  `json:"type" binding:"required"`
	WorkspaceID *string `json:"workspaceId"`
	Payload     string  `json:"payload"`
	MaxAttempts int     `json:"maxAttempts"`
}

func (h *Handler) create(c *gin.Context) {
	var req createJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if !store.ValidJobType(req.Type) {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("unknown job type"))
		return
	}
	if req.WorkspaceID != nil {
		if _, err := uuid.Parse(*req.WorkspaceID); err != nil {
			c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("workspaceId must be a uuid"))
			return
		}
	}
	if req.MaxAttempts < 0 || req.MaxAttempts > maxRetryAttempts {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("maxAttempts must be between 0 and 10"))
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), req.Type, midsec.UserID(c), req.WorkspaceID, req.Payload, req.MaxAttempts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusServiceUnavailable, errs.ErrQueueFailure)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Job created and queued successfully",
		"job": gin.H{
			"id":        job.ID,
			"type":      job.Type,
			"status":    job.Status,
			"createdAt": job.CreatedAt,
		},
	})
}

func (h *Handler) get(c *gin.Context) {
	job, ok := h.loadOwnJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) list(c *gin.Context) {
	status := c.Query("status")
	list, err := h.jobs.ListByUser(c.Request.Context(), midsec.UserID(c), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) listByWorkspace(c *gin.Context) {
	workspaceID := c.Param("id")
	if _, err := uuid.Parse(workspaceID); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("workspace id must be a uuid"))
		return
	}
	list, err := h.jobs.ListByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) retry(c *gin.Context) {
	if _, ok := h.loadOwnJob(c); !ok {
		return
	}
	job, err := h.jobs.ResetForRetry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errs.ErrValidation.Is(err) {
			c.JSON(http.StatusBadRequest, err)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		}
		return
	}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusServiceUnavailable, errs.ErrQueueFailure)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Job requeued successfully",
		"job":     gin.H{"id": job.ID, "status": job.Status},
	})
}

func (h *Handler) stats(c *gin.Context) {
	counts, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) loadOwnJob(c *gin.Context) (*store.Job, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("job id must be a uuid"))
		return nil, false
	}
	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			c.JSON(http.StatusNotFound, errs.ErrRecordNotFound)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		}
		return nil, false
	}
	if job.UserID != midsec.UserID(c) {
		c.JSON(http.StatusForbidden, errs.ErrForbidden)
		return nil, false
	}
	return job, true
}
