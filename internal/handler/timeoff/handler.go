package timeoff

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/timeoff"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
	"github.com/jwalitptl/scheduler-api/pkg/validator"
)

type Handler struct {
	service   *timeoff.Service
	validator validator.Validator
}

func NewHandler(service *timeoff.Service, validator validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/timeoff")
	{
		records.POST("", h.Create)
		records.GET("", h.List)
		records.GET("/:id", h.Get)
		records.PUT("/:id/approve", h.Approve)
		records.PUT("/:id/reject", h.Reject)
		records.PUT("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTimeOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	record, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid time-off ID"))
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.TimeOffFilters{}

	if id := c.Query("clinician_id"); id != "" {
		clinicianID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
			return
		}
		filters.ClinicianID = clinicianID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.TimeOffStatus(status)
	}
	if date := c.Query("start_date"); date != "" {
		parsed, err := time.Parse(time.RFC3339, date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid start_date, expected RFC3339"))
			return
		}
		filters.StartDate = parsed
	}
	if date := c.Query("end_date"); date != "" {
		parsed, err := time.Parse(time.RFC3339, date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid end_date, expected RFC3339"))
			return
		}
		filters.EndDate = parsed
	}

	records, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.service.CancelApproved)
}

func (h *Handler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*model.TimeOffRecord, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid time-off ID"))
		return
	}

	record, err := fn(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}
