package waitlist

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/waitlist"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
	"github.com/jwalitptl/scheduler-api/pkg/validator"
)

type Handler struct {
	service   *waitlist.Service
	validator validator.Validator
}

func NewHandler(service *waitlist.Service, validator validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	entries := r.Group("/waitlist")
	{
		entries.POST("", h.Enqueue)
		entries.GET("/:id/position", h.Position)
		entries.PUT("/:id/accept", h.Accept)
		entries.PUT("/:id/decline", h.Decline)
		entries.PUT("/:id/expire", h.Expire)
	}
	r.GET("/clinicians/:id/waitlist", h.ListForClinician)
	r.POST("/clinicians/:id/waitlist/dequeue", h.DequeueNext)
}

func (h *Handler) Enqueue(c *gin.Context) {
	var req model.EnqueueWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	entry, err := h.service.Enqueue(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, entry)
}

func (h *Handler) DequeueNext(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
		return
	}

	entry, err := h.service.DequeueNext(c.Request.Context(), clinicianID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if entry == nil {
		httputil.RespondWithSuccess(c, nil)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

func (h *Handler) Position(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid entry ID"))
		return
	}

	position, err := h.service.PositionOf(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, position)
}

func (h *Handler) Accept(c *gin.Context) {
	h.transition(c, h.service.Accept)
}

func (h *Handler) Decline(c *gin.Context) {
	h.transition(c, h.service.Decline)
}

func (h *Handler) Expire(c *gin.Context) {
	h.transition(c, h.service.Expire)
}

func (h *Handler) ListForClinician(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
		return
	}

	entries, err := h.service.ListForClinician(c.Request.Context(), clinicianID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

func (h *Handler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*model.WaitlistEntry, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid entry ID"))
		return
	}

	entry, err := fn(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}
