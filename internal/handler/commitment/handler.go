package commitment

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
	"github.com/jwalitptl/scheduler-api/pkg/validator"
)

type Handler struct {
	service   *scheduling.Service
	validator validator.Validator
}

func NewHandler(service *scheduling.Service, validator validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	commitments := r.Group("/commitments")
	{
		commitments.POST("", h.Create)
		commitments.GET("", h.List)
		commitments.GET("/:id", h.Get)
		commitments.PUT("/:id/reschedule", h.Reschedule)
		commitments.PUT("/:id/cancel", h.Cancel)
		commitments.PUT("/:id/status", h.Transition)
		commitments.POST("/swap", h.Swap)
		commitments.POST("/block", h.Block)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	commitment, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, commitment)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid commitment ID"))
		return
	}

	commitment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, commitment)
}

func (h *Handler) List(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	commitments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, commitments)
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid commitment ID"))
		return
	}

	var req model.RescheduleCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	commitment, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, commitment)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid commitment ID"))
		return
	}

	var req model.CancelCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	commitment, err := h.service.Cancel(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, commitment)
}

func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid commitment ID"))
		return
	}

	var req model.TransitionCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	commitment, err := h.service.Transition(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, commitment)
}

func (h *Handler) Swap(c *gin.Context) {
	var req model.SwapCommitmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	a, b, err := h.service.SwapTimes(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"commitment_a": a, "commitment_b": b})
}

func (h *Handler) Block(c *gin.Context) {
	var req model.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result, err := h.service.BlockSlot(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, result)
}

func parseFilters(c *gin.Context) (*model.CommitmentFilters, error) {
	filters := &model.CommitmentFilters{}

	if id := c.Query("clinician_id"); id != "" {
		clinicianID, err := uuid.Parse(id)
		if err != nil {
			return nil, apperrors.InvalidArgument("invalid clinician ID")
		}
		filters.ClinicianID = clinicianID
	}
	if id := c.Query("subject_id"); id != "" {
		subjectID, err := uuid.Parse(id)
		if err != nil {
			return nil, apperrors.InvalidArgument("invalid subject ID")
		}
		filters.SubjectID = subjectID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.CommitmentStatus(status)
	}
	if date := c.Query("start_date"); date != "" {
		parsed, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, apperrors.InvalidArgument("invalid start_date, expected RFC3339")
		}
		filters.StartDate = parsed
	}
	if date := c.Query("end_date"); date != "" {
		parsed, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, apperrors.InvalidArgument("invalid end_date, expected RFC3339")
		}
		filters.EndDate = parsed
	}

	return filters, nil
}
