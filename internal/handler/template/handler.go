package template

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
	"github.com/jwalitptl/scheduler-api/pkg/validator"
)

type Handler struct {
	service   *schedule.Service
	validator validator.Validator
}

func NewHandler(service *schedule.Service, validator validator.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.POST("", h.Create)
		templates.GET("/:id", h.Get)
		templates.POST("/:id/supersede", h.Supersede)
		templates.PUT("/:id/deactivate", h.Deactivate)
	}
	r.GET("/clinicians/:id/templates", h.ListForClinician)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	tmpl, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, tmpl)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid template ID"))
		return
	}

	tmpl, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tmpl)
}

func (h *Handler) ListForClinician(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
		return
	}

	activeOnly := c.Query("active") == "true"
	templates, err := h.service.ListForClinician(c.Request.Context(), clinicianID, activeOnly)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, templates)
}

func (h *Handler) Supersede(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid template ID"))
		return
	}

	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument(err.Error()))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	tmpl, err := h.service.Supersede(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, tmpl)
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid template ID"))
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deactivated": true})
}
