package availability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/availability"
	"github.com/jwalitptl/scheduler-api/internal/service/suggestion"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
)

const (
	reportCacheTTL = 30 * time.Second
	dateLayout     = "2006-01-02"
)

type Handler struct {
	availabilitySvc *availability.Service
	suggestionSvc   *suggestion.Service

	// Resolved reports are cached briefly; bookings invalidate by key
	// expiry rather than explicit purge, so a stale read lasts at most
	// the TTL.
	cache *gocache.Cache
}

func NewHandler(availabilitySvc *availability.Service, suggestionSvc *suggestion.Service) *Handler {
	return &Handler{
		availabilitySvc: availabilitySvc,
		suggestionSvc:   suggestionSvc,
		cache:           gocache.New(reportCacheTTL, 2*reportCacheTTL),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinicians := r.Group("/clinicians/:id")
	{
		clinicians.GET("/availability", h.GetAvailability)
		clinicians.GET("/suggestions", h.GetSuggestions)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
		return
	}

	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid from date, expected YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid to date, expected YYYY-MM-DD"))
		return
	}

	opts := availability.ResolveOptions{}
	if v := c.Query("slot_duration"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid slot_duration"))
			return
		}
		opts.SlotDurationOverride = minutes
	}
	if v := c.Query("skip_weekends"); v == "true" {
		opts.SkipWeekends = true
	}

	key := fmt.Sprintf("%s|%s|%s|%d|%t", clinicianID, c.Query("from"), c.Query("to"), opts.SlotDurationOverride, opts.SkipWeekends)
	if cached, ok := h.cache.Get(key); ok {
		httputil.RespondWithSuccess(c, cached)
		return
	}

	report, err := h.availabilitySvc.Resolve(c.Request.Context(), clinicianID, from, to, opts)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.cache.SetDefault(key, report)
	httputil.RespondWithSuccess(c, report)
}

func (h *Handler) GetSuggestions(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid clinician ID"))
		return
	}

	constraints := model.SuggestionConstraints{}
	if v := c.Query("days_ahead"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid days_ahead"))
			return
		}
		constraints.DaysAhead = days
	}
	if v := c.Query("max_suggestions"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil || max <= 0 {
			httputil.RespondWithError(c, apperrors.InvalidArgument("invalid max_suggestions"))
			return
		}
		constraints.MaxSuggestions = max
	}
	if v := c.Query("preferred_start"); v != "" {
		constraints.PreferredTimeStart = &v
	}
	if v := c.Query("preferred_end"); v != "" {
		constraints.PreferredTimeEnd = &v
	}

	ranked, err := h.suggestionSvc.Suggest(c.Request.Context(), clinicianID, constraints)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ranked)
}
