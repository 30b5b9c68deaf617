package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/middleware"
	"github.com/petcare-marketplace/service-scheduling/internal/common/response"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// ProviderHandler serves a provider's weekly availability and slot grid.
type ProviderHandler struct {
	availability *application.AvailabilityService
	appointments *application.AppointmentService
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(availability *application.AvailabilityService, appointments *application.AppointmentService) *ProviderHandler {
	return &ProviderHandler{availability: availability, appointments: appointments}
}

// RegisterRoutes registers provider routes on the given router group.
func (h *ProviderHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	providers := r.Group("/api/v1/providers")
	providers.Use(middleware.AuthMiddleware(jwtManager))
	{
		providers.GET("/:id/availability", h.GetAvailability)
		providers.PUT("/:id/availability", middleware.RequireRole(auth.RoleProvider, auth.RoleAdmin), h.UpdateAvailability)
		providers.GET("/:id/slots", h.QuerySlots)
	}
}

// GetAvailability handles GET /api/v1/providers/:id/availability.
func (h *ProviderHandler) GetAvailability(c *gin.Context) {
	providerID, ok := providerParam(c)
	if !ok {
		return
	}

	result, err := h.availability.GetAvailability(c.Request.Context(), providerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateAvailability handles PUT /api/v1/providers/:id/availability.
func (h *ProviderHandler) UpdateAvailability(c *gin.Context) {
	providerID, ok := providerParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.availability.UpdateAvailability(c.Request.Context(), actor, providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// QuerySlots handles GET /api/v1/providers/:id/slots?from=YYYY-MM-DD&to=YYYY-MM-DD&granularity=30.
// to defaults to from; granularity defaults to the configured grid.
func (h *ProviderHandler) QuerySlots(c *gin.Context) {
	providerID, ok := providerParam(c)
	if !ok {
		return
	}

	from, err := schedule.ParseDate(c.Query("from"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	to := from
	if raw := c.Query("to"); raw != "" {
		if to, err = schedule.ParseDate(raw); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	granularity := 0
	if raw := c.Query("granularity"); raw != "" {
		if granularity, err = strconv.Atoi(raw); err != nil || granularity <= 0 {
			response.BadRequest(c, "granularity must be a positive number of minutes")
			return
		}
	}

	result, err := h.appointments.QuerySlots(c.Request.Context(), providerID, from, to, granularity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func providerParam(c *gin.Context) (uuid.UUID, bool) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid provider ID")
		return uuid.Nil, false
	}
	return providerID, true
}
