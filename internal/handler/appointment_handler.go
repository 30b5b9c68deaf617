package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/middleware"
	"github.com/petcare-marketplace/service-scheduling/internal/common/response"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
)

// AppointmentHandler handles HTTP requests for appointment operations.
type AppointmentHandler struct {
	service *application.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *application.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// RegisterRoutes registers all appointment routes on the given router group.
func (h *AppointmentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	appointments := r.Group("/api/v1/appointments")
	appointments.Use(authMW)
	{
		appointments.POST("", middleware.RequireRole(auth.RoleOwner), h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/confirm", middleware.RequireRole(auth.RoleProvider), h.ConfirmAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/complete", middleware.RequireRole(auth.RoleProvider), h.CompleteAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
}

// BookAppointment handles POST /api/v1/appointments.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.BookAppointment(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListAppointments handles GET /api/v1/appointments. Owners see what they booked, providers what they
// were booked for.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListAppointments(c.Request.Context(), actor, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetAppointment handles GET /api/v1/appointments/:id.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	h.withAppointment(c, func(actor appointment.Actor, id uuid.UUID) (*application.AppointmentDTO, error) {
		return h.service.GetAppointment(c.Request.Context(), actor, id)
	})
}

// ConfirmAppointment handles POST /api/v1/appointments/:id/confirm.
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	h.withAppointment(c, func(actor appointment.Actor, id uuid.UUID) (*application.AppointmentDTO, error) {
		return h.service.ConfirmAppointment(c.Request.Context(), actor, id)
	})
}

// CancelAppointment handles POST /api/v1/appointments/:id/cancel. The body is optional.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	var body application.CancelRequest
	_ = c.ShouldBindJSON(&body)

	h.withAppointment(c, func(actor appointment.Actor, id uuid.UUID) (*application.AppointmentDTO, error) {
		return h.service.CancelAppointment(c.Request.Context(), actor, id, body.Reason)
	})
}

// CompleteAppointment handles POST /api/v1/appointments/:id/complete.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	h.withAppointment(c, func(actor appointment.Actor, id uuid.UUID) (*application.AppointmentDTO, error) {
		return h.service.CompleteAppointment(c.Request.Context(), actor, id)
	})
}

// UpdateStatus handles PATCH /api/v1/appointments/:id/status.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	h.withAppointment(c, func(actor appointment.Actor, id uuid.UUID) (*application.AppointmentDTO, error) {
		return h.service.UpdateStatus(c.Request.Context(), actor, id, req)
	})
}

// withAppointment resolves the caller and the :id parameter, runs op and writes its result.
func (h *AppointmentHandler) withAppointment(c *gin.Context, op func(appointment.Actor, uuid.UUID) (*application.AppointmentDTO, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid appointment ID")
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := op(actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// actorFrom builds the acting user from the authenticated context.
func actorFrom(c *gin.Context) (appointment.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return appointment.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		return appointment.Actor{}, false
	}
	return appointment.Actor{UserID: userID, Role: role}, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
