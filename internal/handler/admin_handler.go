package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/middleware"
	"github.com/petcare-marketplace/service-scheduling/internal/common/response"
)

// AdminAppointmentHandler handles admin HTTP requests for appointment management.
type AdminAppointmentHandler struct {
	service *application.AppointmentService
}

// NewAdminAppointmentHandler creates a new AdminAppointmentHandler.
func NewAdminAppointmentHandler(service *application.AppointmentService) *AdminAppointmentHandler {
	return &AdminAppointmentHandler{service: service}
}

// RegisterRoutes registers admin appointment routes.
func (h *AdminAppointmentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/appointments", h.ListAppointments)
		admin.GET("/stats/appointments", h.AppointmentStats)
	}
}

// ListAppointments handles GET /api/v1/admin/appointments?status=pending.
func (h *AdminAppointmentHandler) ListAppointments(c *gin.Context) {
	page, limit := parsePagination(c)

	appointments, total, err := h.service.ListAllAppointments(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, appointments, total, page, limit)
}

// AppointmentStats handles GET /api/v1/admin/stats/appointments.
func (h *AdminAppointmentHandler) AppointmentStats(c *gin.Context) {
	stats, err := h.service.GetAppointmentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
