// Package services implements the dashboard service endpoints: listing the
// organization's monitored services and registering new ones.
package services

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mayukh2077/swift-org/internal/db/models"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/ident"
	"github.com/mayukh2077/swift-org/internal/telemetry"
)

// ServiceHandlers handles service registration and listing.
type ServiceHandlers struct {
	serviceRepo *repositories.ServiceRepository
	profileRepo *repositories.ProfileRepository
}

// NewServiceHandlers creates a new ServiceHandlers instance.
func NewServiceHandlers(serviceRepo *repositories.ServiceRepository, profileRepo *repositories.ProfileRepository) *ServiceHandlers {
	return &ServiceHandlers{serviceRepo: serviceRepo, profileRepo: profileRepo}
}

// createServiceRequest is the body for POST /api/v1/services.
type createServiceRequest struct {
	Name      string `json:"name"`
	MetricURL string `json:"metric_url"`
}

// resolveProfile loads the caller's profile or writes the profile_not_found
// response. Both service endpoints scope everything to the profile's
// organization, so a missing profile means the caller has not finished signup.
func (h *ServiceHandlers) resolveProfile(c *gin.Context) *models.Profile {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return nil
	}

	profile, err := h.profileRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to look up profile",
		})
		return nil
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Profile not found",
			"code":  "profile_not_found",
		})
		return nil
	}
	return profile
}

// @Summary      List services
// @Description  Lists the caller's organization's monitored services, newest first.
// @Tags         Services
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "services"
// @Failure      404  {object}  map[string]interface{}  "code: profile_not_found"
// @Failure      500  {object}  map[string]interface{}  "Database error"
// @Router       /api/v1/services [get]
// ListServicesHandler lists the organization's services, newest first
// GET /api/v1/services
func (h *ServiceHandlers) ListServicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := h.resolveProfile(c)
		if profile == nil {
			return
		}

		services, err := h.serviceRepo.ListByOrganization(c.Request.Context(), profile.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list services",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"services": services,
		})
	}
}

// @Summary      Register a service
// @Description  Registers a monitored service with a metric URL for the caller's organization and returns the created row.
// @Tags         Services
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createServiceRequest  true  "Service name and metric URL"
// @Success      201  {object}  map[string]interface{}  "service"
// @Failure      400  {object}  map[string]interface{}  "Empty name or malformed metric URL"
// @Failure      404  {object}  map[string]interface{}  "code: profile_not_found"
// @Failure      500  {object}  map[string]interface{}  "Database error"
// @Router       /api/v1/services [post]
// CreateServiceHandler registers a new monitored service
// POST /api/v1/services
func (h *ServiceHandlers) CreateServiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createServiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Service name is required",
			})
			return
		}

		metricURL := strings.TrimSpace(req.MetricURL)
		if !validMetricURL(metricURL) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Metric URL must be a valid http or https URL",
			})
			return
		}

		profile := h.resolveProfile(c)
		if profile == nil {
			return
		}

		serviceID, err := ident.New(name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate identifier",
			})
			return
		}

		service := &models.Service{
			ServiceID:      serviceID,
			OrganizationID: profile.OrganizationID,
			UserID:         profile.UserID,
			Name:           name,
			MetricURL:      metricURL,
		}
		if err := h.serviceRepo.Create(c.Request.Context(), service); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create service",
			})
			return
		}

		telemetry.ServicesCreatedTotal.Inc()

		c.JSON(http.StatusCreated, gin.H{
			"service": service,
		})
	}
}

// validMetricURL checks basic URL shape: an http or https scheme and a host.
// The URL is stored for the dashboard to fetch client-side; the backend never
// requests it.
func validMetricURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
