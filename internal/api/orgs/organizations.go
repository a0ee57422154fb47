// Package orgs implements the organization signup endpoint: a new user names
// their organization and gets an organization row plus a profile binding them
// to it.
package orgs

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mayukh2077/swift-org/internal/db/models"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/ident"
	"github.com/mayukh2077/swift-org/internal/telemetry"
)

// OrganizationHandlers handles organization creation.
type OrganizationHandlers struct {
	orgRepo     *repositories.OrganizationRepository
	profileRepo *repositories.ProfileRepository
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance.
func NewOrganizationHandlers(orgRepo *repositories.OrganizationRepository, profileRepo *repositories.ProfileRepository) *OrganizationHandlers {
	return &OrganizationHandlers{orgRepo: orgRepo, profileRepo: profileRepo}
}

// createOrganizationRequest is the body for POST /api/v1/organizations.
type createOrganizationRequest struct {
	Name string `json:"name"`
}

// @Summary      Create organization
// @Description  Creates an organization and the caller's profile in one step. Only available to users without an existing profile.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createOrganizationRequest  true  "Organization display name"
// @Success      201  {object}  map[string]interface{}  "organization and profile"
// @Failure      400  {object}  map[string]interface{}  "Empty name"
// @Failure      409  {object}  map[string]interface{}  "Caller already has a profile"
// @Failure      500  {object}  map[string]interface{}  "Database error"
// @Router       /api/v1/organizations [post]
// CreateOrganizationHandler creates an organization and the caller's profile
// POST /api/v1/organizations
func (h *OrganizationHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		email := c.GetString("email")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		var req createOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Organization name is required",
			})
			return
		}

		ctx := c.Request.Context()

		// One organization per user: reject when a profile already exists.
		existing, err := h.profileRepo.GetByUserID(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up profile",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "User already belongs to an organization",
			})
			return
		}

		orgID, err := ident.New(name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate identifier",
			})
			return
		}

		org := &models.Organization{
			OrgID: orgID,
			Name:  name,
		}
		if err := h.orgRepo.Create(ctx, org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create organization",
			})
			return
		}

		profile := &models.Profile{
			UserID:         userID,
			Email:          email,
			OrganizationID: org.ID,
		}
		if err := h.profileRepo.Create(ctx, profile); err != nil {
			// Compensate so the failed signup leaves no orphan organization.
			// Best effort: the orphan sweeper picks up anything missed here.
			if delErr := h.orgRepo.Delete(ctx, org.ID); delErr != nil {
				slog.Warn("failed to delete organization after profile insert failure",
					"org_id", org.OrgID, "error", delErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create profile",
			})
			return
		}

		telemetry.OrganizationsCreatedTotal.Inc()

		c.JSON(http.StatusCreated, gin.H{
			"organization": org,
			"profile":      profile,
		})
	}
}
