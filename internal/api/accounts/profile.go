package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
)

// ProfileHandlers handles the dashboard profile endpoint.
type ProfileHandlers struct {
	profileRepo *repositories.ProfileRepository
}

// NewProfileHandlers creates a new ProfileHandlers instance.
func NewProfileHandlers(profileRepo *repositories.ProfileRepository) *ProfileHandlers {
	return &ProfileHandlers{profileRepo: profileRepo}
}

// @Summary      Get current profile
// @Description  Returns the caller's profile joined with its organization. A 404 with code profile_not_found signals the client to redirect to the organization-creation screen.
// @Tags         Profile
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "profile and organization"
// @Failure      404  {object}  map[string]interface{}  "code: profile_not_found"
// @Failure      500  {object}  map[string]interface{}  "Database error"
// @Router       /api/v1/profile [get]
// GetProfileHandler returns the caller's profile with its organization
// GET /api/v1/profile
func (h *ProfileHandlers) GetProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		pwo, err := h.profileRepo.GetWithOrganization(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load profile",
			})
			return
		}

		if pwo == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Profile not found",
				"code":  "profile_not_found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"profile":      pwo.Profile,
			"organization": pwo.Organization(),
		})
	}
}
