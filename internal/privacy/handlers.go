package privacy

import (
	"net/http"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/gin-gonic/gin"
)

// ErasureRequest is the body of the admin erasure route
type ErasureRequest struct {
	Email string `json:"email"`
}

// RegisterRoutes mounts the public retention route and, behind admin, the erasure route
func (ps *PrivacyService) RegisterRoutes(r gin.IRouter, admin gin.HandlerFunc) {
	r.GET("/privacy", ps.handleRetentionInfo)
	r.DELETE("/admin/privacy/messages", admin, ps.handleErase)
}

func (ps *PrivacyService) handleRetentionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ps.GetDataRetentionInfo())
}

func (ps *PrivacyService) handleErase(c *gin.Context) {
	var req ErasureRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		errors.Respond(c, errors.NewValidationError("email is required"))
		return
	}

	deleted, err := ps.DeleteUserData(c.Request.Context(), req.Email)
	if err != nil {
		errors.Respond(c, errors.NewInternalError("failed to erase messages", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
