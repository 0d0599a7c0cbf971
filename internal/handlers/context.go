package handlers

import (
	"ambudispatch/internal/authz"
	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentSubject pulls the authenticated actor placed in the context by the
// auth middleware.
func currentSubject(c *gin.Context) (authz.Subject, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return authz.Subject{}, false
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.UnauthorizedResponse(c)
		return authz.Subject{}, false
	}

	role, _ := c.Get("user_role")
	roleStr, _ := role.(string)

	return authz.Subject{
		UserID: userObjectID,
		Role:   models.UserRole(roleStr),
	}, true
}

func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}
