package middleware

import (
	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// HandleAuth trusts the identity headers set by the API gateway in front of
// this service.
func HandleAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetHeader(constant.HeaderUserId)
		if userId == "" {
			response.Unauthorized(c, "user is not authorized")
			return
		}

		c.Set(constant.UserIdKey, userId)
		c.Set(constant.UserNameKey, c.GetHeader(constant.HeaderUserName))
		c.Set(constant.RoleKey, c.GetHeader(constant.HeaderRole))
		c.Next()
	}
}

// RequireModerator must run after HandleAuth.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(constant.RoleKey) != constant.RoleModerator {
			response.Error(c, errors.Wrap(constant.ErrForbidden, "moderator role required"))
			return
		}
		c.Next()
	}
}
