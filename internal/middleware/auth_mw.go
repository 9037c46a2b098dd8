package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	AuthUserKey  = "authUser"
	AuthTokenKey = "authToken"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// AuthMiddleware requires a valid bearer token and stores the caller and the
// token in the gin context.
func AuthMiddleware(auth Authenticator, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Unauthenticated."})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Unauthenticated."})
			case errors.Is(err, repository.ErrStoreTimeout):
				c.Header("Retry-After", "5")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"status":  "error",
					"message": "Service temporarily unavailable",
					"errors":  gin.H{"general": []string{"The request timed out. Please try again."}},
				})
			default:
				logger.WithError(err).Error("failed to authenticate request")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "Authentication failed",
					"errors":  gin.H{"general": []string{"An unexpected error occurred"}},
				})
			}
			return
		}

		// Set user information in context
		c.Set(AuthUserKey, user)
		c.Set(AuthTokenKey, token)
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), user.ID))

		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(AuthUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

// CurrentToken returns the bearer token the request authenticated with.
func CurrentToken(c *gin.Context) string {
	return c.GetString(AuthTokenKey)
}
