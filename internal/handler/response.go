package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"user_management/internal/logger"
	"user_management/internal/middleware"
	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/service"
	"user_management/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var errUnexpected = map[string][]string{"general": {"An unexpected error occurred"}}

// Response is the envelope of every JSON response.
type Response struct {
	Status     string              `json:"status"`
	Message    string              `json:"message"`
	Data       any                 `json:"data,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Pagination *model.Pagination   `json:"pagination,omitempty"`
}

// AuthData is returned by register, login and refresh.
type AuthData struct {
	User      model.UserResponse `json:"user"`
	Token     string             `json:"token"`
	TokenType string             `json:"token_type"`
}

func newAuthData(u *model.User, token string) AuthData {
	return AuthData{User: model.NewUserResponse(u), Token: token, TokenType: "Bearer"}
}

func respondSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Status: StatusSuccess, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string, errs map[string][]string) {
	c.AbortWithStatusJSON(status, Response{Status: StatusError, Message: message, Errors: errs})
}

// bindJSON decodes the request body into dst. An empty body leaves dst
// untouched so that missing fields surface as validation errors.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return nil
	}
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.As(err, &typeErr):
		return validation.TypeMismatch(typeErr.Field)
	default:
		return validation.FieldError("general", "The request body must be valid JSON.")
	}
}

// errorResponder maps service errors to HTTP responses.
type errorResponder struct {
	logger   logrus.FieldLogger
	maxBytes int64
}

// fail writes the response for err. failMessage is the message of the
// generic 500; input is logged with sensitive keys redacted.
func (r errorResponder) fail(c *gin.Context, err error, failMessage string, input map[string]any) {
	var verr *validation.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusUnprocessableEntity, "Validation failed", verr.Fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnprocessableEntity, "Validation failed",
			map[string][]string{"email": {service.InvalidCredentialsMessage}})
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "Unauthenticated.", nil)
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "User not found",
			map[string][]string{"general": {"No user exists with the given ID"}})
	case errors.Is(err, repository.ErrStoreTimeout):
		r.logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("store timed out")
		c.Header("Retry-After", "5")
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable",
			map[string][]string{"general": {"The request timed out. Please try again."}})
	case errors.As(err, &tooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, "Request payload too large",
			map[string][]string{"general": {middleware.PayloadTooLargeMessage(r.maxBytes)}})
	default:
		r.logger.WithError(err).WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"input": logger.Redact(input),
		}).Error(failMessage)
		respondError(c, http.StatusInternalServerError, failMessage, errUnexpected)
	}
}

// payloadFields lists the supplied fields of p for error logs.
func payloadFields(p model.UserPayload) map[string]any {
	out := map[string]any{}
	if p.FirstName != nil {
		out["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		out["last_name"] = *p.LastName
	}
	if p.Role != nil {
		out["role"] = *p.Role
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Password != nil {
		out["password"] = *p.Password
	}
	if p.Latitude != nil {
		out["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		out["longitude"] = *p.Longitude
	}
	if p.DateOfBirth != nil {
		out["date_of_birth"] = *p.DateOfBirth
	}
	if p.Timezone != nil {
		out["timezone"] = *p.Timezone
	}
	return out
}
