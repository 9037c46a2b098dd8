package handler

import (
	"net/http"
	"strconv"
	"strings"

	"user_management/internal/model"
	"user_management/internal/service"
	"user_management/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler handles user management requests
type UserHandler struct {
	service service.UserService
	errorResponder
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(s service.UserService, logger logrus.FieldLogger, maxBodyBytes int64) *UserHandler {
	return &UserHandler{
		service:        s,
		errorResponder: errorResponder{logger: logger, maxBytes: maxBodyBytes},
	}
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer cannot name a user.
func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, service.ErrUserNotFound
	}
	return id, nil
}

// parseListParams reads filters, sorting and paging from the query string.
// Malformed per_page and page fall back to their defaults.
func parseListParams(c *gin.Context) (model.ListParams, error) {
	var params model.ListParams

	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, validation.FieldError("role", "The role filter must be an integer.")
		}
		role := model.Role(n)
		params.Filters.Role = &role
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		params.Filters.Search = &search
	}

	params.SortBy = c.DefaultQuery("sort_by", model.DefaultSortBy)
	params.SortOrder = strings.ToLower(c.DefaultQuery("sort_order", model.SortDesc))
	params.PerPage, _ = strconv.Atoi(c.Query("per_page"))
	params.Page, _ = strconv.Atoi(c.Query("page"))
	return params, nil
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		h.fail(c, err, "Failed to retrieve users", nil)
		return
	}

	page, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err, "Failed to retrieve users", map[string]any{"query": c.Request.URL.RawQuery})
		return
	}

	c.JSON(http.StatusOK, Response{
		Status:     StatusSuccess,
		Message:    "Users retrieved successfully",
		Data:       model.NewUserResponses(page.Users),
		Pagination: &page.Pagination,
	})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "Failed to retrieve user", nil)
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to retrieve user", map[string]any{"id": id})
		return
	}
	respondSuccess(c, http.StatusOK, "User retrieved successfully", model.NewUserResponse(user))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.UserPayload
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err, "Failed to create user", nil)
		return
	}

	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to create user", payloadFields(req))
		return
	}
	respondSuccess(c, http.StatusCreated, "User created successfully", model.NewUserResponse(user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "Failed to update user", nil)
		return
	}

	var req model.UserPayload
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err, "Failed to update user", nil)
		return
	}

	user, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		input := payloadFields(req)
		input["id"] = id
		h.fail(c, err, "Failed to update user", input)
		return
	}
	respondSuccess(c, http.StatusOK, "User updated successfully", model.NewUserResponse(user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "Failed to delete user", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to delete user", map[string]any{"id": id})
		return
	}
	respondSuccess(c, http.StatusOK, "User deleted successfully", nil)
}

// RegisterUserRoutes registers user routes. Every route runs behind authMW;
// writes additionally run behind writeMW.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW, writeMW []gin.HandlerFunc) {
	users := rg.Group("/users", authMW...)
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
	}

	writes := users.Group("", writeMW...)
	{
		writes.POST("", h.CreateUser)
		writes.PUT("/:id", h.UpdateUser)
		writes.PATCH("/:id", h.UpdateUser)
		writes.DELETE("/:id", h.DeleteUser)
	}
}
