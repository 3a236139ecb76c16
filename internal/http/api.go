package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"usersvc/internal/domain"
	"usersvc/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	logger logrus.FieldLogger
}

func NewHandler(users service.UserService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:  users,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))

	api := router.Group("/api")
	{
		api.GET("", h.home)
		api.POST("/users", h.createUser)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type createUserRequest struct {
	Username     string `json:"username"`
	EmailAddress string `json:"email_address"`
}

type createUserResponse struct {
	ID string `json:"id"`
}

type homeResponse struct {
	Message string `json:"message"`
}

type errorData struct {
	Message string `json:"message"`
}

// responseBody is the envelope shared by every API response.
type responseBody struct {
	StatusCode int `json:"status_code"`
	Data       any `json:"data"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, responseBody{StatusCode: status, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	respond(c, status, errorData{Message: message})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	}
}

func (h *Handler) home(c *gin.Context) {
	respond(c, http.StatusOK, homeResponse{Message: "usersvc"})
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.EmailAddress, req.Username)
	if err != nil {
		h.writeError(c, req, err)
		return
	}

	respond(c, http.StatusCreated, createUserResponse{ID: user.ID.String()})
}

func (h *Handler) writeError(c *gin.Context, req createUserRequest, err error) {
	var (
		verr *domain.ValidationError
		dup  *domain.DuplicateKeyError
	)
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusUnprocessableEntity, validationMessage(req, verr))
	case errors.As(err, &dup):
		respondError(c, http.StatusUnprocessableEntity, duplicateMessage(dup))
	default:
		h.logger.Errorf("create user: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func validationMessage(req createUserRequest, err *domain.ValidationError) string {
	switch err.Field {
	case domain.FieldUsername:
		if err.Value == "" {
			return "username can't be empty"
		}
		return fmt.Sprintf("username '%s' is not valid", req.Username)
	case domain.FieldEmail:
		return fmt.Sprintf("email address %s is invalid", req.EmailAddress)
	default:
		return err.Error()
	}
}

func duplicateMessage(err *domain.DuplicateKeyError) string {
	switch err.Field {
	case domain.FieldEmail:
		return fmt.Sprintf("user with email '%s' already exists", err.Value)
	case domain.FieldUsername:
		return fmt.Sprintf("user with username %s already exists", err.Value)
	case domain.FieldID:
		return fmt.Sprintf("user with id %s already exists", err.Value)
	default:
		return "user already exists"
	}
}
