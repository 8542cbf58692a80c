package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"account-service/internal/service"
)

// Handler wires HTTP routes to the account service.
type Handler struct {
	accounts service.AccountService
	logger   *logrus.Logger
}

func NewHandler(accounts service.AccountService, logger *logrus.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(h.loggingMiddleware())

	api := router.Group("/api")
	{
		user := api.Group("/user")
		{
			user.POST("/join", h.join)
			user.PUT("/:loginId", h.updateUser)
			user.GET("/list", h.listUsers)
		}
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags every request with an id so log lines from one
// request can be correlated. An inbound X-Request-ID is honored.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"requestID": c.GetString("requestID"),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start),
		}).Info("request handled")
	}
}

type joinRequest struct {
	LoginID     string `json:"loginId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type updateRequest struct {
	DisplayName *string `json:"displayName"`
	Password    *string `json:"password"`
	PhoneNumber *string `json:"phoneNumber"`
}

func (h *Handler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.accounts.Register(c.Request.Context(), service.RegisterRequest{
		LoginID:     req.LoginID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Secret:      req.Password,
		PhoneNumber: req.PhoneNumber,
	})

	switch result.Status {
	case service.RegisterCreated:
		c.JSON(http.StatusCreated, gin.H{"message": "CREATED"})
	case service.RegisterValidationFailed:
		status := http.StatusBadRequest
		if result.Rule.Conflict() {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": string(result.Rule)})
	case service.RegisterAlreadyExists:
		c.JSON(http.StatusConflict, gin.H{"error": "already exists", "field": result.Field})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR"})
	}
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.accounts.Update(c.Request.Context(), c.Param("loginId"), service.UpdateRequest{
		DisplayName: req.DisplayName,
		Secret:      req.Password,
		PhoneNumber: req.PhoneNumber,
	})

	switch result.Status {
	case service.UpdateOK:
		c.JSON(http.StatusOK, gin.H{"message": "User information updated successfully"})
	case service.UpdateInvalidUser:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user"})
	case service.UpdateValidationFailed:
		status := http.StatusBadRequest
		if result.Rule.Conflict() {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": string(result.Rule)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR"})
	}
}

// listUsers serves the paginated account listing. The page query parameter
// is zero based: page=0 is the first page. Sort toggles are presence
// based: any value for createDateSort or userNameSort enables them.
func (h *Handler) listUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pageSize"})
		return
	}

	_, createdAtDesc := c.GetQuery("createDateSort")
	_, displayNameAsc := c.GetQuery("userNameSort")

	result, err := h.accounts.List(c.Request.Context(), service.ListRequest{
		Page:           page,
		PageSize:       pageSize,
		CreatedAtDesc:  createdAtDesc,
		DisplayNameAsc: displayNameAsc,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_ERROR"})
		return
	}

	c.JSON(http.StatusOK, result)
}
