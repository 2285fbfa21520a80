package local

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/session"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"go.uber.org/zap"
)

// Handler manages local auth endpoints.
type Handler struct {
	authsvc  authdomain.Service
	sessions *session.Manager
	log      *zap.Logger
}

func NewHandler(authsvc authdomain.Service, sessions *session.Manager, log *zap.Logger) *Handler {
	return &Handler{
		authsvc:  authsvc,
		sessions: sessions,
		log:      log.Named("auth.local.handler"),
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/api/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
	group.GET("/me", session.RequireAccount(h.authsvc, h.sessions), h.Me)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Account   accountResponse `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expires_at"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeLocalError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	_, err := h.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, authdomain.ErrAccountExists):
		writeLocalError(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, authdomain.ErrInvalidEmail), errors.Is(err, authdomain.ErrInvalidPassword), errors.Is(err, authdomain.ErrInvalidName):
		writeLocalError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.WithContext(c.Request.Context(), h.log).Error("register failed", zap.Error(err))
		writeLocalError(c, http.StatusInternalServerError, "internal_error")
		return
	}

	h.startSession(c, http.StatusCreated, req.Email, req.Password)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeLocalError(c, http.StatusBadRequest, "invalid_request")
		return
	}
	h.startSession(c, http.StatusOK, req.Email, req.Password)
}

func (h *Handler) startSession(c *gin.Context, status int, email, password string) {
	result, err := h.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     email,
		Password:  password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if !errors.Is(err, authdomain.ErrInvalidCredentials) {
			logger.WithContext(c.Request.Context(), h.log).Error("login failed", zap.Error(err))
		}
		writeLocalError(c, http.StatusUnauthorized, authdomain.ErrInvalidCredentials.Error())
		return
	}

	h.sessions.Set(c, result.RawToken, result.ExpiresAt)
	logger.WithContext(c.Request.Context(), h.log).Info("local login created session",
		zap.String("account_id", result.Account.ID.String()),
	)

	c.JSON(status, sessionResponse{
		Account:   toAccountResponse(result.Account),
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token, ok := h.sessions.ReadToken(c)
	if !ok {
		writeLocalError(c, http.StatusUnauthorized, authdomain.ErrInvalidSession.Error())
		return
	}
	if err := h.authsvc.Logout(c.Request.Context(), token); err != nil {
		writeLocalError(c, http.StatusUnauthorized, authdomain.ErrInvalidSession.Error())
		return
	}

	h.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	account, err := h.authsvc.CurrentAccount(c.Request.Context())
	if err != nil {
		writeLocalError(c, http.StatusUnauthorized, authdomain.ErrInvalidSession.Error())
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

func toAccountResponse(account *authdomain.Account) accountResponse {
	if account == nil {
		return accountResponse{}
	}
	return accountResponse{
		ID:    account.ID.String(),
		Name:  strings.TrimSpace(account.Name),
		Email: account.Email,
	}
}

func writeLocalError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"error": code})
}
