package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/inkwell/config"
	"github.com/cppla/inkwell/middleware"
	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/utils"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// AuthController handles the back-office session.
type AuthController struct {
	db     *gorm.DB
	admin  config.AdminSection
	ttl    time.Duration
	secure bool
	logger *zap.Logger
}

// NewAuthController creates a new AuthController instance. The configured admin account
// is created on its first successful login.
func NewAuthController(db *gorm.DB, cfg config.AppConfig, logger *zap.Logger) *AuthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.App.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &AuthController{
		db:     db,
		admin:  cfg.Admin,
		ttl:    ttl,
		secure: strings.HasPrefix(cfg.App.BaseURL, "https://"),
		logger: logger,
	}
}

// Login verifies credentials and issues a session token in the body and a cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := a.authenticate(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, errBadCredentials) {
			a.logger.Error("login lookup failed", zap.String("username", req.Username), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50004, "login failed")
			return
		}
		a.logger.Info("login rejected", zap.String("username", req.Username), zap.String("ip", ctx.ClientIP()))
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, a.ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, token, int(a.ttl.Seconds()), "/", "", a.secure, true)
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

var errBadCredentials = errors.New("invalid credentials")

func (a *AuthController) authenticate(username, password string) (*models.User, error) {
	var user models.User
	err := a.db.Where("username = ?", username).First(&user).Error
	if err == nil {
		if !utils.CheckPassword(user.PasswordHash, password) {
			return nil, errBadCredentials
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return a.bootstrap(username, password)
}

// bootstrap creates the configured admin when no account exists yet.
func (a *AuthController) bootstrap(username, password string) (*models.User, error) {
	if a.admin.Username == "" || a.admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(a.admin.Username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(a.admin.Password)) != 1 {
		utils.BurnPasswordCheck(password)
		return nil, errBadCredentials
	}
	var count int64
	if err := a.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errBadCredentials
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	a.logger.Info("admin account bootstrapped", zap.String("username", username))
	return &user, nil
}

// Logout revokes the current token and clears the session cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "authentication required")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(a.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", a.secure, true)
	utils.SuccessMessage(ctx, "logged out", nil)
}

// Me returns the authenticated account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
