package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/auth/jwt"
	"github.com/waplatform/console/internal/common/dto"
	"github.com/waplatform/console/internal/common/errs"
)

// Login authenticates by email and password and issues a JWT. Every failure
// mode returns the same message so the response does not reveal whether the
// account exists.
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.db.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	role, err := h.db.GetUserPrimaryRole(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("login for account without primary role",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Email, role.Level, user.AccessType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", role.Name))

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token: token,
		User: &dto.UserInfo{
			ID:         user.ID,
			Email:      user.Email,
			Name:       user.Name,
			Role:       role.Name,
			Level:      role.Level,
			AccessType: user.AccessType,
			Balance:    user.Balance,
			DealerCode: user.DealerCode,
		},
	})
}

// Logout revokes the current token until its natural expiry.
func (h *Handler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if ttl := revocationTTL(claims); ttl > 0 {
		if err := h.sessions.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangePassword verifies the old password, stores the new hash and revokes
// the current token so the caller has to log in again.
func (h *Handler) ChangePassword(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	claims := claimsFromContext(c)
	if identity == nil || claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "new password must be at least 8 characters"})
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "old password is incorrect"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	user.Password = string(hashed)
	if err := h.db.UpdateUser(c.Request.Context(), user); err != nil {
		h.respondError(c, err)
		return
	}

	if ttl := revocationTTL(claims); ttl > 0 {
		if err := h.sessions.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.logger.Error("revoking token after password change",
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, dto.ChangePasswordResponse{Success: true})
}

// Me returns the acting user's profile.
func (h *Handler) Me(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	role, err := h.db.GetUserPrimaryRole(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, errs.Wrap(errs.KindRoleNotFound, "no primary role assigned", err))
		return
	}

	c.JSON(http.StatusOK, dto.UserInfo{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       role.Name,
		Level:      role.Level,
		AccessType: user.AccessType,
		Balance:    user.Balance,
		DealerCode: user.DealerCode,
	})
}

// revocationTTL keeps the revocation entry alive only as long as the token
// itself would be accepted.
func revocationTTL(claims *jwt.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func claimsFromContext(c *gin.Context) *jwt.Claims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		return nil
	}
	return claims
}
