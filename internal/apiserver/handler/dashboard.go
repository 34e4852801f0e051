package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/dto"
	"github.com/waplatform/console/internal/common/errs"
)

// DashboardStats aggregates counts over exactly the accounts the actor can
// see. The same scope drives every sub-query, so the numbers cannot mix
// visibility levels.
func (h *Handler) DashboardStats(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermDashboardView) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to view the dashboard"))
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	_, totalUsers, err := h.db.ListUsers(c.Request.Context(), scope, 1, 1)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, err := h.db.TransactionSummary(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DashboardStats{
		TotalUsers:       totalUsers,
		TotalBalance:     summary.TotalBalance,
		UsersWithBalance: summary.UsersWithBalance,
		TransactionCount: summary.TransactionCount,
		TotalsByType:     summary.TotalsByType,
	})
}
