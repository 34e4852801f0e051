package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/errs"
)

// ListRoles returns the role catalog ordered by level.
func (h *Handler) ListRoles(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermRolesView) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to view roles"))
		return
	}

	roles, err := h.db.ListRoles(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// ListPermissions returns the permission catalog.
func (h *Handler) ListPermissions(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermPermissionsView) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to view permissions"))
		return
	}

	perms, err := h.db.ListPermissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}
