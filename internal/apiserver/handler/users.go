package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/dto"
	"github.com/waplatform/console/internal/common/errs"
	"github.com/waplatform/console/internal/provision"
)

// ListUsers returns the page of accounts visible under the actor's scope.
func (h *Handler) ListUsers(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermUsersView) &&
		!h.guard.Has(c.Request.Context(), identity, cnst.PermCustomersView) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to view users"))
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	page, pageSize := pageParams(c)
	users, total, err := h.db.ListUsers(c.Request.Context(), scope, page, pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PageResponse[*database.User]{
		Items:    users,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetUser returns one account if it falls inside the actor's scope. An
// out-of-scope id reads as not found so the response does not confirm the
// account exists.
func (h *Handler) GetUser(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermUsersView) &&
		!h.guard.Has(c.Request.Context(), identity, cnst.PermCustomersView) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to view users"))
		return
	}

	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, errs.New(errs.KindNotFound, "user not found"))
		return
	}
	if !scope.AllowsUser(user.ID, user.ParentID) {
		h.respondError(c, errs.New(errs.KindNotFound, "user not found"))
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser provisions a subordinate account.
func (h *Handler) CreateUser(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	var req provision.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.provision.CreateSubordinate(c.Request.Context(), identity, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser modifies an account inside the actor's scope.
func (h *Handler) UpdateUser(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req provision.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.provision.Update(c.Request.Context(), identity, scope, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes or deactivates an account inside the actor's scope.
func (h *Handler) DeleteUser(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.provision.Delete(c.Request.Context(), identity, scope, id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReplaceUserRoles replaces a user's role assignments; the first id in the
// request becomes the primary role.
func (h *Handler) ReplaceUserRoles(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)

	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req dto.UserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.provision.ReplaceRoles(c.Request.Context(), identity, scope, id, req.RoleIDs); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetUserPermission sets or clears an explicit per-user override. A request
// with granted omitted removes the override, falling back to role defaults.
func (h *Handler) SetUserPermission(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !h.guard.Has(c.Request.Context(), identity, cnst.PermPermissionsManage) {
		h.respondError(c, errs.New(errs.KindForbidden, "missing permission to manage permissions"))
		return
	}

	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req dto.UserPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	scope, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	target, err := h.db.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, errs.New(errs.KindNotFound, "user not found"))
		return
	}
	if !scope.AllowsUser(target.ID, target.ParentID) {
		h.respondError(c, errs.New(errs.KindNotFound, "user not found"))
		return
	}

	perm, err := h.db.GetPermissionByName(c.Request.Context(), req.Permission)
	if err != nil {
		h.respondError(c, errs.New(errs.KindNotFound, "permission not found"))
		return
	}

	if req.Granted == nil {
		err = h.db.RemoveUserPermission(c.Request.Context(), target.ID, perm.ID)
	} else {
		err = h.db.SetUserPermission(c.Request.Context(), target.ID, perm.ID, *req.Granted)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
