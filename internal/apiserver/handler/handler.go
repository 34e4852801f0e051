package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/auth/jwt"
	"github.com/waplatform/console/internal/auth/session"
	"github.com/waplatform/console/internal/bizpoints"
	"github.com/waplatform/console/internal/common/errs"
	"github.com/waplatform/console/internal/provision"
)

// Handler bundles the console's HTTP handlers and their dependencies.
type Handler struct {
	db         database.Database
	jwtService *jwt.Service
	sessions   session.Store
	guard      *access.Guard
	resolver   *access.Resolver
	engine     *bizpoints.Engine
	provision  *provision.Service
	logger     *zap.Logger
}

// NewHandler creates the handler set.
func NewHandler(
	db database.Database,
	jwtService *jwt.Service,
	sessions session.Store,
	guard *access.Guard,
	resolver *access.Resolver,
	engine *bizpoints.Engine,
	prov *provision.Service,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:         db,
		jwtService: jwtService,
		sessions:   sessions,
		guard:      guard,
		resolver:   resolver,
		engine:     engine,
		provision:  prov,
		logger:     logger.Named("handler"),
	}
}

// respondError converts a typed error into an HTTP response, logging the
// internal cause without forwarding it.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= 500 {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": errs.Message(err)})
}

func pageParams(c *gin.Context) (int, int) {
	page := 1
	pageSize := 50
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 && v <= 200 {
		pageSize = v
	}
	return page, pageSize
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.New(errs.KindValidation, "invalid user id")
	}
	return id, nil
}

