package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/apiserver/handler"
	"github.com/waplatform/console/internal/apiserver/middleware"
	"github.com/waplatform/console/internal/auth/jwt"
	"github.com/waplatform/console/internal/auth/session"
	"github.com/waplatform/console/internal/bizpoints"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/config"
	"github.com/waplatform/console/internal/provision"
	"github.com/waplatform/console/pkg/logger"
	"github.com/waplatform/console/pkg/metrics"
	"github.com/waplatform/console/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the console apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Console API Server",
		Long:  `Console API Server provides the admin API for the multi-tenant console`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("Starting apiserver",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := bootstrapSuperAdmin(context.Background(), db, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Failed to bootstrap super admin", zap.Error(err))
	}

	jwtService, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  cfg.JWT.Duration,
	})
	if err != nil {
		zapLogger.Fatal("Failed to initialize JWT service", zap.Error(err))
	}

	sessions, err := session.NewStore(zapLogger, &cfg.Session)
	if err != nil {
		zapLogger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer sessions.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	guard := access.NewGuard(db, zapLogger)
	resolver := access.NewResolver(zapLogger)
	engine := bizpoints.NewEngine(db, guard, resolver, m, zapLogger)
	prov := provision.NewService(db, guard, zapLogger)
	h := handler.NewHandler(db, jwtService, sessions, guard, resolver, engine, prov, zapLogger)

	router := buildRouter(cfg, h, jwtService, sessions, db, m, zapLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zapLogger.Info("Server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Forced shutdown", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.APIServerConfig,
	h *handler.Handler,
	jwtService *jwt.Service,
	sessions session.Store,
	db database.Database,
	m *metrics.Metrics,
	zapLogger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	if m != nil {
		router.Use(m.GinMiddleware())
		router.GET("/metrics", m.Handler())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})

	router.POST("/api/auth/login", h.Login)

	authed := router.Group("/api",
		middleware.JWTAuthMiddleware(jwtService, sessions, db, zapLogger))

	authed.POST("/auth/logout", h.Logout)
	authed.POST("/auth/change-password", h.ChangePassword)
	authed.GET("/auth/me", h.Me)

	authed.GET("/users", h.ListUsers)
	authed.POST("/users", h.CreateUser)
	authed.GET("/users/:id", h.GetUser)
	authed.PUT("/users/:id", h.UpdateUser)
	authed.DELETE("/users/:id", h.DeleteUser)
	authed.PUT("/users/:id/roles", h.ReplaceUserRoles)
	authed.PUT("/users/:id/permissions", h.SetUserPermission)

	authed.GET("/roles", h.ListRoles)
	authed.GET("/permissions", h.ListPermissions)

	authed.POST("/bizpoints/transactions", h.PostTransaction)
	authed.GET("/bizpoints/transactions", h.ListTransactions)
	authed.GET("/bizpoints/summary", h.TransactionSummary)

	authed.GET("/dashboard/stats", h.DashboardStats)

	return router
}

// bootstrapSuperAdmin seeds the initial owner account when the user table is
// empty. Credentials come from configuration, never hardcoded.
func bootstrapSuperAdmin(ctx context.Context, db database.Database, cfg *config.APIServerConfig, zapLogger *zap.Logger) error {
	count, err := db.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.SuperAdmin.Email == "" || cfg.SuperAdmin.Password == "" {
		zapLogger.Warn("No users exist and no super admin configured; login will be impossible")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var ownerRoleID int64
	roles, err := db.ListRoles(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r.Level == cnst.LevelOwner {
			ownerRoleID = r.ID
			break
		}
	}
	if ownerRoleID == 0 {
		return fmt.Errorf("owner role missing from catalog")
	}

	return db.Transaction(ctx, func(ctx context.Context) error {
		user := &database.User{
			Email:      cfg.SuperAdmin.Email,
			Name:       "Super Admin",
			Password:   string(hashed),
			AccessType: cnst.AccessFull,
			IsActive:   true,
		}
		if err := db.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := db.ReplaceUserRoles(ctx, user.ID, []int64{ownerRoleID}); err != nil {
			return err
		}
		zapLogger.Info("Super admin created", zap.String("email", user.Email))
		return nil
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
