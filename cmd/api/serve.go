package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "bizdesk/api/swagger" // swagger docs
	"bizdesk/internal/database"
	"bizdesk/internal/handler"
	"bizdesk/internal/marketplace"
	"bizdesk/internal/metrics"
	"bizdesk/internal/middleware"
	"bizdesk/internal/notify"
	"bizdesk/internal/repository"
	"bizdesk/internal/service"
	"bizdesk/internal/websocket"
)

const sessionPurgeInterval = time.Hour

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

type routeRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		return err
	}
	slog.Info("Connected to PostgreSQL", "host", cfg.Database.Host, "database", cfg.Database.Name)
	if err := database.Migrate(db); err != nil {
		slog.Warn("Failed to auto-migrate models", "error", err)
	}

	// Notifications: websocket hub, mail log and optional NATS fan-out
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	channels := []notify.Channel{
		notify.NewHubChannel(wsHub),
		notify.NewMailChannel(notify.LogMailer{Logger: logger.With("component", "mail")}),
	}
	if cfg.Notify.NATSURL != "" {
		conn, err := notify.ConnectNATS(cfg.Notify.NATSURL, logger)
		if err != nil {
			return err
		}
		defer drainNATS(conn)
		channels = append(channels, notify.NewNATSChannel(conn, cfg.Notify.NATSSubject))
		slog.Info("Publishing events to NATS", "url", cfg.Notify.NATSURL, "subject", cfg.Notify.NATSSubject)
	}
	events := notify.NewQueue(cfg.Notify.QueueSize, logger.With("component", "notify"), metrics.Default, channels...)
	queueDone := make(chan struct{})
	go func() {
		events.Run(ctx)
		close(queueDone)
	}()

	router, authService := buildRouter(db, wsHub, events, logger)

	go purgeSessions(ctx, authService)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", server.Addr, "release", cfg.Server.Release)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	select {
	case <-queueDone:
	case <-shutdownCtx.Done():
		slog.Warn("Notification queue did not drain before shutdown")
	}
	if n := events.Dropped(); n > 0 {
		slog.Warn("Notifications dropped during run", "count", n)
	}
	slog.Info("Server exited")
	return nil
}

// buildRouter wires Repository -> Service -> Handler and mounts every route
func buildRouter(db *gorm.DB, wsHub *websocket.Hub, events notify.Publisher, logger *slog.Logger) (*gin.Engine, service.AuthService) {
	// Repositories
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taxRepo := repository.NewTaxRuleRepository(db)
	productRepo := repository.NewProductRepository(db)
	distributorRepo := repository.NewDistributorInvoiceRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	callLogRepo := repository.NewCallLogRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	activityRepo := repository.NewTaskActivityRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	auth := middleware.NewAuth(cfg.Auth, cfg.Server.Release, roleRepo)
	currency := cfg.Pricing.TargetCurrency

	// Services
	authService := service.NewAuthService(userRepo, sessionRepo, roleRepo, auditRepo, txm, cfg.Auth)
	userService := service.NewUserService(userRepo, sessionRepo, roleRepo, auditRepo, txm)
	roleService := service.NewRoleService(roleRepo, txm, func() { auth.ClearPermissionCache("") })
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo)
	taxService := service.NewTaxService(taxRepo, auditRepo, txm, cfg.Pricing.DefaultGCTPercent)
	categoryService := service.NewCategoryService(categoryRepo, auditRepo, txm)
	looker := marketplace.NewClient(cfg.Marketplace.Timeout, cfg.Marketplace.UserAgent)
	pricingService := service.NewPricingService(cfg.Pricing, categoryRepo, taxService, looker, metrics.Default)
	productService := service.NewProductService(productRepo, pricingService, auditRepo, txm, events, logger)
	importService := service.NewDistributorInvoiceService(distributorRepo, productRepo, categoryRepo, taxService, auditRepo, txm, cfg.Pricing, metrics.Default)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txm)
	callLogService := service.NewCallLogService(callLogRepo, customerRepo, auditRepo, txm)

	tracker := service.NewTracker(recordRepo, userRepo, auditRepo, txm, events, metrics.Default, logger)
	workOrderService := service.NewWorkOrderService(tracker)
	ticketService := service.NewTicketService(tracker)
	taskService := service.NewTaskService(tracker, activityRepo)
	requestService := service.NewQuotationRequestService(tracker)
	inquiryService := service.NewInquiryService(tracker)
	quotationService := service.NewQuotationService(quotationRepo, productRepo, customerRepo, tracker, taxService, auditRepo, txm, currency, logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, quotationRepo, productRepo, customerRepo, tracker, taxService, auditRepo, txm, currency)

	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	secret := []byte(cfg.Auth.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("/api")
	for _, h := range []routeRegistrar{
		handler.NewAuthHandler(authService, userService, auth),
		handler.NewUserHandler(userService, auth),
		handler.NewRoleHandler(roleService, auth),
		handler.NewAuditHandler(auditService, auth),
		handler.NewStatisticsHandler(statisticsService, auth),
		handler.NewTaxHandler(taxService, auth),
		handler.NewPricingHandler(pricingService, auth),
		handler.NewProductHandler(productService, categoryService, auth),
		handler.NewDistributorInvoiceHandler(importService, auth),
		handler.NewCustomerHandler(customerService, callLogService, auth),
		handler.NewWorkOrderHandler(workOrderService, tracker, auth),
		handler.NewTicketHandler(ticketService, tracker, auth),
		handler.NewTaskHandler(taskService, tracker, auth),
		handler.NewQuotationRequestHandler(requestService, tracker, auth),
		handler.NewInquiryHandler(inquiryService, tracker, auth),
		handler.NewQuotationHandler(quotationService, auth),
		handler.NewInvoiceHandler(invoiceService, auth),
		handler.NewHelpHandler(auth),
	} {
		h.RegisterRoutes(api)
	}

	return router, authService
}

func purgeSessions(ctx context.Context, authService service.AuthService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Warn("Failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired sessions", "count", n)
			}
		}
	}
}

func drainNATS(conn *nats.Conn) {
	if err := conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
	}
}
