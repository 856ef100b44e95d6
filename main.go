// File: slotline/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotline/config"
	"slotline/cron"
	"slotline/handlers"
	"slotline/middleware"
	"slotline/repository/scheduling"
	"slotline/routes"
	"slotline/services/availability"
	"slotline/services/session"
	"slotline/services/waitlist"
	"slotline/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()

	utils.InitSessionCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.ViewerLocationMiddleware())

	// repositories.
	schedulingRepo := scheduling.NewHTTPClient(
		config.AppConfig.SchedulingBaseURL,
		config.AppConfig.SchedulingAPIKey,
		logger,
	)

	// services.
	availabilityService := availability.NewDefaultAvailabilityService(
		schedulingRepo,
		time.Duration(config.AppConfig.AvailabilityTTLSeconds)*time.Second,
		time.Duration(config.AppConfig.ThrottleWindowMillis)*time.Millisecond,
		logger,
	)

	sessionStore := session.NewRedisStore(utils.GetSessionCacheClient())
	sessionService := session.NewDefaultSessionService(
		sessionStore,
		availabilityService,
		schedulingRepo,
		time.Duration(config.AppConfig.SessionTTLMinutes)*time.Minute,
		logger,
	)
	sessionService.Expiry = cron.NewAsynqExpiryScheduler()

	waitlistService := &waitlist.DefaultWaitlistService{
		Repo:   schedulingRepo,
		Logger: logger,
	}

	// Background workers.
	cron.InitExpiryWorker(sessionStore)
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	go cron.MonitorRedisConnection(monitorCtx)
	go sweepAvailabilityCache(monitorCtx, availabilityService)

	bookingHandler := handlers.NewBookingHandler(sessionService, waitlistService, logger)
	routes.RegisterRoutes(router, bookingHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	cancelMonitor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// sweepAvailabilityCache evicts availability entries that have outlived
// any chance of a stale-while-revalidate serve.
func sweepAvailabilityCache(ctx context.Context, svc *availability.DefaultAvailabilityService) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			svc.Cache.Sweep(now, 10*svc.TTL)
		}
	}
}
