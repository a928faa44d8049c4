// Package app is the composition root: it wires every package under
// internal/ and pkg/ into a runnable orchestrator process.
package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/santosdev/order-orchestrator/config"
	httpController "github.com/santosdev/order-orchestrator/internal/controller/http"
	rabbitmqController "github.com/santosdev/order-orchestrator/internal/controller/rabbitmq"
	"github.com/santosdev/order-orchestrator/internal/authkey"
	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/repo"
	"github.com/santosdev/order-orchestrator/internal/saga"
	"github.com/santosdev/order-orchestrator/internal/usecase"
	"github.com/santosdev/order-orchestrator/pkg/auditlog"
	"github.com/santosdev/order-orchestrator/pkg/auth"
	"github.com/santosdev/order-orchestrator/pkg/database"
	"github.com/santosdev/order-orchestrator/pkg/errors"
	"github.com/santosdev/order-orchestrator/pkg/messaging"
	"github.com/santosdev/order-orchestrator/pkg/middleware"
	"github.com/santosdev/order-orchestrator/pkg/rabbitmq"
)

// App holds every long-lived handle the process needs to shut down
// cleanly.
type App struct {
	config     *config.Config
	httpServer *http.Server
	jwtManager *auth.JWTManager
	db         *gorm.DB
	rabbitMQ   *rabbitmq.RabbitMQ
}

func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		return nil, errors.AppendPrefix(err, "failed to connect to database")
	}

	if err := database.AutoMigrateWithCleanup(db,
		&entity.Order{},
		&entity.ConfirmationSagaRecord{},
		&entity.CancellationSagaRecord{},
	); err != nil {
		return nil, errors.AppendPrefix(err, "failed to run migrations")
	}

	rmq, err := messaging.InitRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		database.CloseDB(db)
		return nil, errors.AppendPrefix(err, "failed to connect to RabbitMQ")
	}

	audit := auditlog.New(cfg.Orchestrator.ServiceName, bus.LogsExchange, rmq)
	egress := bus.NewEgress(rmq, audit)
	if err := egress.Declare(); err != nil {
		database.CloseDB(db)
		rmq.Close()
		return nil, errors.AppendPrefix(err, "failed to declare exchanges")
	}

	jwtManager := auth.NewJWTManager(&auth.Config{
		TokenIssuer:    cfg.JWT.TokenIssuer,
		TokenAudiences: cfg.JWT.TokenAudiences,
	})

	keyFetcher := authkey.NewFetcher(cfg.Services.AuthURL, cfg.Orchestrator.AuthKeyCachePath, jwtManager)
	if err := keyFetcher.LoadCached(); err != nil {
		log.Printf("no cached auth public key yet, waiting for auth.running: %v", err)
	}

	orderRepo := repo.NewOrderRepository(db)
	confirmationSagaRepo := repo.NewConfirmationSagaRepository(db)
	cancelSagaRepo := repo.NewCancelSagaRepository(db)

	registry := saga.NewRegistry(audit)
	confirmationSaga := saga.NewConfirmationSaga(registry, orderRepo, confirmationSagaRepo, egress, audit)
	cancellationSaga := saga.NewCancellationSaga(registry, orderRepo, cancelSagaRepo, egress, audit)

	if err := confirmationSaga.Restore(context.Background()); err != nil {
		log.Printf("WARNING: failed to restore confirmation sagas from mirror: %v", err)
	}

	ingress := rabbitmqController.NewIngress(
		rmq,
		orderRepo,
		confirmationSaga,
		cancellationSaga,
		egress,
		audit,
		cfg.Orchestrator.WarehouseEventsBinding,
		keyFetcher,
	)
	if err := ingress.Setup(); err != nil {
		log.Printf("WARNING: failed to set up bus ingress: %v", err)
	}

	authMiddleware := auth.NewAuthMiddleware(jwtManager)
	internalAuth := middleware.NewInternalAuthMiddleware(middleware.NewInternalAPIConfig())

	orderUseCase := usecase.NewOrderUseCase(orderRepo, confirmationSaga, cancellationSaga)
	orderHandler := httpController.NewOrderHandler(orderUseCase, authMiddleware, internalAuth)

	router := gin.Default()
	router.Use(errors.RecoveryMiddleware())
	router.Use(errors.ErrorMiddleware())
	router.NoRoute(errors.NotFoundHandler())
	router.NoMethod(errors.MethodNotAllowedHandler())

	orderHandler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &App{
		config:     cfg,
		httpServer: httpServer,
		jwtManager: jwtManager,
		db:         db,
		rabbitMQ:   rmq,
	}, nil
}

// Run starts the HTTP server and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Printf("HTTP server listening on port %s", a.config.HTTP.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("shutdown signal received")
	case <-ctx.Done():
		log.Println("context canceled")
	}

	return a.Shutdown()
}

// Shutdown closes every resource the app opened, collecting errors from
// each step rather than stopping at the first one.
func (a *App) Shutdown() error {
	errGroup := errors.NewErrorGroup()

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.httpServer.Shutdown(ctx); err != nil {
			errGroup.AddPrefix(err, "failed to shut down HTTP server")
		}
	}

	if a.rabbitMQ != nil {
		a.rabbitMQ.Close()
	}

	if a.db != nil {
		if err := database.CloseDB(a.db); err != nil {
			errGroup.AddPrefix(err, "failed to close database connection")
		}
	}

	if errGroup.HasErrors() {
		errors.LogError(errGroup, "Shutdown")
		return errGroup
	}

	log.Println("application shut down cleanly")
	return nil
}
