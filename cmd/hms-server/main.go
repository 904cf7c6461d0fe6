package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/meridian-health/hms/pkg/audit"
	"github.com/meridian-health/hms/pkg/common/config"
	"github.com/meridian-health/hms/pkg/common/database"
	"github.com/meridian-health/hms/pkg/common/kafka"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/directory"
	gatewayauth "github.com/meridian-health/hms/pkg/gateway/auth"
	"github.com/meridian-health/hms/pkg/gateway/middleware"
	"github.com/meridian-health/hms/pkg/identity"
	"github.com/meridian-health/hms/pkg/notify"
	"github.com/meridian-health/hms/pkg/observability/metrics"
	"github.com/meridian-health/hms/pkg/patient"
	"github.com/meridian-health/hms/pkg/visit"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	directoryRepo := directory.NewRepository(db)
	patientRepo := patient.NewRepository(db)
	visitRepo := visit.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	identityRepo := identity.NewRepository(db)

	for name, migrate := range map[string]func() error{
		"directory": directoryRepo.AutoMigrate,
		"patient":   patientRepo.AutoMigrate,
		"visit":     visitRepo.AutoMigrate,
		"audit":     auditRepo.AutoMigrate,
		"identity":  identityRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("tables", name).Fatal("failed to migrate tables")
		}
	}

	redisClient := database.GetRedis()

	tokenSigner, err := gatewayauth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure token signer")
	}

	policy, err := gatewayauth.LoadPolicy(cfg.RBACPolicyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load RBAC policy file, using defaults")
	}
	guard := middleware.NewGuard(gatewayauth.NewRBAC(policy))

	oidcAuth, err := gatewayauth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC login not configured")
	}

	producer := kafka.NewProducer(cfg.KafkaNotifyTopic)
	defer producer.Close()

	taskStore := notify.NewTaskStore(redisClient, cfg.TaskStatusTTL)
	dispatcher := notify.NewDispatcher(producer, taskStore, "hms-server")

	recorder := audit.NewRecorder(auditRepo, audit.DefaultTrackedEntities())

	identityService := identity.NewService(identityRepo)
	cipher := patient.NewCipher(cfg.RecordSecret)
	patientService := patient.NewService(patientRepo, cipher, recorder, identityService, dispatcher, visitRepo)

	validator := directory.NewValidator(directoryRepo)
	directoryService := directory.NewService(directoryRepo, validator, redisClient, cfg.DirectoryCacheTTL, recorder, visitRepo)

	visitService := visit.NewService(visitRepo, directoryRepo, patientRepo, validator, recorder, dispatcher)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(50, 100))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	identity.NewHandler(identityService, tokenSigner, oidcAuth).Register(apiRouter)

	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(tokenSigner))
	directory.NewHandler(directoryService, guard).Register(protected)
	patient.NewHandler(patientService, guard).Register(protected)
	visit.NewHandler(visitService, guard).Register(protected)
	notify.NewHandler(taskStore, guard).Register(protected)
	audit.NewHandler(auditRepo, guard).Register(protected)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("HMS server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start HMS server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down HMS server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("HMS server forced to shutdown")
	}
	logger.Log.Info("HMS server stopped")
}
