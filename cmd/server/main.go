package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/collectiva/loan-engine/internal/auth"
	"github.com/collectiva/loan-engine/internal/config"
	"github.com/collectiva/loan-engine/internal/handler"
	"github.com/collectiva/loan-engine/internal/rate"
	"github.com/collectiva/loan-engine/internal/repository"
	"github.com/collectiva/loan-engine/internal/service"
	"github.com/collectiva/loan-engine/internal/storage"
	"github.com/collectiva/loan-engine/pkg/logging"
	"github.com/collectiva/loan-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	db, err := initDB(cfg)
	if err != nil {
		slog.Error("connecting to database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		slog.Error("initializing file storage failed", "error", err)
		os.Exit(1)
	}

	loanRepo := repository.NewLoanRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	branchRepo := repository.NewBranchRepository(db)

	rateProvider := rate.NewHTTPProvider(
		cfg.Rate.ProviderURL, redisClient, cfg.GetRateCacheTTL(), cfg.GetDefaultInterestRate(),
	)

	loanService := service.NewLoanService(loanRepo, agentRepo, holidayRepo, rateProvider, redisClient, cfg)
	agentService := service.NewAgentService(agentRepo, branchRepo, loanRepo, holidayRepo)
	aggregationService := service.NewAggregationService(loanRepo, agentRepo, holidayRepo)

	loanHandler := handler.NewLoanHandler(loanService, fileStore)
	agentHandler := handler.NewAgentHandler(agentService, aggregationService)
	adminHandler := handler.NewAdminHandler(holidayRepo, branchRepo)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	router := setupRoutes(verifier, loanHandler, agentHandler, adminHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	verifier *auth.Verifier,
	loanHandler *handler.LoanHandler,
	agentHandler *handler.AgentHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Agent-facing operations
	agentAPI := api.NewRoute().Subrouter()
	agentAPI.Use(verifier.Middleware(auth.RoleAgent))
	agentAPI.HandleFunc("/loans", loanHandler.SubmitLoan).Methods("POST")
	agentAPI.HandleFunc("/loans/{loanId}/resubmit", loanHandler.ResubmitLoan).Methods("POST")
	agentAPI.HandleFunc("/loans/{loanId}/payment", loanHandler.RecordPayment).Methods("POST")
	agentAPI.HandleFunc("/loans/{loanId}/document", loanHandler.UploadDocument).Methods("POST")
	agentAPI.HandleFunc("/remittances", agentHandler.FileRemittance).Methods("POST")

	// Shared reads
	readAPI := api.NewRoute().Subrouter()
	readAPI.Use(verifier.Middleware(auth.RoleAgent, auth.RoleAdmin))
	readAPI.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	readAPI.HandleFunc("/agents/{agentId}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	readAPI.HandleFunc("/agents/{agentId}/delinquency-history", agentHandler.GetDelinquencyHistory).Methods("GET")
	readAPI.HandleFunc("/holidays", adminHandler.ListHolidays).Methods("GET")

	// Admin operations
	adminAPI := api.NewRoute().Subrouter()
	adminAPI.Use(verifier.Middleware(auth.RoleAdmin))
	adminAPI.HandleFunc("/loans/{loanId}/verification", loanHandler.SetVerification).Methods("POST")
	adminAPI.HandleFunc("/loans/{loanId}/approve", loanHandler.ApproveLoan).Methods("POST")
	adminAPI.HandleFunc("/loans/{loanId}/disburse", loanHandler.DisburseLoan).Methods("POST")
	adminAPI.HandleFunc("/loans/{loanId}/reject", loanHandler.RejectLoan).Methods("POST")
	adminAPI.HandleFunc("/loans/{loanId}/request-edit", loanHandler.RequestEdit).Methods("POST")
	adminAPI.HandleFunc("/loans/{loanId}/sync-schedule", loanHandler.SyncSchedule).Methods("POST")
	adminAPI.HandleFunc("/agents", agentHandler.CreateAgent).Methods("POST")
	adminAPI.HandleFunc("/agents/transfer", agentHandler.TransferLoans).Methods("POST")
	adminAPI.HandleFunc("/agents/{agentId}/targets", agentHandler.SetTargets).Methods("PUT")
	adminAPI.HandleFunc("/agents/{agentId}/active", agentHandler.SetActive).Methods("PUT")
	adminAPI.HandleFunc("/agents/{agentId}/remittances/reconcile", agentHandler.ReconcileRemittance).Methods("PUT")
	adminAPI.HandleFunc("/branches", adminHandler.CreateBranch).Methods("POST")
	adminAPI.HandleFunc("/branches/{branchId}/targets", agentHandler.DistributeBranchTargets).Methods("PUT")
	adminAPI.HandleFunc("/holidays", adminHandler.CreateHoliday).Methods("POST")
	adminAPI.HandleFunc("/aggregation/run", agentHandler.RunAggregation).Methods("POST")

	return router
}
