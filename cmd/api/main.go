package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/cryptolotto/lottery-backend/api/routes"
	"github.com/cryptolotto/lottery-backend/internal/anchor"
	"github.com/cryptolotto/lottery-backend/internal/config"
	"github.com/cryptolotto/lottery-backend/internal/handlers"
	"github.com/cryptolotto/lottery-backend/internal/payment"
	mongorepo "github.com/cryptolotto/lottery-backend/internal/repositories/mongodb"
	"github.com/cryptolotto/lottery-backend/internal/services"
	"github.com/cryptolotto/lottery-backend/pkg/mongodb"
)

func main() {
	// .env is optional; real deployments inject environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	txnRunner := mongoClient.NewTxnRunner()

	// Repositories
	drawRepo := mongorepo.NewDrawRepository(db)
	ticketRepo := mongorepo.NewTicketRepository(db)
	paymentRepo := mongorepo.NewPaymentRepository(db)
	payoutRepo := mongorepo.NewPayoutRepository(db)
	userRepo := mongorepo.NewUserRepository(db)
	walletRepo := mongorepo.NewWalletRepository(db)
	adminRepo := mongorepo.NewAdminUserRepository(db)
	auditRepo := mongorepo.NewAuditLogRepository(db)

	// Payment providers
	registry := payment.NewRegistry(
		payment.NewCoinbaseAdapter(cfg.Payments.Coinbase.APIKey, cfg.Payments.Coinbase.WebhookSecret),
		payment.NewNOWPaymentsAdapter(cfg.Payments.NOWPayments.APIKey, cfg.Payments.NOWPayments.IPNSecret),
	)

	anchorProvider := buildAnchorProvider(cfg)

	// Services
	auditService := services.NewAuditService(auditRepo)
	drawService := services.NewDrawService(drawRepo, ticketRepo, payoutRepo, txnRunner, anchorProvider, auditService, cfg)
	checkoutService := services.NewCheckoutService(drawRepo, ticketRepo, paymentRepo, userRepo, walletRepo, txnRunner, registry, auditService, cfg)
	reconcilerService := services.NewReconcilerService(paymentRepo, ticketRepo, drawRepo, txnRunner, auditService)
	payoutService := services.NewPayoutService(payoutRepo, auditService)
	authService := services.NewAuthService(adminRepo, auditService, cfg)

	// Handlers
	deps := routes.HandlerDependencies{
		AuthHandler:    handlers.NewAuthHandler(authService, auditService),
		DrawHandler:    handlers.NewDrawHandler(drawService),
		LotteryHandler: handlers.NewLotteryHandler(drawService, checkoutService),
		PaymentHandler: handlers.NewPaymentHandler(registry, reconcilerService),
		PayoutHandler:  handlers.NewPayoutHandler(payoutService),
	}

	router := routes.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "anchorNetwork", cfg.Anchor.Network, "providers", registry.Names())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

// buildAnchorProvider selects the randomness anchor chain from configuration
func buildAnchorProvider(cfg *config.Config) anchor.Provider {
	switch cfg.Anchor.Network {
	case "ethereum":
		return anchor.NewEthereumProvider(cfg.Anchor.EthereumRPCURL)
	case "static":
		slog.Warn("Using static anchor provider; draws are NOT provably fair in this mode")
		return anchor.NewStaticProvider("static", cfg.Anchor.StaticBlockHash, 0)
	default:
		return anchor.NewBitcoinProvider(cfg.Anchor.BitcoinBaseURL)
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
