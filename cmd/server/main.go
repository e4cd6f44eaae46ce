package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tripledger/internal/auth"
	"github.com/mmynk/tripledger/internal/config"
	"github.com/mmynk/tripledger/internal/middleware"
	"github.com/mmynk/tripledger/internal/receipt"
	"github.com/mmynk/tripledger/internal/service"
	"github.com/mmynk/tripledger/internal/storage/sqlite"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
	"github.com/mmynk/tripledger/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	if cfg.Dev {
		logger.Warn("Running in dev mode")
	}

	parser, converter := receiptAdapters(ctx, cfg, logger)
	metrics := middleware.NewMetrics()

	// Auth runs before logging so the log line carries the caller.
	interceptors := connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.RequireAuth(jwtManager,
			apiconnect.AuthServiceRegisterProcedure,
			apiconnect.AuthServiceLoginProcedure,
		),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(
		service.NewGroupService(store, store, cfg.DefaultCurrency, metrics), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(
		service.NewExpenseService(store, store, metrics), interceptors))
	mux.Handle(apiconnect.NewReceiptServiceHandler(
		service.NewReceiptService(parser, converter, logger), interceptors))

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	handler := middleware.HTTPLogger(logger, middleware.CORS(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.Addr, "default_currency", cfg.DefaultCurrency)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// receiptAdapters builds the receipt parser and currency converter. Without
// a Gemini API key receipt parsing is disabled.
func receiptAdapters(ctx context.Context, cfg config.Config, logger *slog.Logger) (receipt.Parser, *receipt.Converter) {
	rates := receipt.NewHTTPRates(
		&http.Client{Timeout: cfg.Receipt.Timeout},
		cfg.Receipt.RatesURL,
		cfg.Receipt.RatesPath,
		receipt.DefaultBreakerSettings,
		logger,
	)
	converter := receipt.NewConverter(rates)

	if cfg.Receipt.GeminiAPIKey == "" {
		logger.Info("Receipt parsing disabled", "reason", "GEMINI_API_KEY not set")
		return nil, converter
	}
	parser, err := receipt.NewGeminiParser(ctx, cfg.Receipt.GeminiAPIKey, cfg.Receipt.GeminiModel, cfg.DefaultCurrency)
	if err != nil {
		logger.Error("Receipt parsing disabled", "error", err)
		return nil, converter
	}
	logger.Info("Receipt parsing enabled", "model", cfg.Receipt.GeminiModel)
	return parser, converter
}
