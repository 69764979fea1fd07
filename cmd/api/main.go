package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresrivas/colegio-ledger/internal/application/dues"
	"github.com/andresrivas/colegio-ledger/internal/application/messaging"
	"github.com/andresrivas/colegio-ledger/internal/application/reconcile"
	"github.com/andresrivas/colegio-ledger/internal/bootstrap"
	"github.com/andresrivas/colegio-ledger/internal/controller"
	"github.com/andresrivas/colegio-ledger/internal/gateway/checkout"
	"github.com/andresrivas/colegio-ledger/internal/gateway/notify"
	infraRedis "github.com/andresrivas/colegio-ledger/internal/infrastructure/redis"
	"github.com/andresrivas/colegio-ledger/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "colegio-ledger-api", "colegio_ledger")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	messageRepo := postgres.NewMessageRepository(app.Pool)
	studentRepo := postgres.NewStudentRepository(app.Pool)
	eventRepo := postgres.NewEventRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Gateways ---
	checkoutGW := checkout.NewStripeGateway(app.Config.Checkout.SecretKey, app.Config.Webhook.Secret)
	notifyGW := notify.NewTwilioGateway(
		app.Config.Notify.AccountSID,
		app.Config.Notify.AuthToken,
		app.Config.Notify.FromNumber,
	)
	dedupCache := infraRedis.NewDedupCache(app.Redis, app.Config.Webhook.DedupCacheTTL)

	// --- Use cases ---
	createPaymentUC := dues.NewCreatePaymentUseCase(paymentRepo, studentRepo)
	createCheckoutUC := dues.NewCreateCheckoutUseCase(paymentRepo, studentRepo, checkoutGW, dues.CheckoutConfig{
		Currency:   app.Config.Checkout.Currency,
		SuccessURL: app.Config.Checkout.SuccessURL,
		CancelURL:  app.Config.Checkout.CancelURL,
		Timeout:    app.Config.Checkout.SessionTimeout,
	})
	paymentQueries := dues.NewPaymentQueries(paymentRepo)
	sendMessageUC := messaging.NewCreateAndSendUseCase(
		messageRepo, studentRepo, notifyGW, app.Config.Notify.SendTimeout, app.Logger)
	messageQueries := messaging.NewMessageQueries(messageRepo)
	coordinator := reconcile.NewCoordinator(
		paymentRepo, eventRepo, txManager, checkoutGW, dedupCache, app.Logger, app.Metrics)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:           app.Pool,
		RedisClient:    app.Redis,
		CreatePayment:  createPaymentUC,
		CreateCheckout: createCheckoutUC,
		PaymentQueries: paymentQueries,
		SendMessage:    sendMessageUC,
		MessageQueries: messageQueries,
		Coordinator:    coordinator,
		Metrics:        app.Metrics,
		CORSConfig:     app.Config.Server.CORS,
		JWTSecret:      app.Config.Auth.JWTSecret,
		WebhookRPM:     app.Config.Webhook.RateLimitPerMinute,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
