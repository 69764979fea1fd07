package controller

import (
	"time"

	"github.com/andresrivas/colegio-ledger/internal/application/dues"
	"github.com/andresrivas/colegio-ledger/internal/application/messaging"
	"github.com/andresrivas/colegio-ledger/internal/application/reconcile"
	"github.com/andresrivas/colegio-ledger/internal/domain/identity"
	"github.com/andresrivas/colegio-ledger/internal/infrastructure/config"
	"github.com/andresrivas/colegio-ledger/internal/infrastructure/observability"
	customMW "github.com/andresrivas/colegio-ledger/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool           *pgxpool.Pool
	RedisClient    *redis.Client
	CreatePayment  *dues.CreatePaymentUseCase
	CreateCheckout *dues.CreateCheckoutUseCase
	PaymentQueries *dues.PaymentQueries
	SendMessage    *messaging.CreateAndSendUseCase
	MessageQueries *messaging.MessageQueries
	Coordinator    *reconcile.Coordinator
	Metrics        *observability.Metrics
	CORSConfig     config.CORSConfig
	JWTSecret      string
	WebhookRPM     int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.CreatePayment, deps.CreateCheckout, deps.PaymentQueries)
	messageH := NewMessageController(deps.SendMessage, deps.MessageQueries)
	webhookH := NewWebhookController(deps.Coordinator)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Webhooks authenticate by payload signature, not session token.
	r.With(customMW.RateLimit(deps.WebhookRPM)).
		Post("/webhooks/payment-provider", webhookH.HandlePaymentProvider)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.JWTSecret))

		adminOnly := customMW.RequireRole(identity.RoleAdmin)

		// Dues ledger
		r.With(adminOnly).Post("/payments", paymentH.CreatePayment)
		r.Get("/payments", paymentH.ListPayments)
		r.Get("/payments/{id}", paymentH.GetPayment)
		r.Post("/payments/{id}/checkout-session", paymentH.CreateCheckoutSession)

		// Parent notifications
		r.With(adminOnly).Post("/messages", messageH.SendMessage)
		r.Get("/messages", messageH.ListMessages)
		r.Get("/messages/{id}", messageH.GetMessage)
	})

	return r
}
