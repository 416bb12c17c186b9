package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/checkout"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/config"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/db"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/httpserver"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/notifier"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	stripepay "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment/stripe"
	tabbypay "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment/tabby"
	tamarapay "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment/tamara"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/reconcile"
	orderrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/order"
	productrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/product"
	userrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/user"
	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	orders := orderrepo.NewPostgres(dbpool, logger)
	products := productrepo.NewPostgres(dbpool, logger)
	users := userrepo.NewPostgres(dbpool, logger)

	stripeProvider := stripepay.NewAdapter(cfg.Stripe.SecretKey, cfg.ProviderTimeout, logger)
	tabbyClient := tabbypay.NewClient(tabbypay.Config{
		BaseURL:      cfg.Tabby.BaseURL,
		SecretKey:    cfg.Tabby.SecretKey,
		MerchantCode: cfg.Tabby.MerchantCode,
		Timeout:      cfg.ProviderTimeout,
	}, logger)
	tamaraNotificationURL := ""
	if cfg.PublicBaseURL != "" {
		tamaraNotificationURL = strings.TrimSuffix(cfg.PublicBaseURL, "/") + "/webhook/tamara"
	} else {
		logger.Printf("PUBLIC_BASE_URL not set, tamara webhooks must be registered via the partner dashboard")
	}
	tamaraClient := tamarapay.NewClient(tamarapay.Config{
		BaseURL:         cfg.Tamara.BaseURL,
		APIToken:        cfg.Tamara.APIToken,
		NotificationURL: tamaraNotificationURL,
		Timeout:         cfg.ProviderTimeout,
	}, logger)

	checkoutSvc := checkout.New(orders, products, users,
		[]payment.Provider{stripeProvider, tabbyClient, tamaraClient},
		tabbyClient, logger)

	var confirmations notifier.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notifier.NewAMQPNotifier(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatalf("connect to amqp: %v", err)
		}
		defer amqpNotifier.Close()
		confirmations = amqpNotifier
	} else {
		logger.Printf("AMQP_URL not set, order confirmations go to the log only")
		confirmations = notifier.NewLogNotifier(logger)
	}

	capturers := map[domain.PaymentMethod]payment.Capturer{
		domain.MethodTabby:  tabbyClient,
		domain.MethodTamara: tamaraClient,
	}
	engine := reconcile.NewEngine(orders, users, confirmations, capturers, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Checkout: checkoutSvc,
		Engine:   engine,
		Orders:   orders,
		Products: products,

		StripeVerifier: stripepay.NewVerifier(cfg.Stripe.WebhookSecret, logger),
		TabbyVerifier:  tabbypay.NewVerifier(cfg.Tabby.WebhookSecret, tabbyClient, logger),
		TamaraVerifier: tamarapay.NewVerifier(cfg.Tamara.NotificationToken, logger),

		AdminToken:     cfg.AdminToken,
		WebhookTimeout: cfg.ProviderTimeout,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
