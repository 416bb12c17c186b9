package httpserver

import (
	"context"
	"log"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/checkout"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	orderrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/order"
	productrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/product"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type checkoutService interface {
	Start(ctx context.Context, method domain.PaymentMethod, in checkout.Input) (*checkout.Result, error)
	CheckTabbyEligibility(ctx context.Context, in checkout.Input) (bool, error)
}

type eventProcessor interface {
	Process(ctx context.Context, ev domain.PaymentEvent) error
	Refund(ctx context.Context, orderID string) (bool, error)
}

type stripeVerifier interface {
	Verify(body []byte, sigHeader string) (*domain.PaymentEvent, error)
}

type tabbyVerifier interface {
	Resolve(ctx context.Context, headerToken string, body []byte) (*domain.PaymentEvent, error)
}

type tamaraVerifier interface {
	Verify(headerToken string, body []byte) (*domain.PaymentEvent, error)
}

// Deps carries everything the handlers need.
type Deps struct {
	Checkout checkoutService
	Engine   eventProcessor
	Orders   orderrepo.Repository
	Products productrepo.Repository

	StripeVerifier stripeVerifier
	TabbyVerifier  tabbyVerifier
	TamaraVerifier tamaraVerifier

	AdminToken string
	// WebhookTimeout bounds the detached reconciliation run started after a
	// webhook has been acknowledged.
	WebhookTimeout time.Duration
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	router.GET("/products", h.listProducts)
	router.GET("/shipping/estimate", h.shippingEstimate)
	router.GET("/orders/:reference", h.getOrder)

	router.POST("/checkout/stripe", h.startCheckout(domain.MethodStripe))
	router.POST("/checkout/tabby", h.startCheckout(domain.MethodTabby))
	router.POST("/checkout/tamara", h.startCheckout(domain.MethodTamara))
	router.POST("/checkout/tabby/prescore", h.tabbyPrescore)

	router.POST("/webhook/stripe", h.stripeWebhook)
	router.POST("/webhook/tabby", h.tabbyWebhook)
	// Existing Tabby merchant configurations point at this path.
	router.POST("/tabby/webhook", h.tabbyWebhook)
	router.POST("/webhook/tamara", h.tamaraWebhook)

	admin := router.Group("/admin", bearerAuth(deps.AdminToken))
	admin.GET("/orders", h.listOrders)
	admin.POST("/orders/:id/refund", h.refundOrder)

	return router
}
