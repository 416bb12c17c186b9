package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/checkout"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/shipping"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

// startCheckout binds the shared request shape and dispatches to the provider
// selected by the route.
func (h *handlers) startCheckout(method domain.PaymentMethod) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in checkout.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := h.deps.Checkout.Start(c.Request.Context(), method, in)
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrInvalidInput):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, domain.ErrCheckoutInit):
				h.logger.Printf("httpserver: %s checkout failed: %v", method, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
			default:
				h.logger.Printf("httpserver: %s checkout failed: %v", method, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *handlers) tabbyPrescore(c *gin.Context) {
	var in checkout.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	eligible, err := h.deps.Checkout.CheckTabbyEligibility(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Printf("httpserver: tabby prescore failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "prescoring unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligible": eligible})
}

func (h *handlers) shippingEstimate(c *gin.Context) {
	country := c.Query("country")
	if country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "country is required"})
		return
	}
	subtotal := decimal.Zero
	if raw := c.Query("subtotal"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subtotal must be a non-negative number"})
			return
		}
		subtotal = parsed
	}
	c.JSON(http.StatusOK, shipping.Calculate(country, subtotal))
}

// getOrder looks an order up by our reference id, for the post-redirect
// status page.
func (h *handlers) getOrder(c *gin.Context) {
	ref := c.Param("reference")
	order, err := h.deps.Orders.FindByReferenceOrProviderID(c.Request.Context(), ref, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Printf("httpserver: get order %s: %v", ref, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.Products.List(c.Request.Context())
	if err != nil {
		h.logger.Printf("httpserver: list products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
