package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	orderrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/order"
	"github.com/gin-gonic/gin"
)

// bearerAuth guards the operator endpoints with a single shared token. An
// empty configured token disables the whole group.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(bearerToken(c)), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *handlers) listOrders(c *gin.Context) {
	f := orderrepo.ListFilter{
		UserID: c.Query("userId"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("paymentStatus"); raw != "" {
		f.PaymentStatus = domain.PaymentStatus(raw)
	}
	if raw := c.Query("paymentMethod"); raw != "" {
		method, err := domain.ParsePaymentMethod(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
			return
		}
		f.PaymentMethod = method
	}

	orders, err := h.deps.Orders.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Printf("httpserver: list orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// refundOrder marks a paid order refunded. The money movement itself happens
// in the provider dashboard; this endpoint only records the outcome.
func (h *handlers) refundOrder(c *gin.Context) {
	id := c.Param("id")
	won, err := h.deps.Engine.Refund(c.Request.Context(), id)
	if err != nil {
		h.logger.Printf("httpserver: refund order %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !won {
		c.JSON(http.StatusConflict, gin.H{"error": "order is not in a refundable state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunded": true})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
