package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/checkout"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	orderrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/order"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type stubCheckout struct {
	result   *checkout.Result
	eligible bool
	err      error
}

func (s *stubCheckout) Start(_ context.Context, _ domain.PaymentMethod, _ checkout.Input) (*checkout.Result, error) {
	return s.result, s.err
}

func (s *stubCheckout) CheckTabbyEligibility(_ context.Context, _ checkout.Input) (bool, error) {
	return s.eligible, s.err
}

type stubProcessor struct {
	processed chan domain.PaymentEvent
	refundWon bool
	refundErr error
}

func (s *stubProcessor) Process(_ context.Context, ev domain.PaymentEvent) error {
	if s.processed != nil {
		s.processed <- ev
	}
	return nil
}

func (s *stubProcessor) Refund(_ context.Context, _ string) (bool, error) {
	return s.refundWon, s.refundErr
}

type stubOrderRepo struct {
	order *domain.Order
	list  []domain.Order
	err   error
}

func (s *stubOrderRepo) CreatePending(_ context.Context, _ *domain.Order) error { return s.err }
func (s *stubOrderRepo) GetByID(_ context.Context, _ string) (*domain.Order, error) {
	return s.order, s.err
}
func (s *stubOrderRepo) FindByReferenceOrProviderID(_ context.Context, _, _ string) (*domain.Order, error) {
	return s.order, s.err
}
func (s *stubOrderRepo) SetProviderSession(_ context.Context, _, _ string) error { return s.err }
func (s *stubOrderRepo) SetStatusIfIn(_ context.Context, _ string, _ domain.PaymentStatus, _ []domain.PaymentStatus, _ orderrepo.TransitionFields) (bool, error) {
	return false, s.err
}
func (s *stubOrderRepo) SetCaptureID(_ context.Context, _, _ string) error { return s.err }
func (s *stubOrderRepo) DeleteByID(_ context.Context, _ string) error      { return s.err }
func (s *stubOrderRepo) List(_ context.Context, _ orderrepo.ListFilter) ([]domain.Order, error) {
	return s.list, s.err
}
func (s *stubOrderRepo) PaidStatsByUser(_ context.Context, _ string) (int, decimal.Decimal, error) {
	return 0, decimal.Zero, s.err
}

type stubProductRepo struct {
	products []domain.Product
	err      error
}

func (s *stubProductRepo) List(_ context.Context) ([]domain.Product, error) {
	return s.products, s.err
}
func (s *stubProductRepo) GetBySKU(_ context.Context, _ string) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}
func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, s.err
}

type stubStripeVerifier struct {
	ev  *domain.PaymentEvent
	err error
}

func (s *stubStripeVerifier) Verify(_ []byte, _ string) (*domain.PaymentEvent, error) {
	return s.ev, s.err
}

type stubTabbyVerifier struct {
	ev  *domain.PaymentEvent
	err error
}

func (s *stubTabbyVerifier) Resolve(_ context.Context, _ string, _ []byte) (*domain.PaymentEvent, error) {
	return s.ev, s.err
}

type stubTamaraVerifier struct {
	ev  *domain.PaymentEvent
	err error
}

func (s *stubTamaraVerifier) Verify(_ string, _ []byte) (*domain.PaymentEvent, error) {
	return s.ev, s.err
}

func testRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if deps.WebhookTimeout == 0 {
		deps.WebhookTimeout = 5 * time.Second
	}
	return buildRouter(log.New(io.Discard, "", 0), nil, deps)
}

func awaitEvent(t *testing.T, ch chan domain.PaymentEvent) domain.PaymentEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("reconciliation was not triggered")
		return domain.PaymentEvent{}
	}
}

func validCheckoutBody() string {
	return `{
		"items": [{"productRef": "MT-001", "quantity": 1}],
		"buyer": {"firstName": "Sara", "lastName": "K", "email": "sara@example.com"},
		"shippingAddress": {"line1": "12 Marina Walk", "city": "Dubai", "country": "United Arab Emirates"},
		"successUrl": "https://shop.example/success",
		"cancelUrl": "https://shop.example/cancel"
	}`
}

func TestStartCheckout_Success(t *testing.T) {
	router := testRouter(t, Deps{
		Checkout: &stubCheckout{result: &checkout.Result{
			OrderID:     "o1",
			ReferenceID: "stripe_abc",
			RedirectURL: "https://pay.example/session",
		}},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout/stripe", strings.NewReader(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out checkout.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.RedirectURL != "https://pay.example/session" {
		t.Fatalf("redirect url = %q", out.RedirectURL)
	}
}

func TestStartCheckout_InvalidInput(t *testing.T) {
	router := testRouter(t, Deps{
		Checkout: &stubCheckout{err: checkout.ErrInvalidInput},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout/tabby", strings.NewReader(`{"items": []}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestStartCheckout_ProviderDown(t *testing.T) {
	router := testRouter(t, Deps{
		Checkout: &stubCheckout{err: domain.ErrCheckoutInit},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout/tamara", strings.NewReader(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
}

func TestTabbyPrescore(t *testing.T) {
	router := testRouter(t, Deps{Checkout: &stubCheckout{eligible: true}})

	req := httptest.NewRequest(http.MethodPost, "/checkout/tabby/prescore", strings.NewReader(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"eligible":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestShippingEstimate(t *testing.T) {
	router := testRouter(t, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/shipping/estimate?country=UAE&subtotal=100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"region":"local"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestShippingEstimate_MissingCountry(t *testing.T) {
	router := testRouter(t, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/shipping/estimate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	router := testRouter(t, Deps{Orders: &stubOrderRepo{err: domain.ErrNotFound}})

	req := httptest.NewRequest(http.MethodGet, "/orders/stripe_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	router := testRouter(t, Deps{
		StripeVerifier: &stubStripeVerifier{err: payment.ErrUnauthorized},
		Engine:         &stubProcessor{},
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestStripeWebhook_ValidEventProcessed(t *testing.T) {
	processed := make(chan domain.PaymentEvent, 1)
	router := testRouter(t, Deps{
		StripeVerifier: &stubStripeVerifier{ev: &domain.PaymentEvent{
			Provider:    domain.MethodStripe,
			ReferenceID: "stripe_abc",
			Status:      domain.EventPaid,
		}},
		Engine: &stubProcessor{processed: processed},
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	ev := awaitEvent(t, processed)
	if ev.ReferenceID != "stripe_abc" {
		t.Fatalf("processed reference = %q", ev.ReferenceID)
	}
}

func TestStripeWebhook_IgnoredEvent(t *testing.T) {
	router := testRouter(t, Deps{
		StripeVerifier: &stubStripeVerifier{},
		Engine:         &stubProcessor{},
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestTabbyWebhook_AcknowledgesAndProcesses(t *testing.T) {
	processed := make(chan domain.PaymentEvent, 1)
	router := testRouter(t, Deps{
		TabbyVerifier: &stubTabbyVerifier{ev: &domain.PaymentEvent{
			Provider:    domain.MethodTabby,
			ReferenceID: "tabby_abc",
			Status:      domain.EventAuthorized,
		}},
		Engine: &stubProcessor{processed: processed},
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/tabby", strings.NewReader(`{"id":"pay-1"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	ev := awaitEvent(t, processed)
	if ev.ReferenceID != "tabby_abc" {
		t.Fatalf("processed reference = %q", ev.ReferenceID)
	}
}

func TestTabbyWebhook_ProviderConfiguredPath(t *testing.T) {
	processed := make(chan domain.PaymentEvent, 1)
	router := testRouter(t, Deps{
		TabbyVerifier: &stubTabbyVerifier{ev: &domain.PaymentEvent{
			Provider:    domain.MethodTabby,
			ReferenceID: "tabby_abc",
			Status:      domain.EventAuthorized,
		}},
		Engine: &stubProcessor{processed: processed},
	})

	req := httptest.NewRequest(http.MethodPost, "/tabby/webhook", strings.NewReader(`{"id":"pay-1"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	ev := awaitEvent(t, processed)
	if ev.ReferenceID != "tabby_abc" {
		t.Fatalf("processed reference = %q", ev.ReferenceID)
	}
}

func TestTamaraWebhook_InvalidTokenStill200(t *testing.T) {
	router := testRouter(t, Deps{
		TamaraVerifier: &stubTamaraVerifier{err: payment.ErrUnauthorized},
		Engine:         &stubProcessor{},
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/tamara", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestAdmin_DisabledWithoutToken(t *testing.T) {
	router := testRouter(t, Deps{Orders: &stubOrderRepo{}, Engine: &stubProcessor{}})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestAdmin_WrongToken(t *testing.T) {
	router := testRouter(t, Deps{AdminToken: "s3cret", Orders: &stubOrderRepo{}, Engine: &stubProcessor{}})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAdmin_ListOrders(t *testing.T) {
	router := testRouter(t, Deps{
		AdminToken: "s3cret",
		Orders: &stubOrderRepo{list: []domain.Order{
			{ID: "o1", ReferenceID: "stripe_abc", PaymentStatus: domain.PaymentPaid},
		}},
		Engine: &stubProcessor{},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?paymentStatus=paid", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stripe_abc") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAdmin_RefundConflict(t *testing.T) {
	router := testRouter(t, Deps{
		AdminToken: "s3cret",
		Orders:     &stubOrderRepo{},
		Engine:     &stubProcessor{refundWon: false},
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/o1/refund", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestAdmin_RefundSuccess(t *testing.T) {
	router := testRouter(t, Deps{
		AdminToken: "s3cret",
		Orders:     &stubOrderRepo{},
		Engine:     &stubProcessor{refundWon: true},
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/o1/refund", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
