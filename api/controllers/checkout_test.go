package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	checkoutsvc "github.com/angelmondragon/stripe-payments/internal/checkout"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
)

type stubCheckoutService struct {
	result *checkoutsvc.SessionResult
	err    error
	input  checkoutsvc.SaveOrderInput
	calls  int
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, input checkoutsvc.SaveOrderInput) (*checkoutsvc.SessionResult, error) {
	s.calls++
	s.input = input
	return s.result, s.err
}

type stubReconciler struct {
	target    string
	sessionID string
}

func (s *stubReconciler) ResolveOrderFromSession(ctx context.Context, sessionID string) (*models.Order, error) {
	return nil, nil
}

func (s *stubReconciler) ExternalID(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	return "", nil
}

func (s *stubReconciler) ReturnURL(ctx context.Context, order *models.Order) string {
	return s.target
}

func (s *stubReconciler) FinishOrder(ctx context.Context, sessionID string) string {
	s.sessionID = sessionID
	return s.target
}

const saveOrderBody = `{"form_handle":"donate","email":"buyer@example.com","line_items":[{"name":"Gift","unit_amount_cents":1500,"quantity":1}]}`

func TestSaveOrderRedirectsBrowsers(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.SessionResult{
		OrderID:   uuid.New(),
		SessionID: "cs_test_1",
		URL:       "https://checkout.stripe.com/c/pay/cs_test_1",
	}}

	req := httptest.NewRequest(http.MethodPost, "/stripe/save-order", strings.NewReader(saveOrderBody))
	rec := httptest.NewRecorder()
	SaveOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d (%s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != svc.result.URL {
		t.Fatalf("unexpected location %q", loc)
	}
	if svc.input.FormHandle != "donate" || len(svc.input.LineItems) != 1 {
		t.Fatalf("unexpected input %+v", svc.input)
	}
}

func TestSaveOrderAnswersJSONClients(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.SessionResult{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/x"}}

	req := httptest.NewRequest(http.MethodPost, "/stripe/save-order", strings.NewReader(saveOrderBody))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	SaveOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.URL != "https://checkout.stripe.com/x" {
		t.Fatalf("unexpected url %q", body.URL)
	}
}

func TestSaveOrderRejectsInvalidPayload(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/stripe/save-order", strings.NewReader(`{"form_handle":"donate","email":"not-an-email","line_items":[]}`))
	rec := httptest.NewRecorder()
	SaveOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run for invalid input")
	}
}

func TestSaveOrderRejectsElementsFields(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"form_handle":"donate","email":"buyer@example.com","enableCheckout":false,"paymentType":"ideal","line_items":[{"name":"Gift","unit_amount_cents":1500,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/stripe/save-order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	SaveOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run for an elements payload")
	}
}

func TestSaveOrderMapsServiceErrors(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment form not found")}
	req := httptest.NewRequest(http.MethodPost, "/stripe/save-order", strings.NewReader(saveOrderBody))
	rec := httptest.NewRecorder()
	SaveOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestFinishOrderAlwaysRedirects(t *testing.T) {
	svc := &stubReconciler{target: "/thanks/SP-1"}
	req := httptest.NewRequest(http.MethodGet, "/stripe/finish-order?session_id=cs_test_1", nil)
	rec := httptest.NewRecorder()
	FinishOrder(svc, "/")(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "/thanks/SP-1" {
		t.Fatalf("unexpected location %q", rec.Header().Get("Location"))
	}
	if svc.sessionID != "cs_test_1" {
		t.Fatalf("session id not forwarded: %q", svc.sessionID)
	}

	rec = httptest.NewRecorder()
	FinishOrder(nil, "/fallback")(rec, httptest.NewRequest(http.MethodGet, "/stripe/finish-order", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/fallback" {
		t.Fatalf("expected fallback redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
