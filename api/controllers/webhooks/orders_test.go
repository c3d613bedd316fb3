package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/ingest"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/types"
)

type stubIngestService struct {
	lastSingle *ingest.Submission
	lastBulk   *ingest.BulkSubmission
	singleErr  error
	bulkErr    error
}

func (s *stubIngestService) ProcessSingle(ctx context.Context, sub ingest.Submission) (*ingest.OrderResult, error) {
	s.lastSingle = &sub
	if s.singleErr != nil {
		return nil, s.singleErr
	}
	return &ingest.OrderResult{ID: uuid.NewString(), ExternalOrderID: sub.Payload.OrderID.String(), State: "done"}, nil
}

func (s *stubIngestService) ProcessBulk(ctx context.Context, sub ingest.BulkSubmission) (*ingest.BulkResult, error) {
	s.lastBulk = &sub
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	return &ingest.BulkResult{Total: len(sub.Payload.Orders), Successful: len(sub.Payload.Orders)}, nil
}

type stubAuthenticator struct {
	lastKey string
	err     error
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, rawKey string) (*models.APICredential, error) {
	s.lastKey = rawKey
	if s.err != nil {
		return nil, s.err
	}
	return &models.APICredential{ID: uuid.New()}, nil
}

type stubWebhookStore struct {
	unkeyedExternalID string
	failedText        string
	unkeyedCalls      int
	failedCalls       int
}

func (s *stubWebhookStore) WithTx(tx *gorm.DB) idempotency.Store { return s }
func (s *stubWebhookStore) GetOrCreate(ctx context.Context, key, externalOrderID, payload string) (*models.WebhookLog, bool, error) {
	return nil, false, nil
}
func (s *stubWebhookStore) CreateUnkeyed(ctx context.Context, externalOrderID, payload string) (*models.WebhookLog, error) {
	s.unkeyedCalls++
	s.unkeyedExternalID = externalOrderID
	return &models.WebhookLog{ID: uuid.New()}, nil
}
func (s *stubWebhookStore) MarkProcessing(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubWebhookStore) MarkCompleted(ctx context.Context, id, orderID uuid.UUID, responseBody string) error {
	return nil
}
func (s *stubWebhookStore) MarkFailed(ctx context.Context, id uuid.UUID, errText string) error {
	s.failedCalls++
	s.failedText = errText
	return nil
}
func (s *stubWebhookStore) FindByKey(ctx context.Context, key string) (*models.WebhookLog, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubWebhookStore) CleanupStale(ctx context.Context, timeout time.Duration) (int64, error) {
	return 0, nil
}
func (s *stubWebhookStore) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

const singleOrderBody = `{
	"OrderID": 5001,
	"OrderItems": [{"ItemName": "Oil Filter", "ProductID": "1", "Price": 100, "Quantity": 1}],
	"CheckoutDetails": [{"PaymentMode": 1, "AmountPaid": 100}],
	"AmountTotal": 100,
	"GrandTotal": 100,
	"AmountPaid": 100
}`

func TestSubmitOrderSuccessEnvelope(t *testing.T) {
	svc := &stubIngestService{}
	auth := &stubAuthenticator{}
	handler := SubmitOrder(svc, auth, &stubWebhookStore{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(singleOrderBody))
	req.Header.Set(apiKeyHeader, "gpk_secret")
	req.Header.Set(idempotencyKeyHeader, "delivery-1")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var envelope types.WebhookEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != "success" {
		t.Fatalf("unexpected status %s", envelope.Status)
	}
	if envelope.Count != 1 {
		t.Fatalf("unexpected count %d", envelope.Count)
	}
	if auth.lastKey != "gpk_secret" {
		t.Fatalf("expected header key to reach authenticator, got %q", auth.lastKey)
	}
	if svc.lastSingle == nil {
		t.Fatal("expected submission to reach service")
	}
	if svc.lastSingle.IdempotencyKey != "delivery-1" {
		t.Fatalf("unexpected idempotency key %q", svc.lastSingle.IdempotencyKey)
	}
	if svc.lastSingle.Payload.OrderID.String() != "5001" {
		t.Fatalf("numeric OrderID not normalized: %q", svc.lastSingle.Payload.OrderID)
	}
}

func TestSubmitOrderBodyAPIKeyFallback(t *testing.T) {
	svc := &stubIngestService{}
	auth := &stubAuthenticator{}
	handler := SubmitOrder(svc, auth, &stubWebhookStore{}, testLogger())

	body := strings.Replace(singleOrderBody, `"OrderID": 5001,`, `"OrderID": 5001, "api_key": "gpk_body",`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if auth.lastKey != "gpk_body" {
		t.Fatalf("expected body key to reach authenticator, got %q", auth.lastKey)
	}
}

func TestSubmitOrderBodyIdempotencyKeyFallback(t *testing.T) {
	svc := &stubIngestService{}
	handler := SubmitOrder(svc, &stubAuthenticator{}, &stubWebhookStore{}, testLogger())

	body := strings.Replace(singleOrderBody, `"OrderID": 5001,`, `"OrderID": 5001, "idempotency_key": "from-body",`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.lastSingle.IdempotencyKey != "from-body" {
		t.Fatalf("unexpected idempotency key %q", svc.lastSingle.IdempotencyKey)
	}
}

func TestSubmitOrderRejectsMalformedBody(t *testing.T) {
	svc := &stubIngestService{}
	handler := SubmitOrder(svc, &stubAuthenticator{}, &stubWebhookStore{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if svc.lastSingle != nil {
		t.Fatal("service should not be called on malformed body")
	}
	var envelope types.WebhookEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != "error" {
		t.Fatalf("unexpected status %s", envelope.Status)
	}
}

func TestSubmitOrderRejectsEmptyBody(t *testing.T) {
	handler := SubmitOrder(&stubIngestService{}, &stubAuthenticator{}, &stubWebhookStore{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader("  "))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitOrderAuthFailureIsRecorded(t *testing.T) {
	svc := &stubIngestService{}
	store := &stubWebhookStore{}
	auth := &stubAuthenticator{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid API key")}
	handler := SubmitOrder(svc, auth, store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(singleOrderBody))
	req.Header.Set(apiKeyHeader, "wrong")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if svc.lastSingle != nil {
		t.Fatal("service should not run for unauthenticated deliveries")
	}
	if store.unkeyedCalls != 1 || store.failedCalls != 1 {
		t.Fatalf("expected rejection audit row, got create=%d fail=%d", store.unkeyedCalls, store.failedCalls)
	}
	if store.unkeyedExternalID != "5001" {
		t.Fatalf("unexpected audit external id %q", store.unkeyedExternalID)
	}
	if !strings.Contains(store.failedText, "invalid API key") {
		t.Fatalf("unexpected audit error %q", store.failedText)
	}
}

func TestSubmitOrdersBulkEnvelopeForm(t *testing.T) {
	svc := &stubIngestService{}
	handler := SubmitOrdersBulk(svc, &stubAuthenticator{}, &stubWebhookStore{}, testLogger())

	body := `{"config_ref": "main", "api_key": "gpk_bulk", "orders": [` + singleOrderBody + `]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/bulk", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastBulk == nil {
		t.Fatal("expected bulk submission to reach service")
	}
	if svc.lastBulk.Payload.ConfigRef != "main" {
		t.Fatalf("unexpected config ref %q", svc.lastBulk.Payload.ConfigRef)
	}
	if len(svc.lastBulk.Payload.Orders) != 1 {
		t.Fatalf("unexpected order count %d", len(svc.lastBulk.Payload.Orders))
	}
}

func TestSubmitOrdersBulkBareArrayNormalized(t *testing.T) {
	svc := &stubIngestService{}
	auth := &stubAuthenticator{}
	handler := SubmitOrdersBulk(svc, auth, &stubWebhookStore{}, testLogger())

	withKey := strings.Replace(singleOrderBody, `"OrderID": 5001,`, `"OrderID": 5001, "api_key": "gpk_legacy",`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/bulk", strings.NewReader("["+withKey+"]"))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if auth.lastKey != "gpk_legacy" {
		t.Fatalf("expected per-order key from legacy array, got %q", auth.lastKey)
	}
	if len(svc.lastBulk.Payload.Orders) != 1 {
		t.Fatalf("unexpected order count %d", len(svc.lastBulk.Payload.Orders))
	}
}

func TestSubmitOrdersBulkDeliveryErrorEnvelope(t *testing.T) {
	svc := &stubIngestService{bulkErr: pkgerrors.New(pkgerrors.CodeValidation, "batch size 200 exceeds maximum 100")}
	handler := SubmitOrdersBulk(svc, &stubAuthenticator{}, &stubWebhookStore{}, testLogger())

	body := `{"orders": [` + singleOrderBody + `]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/bulk", strings.NewReader(body))
	req.Header.Set(apiKeyHeader, "gpk_secret")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var envelope types.WebhookEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != "error" {
		t.Fatalf("unexpected status %s", envelope.Status)
	}
	if envelope.Error == nil || !strings.Contains(*envelope.Error, "exceeds maximum") {
		t.Fatalf("unexpected error %v", envelope.Error)
	}
}
