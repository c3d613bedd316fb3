package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/GARAGE-POS/odoo-plugin-sub000/api/responses"
	"github.com/GARAGE-POS/odoo-plugin-sub000/api/validators"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/credentials"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/ingest"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

const (
	apiKeyHeader         = "X-API-Key"
	idempotencyKeyHeader = "X-Idempotency-Key"

	// maxBodyBytes caps webhook bodies; bulk envelopes with a hundred
	// orders stay well under this.
	maxBodyBytes = 8 << 20
)

// SubmitOrder ingests one POS order delivery. The API key rides in the
// X-API-Key header or, for legacy senders, inside the body itself.
func SubmitOrder(svc ingest.Service, auth credentials.Authenticator, store idempotency.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := readBody(w, r)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		var payload ingest.OrderPayload
		if err := validators.DecodeJSONPayload(body, &payload); err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		externalID := payload.OrderID.String()
		if logg != nil {
			ctx = logg.WithExternalOrderID(ctx, externalID)
		}

		if err := authenticate(ctx, auth, r, payload.APIKey); err != nil {
			recordRejected(ctx, store, logg, externalID, string(body), err)
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		result, err := svc.ProcessSingle(ctx, ingest.Submission{
			Payload:        payload,
			IdempotencyKey: idempotencyKey(r, payload.IdempotencyKey),
			ConfigRef:      strings.TrimSpace(r.URL.Query().Get("config_ref")),
			Source:         strings.TrimSpace(r.URL.Query().Get("source")),
		})
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		responses.WriteWebhookSuccess(w, result, 1)
	}
}

// SubmitOrdersBulk ingests a batch of orders in one delivery. Per-order
// failures are reported inside the envelope; the delivery itself succeeds
// as long as the batch was accepted for processing.
func SubmitOrdersBulk(svc ingest.Service, auth credentials.Authenticator, store idempotency.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := readBody(w, r)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		payload, err := decodeBulkBody(body)
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		if err := authenticate(ctx, auth, r, bulkAPIKey(payload)); err != nil {
			recordRejected(ctx, store, logg, fmt.Sprintf("bulk[%d]", len(payload.Orders)), string(body), err)
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		result, err := svc.ProcessBulk(ctx, ingest.BulkSubmission{
			Payload: *payload,
			Source:  strings.TrimSpace(r.URL.Query().Get("source")),
		})
		if err != nil {
			responses.WriteWebhookError(ctx, logg, w, err)
			return
		}

		responses.WriteWebhookSuccess(w, result, result.Total)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	return body, nil
}

// decodeBulkBody accepts both the envelope form and the legacy bare array
// the older sender posts.
func decodeBulkBody(body []byte) (*ingest.BulkPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var orders []ingest.OrderPayload
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
		}
		return &ingest.BulkPayload{Orders: orders}, nil
	}

	var payload ingest.BulkPayload
	if err := validators.DecodeJSONPayload(trimmed, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func authenticate(ctx context.Context, auth credentials.Authenticator, r *http.Request, bodyKey string) error {
	rawKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if rawKey == "" {
		rawKey = strings.TrimSpace(bodyKey)
	}
	_, err := auth.Authenticate(ctx, rawKey)
	return err
}

// recordRejected leaves an audit row for deliveries that failed before the
// pipeline ran. Best effort: a logging failure never masks the rejection.
func recordRejected(ctx context.Context, store idempotency.Store, logg *logger.Logger, externalID, payload string, cause error) {
	if store == nil {
		return
	}
	record, err := store.CreateUnkeyed(ctx, externalID, payload)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "record_error", err.Error()), "failed to record rejected delivery")
		}
		return
	}
	if err := store.MarkFailed(ctx, record.ID, cause.Error()); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "record_error", err.Error()), "failed to mark rejected delivery")
	}
}

func idempotencyKey(r *http.Request, bodyKey string) string {
	if key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(bodyKey)
}

func bulkAPIKey(payload *ingest.BulkPayload) string {
	if key := strings.TrimSpace(payload.APIKey); key != "" {
		return key
	}
	for _, order := range payload.Orders {
		if key := strings.TrimSpace(order.APIKey); key != "" {
			return key
		}
	}
	return ""
}
