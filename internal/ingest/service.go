package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/orders"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/sessions"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/metrics"
)

// Submission carries one order delivery through the pipeline.
type Submission struct {
	Payload        OrderPayload
	IdempotencyKey string
	ConfigRef      string
	Source         string
}

// BulkSubmission carries a bulk envelope through the pipeline.
type BulkSubmission struct {
	Payload BulkPayload
	Source  string
}

// Service is the order-ingestion pipeline: dedupe, validate, reconcile,
// resolve, assemble, persist, finalize.
type Service interface {
	ProcessSingle(ctx context.Context, sub Submission) (*OrderResult, error)
	ProcessBulk(ctx context.Context, sub BulkSubmission) (*BulkResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner      txRunner
	store       idempotency.Store
	reconciler  orders.Reconciler
	assembler   orders.Assembler
	ordersRepo  orders.Repository
	finalizers  *orders.FinalizerSelector
	sessionMgr  sessions.Manager
	sessionRepo sessions.Repository
	cfg         config.IngestConfig
	ingestStats *metrics.IngestMetrics
	logg        *logger.Logger
}

// NewService builds the ingestion pipeline service.
func NewService(
	runner txRunner,
	store idempotency.Store,
	reconciler orders.Reconciler,
	assembler orders.Assembler,
	ordersRepo orders.Repository,
	finalizers *orders.FinalizerSelector,
	sessionMgr sessions.Manager,
	sessionRepo sessions.Repository,
	cfg config.IngestConfig,
	ingestStats *metrics.IngestMetrics,
	logg *logger.Logger,
) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if finalizers == nil {
		return nil, fmt.Errorf("finalizer selector required")
	}
	if sessionMgr == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		runner:      runner,
		store:       store,
		reconciler:  reconciler,
		assembler:   assembler,
		ordersRepo:  ordersRepo,
		finalizers:  finalizers,
		sessionMgr:  sessionMgr,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		ingestStats: ingestStats,
		logg:        logg,
	}, nil
}

// ProcessSingle runs one order through the whole pipeline inside a single
// transaction. The idempotency record brackets the transaction: acquired
// before, resolved after, and best-effort throughout.
func (s *service) ProcessSingle(ctx context.Context, sub Submission) (*OrderResult, error) {
	source := s.source(sub.Source)
	started := time.Now()
	s.ingestStats.IncReceived(source)

	externalID := sub.Payload.OrderID.String()
	lctx := s.logg.WithExternalOrderID(ctx, externalID)

	record, replay, err := s.acquireRecord(lctx, sub, externalID)
	if err != nil {
		s.ingestStats.IncFailed(source)
		return nil, err
	}
	if replay != nil {
		s.ingestStats.IncReplay()
		return replay, nil
	}

	result, err := s.runPipeline(lctx, sub.Payload, sub.ConfigRef, source, orders.BatchDefaults{})
	s.ingestStats.ObserveProcessing(source, time.Since(started))
	if err != nil {
		s.ingestStats.IncFailed(source)
		s.resolveRecordFailure(lctx, record, err)
		return nil, err
	}

	s.ingestStats.IncSucceeded(source)
	s.resolveRecordSuccess(lctx, record, result)
	return result, nil
}

// ProcessBulk isolates each order in its own savepoint inside one outer
// transaction, then tries to close the session. A failed close never fails
// the batch.
func (s *service) ProcessBulk(ctx context.Context, sub BulkSubmission) (*BulkResult, error) {
	if len(sub.Payload.Orders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk submission contains no orders")
	}
	if len(sub.Payload.Orders) > s.cfg.MaxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(sub.Payload.Orders), s.cfg.MaxBatchSize))
	}

	source := s.source(sub.Source)
	defaults := orders.BatchDefaults{
		PartnerRef:   sub.Payload.PartnerID,
		CustomerCode: sub.Payload.CustomerRef,
	}

	result := &BulkResult{
		Total:   len(sub.Payload.Orders),
		Results: make([]BulkOrderResult, 0, len(sub.Payload.Orders)),
	}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		config, err := s.resolveConfig(ctx, tx, sub.Payload.ConfigRef)
		if err != nil {
			return err
		}
		result.ConfigRefUsed = config.ID.String()

		for i := range sub.Payload.Orders {
			payload := &sub.Payload.Orders[i]
			entry := s.processIsolated(ctx, tx, i, config, payload, source, defaults)
			if entry.Status == "success" {
				result.Successful++
			} else {
				result.Failed++
			}
			result.Results = append(result.Results, entry)
		}

		s.closeBatchSession(ctx, tx, config)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// processIsolated wraps one order of a batch in its own savepoint so its
// failure cannot roll back siblings.
func (s *service) processIsolated(ctx context.Context, tx *gorm.DB, index int, config *models.SessionConfig, payload *OrderPayload, source string, defaults orders.BatchDefaults) BulkOrderResult {
	externalID := payload.OrderID.String()
	entry := BulkOrderResult{ExternalOrderID: externalID, Status: "error"}
	savepoint := fmt.Sprintf("bulk_order_%d", index)

	s.ingestStats.IncReceived(source)
	started := time.Now()

	if err := tx.SavePoint(savepoint).Error; err != nil {
		entry.Error = err.Error()
		return entry
	}

	result, err := s.processWithin(ctx, tx, config, payload, source, defaults)
	s.ingestStats.ObserveProcessing(source, time.Since(started))
	if err != nil {
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			s.logg.Error(ctx, "bulk savepoint rollback failed", rbErr)
		}
		s.ingestStats.IncFailed(source)
		entry.Error = err.Error()
		return entry
	}

	s.ingestStats.IncSucceeded(source)
	entry.Status = "success"
	entry.OrderRef = result.ID
	entry.Amount = &result.Amount
	entry.TaxPercent = &result.TaxPercent
	return entry
}

// runPipeline opens the transaction for a single submission.
func (s *service) runPipeline(ctx context.Context, payload OrderPayload, configRef, source string, defaults orders.BatchDefaults) (*OrderResult, error) {
	var result *OrderResult
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		config, err := s.resolveConfig(ctx, tx, configRef)
		if err != nil {
			return err
		}
		result, err = s.processWithin(ctx, tx, config, &payload, source, defaults)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// processWithin is the per-order pipeline body: validate, reconcile, guard
// against duplicates, acquire a session, assemble, persist, finalize.
func (s *service) processWithin(ctx context.Context, tx *gorm.DB, config *models.SessionConfig, payload *OrderPayload, source string, defaults orders.BatchDefaults) (*OrderResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	ext := payload.toExternal(source)
	lctx := s.logg.WithExternalOrderID(ctx, ext.ExternalID)

	if err := s.reconciler.Validate(ext, config.Rounding); err != nil {
		return nil, err
	}

	repo := s.ordersRepo.WithTx(tx)
	existing, err := repo.FindByExternal(lctx, ext.ExternalID, ext.Source)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: duplicate order check")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order %s from %s already ingested as %s", ext.ExternalID, ext.Source, existing.Name))
	}

	session, err := s.sessionMgr.AcquireForConfig(lctx, tx, config)
	if err != nil {
		return nil, err
	}
	lctx = s.logg.WithSessionID(lctx, session.ID.String())

	order, err := s.assembler.Assemble(lctx, tx, config, session, ext, defaults)
	if err != nil {
		return nil, err
	}

	order, err = repo.Create(lctx, order)
	if err != nil {
		if db.IsUniqueViolation(err, "orders_external_uidx") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order %s from %s already ingested", ext.ExternalID, ext.Source))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
	}

	finalizeResult, err := s.finalizers.For(order).Finalize(lctx, tx, order, config)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(lctx, order.ID.String()), "order ingested")
	return &OrderResult{
		ID:              order.ID.String(),
		Name:            order.Name,
		ExternalOrderID: order.ExternalID,
		Amount:          order.AmountTotal,
		TaxPercent:      payload.TaxPercent,
		State:           order.State.String(),
		Steps:           finalizeResult.Steps,
	}, nil
}

// acquireRecord claims the idempotency record for a submission. A returned
// OrderResult means the delivery was already completed and its response
// should be replayed. Store failures are logged and tolerated; processing
// continues without idempotency protection.
func (s *service) acquireRecord(ctx context.Context, sub Submission, externalID string) (*models.WebhookLog, *OrderResult, error) {
	raw, err := json.Marshal(sub.Payload)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload not serializable")
	}

	var record *models.WebhookLog
	if sub.IdempotencyKey != "" {
		found, created, err := s.store.GetOrCreate(ctx, sub.IdempotencyKey, externalID, string(raw))
		if err != nil {
			s.logg.Error(ctx, "idempotency log unavailable, continuing without protection", err)
		} else {
			record = found
			if !created {
				switch record.Status {
				case enums.WebhookStatusProcessing:
					return nil, nil, pkgerrors.New(pkgerrors.CodeIdempotency,
						fmt.Sprintf("delivery %s is still being processed", sub.IdempotencyKey))
				case enums.WebhookStatusCompleted:
					return nil, s.replayResponse(ctx, record), nil
				}
				// pending or failed records are retried in place
			}
		}
	} else {
		unkeyed, err := s.store.CreateUnkeyed(ctx, externalID, string(raw))
		if err != nil {
			s.logg.Error(ctx, "webhook log write failed, continuing without protection", err)
		} else {
			record = unkeyed
		}
	}

	if record != nil {
		if err := s.store.MarkProcessing(ctx, record.ID); err != nil {
			s.logg.Error(ctx, "webhook log transition failed", err)
		}
	}
	return record, nil, nil
}

// replayResponse reconstructs the cached result of a completed delivery.
func (s *service) replayResponse(ctx context.Context, record *models.WebhookLog) *OrderResult {
	result := &OrderResult{Replayed: true}
	if record.ResponseBody != nil {
		if err := json.Unmarshal([]byte(*record.ResponseBody), result); err != nil {
			s.logg.Error(ctx, "cached response unreadable, replaying identifiers only", err)
		}
	}
	result.Replayed = true
	if result.ExternalOrderID == "" {
		result.ExternalOrderID = record.ExternalOrderID
	}
	if result.ID == "" && record.OrderID != nil {
		result.ID = record.OrderID.String()
	}
	return result
}

func (s *service) resolveRecordSuccess(ctx context.Context, record *models.WebhookLog, result *OrderResult) {
	if record == nil {
		return
	}
	orderID, err := uuid.Parse(result.ID)
	if err != nil {
		orderID = uuid.Nil
	}
	snapshot, err := json.Marshal(result)
	if err != nil {
		s.logg.Error(ctx, "response snapshot not serializable", err)
		snapshot = []byte("{}")
	}
	if err := s.store.MarkCompleted(ctx, record.ID, orderID, string(snapshot)); err != nil {
		s.logg.Error(ctx, "webhook log completion write failed", err)
	}
}

func (s *service) resolveRecordFailure(ctx context.Context, record *models.WebhookLog, cause error) {
	if record == nil {
		return
	}
	if err := s.store.MarkFailed(ctx, record.ID, cause.Error()); err != nil {
		s.logg.Error(ctx, "webhook log failure write failed", err)
	}
}

// resolveConfig picks the session configuration a submission targets: an
// explicit reference when given, the oldest active configuration otherwise.
func (s *service) resolveConfig(ctx context.Context, tx *gorm.DB, configRef string) (*models.SessionConfig, error) {
	repo := s.sessionRepo.WithTx(tx)
	if configRef != "" {
		id, err := uuid.Parse(configRef)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("config_ref %q is not a valid identifier", configRef))
		}
		config, err := repo.FindConfig(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("session configuration %s not found", configRef))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: session configuration")
		}
		return config, nil
	}

	config, err := repo.FindDefaultConfig(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active session configuration available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: default session configuration")
	}
	return config, nil
}

// closeBatchSession attempts the post-batch close; a failure is logged and
// swallowed because already-created orders must not be rolled back over
// accounting plumbing.
func (s *service) closeBatchSession(ctx context.Context, tx *gorm.DB, config *models.SessionConfig) {
	session, err := s.sessionRepo.WithTx(tx).FindOpenByConfig(ctx, config.ID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logg.Error(ctx, "open session lookup failed after batch", err)
		}
		return
	}
	if err := s.sessionMgr.CloseSession(ctx, tx, session); err != nil {
		s.logg.Warn(s.logg.WithSessionID(ctx, session.ID.String()),
			"session close after batch failed, orders kept")
	}
}

func (s *service) source(source string) string {
	if source != "" {
		return source
	}
	return s.cfg.DefaultSource
}
