package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Step names reported in finalization results.
const (
	StepPaymentConfirmation = "payment_confirmation"
	StepInventoryMovement   = "inventory_movement"
	StepCostComputation     = "cost_computation"
	StepInvoiceGeneration   = "invoice_generation"
)

// StepResult records the outcome of one finalization step.
type StepResult struct {
	Step     string `json:"step"`
	OK       bool   `json:"ok"`
	Skipped  bool   `json:"skipped,omitempty"`
	Critical bool   `json:"critical,omitempty"`
	Error    string `json:"error,omitempty"`
}

// FinalizeResult is the structured outcome of a finalization run.
type FinalizeResult struct {
	Steps []StepResult     `json:"steps"`
	State enums.OrderState `json:"state"`
}

// OrderFinalizer drives a persisted draft order to its terminal state.
// Payment confirmation is critical; the remaining steps are best-effort and
// isolated so their failure never aborts the order.
type OrderFinalizer interface {
	Finalize(ctx context.Context, tx *gorm.DB, order *models.Order, config *models.SessionConfig) (*FinalizeResult, error)
}

// FinalizerSelector picks the finalization strategy for an order. External
// orders come from a source system trusted to have validated settlement, so
// they get the lenient payment check.
type FinalizerSelector struct {
	standard OrderFinalizer
	external OrderFinalizer
}

// NewFinalizerSelector builds both finalizer variants over shared
// collaborators. Inventory, cost and invoice collaborators may be nil; nil
// collaborators turn their step into a recorded skip.
func NewFinalizerSelector(
	repo Repository,
	inventory InventoryPoster,
	costs CostComputer,
	invoices InvoiceGenerator,
	logg *logger.Logger,
) (*FinalizerSelector, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := finalizer{
		repo:      repo,
		inventory: inventory,
		costs:     costs,
		invoices:  invoices,
		logg:      logg,
	}
	external := base
	external.allowUnderSettlement = true
	return &FinalizerSelector{
		standard: &base,
		external: &external,
	}, nil
}

// For returns the finalizer matching the order's External flag.
func (s *FinalizerSelector) For(order *models.Order) OrderFinalizer {
	if order.External {
		return s.external
	}
	return s.standard
}

type finalizer struct {
	repo                 Repository
	inventory            InventoryPoster
	costs                CostComputer
	invoices             InvoiceGenerator
	logg                 *logger.Logger
	allowUnderSettlement bool
}

// Finalize runs payment confirmation, then the best-effort steps, then marks
// the order done so a later session-close sweep cannot re-process it. A
// failed critical step returns the partial result alongside the error.
func (f *finalizer) Finalize(ctx context.Context, tx *gorm.DB, order *models.Order, config *models.SessionConfig) (*FinalizeResult, error) {
	lctx := f.logg.WithOrderID(ctx, order.ID.String())
	repo := f.repo.WithTx(tx)
	result := &FinalizeResult{State: order.State}

	if err := f.confirmPayment(lctx, order, config); err != nil {
		result.Steps = append(result.Steps, StepResult{
			Step:     StepPaymentConfirmation,
			Critical: true,
			Error:    err.Error(),
		})
		return result, err
	}
	if err := repo.UpdateState(lctx, order.ID, enums.OrderStatePaid); err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order paid")
		result.Steps = append(result.Steps, StepResult{
			Step:     StepPaymentConfirmation,
			Critical: true,
			Error:    wrapped.Error(),
		})
		return result, wrapped
	}
	order.State = enums.OrderStatePaid
	result.State = enums.OrderStatePaid
	result.Steps = append(result.Steps, StepResult{Step: StepPaymentConfirmation, OK: true, Critical: true})

	result.Steps = append(result.Steps, f.runInventory(lctx, tx, order, config))
	result.Steps = append(result.Steps, f.runCosts(lctx, tx, order))
	result.Steps = append(result.Steps, f.runInvoice(lctx, tx, order))

	if err := repo.UpdateState(lctx, order.ID, enums.OrderStateDone); err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order done")
	}
	order.State = enums.OrderStateDone
	result.State = enums.OrderStateDone
	return result, nil
}

// confirmPayment checks settlement against the order total. External orders
// tolerate under-settlement; everything else must settle exactly within the
// currency rounding.
func (f *finalizer) confirmPayment(ctx context.Context, order *models.Order, config *models.SessionConfig) error {
	paid := decimal.Zero
	for _, payment := range order.Payments {
		paid = paid.Add(payment.Amount)
	}

	diff := paid.Sub(order.AmountTotal)
	if f.allowUnderSettlement {
		if diff.Sign() < 0 {
			f.logg.Warn(f.logg.WithFields(ctx, map[string]any{
				"amount_paid":  paid.String(),
				"amount_total": order.AmountTotal.String(),
			}), "external order settled below total, trusting source system")
		}
		return nil
	}

	if diff.Abs().GreaterThan(config.Rounding) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment confirmation failed: paid %s against total %s",
				paid.String(), order.AmountTotal.String()))
	}
	return nil
}

func (f *finalizer) runInventory(ctx context.Context, tx *gorm.DB, order *models.Order, config *models.SessionConfig) StepResult {
	if f.inventory == nil || !config.InventoryOriginValid() {
		return StepResult{Step: StepInventoryMovement, Skipped: true}
	}
	err := f.isolated(ctx, tx, "order_inventory", func() error {
		return f.inventory.PostMovement(ctx, tx, order, config)
	})
	if err != nil {
		f.logg.Error(ctx, "inventory movement failed, order kept", err)
		return StepResult{Step: StepInventoryMovement, Error: err.Error()}
	}
	return StepResult{Step: StepInventoryMovement, OK: true}
}

func (f *finalizer) runCosts(ctx context.Context, tx *gorm.DB, order *models.Order) StepResult {
	if f.costs == nil {
		return StepResult{Step: StepCostComputation, Skipped: true}
	}
	err := f.isolated(ctx, tx, "order_costing", func() error {
		return f.costs.ComputeCosts(ctx, tx, order)
	})
	if err != nil {
		f.logg.Error(ctx, "cost computation failed, order kept", err)
		return StepResult{Step: StepCostComputation, Error: err.Error()}
	}
	return StepResult{Step: StepCostComputation, OK: true}
}

func (f *finalizer) runInvoice(ctx context.Context, tx *gorm.DB, order *models.Order) StepResult {
	if f.invoices == nil || !order.ToInvoice || order.PartnerID == nil {
		return StepResult{Step: StepInvoiceGeneration, Skipped: true}
	}
	err := f.isolated(ctx, tx, "order_invoicing", func() error {
		return f.invoices.GenerateInvoice(ctx, tx, order)
	})
	if err != nil {
		f.logg.Error(ctx, "invoice generation failed, order kept", err)
		return StepResult{Step: StepInvoiceGeneration, Error: err.Error()}
	}
	return StepResult{Step: StepInvoiceGeneration, OK: true}
}

// isolated runs fn inside its own savepoint so a failure rolls back only the
// step's writes, never the enclosing order.
func (f *finalizer) isolated(ctx context.Context, tx *gorm.DB, name string, fn func() error) error {
	if tx == nil {
		return fn()
	}
	if err := tx.SavePoint(name).Error; err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			f.logg.Error(ctx, "savepoint rollback failed", rbErr)
		}
		return err
	}
	return nil
}
