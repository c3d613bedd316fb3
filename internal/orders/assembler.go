package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/payments"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/pricing"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/products"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Assembler builds the in-memory order graph from a normalized external
// order. It resolves products, taxes, payment methods and the partner, but
// persists nothing itself.
type Assembler interface {
	Assemble(ctx context.Context, tx *gorm.DB, config *models.SessionConfig, session *models.Session, order *ExternalOrder, defaults BatchDefaults) (*models.Order, error)
}

type assembler struct {
	productResolver products.Resolver
	paymentResolver payments.Resolver
	calculator      pricing.Calculator
	partnerLookup   PartnerLookup
	logg            *logger.Logger
}

// NewAssembler builds the order assembler.
func NewAssembler(
	productResolver products.Resolver,
	paymentResolver payments.Resolver,
	calculator pricing.Calculator,
	partnerLookup PartnerLookup,
	logg *logger.Logger,
) (Assembler, error) {
	if productResolver == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if paymentResolver == nil {
		return nil, fmt.Errorf("payment resolver required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if partnerLookup == nil {
		return nil, fmt.Errorf("partner lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &assembler{
		productResolver: productResolver,
		paymentResolver: paymentResolver,
		calculator:      calculator,
		partnerLookup:   partnerLookup,
		logg:            logg,
	}, nil
}

// Assemble produces a draft order. The External flag is set here, once, so
// downstream finalization can pick its strategy without consulting ambient
// state.
func (a *assembler) Assemble(ctx context.Context, tx *gorm.DB, config *models.SessionConfig, session *models.Session, ext *ExternalOrder, defaults BatchDefaults) (*models.Order, error) {
	dateOrder := time.Now().UTC()
	if ext.Date != nil {
		dateOrder = ext.Date.UTC()
	}

	lines, amountTotal, amountTax, err := a.buildLines(ctx, config, ext)
	if err != nil {
		return nil, err
	}

	entries, amountPaid, err := a.buildPayments(ctx, config, ext, dateOrder)
	if err != nil {
		return nil, err
	}

	partner, err := a.resolvePartner(ctx, tx, config, ext, defaults)
	if err != nil {
		return nil, err
	}

	amountReturn := amountPaid.Sub(amountTotal)
	if amountReturn.Sign() < 0 {
		amountReturn = decimal.Zero
	}

	order := &models.Order{
		Name:           fmt.Sprintf("%s/%s", config.Name, ext.ExternalID),
		ExternalID:     ext.ExternalID,
		ExternalSource: ext.Source,
		SessionID:      session.ID,
		State:          enums.OrderStateDraft,
		AmountTotal:    amountTotal,
		AmountTax:      amountTax,
		AmountPaid:     amountPaid,
		AmountReturn:   amountReturn,
		External:       true,
		DateOrder:      dateOrder,
		Lines:          lines,
		Payments:       entries,
	}
	if partner != nil {
		order.PartnerID = &partner.ID
		order.ToInvoice = true
	}
	return order, nil
}

func (a *assembler) buildLines(ctx context.Context, config *models.SessionConfig, ext *ExternalOrder) ([]models.OrderLine, decimal.Decimal, decimal.Decimal, error) {
	lines := make([]models.OrderLine, 0, len(ext.Items))
	amountTotal := decimal.Zero
	amountTax := decimal.Zero

	for _, item := range ext.Items {
		product, err := a.productResolver.Resolve(ctx, config.CompanyID, products.ItemRef{
			ProductID:  item.ProductID,
			LegacyCode: item.LegacyCode,
			Name:       item.Name,
		})
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}

		tax, err := a.productResolver.TaxFor(ctx, config.CompanyID, product)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}

		discountPercent := pricing.DiscountPercentFromAmount(item.Price, item.Qty, item.DiscountAmount)
		amounts := a.calculator.ComputeLine(pricing.LineInput{
			UnitPrice:       item.Price,
			Qty:             item.Qty,
			DiscountPercent: discountPercent,
			Tax:             tax,
		})

		line := models.OrderLine{
			ProductID:         product.ID,
			Name:              product.Name,
			Qty:               item.Qty,
			UnitPrice:         item.Price,
			DiscountPercent:   discountPercent,
			PriceSubtotal:     amounts.Subtotal,
			PriceSubtotalIncl: amounts.SubtotalIncl,
		}
		if tax != nil {
			taxID := tax.ID
			line.TaxID = &taxID
		}
		lines = append(lines, line)

		amountTotal = amountTotal.Add(amounts.SubtotalIncl)
		amountTax = amountTax.Add(amounts.Tax)
	}

	return lines, amountTotal, amountTax, nil
}

// buildPayments skips non-positive amounts rather than rejecting them; some
// senders pad the checkout list with zeroed channels.
func (a *assembler) buildPayments(ctx context.Context, config *models.SessionConfig, ext *ExternalOrder, paidAt time.Time) ([]models.Payment, decimal.Decimal, error) {
	entries := make([]models.Payment, 0, len(ext.Checkouts))
	amountPaid := decimal.Zero

	for _, checkout := range ext.Checkouts {
		if checkout.Amount.Sign() <= 0 {
			continue
		}

		method, err := a.paymentResolver.Resolve(ctx, config, payments.MethodRef{
			PaymentMode: checkout.PaymentMode,
			CardType:    checkout.CardType,
		})
		if err != nil {
			return nil, decimal.Zero, err
		}

		entry := models.Payment{
			MethodID: method.ID,
			Amount:   checkout.Amount,
			PaidAt:   paidAt,
		}
		if checkout.CardType != "" {
			cardType := checkout.CardType
			entry.CardType = &cardType
		}
		if checkout.Reference != "" {
			reference := checkout.Reference
			entry.Reference = &reference
		}
		entries = append(entries, entry)

		amountPaid = amountPaid.Add(checkout.Amount)
	}

	return entries, amountPaid, nil
}

// resolvePartner walks the fallback chain: per-order reference, batch
// default reference, per-order customer code, batch default code, then the
// configuration's default partner. A fully unresolved partner is not an
// error; it just disables invoicing.
func (a *assembler) resolvePartner(ctx context.Context, tx *gorm.DB, config *models.SessionConfig, ext *ExternalOrder, defaults BatchDefaults) (*models.Partner, error) {
	lookup := a.partnerLookup.WithTx(tx)

	for _, ref := range []string{ext.PartnerRef, defaults.PartnerRef} {
		if ref == "" {
			continue
		}
		id, err := uuid.Parse(ref)
		if err != nil {
			continue
		}
		partner, err := lookup.FindPartnerByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: partner by id")
		}
		return partner, nil
	}

	for _, code := range []string{ext.CustomerCode, defaults.CustomerCode} {
		if code == "" {
			continue
		}
		partner, err := lookup.FindPartnerByCustomerCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: partner by customer code")
		}
		return partner, nil
	}

	if config.DefaultPartnerID != nil && *config.DefaultPartnerID != uuid.Nil {
		partner, err := lookup.FindPartnerByID(ctx, *config.DefaultPartnerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				a.logg.Warn(ctx, "configured default partner not found")
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: default partner")
		}
		return partner, nil
	}

	return nil, nil
}
