package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
)

// PaymentModeCash is the external mode code the source system uses for cash.
const PaymentModeCash = 1

// modeJournalNames maps external payment-mode codes onto the journal-name
// fragment the corresponding settlement channel is expected to carry.
var modeJournalNames = map[int]string{
	1: "Cash",
	2: "Card",
	3: "Credit",
	5: "Tabby",
	6: "Tamara",
	7: "StcPay",
	8: "Bank Transfer",
}

// MethodRef is the external reference carried by one checkout entry.
type MethodRef struct {
	PaymentMode int
	CardType    string
}

// Resolver maps an external payment-mode/card-type pair onto a configured
// payment method.
type Resolver interface {
	Resolve(ctx context.Context, config *models.SessionConfig, ref MethodRef) (*models.PaymentMethod, error)
}

type resolver struct {
	repo Repository
}

// NewResolver builds the payment method resolver.
func NewResolver(repo Repository) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	return &resolver{repo: repo}, nil
}

// strategy attempts one resolution rule; nil result means "try the next".
type strategy func(ctx context.Context, config *models.SessionConfig, methods []models.PaymentMethod, ref MethodRef) (*models.PaymentMethod, error)

// Resolve tries each strategy in order: mapped mode name against journal
// names, raw card type against journal names, the administrator-configured
// fallback method, and finally the cash-flagged method for mode 1.
func (r *resolver) Resolve(ctx context.Context, config *models.SessionConfig, ref MethodRef) (*models.PaymentMethod, error) {
	if config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session configuration required")
	}

	methods, err := r.repo.ListActiveByConfig(ctx, config.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list payment methods")
	}
	if len(methods) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"no payment methods configured for this session configuration")
	}

	strategies := []strategy{
		r.byMappedMode,
		r.byCardType,
		r.byFallbackID,
		r.byCashFlag,
	}

	for _, try := range strategies {
		method, err := try(ctx, config, methods, ref)
		if err != nil {
			return nil, err
		}
		if method != nil {
			if method.JournalName == nil || *method.JournalName == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("journal not found for payment method %q", method.Name))
			}
			return method, nil
		}
	}

	if journal, ok := modeJournalNames[ref.PaymentMode]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment method with journal name containing %q not found for PaymentMode=%d", journal, ref.PaymentMode))
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("no payment method found for PaymentMode=%d, CardType=%q", ref.PaymentMode, ref.CardType))
}

func (r *resolver) byMappedMode(_ context.Context, _ *models.SessionConfig, methods []models.PaymentMethod, ref MethodRef) (*models.PaymentMethod, error) {
	journal, ok := modeJournalNames[ref.PaymentMode]
	if !ok {
		return nil, nil
	}
	return firstJournalContains(methods, journal), nil
}

func (r *resolver) byCardType(_ context.Context, _ *models.SessionConfig, methods []models.PaymentMethod, ref MethodRef) (*models.PaymentMethod, error) {
	if strings.TrimSpace(ref.CardType) == "" {
		return nil, nil
	}
	return firstJournalContains(methods, ref.CardType), nil
}

func (r *resolver) byFallbackID(ctx context.Context, config *models.SessionConfig, _ []models.PaymentMethod, _ MethodRef) (*models.PaymentMethod, error) {
	if config.FallbackMethodID == nil || *config.FallbackMethodID == uuid.Nil {
		return nil, nil
	}
	method, err := r.repo.FindByID(ctx, *config.FallbackMethodID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: fallback payment method")
	}
	if !method.Active {
		return nil, nil
	}
	return method, nil
}

func (r *resolver) byCashFlag(_ context.Context, _ *models.SessionConfig, methods []models.PaymentMethod, ref MethodRef) (*models.PaymentMethod, error) {
	if ref.PaymentMode != PaymentModeCash {
		return nil, nil
	}
	for i := range methods {
		if methods[i].IsCash {
			return &methods[i], nil
		}
	}
	return nil, nil
}

func firstJournalContains(methods []models.PaymentMethod, fragment string) *models.PaymentMethod {
	needle := strings.ToLower(fragment)
	for i := range methods {
		if methods[i].JournalName == nil {
			continue
		}
		if strings.Contains(strings.ToLower(*methods[i].JournalName), needle) {
			return &methods[i]
		}
	}
	return nil
}
