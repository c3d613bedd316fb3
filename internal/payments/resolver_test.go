package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
)

type stubPaymentsRepo struct {
	methods []models.PaymentMethod
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPaymentsRepo) ListActiveByConfig(ctx context.Context, configID uuid.UUID) ([]models.PaymentMethod, error) {
	var active []models.PaymentMethod
	for _, m := range s.methods {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

func (s *stubPaymentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	for i := range s.methods {
		if s.methods[i].ID == id {
			return &s.methods[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func strptr(s string) *string { return &s }

func method(name string, journal *string, isCash bool) models.PaymentMethod {
	return models.PaymentMethod{
		ID:          uuid.New(),
		Name:        name,
		JournalName: journal,
		IsCash:      isCash,
		Active:      true,
	}
}

func newResolverWith(t *testing.T, methods ...models.PaymentMethod) (Resolver, *stubPaymentsRepo) {
	t.Helper()
	repo := &stubPaymentsRepo{methods: methods}
	resolver, err := NewResolver(repo)
	require.NoError(t, err)
	return resolver, repo
}

func TestResolveByMappedMode(t *testing.T) {
	cash := method("Cash Drawer", strptr("Cash Journal"), true)
	card := method("Card Terminal", strptr("Card Journal"), false)
	resolver, _ := newResolverWith(t, cash, card)
	config := &models.SessionConfig{ID: uuid.New()}

	got, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 2, CardType: "Visa"})
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID, "mode map beats card type")
}

func TestResolveByCardTypeWhenModeUnmapped(t *testing.T) {
	tabby := method("Tabby", strptr("Tabby Installments"), false)
	resolver, _ := newResolverWith(t, tabby)
	config := &models.SessionConfig{ID: uuid.New()}

	got, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 99, CardType: "tabby"})
	require.NoError(t, err)
	assert.Equal(t, tabby.ID, got.ID)
}

func TestResolveFallbackMethod(t *testing.T) {
	fallback := method("House Account", strptr("House Journal"), false)
	other := method("Unrelated", strptr("Wire"), false)
	resolver, _ := newResolverWith(t, fallback, other)
	config := &models.SessionConfig{ID: uuid.New(), FallbackMethodID: &fallback.ID}

	got, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 42, CardType: "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, got.ID)
}

func TestResolveCashFlagForModeOne(t *testing.T) {
	// journal names match neither "Cash" nor the card type
	cashbox := method("Register", strptr("Till"), true)
	resolver, _ := newResolverWith(t, cashbox)
	config := &models.SessionConfig{ID: uuid.New()}

	got, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 1, CardType: "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, cashbox.ID, got.ID)
}

func TestResolveUnmappedModeFails(t *testing.T) {
	wire := method("Wire", strptr("Wire Journal"), false)
	resolver, _ := newResolverWith(t, wire)
	config := &models.SessionConfig{ID: uuid.New()}

	_, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 4, CardType: ""})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "PaymentMode=4")
}

func TestResolveMappedModeMissingMethodFails(t *testing.T) {
	wire := method("Wire", strptr("Wire Journal"), false)
	resolver, _ := newResolverWith(t, wire)
	config := &models.SessionConfig{ID: uuid.New()}

	_, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 5, CardType: ""})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Contains(t, typed.Message(), `"Tabby"`)
}

func TestResolveRejectsMethodWithoutJournal(t *testing.T) {
	broken := method("Broken Cash", nil, true)
	resolver, _ := newResolverWith(t, broken)
	config := &models.SessionConfig{ID: uuid.New()}

	_, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 1, CardType: ""})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Contains(t, typed.Message(), "journal not found")
}

func TestResolveNoMethodsConfigured(t *testing.T) {
	resolver, _ := newResolverWith(t)
	config := &models.SessionConfig{ID: uuid.New()}

	_, err := resolver.Resolve(context.Background(), config, MethodRef{PaymentMode: 1})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Contains(t, typed.Message(), "no payment methods configured")
}
