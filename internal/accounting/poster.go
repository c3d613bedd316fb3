package accounting

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Poster posts a closing session's per-journal totals as accounting entries.
// It is the concrete implementation of the session manager's accounting
// boundary.
type Poster struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewPoster(repo Repository, logg *logger.Logger) (*Poster, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounting repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Poster{repo: repo, logg: logg, now: time.Now}, nil
}

// PostSessionClose writes one posted entry per journal with settled amounts.
// A session without payments closes with no entries.
func (p *Poster) PostSessionClose(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	repo := p.repo.WithTx(tx)

	totals, err := repo.PaymentTotalsBySession(ctx, session.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing session payments")
	}
	if len(totals) == 0 {
		p.logg.Info(p.logg.WithSessionID(ctx, session.ID.String()), "session closed with no payments to post")
		return nil
	}

	postedAt := p.now().UTC()
	entries := make([]models.AccountingEntry, 0, len(totals))
	for _, total := range totals {
		entries = append(entries, models.AccountingEntry{
			SessionID: session.ID,
			Journal:   total.Journal,
			Amount:    total.Total,
			Posted:    true,
			PostedAt:  &postedAt,
		})
	}
	if err := repo.CreateEntries(ctx, entries); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting session accounting entries")
	}

	logCtx := p.logg.WithFields(p.logg.WithSessionID(ctx, session.ID.String()), map[string]any{
		"journals": len(entries),
	})
	p.logg.Info(logCtx, "session accounting entries posted")
	return nil
}

// DiscardEmptyBatch removes the session's unposted entries. Unposted entries
// with a non-zero amount block the discard; forced close must not drop real
// money.
func (p *Poster) DiscardEmptyBatch(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	repo := p.repo.WithTx(tx)

	unposted, err := repo.ListUnposted(ctx, session.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing unposted entries")
	}
	for _, entry := range unposted {
		if !entry.Amount.IsZero() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("session %s holds an unposted %s entry of %s", session.Name, entry.Journal, entry.Amount))
		}
	}
	if len(unposted) == 0 {
		return nil
	}
	if err := repo.DeleteUnposted(ctx, session.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discarding empty entry batch")
	}
	return nil
}
