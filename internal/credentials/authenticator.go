package credentials

import (
	"context"
	"fmt"
	"strings"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/security"
)

// prefixLength is how many leading characters of a key are stored in clear
// to narrow the candidate set before the Argon2id comparison.
const prefixLength = 8

type authenticator struct {
	repo Repository
	logg *logger.Logger
}

// NewAuthenticator builds the API key authenticator.
func NewAuthenticator(repo Repository, logg *logger.Logger) (Authenticator, error) {
	if repo == nil {
		return nil, fmt.Errorf("credentials repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &authenticator{repo: repo, logg: logg}, nil
}

// Authenticate matches the raw key against stored hashes sharing its prefix.
// Usage accounting is best-effort and never fails the request.
func (a *authenticator) Authenticate(ctx context.Context, rawKey string) (*models.APICredential, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing API key")
	}

	candidates, err := a.repo.FindActiveByPrefix(ctx, security.KeyPrefix(rawKey, prefixLength))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: credential lookup")
	}

	for i := range candidates {
		ok, err := security.VerifyAPIKey(rawKey, candidates[i].KeyHash)
		if err != nil {
			a.logg.Error(ctx, "stored credential hash unreadable", err)
			continue
		}
		if !ok {
			continue
		}
		if err := a.repo.BumpUsage(ctx, candidates[i].ID); err != nil {
			a.logg.Warn(a.logg.WithField(ctx, "credential", candidates[i].Name),
				"credential usage update failed")
		}
		return &candidates[i], nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid API key")
}
