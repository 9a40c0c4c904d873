package chat

import (
	"context"
	"errors"

	"orderhub-bot/internal/model"
	"orderhub-bot/internal/repository"
)

// ErrAccessDenied means the caller's identity does not map to a known
// account. Terminal for the request; no session is touched.
var ErrAccessDenied = errors.New("access denied: unknown identity")

// Gate resolves a caller's transport identity to an Account exactly
// once per request and fails closed. Every core entry point goes
// through it, so handlers downstream always hold a typed Account.
type Gate struct {
	accounts repository.AccountRepository
}

// NewGate creates an identity gate over the account roster.
func NewGate(accounts repository.AccountRepository) *Gate {
	return &Gate{accounts: accounts}
}

// Resolve maps an external identity to an account, or ErrAccessDenied.
func (g *Gate) Resolve(ctx context.Context, externalID string) (*model.Account, error) {
	if externalID == "" {
		return nil, ErrAccessDenied
	}
	acct, err := g.accounts.GetByExternalIdentity(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccessDenied
	}
	return acct, nil
}
