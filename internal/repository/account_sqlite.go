package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderhub-bot/internal/model"
)

// GetByExternalIdentity finds an account by its chat transport identity.
func (s *SQLiteStore) GetByExternalIdentity(ctx context.Context, externalID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var acct model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, external_identity, address FROM accounts WHERE external_identity = ?`,
		externalID).Scan(&acct.ID, &acct.DisplayName, &acct.ExternalIdentity, &acct.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

// ListAccounts returns the full reseller roster.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, external_identity, address FROM accounts ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var acct model.Account
		if err := rows.Scan(&acct.ID, &acct.DisplayName, &acct.ExternalIdentity, &acct.Address); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// CreateAccount provisions a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (display_name, external_identity, address) VALUES (?, ?, ?)`,
		account.DisplayName, account.ExternalIdentity, account.Address)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.ID, err = res.LastInsertId()
	return err
}
