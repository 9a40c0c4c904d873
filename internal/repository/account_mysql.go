package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderhub-bot/internal/model"
)

// MySQLAccountRepository reads the reseller roster from an externally
// provisioned MySQL database.
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQL account repository.
func NewMySQLAccountRepository(db *sql.DB) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db}
}

// GetByExternalIdentity finds an account by its chat transport identity.
func (r *MySQLAccountRepository) GetByExternalIdentity(ctx context.Context, externalID string) (*model.Account, error) {
	query := `SELECT id, display_name, external_identity, address FROM accounts WHERE external_identity = ? LIMIT 1`

	var acct model.Account
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&acct.ID, &acct.DisplayName, &acct.ExternalIdentity, &acct.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

// ListAccounts returns the full reseller roster.
func (r *MySQLAccountRepository) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
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
func (r *MySQLAccountRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (display_name, external_identity, address) VALUES (?, ?, ?)`,
		account.DisplayName, account.ExternalIdentity, account.Address)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.ID, err = res.LastInsertId()
	return err
}

// Ensure MySQLAccountRepository implements AccountRepository
var _ AccountRepository = (*MySQLAccountRepository)(nil)
