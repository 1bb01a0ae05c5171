package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"raffle/database"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the payout ledger
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx Queryable) interfaces.AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByAddress retrieves an account
func (r *AccountRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	query := `
		SELECT address, balance::text, accepts_payments, created_at, updated_at
		FROM accounts
		WHERE address = $1
	`

	var (
		account entities.Account
		addr    string
		balance string
	)
	err := r.q.QueryRow(ctx, query, address.Hex()).Scan(
		&addr,
		&balance,
		&account.AcceptsPayments,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address.Hex(), err)
	}

	account.Address = common.HexToAddress(addr)
	if account.Balance, err = parseNumeric("balance", balance); err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert creates or replaces an account
func (r *AccountRepository) Upsert(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (address, balance, accepts_payments)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (address) DO UPDATE
		SET balance = EXCLUDED.balance,
			accepts_payments = EXCLUDED.accepts_payments,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.Address.Hex(),
		numericArg(account.Balance),
		account.AcceptsPayments,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", account.Address.Hex(), err)
	}

	return nil
}

// Credit adds amount to the account atomically, creating it if needed
func (r *AccountRepository) Credit(ctx context.Context, address common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		INSERT INTO accounts (address, balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (address) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		WHERE accounts.accepts_payments
	`

	result, err := r.q.Exec(ctx, query, address.Hex(), amount.String())
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", address.Hex(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s does not accept payments", entities.ErrTransferRejected, address.Hex())
	}

	return nil
}
