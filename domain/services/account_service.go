package services

import (
	"context"
	"fmt"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// AccountService manages payout ledger accounts
type AccountService struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewAccountService creates a new AccountService
func NewAccountService(uowFactory interfaces.UnitOfWorkFactory) *AccountService {
	return &AccountService{uowFactory: uowFactory}
}

// GetAccount returns the account for address. Unknown addresses read as an
// empty account that accepts payments.
func (s *AccountService) GetAccount(ctx context.Context, address common.Address) (*entities.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return &entities.Account{Address: address, Balance: new(big.Int), AcceptsPayments: true}, nil
	}
	return account, nil
}

// SetAcceptsPayments sets whether payouts to address succeed
func (s *AccountService) SetAcceptsPayments(ctx context.Context, address common.Address, accepts bool) (*entities.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		account = &entities.Account{Address: address, Balance: new(big.Int)}
	}
	account.AcceptsPayments = accepts

	if err := uow.AccountRepository().Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"address":         address.Hex(),
		"acceptsPayments": accepts,
	}).Info("Updated account payment preference")

	return account, nil
}
