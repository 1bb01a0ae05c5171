package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// ledgerPayoutExecutor credits winnings to the account ledger of the
// surrounding unit of work
type ledgerPayoutExecutor struct {
	accounts interfaces.AccountRepository
}

// NewLedgerPayoutExecutor creates a payout executor bound to uow
func NewLedgerPayoutExecutor(uow interfaces.UnitOfWork) interfaces.PayoutExecutor {
	return &ledgerPayoutExecutor{accounts: uow.AccountRepository()}
}

func (p *ledgerPayoutExecutor) Pay(ctx context.Context, recipient common.Address, amount *big.Int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: transfer panicked: %v", entities.ErrTransferRejected, r)
		}
	}()

	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", entities.ErrTransferRejected)
	}

	if err := p.accounts.Credit(ctx, recipient, amount); err != nil {
		if errors.Is(err, entities.ErrTransferRejected) {
			return err
		}
		return fmt.Errorf("%w: %w", entities.ErrTransferRejected, err)
	}

	log.WithFields(log.Fields{
		"recipient": recipient.Hex(),
		"amount":    amount.String(),
	}).Debug("Credited payout")

	return nil
}
