package interfaces

import (
	"context"
	"math/big"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// RoundRepository defines the interface for the live round
type RoundRepository interface {
	// GetCurrent returns the live round, or nil if the lottery was never initialized
	GetCurrent(ctx context.Context) (*entities.Round, error)

	// GetCurrentForUpdate returns the live round with a row lock held until the transaction ends
	GetCurrentForUpdate(ctx context.Context) (*entities.Round, error)

	// Create inserts the first round and sets its ID
	Create(ctx context.Context, round *entities.Round) error

	// Update overwrites state, timestamps and pool of the round
	Update(ctx context.Context, round *entities.Round) error
}

// EntryRepository defines the interface for round entries
type EntryRepository interface {
	// Append stores an entry at the end of the round's sequence and sets its ID
	Append(ctx context.Context, entry *entities.Entry) error

	// ListByRound returns the round's entries ordered by position
	ListByRound(ctx context.Context, roundNumber int64) ([]*entities.Entry, error)

	// DeleteByRound removes every entry of the round
	DeleteByRound(ctx context.Context, roundNumber int64) error
}

// RandomnessRequestRepository defines the interface for oracle requests
type RandomnessRequestRepository interface {
	// Create stores a new outstanding request
	Create(ctx context.Context, request *entities.RandomnessRequest) error

	// GetPending returns the outstanding request, or nil if none
	GetPending(ctx context.Context) (*entities.RandomnessRequest, error)

	// MarkFulfilled records the consumed word and fulfillment time
	MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error
}

// WinnerRepository defines the interface for draw outcomes
type WinnerRepository interface {
	// Create stores a winner record and sets its ID
	Create(ctx context.Context, winner *entities.WinnerRecord) error

	// GetLatest returns the most recent winner, or nil if no draw completed yet
	GetLatest(ctx context.Context) (*entities.WinnerRecord, error)

	// ListRecent returns up to limit winners, newest first
	ListRecent(ctx context.Context, limit int) ([]*entities.WinnerRecord, error)
}

// AccountRepository defines the interface for the payout ledger
type AccountRepository interface {
	// GetByAddress returns an account, or nil if it does not exist
	GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error)

	// Upsert creates or replaces an account
	Upsert(ctx context.Context, account *entities.Account) error

	// Credit adds amount to the account, creating it if needed. Fails with
	// entities.ErrTransferRejected when the account does not accept payments.
	Credit(ctx context.Context, address common.Address, amount *big.Int) error
}
