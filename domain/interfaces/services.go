package interfaces

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"

	"github.com/ethereum/go-ethereum/common"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes pending events; called after a successful commit
	Flush(ctx context.Context) error

	// Discard drops pending events; called on rollback
	Discard()
}

// UnitOfWork groups repository changes into one transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RoundRepository() RoundRepository
	EntryRepository() EntryRepository
	RandomnessRequestRepository() RandomnessRequestRepository
	WinnerRepository() WinnerRepository
	AccountRepository() AccountRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// RandomnessOracle is the outbound side of the verifiable randomness service
type RandomnessOracle interface {
	// RequestRandomWords asks for params.NumWords random words and returns the
	// request id the oracle will quote when it calls back
	RequestRandomWords(ctx context.Context, params entities.RandomnessRequestParams) (*big.Int, error)
}

// RandomnessReceiver is the inbound side of the oracle protocol
type RandomnessReceiver interface {
	FulfillRandomWords(ctx context.Context, requestID *big.Int, words []*big.Int) (*DrawResult, error)
}

// PayoutExecutor transfers the pool to the winner
type PayoutExecutor interface {
	// Pay transfers amount to recipient. It never panics; any failure is
	// reported as an error wrapping entities.ErrTransferRejected.
	Pay(ctx context.Context, recipient common.Address, amount *big.Int) error
}

// PayoutExecutorFactory builds a payout executor bound to a unit of work
type PayoutExecutorFactory func(uow UnitOfWork) PayoutExecutor

// LotteryStatus is a read-only snapshot of the engine
type LotteryStatus struct {
	RoundNumber          int64
	State                entities.RoundState
	EntranceFee          *big.Int
	PooledFunds          *big.Int
	PlayerCount          int
	LastTimestamp        time.Time
	Interval             time.Duration
	RecentWinner         *common.Address
	PendingRequestID     *big.Int
	NumWords             uint32
	RequestConfirmations uint16
}

// DrawResult describes a completed draw
type DrawResult struct {
	RoundNumber int64
	RequestID   *big.Int
	RandomWord  *big.Int
	WinnerIndex int
	PlayerCount int
	Winner      common.Address
	Amount      *big.Int
	NextRound   int64
}

// LotteryEngine defines the lottery lifecycle operations
type LotteryEngine interface {
	RandomnessReceiver

	// Restore loads persisted state, initializing the first round if needed
	Restore(ctx context.Context) error

	// Enter adds caller to the open round
	Enter(ctx context.Context, caller common.Address, paidAmount *big.Int) (*entities.Entry, error)

	// CheckUpkeep reports whether a draw may be triggered along with the encoded diagnostic
	CheckUpkeep(ctx context.Context) (bool, []byte)

	// DrawReadiness returns the structured readiness diagnostic
	DrawReadiness() entities.UpkeepDiagnostic

	// PerformUpkeep triggers a draw after re-validating readiness
	PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error)

	EntranceFee() *big.Int
	PlayerAt(index int) (common.Address, error)
	PlayerCount() int
	RecentWinner() (common.Address, bool)
	RoundState() entities.RoundState
	LastTimestamp() time.Time
	Interval() time.Duration
	PooledFunds() *big.Int
	NumWords() uint32
	RequestConfirmations() uint16
	Status() LotteryStatus

	// RecentWinners returns persisted winner history, newest first
	RecentWinners(ctx context.Context, limit int) ([]*entities.WinnerRecord, error)
}
