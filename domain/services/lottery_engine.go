package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

var (
	errNotRestored = errors.New("lottery engine not restored")
	errStaleRound  = errors.New("persisted round diverged from engine state")
)

// EngineConfig holds the immutable lottery parameters
type EngineConfig struct {
	EntranceFee      *big.Int
	Interval         time.Duration
	KeyHash          common.Hash
	SubscriptionID   uint64
	CallbackGasLimit uint32

	// Now defaults to time.Now in UTC
	Now func() time.Time

	// PayoutFactory defaults to NewLedgerPayoutExecutor
	PayoutFactory interfaces.PayoutExecutorFactory
}

// lotteryEngine implements the lottery lifecycle. Every mutating operation
// holds mu for its whole duration and commits one unit of work before the
// in-memory state is swapped.
type lotteryEngine struct {
	mu sync.RWMutex

	cfg        EngineConfig
	uowFactory interfaces.UnitOfWorkFactory
	oracle     interfaces.RandomnessOracle
	payout     interfaces.PayoutExecutorFactory
	clock      *roundClock

	round   *entities.Round
	ledger  *entryLedger
	pending *entities.RandomnessRequest
	winner  *entities.WinnerRecord
}

// NewLotteryEngine creates a new lottery engine. Restore must be called before use.
func NewLotteryEngine(cfg EngineConfig, uowFactory interfaces.UnitOfWorkFactory, oracle interfaces.RandomnessOracle) interfaces.LotteryEngine {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.PayoutFactory == nil {
		cfg.PayoutFactory = NewLedgerPayoutExecutor
	}
	if cfg.EntranceFee == nil {
		cfg.EntranceFee = new(big.Int)
	}

	return &lotteryEngine{
		cfg:        cfg,
		uowFactory: uowFactory,
		oracle:     oracle,
		payout:     cfg.PayoutFactory,
		clock:      newRoundClock(cfg.Now),
		ledger:     newEntryLedger(),
	}
}

// Restore loads the live round, its entries, the outstanding request and the
// latest winner. The first call against an empty store creates round 1.
func (e *lotteryEngine) Restore(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		round   *entities.Round
		entries []*entities.Entry
		pending *entities.RandomnessRequest
		latest  *entities.WinnerRecord
	)

	err := e.runInTransaction(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		round, err = uow.RoundRepository().GetCurrentForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("failed to load current round: %w", err)
		}

		if round == nil {
			round = entities.NewRound(e.cfg.EntranceFee, e.cfg.Interval, e.cfg.Now())
			if err := uow.RoundRepository().Create(ctx, round); err != nil {
				return fmt.Errorf("failed to create initial round: %w", err)
			}
			log.WithFields(log.Fields{
				"entranceFee": round.EntranceFee.String(),
				"interval":    round.Interval,
			}).Info("Initialized lottery")
		} else if round.EntranceFee.Cmp(e.cfg.EntranceFee) != 0 || round.Interval != e.cfg.Interval {
			log.WithFields(log.Fields{
				"persistedFee":       round.EntranceFee.String(),
				"configuredFee":      e.cfg.EntranceFee.String(),
				"persistedInterval":  round.Interval,
				"configuredInterval": e.cfg.Interval,
			}).Warn("Configured lottery parameters differ from persisted round, keeping persisted values")
		}

		entries, err = uow.EntryRepository().ListByRound(ctx, round.Number)
		if err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}

		pending, err = uow.RandomnessRequestRepository().GetPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to load pending randomness request: %w", err)
		}

		latest, err = uow.WinnerRepository().GetLatest(ctx)
		if err != nil {
			return fmt.Errorf("failed to load latest winner: %w", err)
		}

		if round.IsDrawing() && pending == nil {
			return fmt.Errorf("round %d is drawing without an outstanding randomness request", round.Number)
		}
		if round.IsOpen() && pending != nil {
			return fmt.Errorf("round %d is open but request %s is outstanding", round.Number, pending.RequestID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.round = round
	e.ledger.reset(entries)
	e.pending = pending
	e.winner = latest

	log.WithFields(log.Fields{
		"round":   round.Number,
		"state":   round.State,
		"players": len(entries),
		"pooled":  round.PooledFunds.String(),
	}).Info("Restored lottery state")

	return nil
}

// runInTransaction executes fn within a unit of work, committing only if fn succeeds
func (e *lotteryEngine) runInTransaction(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockPersistedRound row-locks the stored round and checks that no other
// writer advanced it behind this engine's back
func (e *lotteryEngine) lockPersistedRound(ctx context.Context, uow interfaces.UnitOfWork) error {
	stored, err := uow.RoundRepository().GetCurrentForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock round: %w", err)
	}
	if stored == nil {
		return fmt.Errorf("%w: round %d missing", errStaleRound, e.round.Number)
	}
	if stored.Number != e.round.Number || stored.State != e.round.State || stored.PooledFunds.Cmp(e.round.PooledFunds) != 0 {
		return fmt.Errorf("%w: stored round %d (%s), engine round %d (%s)",
			errStaleRound, stored.Number, stored.State, e.round.Number, e.round.State)
	}
	return nil
}

func (e *lotteryEngine) ensureRestored() error {
	if e.round == nil {
		return errNotRestored
	}
	return nil
}

// EntranceFee returns the minimum stake per entry
func (e *lotteryEngine) EntranceFee() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.round == nil {
		return new(big.Int).Set(e.cfg.EntranceFee)
	}
	return new(big.Int).Set(e.round.EntranceFee)
}

// PlayerAt returns the player at the given entry position
func (e *lotteryEngine) PlayerAt(index int) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, err := e.ledger.at(index)
	if err != nil {
		return common.Address{}, err
	}
	return entry.Player, nil
}

// PlayerCount returns the number of entries in the current round
func (e *lotteryEngine) PlayerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.count()
}

// RecentWinner returns the last winner, if any draw has completed
func (e *lotteryEngine) RecentWinner() (common.Address, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.winner == nil {
		return common.Address{}, false
	}
	return e.winner.Winner, true
}

// RoundState returns the state of the live round
func (e *lotteryEngine) RoundState() entities.RoundState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.round == nil {
		return entities.RoundStateOpen
	}
	return e.round.State
}

// LastTimestamp returns when the live round opened
func (e *lotteryEngine) LastTimestamp() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.round == nil {
		return time.Time{}
	}
	return e.round.OpenedAt
}

// Interval returns the minimum round duration
func (e *lotteryEngine) Interval() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.round == nil {
		return e.cfg.Interval
	}
	return e.round.Interval
}

// PooledFunds returns the balance held for the current round
func (e *lotteryEngine) PooledFunds() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.round == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(e.round.PooledFunds)
}

func (e *lotteryEngine) NumWords() uint32 {
	return entities.NumWords
}

func (e *lotteryEngine) RequestConfirmations() uint16 {
	return entities.RequestConfirmations
}

// Status returns a consistent snapshot of every read-only query
func (e *lotteryEngine) Status() interfaces.LotteryStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := interfaces.LotteryStatus{
		State:                entities.RoundStateOpen,
		EntranceFee:          new(big.Int).Set(e.cfg.EntranceFee),
		PooledFunds:          new(big.Int),
		PlayerCount:          e.ledger.count(),
		Interval:             e.cfg.Interval,
		NumWords:             entities.NumWords,
		RequestConfirmations: entities.RequestConfirmations,
	}
	if e.round != nil {
		status.RoundNumber = e.round.Number
		status.State = e.round.State
		status.EntranceFee = new(big.Int).Set(e.round.EntranceFee)
		status.PooledFunds = new(big.Int).Set(e.round.PooledFunds)
		status.LastTimestamp = e.round.OpenedAt
		status.Interval = e.round.Interval
	}
	if e.winner != nil {
		winner := e.winner.Winner
		status.RecentWinner = &winner
	}
	if e.pending != nil {
		status.PendingRequestID = new(big.Int).Set(e.pending.RequestID)
	}
	return status
}

// RecentWinners returns persisted winner history, newest first
func (e *lotteryEngine) RecentWinners(ctx context.Context, limit int) ([]*entities.WinnerRecord, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	winners, err := uow.WinnerRepository().ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent winners: %w", err)
	}
	return winners, nil
}
