package services

import (
	"context"
	"fmt"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// entryLedger is the ordered entry sequence of the open round. Only the
// engine mutates it; clear is reachable solely from the reopen transition.
type entryLedger struct {
	entries []*entities.Entry
}

func newEntryLedger() *entryLedger {
	return &entryLedger{entries: make([]*entities.Entry, 0)}
}

func (l *entryLedger) append(entry *entities.Entry) {
	l.entries = append(l.entries, entry)
}

func (l *entryLedger) at(index int) (*entities.Entry, error) {
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("%w: index %d, %d players", entities.ErrIndexOutOfRange, index, len(l.entries))
	}
	return l.entries[index], nil
}

func (l *entryLedger) count() int {
	return len(l.entries)
}

func (l *entryLedger) clear() {
	l.entries = make([]*entities.Entry, 0)
}

func (l *entryLedger) reset(entries []*entities.Entry) {
	l.entries = make([]*entities.Entry, 0, len(entries))
	l.entries = append(l.entries, entries...)
}

// Enter adds caller to the open round. The stake check comes first, so an
// underpaying caller sees ErrInsufficientStake even while a draw is running.
func (e *lotteryEngine) Enter(ctx context.Context, caller common.Address, paidAmount *big.Int) (*entities.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureRestored(); err != nil {
		return nil, err
	}

	if paidAmount == nil || paidAmount.Cmp(e.round.EntranceFee) < 0 {
		paid := "0"
		if paidAmount != nil {
			paid = paidAmount.String()
		}
		return nil, fmt.Errorf("%w: paid %s, entrance fee is %s", entities.ErrInsufficientStake, paid, e.round.EntranceFee)
	}

	if !e.round.IsOpen() {
		return nil, fmt.Errorf("%w: round %d is %s", entities.ErrRoundNotOpen, e.round.Number, e.round.State)
	}

	now := e.cfg.Now()
	entry := &entities.Entry{
		RoundNumber: e.round.Number,
		Position:    e.ledger.count(),
		Player:      caller,
		Amount:      new(big.Int).Set(paidAmount),
		EnteredAt:   now,
	}
	updated := e.round.WithDeposit(paidAmount, now)

	err := e.runInTransaction(ctx, func(uow interfaces.UnitOfWork) error {
		if err := e.lockPersistedRound(ctx, uow); err != nil {
			return err
		}
		if err := uow.EntryRepository().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append entry: %w", err)
		}
		if err := uow.RoundRepository().Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to update round pool: %w", err)
		}
		return uow.EventBus().Publish(events.EntryAcceptedEvent{
			RoundNumber: entry.RoundNumber,
			Player:      entry.Player,
			Amount:      new(big.Int).Set(entry.Amount),
			Position:    entry.Position,
		})
	})
	if err != nil {
		return nil, err
	}

	e.ledger.append(entry)
	e.round = updated

	log.WithFields(log.Fields{
		"round":    entry.RoundNumber,
		"player":   entry.Player.Hex(),
		"amount":   entry.Amount.String(),
		"position": entry.Position,
	}).Debug("Entry accepted")

	return entry.Clone(), nil
}
