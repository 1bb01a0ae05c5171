package memstore

import (
	"context"
	"fmt"

	"raffle/domain/interfaces"
	"raffle/infrastructure"

	log "github.com/sirupsen/logrus"
)

type unitOfWorkFactory struct {
	store     *Store
	publisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates units of work over store whose events are
// handed to publisher after commit
func NewUnitOfWorkFactory(store *Store, publisher interfaces.EventPublisher) interfaces.UnitOfWorkFactory {
	if publisher == nil {
		publisher = infrastructure.NewNoopEventPublisher()
	}
	return &unitOfWorkFactory{
		store:     store,
		publisher: publisher,
	}
}

func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		store:                  f.store,
		transactionalPublisher: infrastructure.NewTransactionalPublisher(f.publisher),
	}
}

type unitOfWork struct {
	store                  *Store
	ctx                    context.Context
	working                *snapshot
	transactionalPublisher interfaces.TransactionalEventPublisher
}

// Begin takes the store's transaction lock and copies the committed state
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.working != nil {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.store.txLock.Lock()
	u.working = u.store.read().clone()
	u.ctx = ctx
	return nil
}

// Commit publishes the working copy as the committed state
func (u *unitOfWork) Commit() error {
	if u.working == nil {
		return fmt.Errorf("no transaction to commit")
	}

	u.store.replace(u.working)
	u.working = nil
	u.store.txLock.Unlock()

	if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
		log.WithError(err).Error("Failed to flush events after commit")
	}
	return nil
}

// Rollback drops the working copy
func (u *unitOfWork) Rollback() error {
	if u.working == nil {
		return nil // Nothing to rollback
	}

	u.working = nil
	u.store.txLock.Unlock()
	u.transactionalPublisher.Discard()
	return nil
}

func (u *unitOfWork) mustBegin() *snapshot {
	if u.working == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.working
}

func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	return &roundRepository{snap: u.mustBegin()}
}

func (u *unitOfWork) EntryRepository() interfaces.EntryRepository {
	return &entryRepository{snap: u.mustBegin()}
}

func (u *unitOfWork) RandomnessRequestRepository() interfaces.RandomnessRequestRepository {
	return &randomnessRequestRepository{snap: u.mustBegin()}
}

func (u *unitOfWork) WinnerRepository() interfaces.WinnerRepository {
	return &winnerRepository{snap: u.mustBegin()}
}

func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	return &accountRepository{snap: u.mustBegin()}
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	u.mustBegin()
	return u.transactionalPublisher
}
