package memstore

import (
	"context"
	"math/big"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/testhelpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

func TestUnitOfWork_CommitPublishesStateAndEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	publisher := &testhelpers.RecordingEventPublisher{}
	factory := NewUnitOfWorkFactory(store, publisher)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	round := entities.NewRound(big.NewInt(10), time.Minute, time.Now())
	require.NoError(t, uow.RoundRepository().Create(ctx, round))
	require.NoError(t, uow.EventBus().Publish(events.DrawRequestedEvent{RoundNumber: 1, RequestID: big.NewInt(1)}))

	// Nothing is visible before commit
	assert.Nil(t, store.Round())
	assert.Empty(t, publisher.Events())

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback()) // no-op after commit

	stored := store.Round()
	require.NotNil(t, stored)
	assert.Equal(t, int64(1), stored.Number)
	assert.NotZero(t, stored.ID)
	assert.Equal(t, []events.EventType{events.EventTypeDrawRequested}, publisher.Types())
}

func TestUnitOfWork_RollbackDiscardsStateAndEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	publisher := &testhelpers.RecordingEventPublisher{}
	factory := NewUnitOfWorkFactory(store, publisher)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.RoundRepository().Create(ctx, entities.NewRound(big.NewInt(10), time.Minute, time.Now())))
	require.NoError(t, uow.AccountRepository().Credit(ctx, alice, big.NewInt(5)))
	require.NoError(t, uow.EventBus().Publish(events.WinnerSelectedEvent{RoundNumber: 1, Winner: alice, Amount: big.NewInt(5)}))
	require.NoError(t, uow.Rollback())

	assert.Nil(t, store.Round())
	assert.Nil(t, store.Account(alice))
	assert.Empty(t, publisher.Events())

	// The store is usable again after rollback
	next := factory.Create()
	require.NoError(t, next.Begin(ctx))
	require.NoError(t, next.Rollback())
}

func TestUnitOfWork_BeginTwiceFails(t *testing.T) {
	t.Parallel()

	uow := NewUnitOfWorkFactory(NewStore(), nil).Create()
	require.NoError(t, uow.Begin(context.Background()))
	defer uow.Rollback()

	assert.Error(t, uow.Begin(context.Background()))
}

func TestUnitOfWork_RepositoryBeforeBeginPanics(t *testing.T) {
	t.Parallel()

	uow := NewUnitOfWorkFactory(NewStore(), nil).Create()
	assert.Panics(t, func() { uow.RoundRepository() })
}

func TestUnitOfWork_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uow := NewUnitOfWorkFactory(NewStore(), nil).Create()
	assert.ErrorIs(t, uow.Begin(ctx), context.Canceled)
}

func TestRepositories_EntriesAndRequests(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	uow := NewUnitOfWorkFactory(store, nil).Create()
	require.NoError(t, uow.Begin(ctx))

	entries := uow.EntryRepository()
	require.NoError(t, entries.Append(ctx, &entities.Entry{RoundNumber: 1, Position: 0, Player: alice, Amount: big.NewInt(10)}))
	require.NoError(t, entries.Append(ctx, &entities.Entry{RoundNumber: 1, Position: 1, Player: bob, Amount: big.NewInt(10)}))
	assert.Error(t, entries.Append(ctx, &entities.Entry{RoundNumber: 1, Position: 5, Player: bob, Amount: big.NewInt(10)}))

	listed, err := entries.ListByRound(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, alice, listed[0].Player)
	assert.Equal(t, bob, listed[1].Player)

	requests := uow.RandomnessRequestRepository()
	params := entities.RandomnessRequestParams{NumWords: entities.NumWords, Confirmations: entities.RequestConfirmations}
	first := entities.NewRandomnessRequest(big.NewInt(7), 1, params, time.Now())
	require.NoError(t, requests.Create(ctx, first))
	assert.Error(t, requests.Create(ctx, entities.NewRandomnessRequest(big.NewInt(8), 1, params, time.Now())))

	pending, err := requests.GetPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, int64(7), pending.RequestID.Int64())

	pending.Fulfill(big.NewInt(5), time.Now())
	require.NoError(t, requests.MarkFulfilled(ctx, pending))

	pending, err = requests.GetPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, pending)

	require.NoError(t, entries.DeleteByRound(ctx, 1))
	listed, err = entries.ListByRound(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, uow.Commit())
	assert.Nil(t, store.PendingRequest())
}

func TestAccountRepository_Credit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()
	uow := NewUnitOfWorkFactory(store, nil).Create()
	require.NoError(t, uow.Begin(ctx))

	accounts := uow.AccountRepository()
	require.NoError(t, accounts.Credit(ctx, alice, big.NewInt(30)))
	require.NoError(t, accounts.Credit(ctx, alice, big.NewInt(12)))

	require.NoError(t, accounts.Upsert(ctx, &entities.Account{Address: bob, Balance: big.NewInt(0), AcceptsPayments: false}))
	err := accounts.Credit(ctx, bob, big.NewInt(1))
	assert.ErrorIs(t, err, entities.ErrTransferRejected)

	assert.Error(t, accounts.Credit(ctx, alice, big.NewInt(0)))

	require.NoError(t, uow.Commit())

	account := store.Account(alice)
	require.NotNil(t, account)
	assert.Equal(t, "42", account.Balance.String())
	assert.True(t, account.AcceptsPayments)
	assert.Equal(t, "0", store.Account(bob).Balance.String())
}

func TestWinnerRepository_ListRecentNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	uow := NewUnitOfWorkFactory(NewStore(), nil).Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	winners := uow.WinnerRepository()
	latest, err := winners.GetLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for round := int64(1); round <= 3; round++ {
		require.NoError(t, winners.Create(ctx, &entities.WinnerRecord{RoundNumber: round, Winner: alice, Amount: big.NewInt(round)}))
	}

	recent, err := winners.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].RoundNumber)
	assert.Equal(t, int64(2), recent[1].RoundNumber)

	latest, err = winners.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.RoundNumber)
}
