package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/testhelpers"
	"raffle/repository/memstore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	// 0.01 ether
	testFee      = big.NewInt(10000000000000000)
	testInterval = 30 * time.Second
	testKeyHash  = common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c")

	player1 = common.HexToAddress("0x1000000000000000000000000000000000000001")
	player2 = common.HexToAddress("0x2000000000000000000000000000000000000002")
	player3 = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialOracle hands out request ids 1, 2, 3...
type sequentialOracle struct {
	mu       sync.Mutex
	next     int64
	requests []entities.RandomnessRequestParams
}

func (o *sequentialOracle) RequestRandomWords(ctx context.Context, params entities.RandomnessRequestParams) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.requests = append(o.requests, params)
	return big.NewInt(o.next), nil
}

func (o *sequentialOracle) lastID() *big.Int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return big.NewInt(o.next)
}

// failingCommitFactory wraps a factory and fails commits while failCommits is set
type failingCommitFactory struct {
	inner       interfaces.UnitOfWorkFactory
	mu          sync.Mutex
	failCommits bool
}

func (f *failingCommitFactory) setFailCommits(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCommits = fail
}

func (f *failingCommitFactory) Create() interfaces.UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &failingCommitUnitOfWork{UnitOfWork: f.inner.Create(), fail: f.failCommits}
}

type failingCommitUnitOfWork struct {
	interfaces.UnitOfWork
	fail bool
}

var errCommitFailed = errors.New("commit failed")

func (u *failingCommitUnitOfWork) Commit() error {
	if u.fail {
		_ = u.UnitOfWork.Rollback()
		return errCommitFailed
	}
	return u.UnitOfWork.Commit()
}

type engineFixture struct {
	engine    interfaces.LotteryEngine
	store     *memstore.Store
	factory   *failingCommitFactory
	publisher *testhelpers.RecordingEventPublisher
	clock     *fakeClock
	oracle    interfaces.RandomnessOracle
}

type fixtureOption func(*EngineConfig)

func withPayout(factory interfaces.PayoutExecutorFactory) fixtureOption {
	return func(cfg *EngineConfig) { cfg.PayoutFactory = factory }
}

func newEngineFixture(t require.TestingT, oracle interfaces.RandomnessOracle, opts ...fixtureOption) *engineFixture {
	if oracle == nil {
		oracle = &sequentialOracle{}
	}

	store := memstore.NewStore()
	publisher := &testhelpers.RecordingEventPublisher{}
	factory := &failingCommitFactory{inner: memstore.NewUnitOfWorkFactory(store, publisher)}
	clock := newFakeClock()

	cfg := EngineConfig{
		EntranceFee:      testFee,
		Interval:         testInterval,
		KeyHash:          testKeyHash,
		SubscriptionID:   42,
		CallbackGasLimit: 500000,
		Now:              clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	engine := NewLotteryEngine(cfg, factory, oracle)
	require.NoError(t, engine.Restore(context.Background()))

	return &engineFixture{
		engine:    engine,
		store:     store,
		factory:   factory,
		publisher: publisher,
		clock:     clock,
		oracle:    oracle,
	}
}

// enterAll enters every player with the entrance fee
func (f *engineFixture) enterAll(t require.TestingT, players ...common.Address) {
	for _, p := range players {
		_, err := f.engine.Enter(context.Background(), p, testFee)
		require.NoError(t, err)
	}
}

// startDraw makes the round ready and triggers the draw
func (f *engineFixture) startDraw(t require.TestingT) *big.Int {
	f.clock.Advance(testInterval + time.Second)
	requestID, err := f.engine.PerformUpkeep(context.Background(), nil)
	require.NoError(t, err)
	return requestID
}

// freeze marks an account as refusing payments
func (f *engineFixture) freeze(t require.TestingT, address common.Address, frozen bool) {
	ctx := context.Background()
	uow := memstore.NewUnitOfWorkFactory(f.store, nil).Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByAddress(ctx, address)
	require.NoError(t, err)
	if account == nil {
		account = &entities.Account{Address: address, Balance: new(big.Int)}
	}
	account.AcceptsPayments = !frozen
	require.NoError(t, uow.AccountRepository().Upsert(ctx, account))
	require.NoError(t, uow.Commit())
}

func fees(n int64) *big.Int {
	return new(big.Int).Mul(testFee, big.NewInt(n))
}
