package testhelpers

import (
	"context"
	"math/big"
	"sync"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetCurrentForUpdate(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) Create(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) Update(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Append(ctx context.Context, entry *entities.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) ListByRound(ctx context.Context, roundNumber int64) ([]*entities.Entry, error) {
	args := m.Called(ctx, roundNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Entry), args.Error(1)
}

func (m *MockEntryRepository) DeleteByRound(ctx context.Context, roundNumber int64) error {
	args := m.Called(ctx, roundNumber)
	return args.Error(0)
}

// MockRandomnessRequestRepository is a mock implementation of RandomnessRequestRepository
type MockRandomnessRequestRepository struct {
	mock.Mock
}

func (m *MockRandomnessRequestRepository) Create(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRandomnessRequestRepository) GetPending(ctx context.Context) (*entities.RandomnessRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RandomnessRequest), args.Error(1)
}

func (m *MockRandomnessRequestRepository) MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// MockWinnerRepository is a mock implementation of WinnerRepository
type MockWinnerRepository struct {
	mock.Mock
}

func (m *MockWinnerRepository) Create(ctx context.Context, winner *entities.WinnerRecord) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockWinnerRepository) GetLatest(ctx context.Context) (*entities.WinnerRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WinnerRecord), args.Error(1)
}

func (m *MockWinnerRepository) ListRecent(ctx context.Context, limit int) ([]*entities.WinnerRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WinnerRecord), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Upsert(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Credit(ctx context.Context, address common.Address, amount *big.Int) error {
	args := m.Called(ctx, address, amount)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// RecordingEventPublisher collects published events
type RecordingEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (p *RecordingEventPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the types of everything published so far, in order
func (p *RecordingEventPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

// MockRandomnessOracle is a mock implementation of RandomnessOracle
type MockRandomnessOracle struct {
	mock.Mock
}

func (m *MockRandomnessOracle) RequestRandomWords(ctx context.Context, params entities.RandomnessRequestParams) (*big.Int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

// MockPayoutExecutor is a mock implementation of PayoutExecutor
type MockPayoutExecutor struct {
	mock.Mock
}

func (m *MockPayoutExecutor) Pay(ctx context.Context, recipient common.Address, amount *big.Int) error {
	args := m.Called(ctx, recipient, amount)
	return args.Error(0)
}

// Factory returns a payout factory that always hands out m
func (m *MockPayoutExecutor) Factory() interfaces.PayoutExecutorFactory {
	return func(uow interfaces.UnitOfWork) interfaces.PayoutExecutor {
		return m
	}
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) RoundRepository() interfaces.RoundRepository {
	args := m.Called()
	return args.Get(0).(interfaces.RoundRepository)
}

func (m *MockUnitOfWork) EntryRepository() interfaces.EntryRepository {
	args := m.Called()
	return args.Get(0).(interfaces.EntryRepository)
}

func (m *MockUnitOfWork) RandomnessRequestRepository() interfaces.RandomnessRequestRepository {
	args := m.Called()
	return args.Get(0).(interfaces.RandomnessRequestRepository)
}

func (m *MockUnitOfWork) WinnerRepository() interfaces.WinnerRepository {
	args := m.Called()
	return args.Get(0).(interfaces.WinnerRepository)
}

func (m *MockUnitOfWork) AccountRepository() interfaces.AccountRepository {
	args := m.Called()
	return args.Get(0).(interfaces.AccountRepository)
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	args := m.Called()
	return args.Get(0).(interfaces.EventPublisher)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}
