package testhelpers

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockLotteryEngine is a mock implementation of LotteryEngine
type MockLotteryEngine struct {
	mock.Mock
}

func (m *MockLotteryEngine) Restore(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLotteryEngine) Enter(ctx context.Context, caller common.Address, paidAmount *big.Int) (*entities.Entry, error) {
	args := m.Called(ctx, caller, paidAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Entry), args.Error(1)
}

func (m *MockLotteryEngine) CheckUpkeep(ctx context.Context) (bool, []byte) {
	args := m.Called(ctx)
	if args.Get(1) == nil {
		return args.Bool(0), nil
	}
	return args.Bool(0), args.Get(1).([]byte)
}

func (m *MockLotteryEngine) DrawReadiness() entities.UpkeepDiagnostic {
	args := m.Called()
	return args.Get(0).(entities.UpkeepDiagnostic)
}

func (m *MockLotteryEngine) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error) {
	args := m.Called(ctx, performData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockLotteryEngine) FulfillRandomWords(ctx context.Context, requestID *big.Int, words []*big.Int) (*interfaces.DrawResult, error) {
	args := m.Called(ctx, requestID, words)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DrawResult), args.Error(1)
}

func (m *MockLotteryEngine) EntranceFee() *big.Int {
	args := m.Called()
	return args.Get(0).(*big.Int)
}

func (m *MockLotteryEngine) PlayerAt(index int) (common.Address, error) {
	args := m.Called(index)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockLotteryEngine) PlayerCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockLotteryEngine) RecentWinner() (common.Address, bool) {
	args := m.Called()
	return args.Get(0).(common.Address), args.Bool(1)
}

func (m *MockLotteryEngine) RoundState() entities.RoundState {
	args := m.Called()
	return args.Get(0).(entities.RoundState)
}

func (m *MockLotteryEngine) LastTimestamp() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockLotteryEngine) Interval() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockLotteryEngine) PooledFunds() *big.Int {
	args := m.Called()
	return args.Get(0).(*big.Int)
}

func (m *MockLotteryEngine) NumWords() uint32 {
	args := m.Called()
	return args.Get(0).(uint32)
}

func (m *MockLotteryEngine) RequestConfirmations() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}

func (m *MockLotteryEngine) Status() interfaces.LotteryStatus {
	args := m.Called()
	return args.Get(0).(interfaces.LotteryStatus)
}

func (m *MockLotteryEngine) RecentWinners(ctx context.Context, limit int) ([]*entities.WinnerRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WinnerRecord), args.Error(1)
}

var _ interfaces.LotteryEngine = (*MockLotteryEngine)(nil)
