package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var propertyPlayers = []common.Address{player1, player2, player3}

// lotteryModel mirrors what the engine should hold
type lotteryModel struct {
	entries  []common.Address
	pool     *big.Int
	drawing  bool
	pending  *big.Int
	balances map[common.Address]*big.Int
	frozen   map[common.Address]bool
}

func newLotteryModel() *lotteryModel {
	return &lotteryModel{
		pool:     new(big.Int),
		balances: make(map[common.Address]*big.Int),
		frozen:   make(map[common.Address]bool),
	}
}

func (m *lotteryModel) balance(addr common.Address) *big.Int {
	if b, ok := m.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func checkInvariants(t *rapid.T, f *engineFixture, m *lotteryModel) {
	status := f.engine.Status()

	// Pool equals the sum of accepted stakes of the round
	require.Equal(t, m.pool.String(), status.PooledFunds.String())
	require.Equal(t, len(m.entries), status.PlayerCount)

	stored := f.store.Round()
	require.Equal(t, status.PooledFunds.String(), stored.PooledFunds.String())
	require.Equal(t, status.State, stored.State)

	sum := new(big.Int)
	entries := f.store.Entries(stored.Number)
	require.Len(t, entries, len(m.entries))
	for i, e := range entries {
		require.Equal(t, i, e.Position)
		require.Equal(t, m.entries[i], e.Player)
		sum.Add(sum, e.Amount)
	}
	require.Equal(t, sum.String(), status.PooledFunds.String())

	// A pending request exists exactly while drawing
	if m.drawing {
		require.Equal(t, entities.RoundStateDrawing, status.State)
		require.NotNil(t, status.PendingRequestID)
		require.Equal(t, m.pending.String(), status.PendingRequestID.String())
		require.NotNil(t, f.store.PendingRequest())
	} else {
		require.Equal(t, entities.RoundStateOpen, status.State)
		require.Nil(t, status.PendingRequestID)
		require.Nil(t, f.store.PendingRequest())
	}

	for _, p := range propertyPlayers {
		got := new(big.Int)
		if account := f.store.Account(p); account != nil {
			got = account.Balance
		}
		require.Equal(t, m.balance(p).String(), got.String(), "balance of %s", p.Hex())
	}
}

func TestLotteryEngine_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		f := newEngineFixture(rt, nil)
		m := newLotteryModel()

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0: // enter
				player := propertyPlayers[rapid.IntRange(0, len(propertyPlayers)-1).Draw(rt, "player")]
				delta := rapid.Int64Range(-1, 3).Draw(rt, "delta")
				paid := new(big.Int).Add(testFee, big.NewInt(delta))

				_, err := f.engine.Enter(ctx, player, paid)
				switch {
				case delta < 0:
					require.ErrorIs(rt, err, entities.ErrInsufficientStake)
				case m.drawing:
					require.ErrorIs(rt, err, entities.ErrRoundNotOpen)
				default:
					require.NoError(rt, err)
					m.entries = append(m.entries, player)
					m.pool.Add(m.pool, paid)
				}

			case 1: // time passes
				f.clock.Advance(time.Duration(rapid.IntRange(0, 40).Draw(rt, "seconds")) * time.Second)

			case 2: // trigger
				ready, _ := f.engine.CheckUpkeep(ctx)
				requestID, err := f.engine.PerformUpkeep(ctx, nil)
				if ready {
					require.NoError(rt, err)
					m.drawing = true
					m.pending = requestID
				} else {
					require.ErrorIs(rt, err, entities.ErrUpkeepNotReady)
				}

			case 3: // oracle callback
				word := new(big.Int).SetUint64(rapid.Uint64().Draw(rt, "word"))
				useStale := rapid.Bool().Draw(rt, "stale")

				requestID := big.NewInt(1000000)
				if m.pending != nil && !useStale {
					requestID = m.pending
				}

				result, err := f.engine.FulfillRandomWords(ctx, requestID, []*big.Int{word})
				if m.pending == nil || useStale {
					require.ErrorIs(rt, err, entities.ErrUnknownRequest)
					break
				}

				idx := int(new(big.Int).Mod(word, big.NewInt(int64(len(m.entries)))).Int64())
				winner := m.entries[idx]
				if m.frozen[winner] {
					require.ErrorIs(rt, err, entities.ErrPayoutFailed)
					break
				}

				require.NoError(rt, err)
				require.Equal(rt, winner, result.Winner)
				require.Equal(rt, idx, result.WinnerIndex)
				require.Equal(rt, m.pool.String(), result.Amount.String())

				m.balances[winner] = new(big.Int).Add(m.balance(winner), m.pool)
				m.entries = nil
				m.pool = new(big.Int)
				m.drawing = false
				m.pending = nil

				recent, ok := f.engine.RecentWinner()
				require.True(rt, ok)
				require.Equal(rt, winner, recent)

			case 4: // a player changes whether they accept payments
				player := propertyPlayers[rapid.IntRange(0, len(propertyPlayers)-1).Draw(rt, "freezePlayer")]
				frozen := rapid.Bool().Draw(rt, "frozen")
				f.freeze(rt, player, frozen)
				m.frozen[player] = frozen
				if _, ok := m.balances[player]; !ok {
					m.balances[player] = new(big.Int)
				}
			}

			checkInvariants(rt, f, m)
		}
	})
}

// Every word maps to a valid index and the mapping is word mod N
func TestSelectWinnerIndex_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		players := rapid.IntRange(1, 1000).Draw(rt, "players")
		raw := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(rt, "word")
		word := new(big.Int).SetBytes(raw)

		idx := selectWinnerIndex(word, players)
		require.GreaterOrEqual(rt, idx, 0)
		require.Less(rt, idx, players)

		expected := new(big.Int).Mod(word, big.NewInt(int64(players)))
		require.Equal(rt, expected.Int64(), int64(idx))
	})
}

func TestLedgerPayoutExecutor_RecoversPanics(t *testing.T) {
	t.Parallel()

	executor := &ledgerPayoutExecutor{accounts: panickingAccounts{}}
	err := executor.Pay(context.Background(), player1, big.NewInt(1))
	assert.True(t, errors.Is(err, entities.ErrTransferRejected))

	err = executor.Pay(context.Background(), player1, big.NewInt(0))
	assert.ErrorIs(t, err, entities.ErrTransferRejected)
}

type panickingAccounts struct{}

func (panickingAccounts) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	return nil, nil
}

func (panickingAccounts) Upsert(ctx context.Context, account *entities.Account) error {
	return nil
}

func (panickingAccounts) Credit(ctx context.Context, address common.Address, amount *big.Int) error {
	panic("recipient reverted")
}
