package application

import (
	"context"
	"math/big"
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/services"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"
	"raffle/repository/memstore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entranceFee = big.NewInt(10_000_000_000_000_000)

func TestLotteryFlow_LocalOracle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mp, reader := newTestMetrics(t)
	bus := infrastructure.NewLocalEventBus()
	RegisterMetricsSubscriptions(bus, mp)

	store := memstore.NewStore()
	oracle := infrastructure.NewLocalRandomnessOracle(time.Millisecond)
	t.Cleanup(oracle.Stop)

	clock := newTestClock()
	engine := services.NewLotteryEngine(services.EngineConfig{
		EntranceFee: entranceFee,
		Interval:    30 * time.Second,
		Now:         clock.Now,
	}, memstore.NewUnitOfWorkFactory(store, bus), oracle)
	require.NoError(t, engine.Restore(ctx))

	handler := NewRandomnessFulfillmentHandler(engine, mp)
	oracle.SetReceiver(handler)
	worker := NewUpkeepWorker(engine, time.Second, mp)

	for _, p := range []struct {
		addr   common.Address
		amount int64
	}{{player1, 1}, {player2, 1}, {player3, 2}} {
		_, err := engine.Enter(ctx, p.addr, new(big.Int).Mul(entranceFee, big.NewInt(p.amount)))
		require.NoError(t, err)
	}

	id, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Nil(t, id, "interval has not elapsed")

	clock.Advance(31 * time.Second)
	id, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	require.NotNil(t, id)

	require.Eventually(t, func() bool {
		return engine.RoundState() == entities.RoundStateOpen && engine.PlayerCount() == 0
	}, 5*time.Second, 5*time.Millisecond)

	winner, ok := engine.RecentWinner()
	require.True(t, ok)
	assert.Contains(t, []string{player1.Hex(), player2.Hex(), player3.Hex()}, winner.Hex())
	assert.Equal(t, "40000000000000000", store.Account(winner).Balance.String())
	assert.Equal(t, "0", engine.PooledFunds().String())

	bus.Wait()
	assert.Equal(t, int64(3), counterValue(t, reader, observability.EntriesAcceptedTotal))
	assert.Equal(t, int64(1), counterValue(t, reader, observability.DrawsRequestedTotal))
	assert.Equal(t, int64(1), counterValue(t, reader, observability.WinnersSelectedTotal))
	assert.Equal(t, int64(0), counterValue(t, reader, observability.CurrentPlayers))
	require.Eventually(t, func() bool {
		return labeledCounterValue(t, reader, observability.FulfillmentsReceivedTotal,
			observability.LabelResult, observability.FulfillmentResultApplied) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLotteryFlow_RestartKeepsRequestIDsUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.NewStore()
	clock := newTestClock()

	// runRound simulates one process lifetime over the shared store
	runRound := func(player common.Address) *big.Int {
		oracle := infrastructure.NewLocalRandomnessOracle(0)
		defer oracle.Stop()

		engine := services.NewLotteryEngine(services.EngineConfig{
			EntranceFee: entranceFee,
			Interval:    30 * time.Second,
			Now:         clock.Now,
		}, memstore.NewUnitOfWorkFactory(store, nil), oracle)
		require.NoError(t, engine.Restore(ctx))
		oracle.SetReceiver(engine)

		_, err := engine.Enter(ctx, player, entranceFee)
		require.NoError(t, err)

		clock.Advance(31 * time.Second)
		requestID, err := engine.PerformUpkeep(ctx, nil)
		require.NoError(t, err, "draw after restart must not reuse a stored request id")

		require.Eventually(t, func() bool {
			return engine.RoundState() == entities.RoundStateOpen && engine.PlayerCount() == 0
		}, 5*time.Second, 5*time.Millisecond)
		return requestID
	}

	first := runRound(player1)
	second := runRound(player2)
	assert.NotEqual(t, 0, first.Cmp(second))

	winners := store.Winners()
	require.Len(t, winners, 2)
	assert.Equal(t, entranceFee.String(), store.Account(player1).Balance.String())
	assert.Equal(t, entranceFee.String(), store.Account(player2).Balance.String())
}
