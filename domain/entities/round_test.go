package entities

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound_Transitions(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	round := NewRound(big.NewInt(100), time.Minute, start)

	assert.Equal(t, int64(1), round.Number)
	assert.True(t, round.IsOpen())
	assert.False(t, round.HasFunds())

	funded := round.WithDeposit(big.NewInt(150), start.Add(time.Second))
	assert.Equal(t, "150", funded.PooledFunds.String())
	assert.Equal(t, "0", round.PooledFunds.String(), "original must not change")

	drawing := funded.BeginDraw(start.Add(2 * time.Second))
	assert.True(t, drawing.IsDrawing())
	assert.True(t, funded.IsOpen())

	reopenedAt := start.Add(3 * time.Minute)
	reopened := drawing.Reopen(reopenedAt)
	assert.Equal(t, int64(2), reopened.Number)
	assert.True(t, reopened.IsOpen())
	assert.Equal(t, reopenedAt, reopened.OpenedAt)
	assert.Equal(t, "0", reopened.PooledFunds.String())
	assert.Equal(t, "100", reopened.EntranceFee.String())
	assert.Equal(t, "150", drawing.PooledFunds.String())
}

func TestRound_IntervalElapsedIsStrict(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	round := NewRound(big.NewInt(1), 30*time.Second, start)

	assert.False(t, round.IntervalElapsed(start.Add(29*time.Second)))
	assert.False(t, round.IntervalElapsed(start.Add(30*time.Second)))
	assert.True(t, round.IntervalElapsed(start.Add(30*time.Second+time.Nanosecond)))
}

func TestRoundState_IsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, RoundStateOpen.IsValid())
	assert.True(t, RoundStateDrawing.IsValid())
	assert.False(t, RoundState("calculating").IsValid())
}
