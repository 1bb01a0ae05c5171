package entities

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpkeepDiagnostic_EncodeDecode(t *testing.T) {
	t.Parallel()

	d := UpkeepDiagnostic{
		State:           RoundStateOpen,
		Elapsed:         45 * time.Second,
		Interval:        30 * time.Second,
		PlayerCount:     3,
		PooledFunds:     big.NewInt(30000000000000000),
		IsOpen:          true,
		IntervalElapsed: true,
		HasPlayers:      true,
		HasBalance:      true,
	}

	decoded, err := DecodeUpkeepDiagnostic(d.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.Ready())
	assert.Equal(t, d.PlayerCount, decoded.PlayerCount)
	assert.Equal(t, d.PooledFunds.String(), decoded.PooledFunds.String())
	assert.Equal(t, d.Elapsed, decoded.Elapsed)

	_, err = DecodeUpkeepDiagnostic([]byte("not json"))
	assert.Error(t, err)
}

func TestUpkeepDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := UpkeepDiagnostic{State: RoundStateDrawing, PooledFunds: big.NewInt(5), HasPlayers: true, HasBalance: true, IntervalElapsed: true}
	assert.Contains(t, d.String(), "unmet=round_not_open")

	d.IsOpen = true
	d.State = RoundStateOpen
	assert.Contains(t, d.String(), "unmet=none")
}

func TestErrors_Matching(t *testing.T) {
	t.Parallel()

	notReady := fmt.Errorf("trigger: %w", &UpkeepNotReadyError{Diagnostic: UpkeepDiagnostic{State: RoundStateOpen}})
	assert.ErrorIs(t, notReady, ErrUpkeepNotReady)
	assert.NotErrorIs(t, notReady, ErrRoundNotOpen)

	var diag *UpkeepNotReadyError
	require.True(t, errors.As(notReady, &diag))
	assert.Equal(t, RoundStateOpen, diag.Diagnostic.State)

	payout := &PayoutFailedError{
		Recipient: common.HexToAddress("0x01"),
		Amount:    big.NewInt(10),
		Err:       fmt.Errorf("%w: reverted", ErrTransferRejected),
	}
	assert.ErrorIs(t, payout, ErrPayoutFailed)
	assert.ErrorIs(t, payout, ErrTransferRejected)
	assert.Contains(t, payout.Error(), "reverted")
}

func TestRandomnessRequest_Fulfill(t *testing.T) {
	t.Parallel()

	now := time.Now()
	req := NewRandomnessRequest(big.NewInt(7), 1, RandomnessRequestParams{NumWords: NumWords}, now)
	assert.False(t, req.IsFulfilled())
	assert.True(t, req.Matches(big.NewInt(7)))
	assert.False(t, req.Matches(big.NewInt(8)))
	assert.False(t, req.Matches(nil))

	clone := req.Clone()
	clone.Fulfill(big.NewInt(5), now)
	assert.True(t, clone.IsFulfilled())
	assert.False(t, req.IsFulfilled())
	assert.Equal(t, "5", clone.RandomWord.String())
}
