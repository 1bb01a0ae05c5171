package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/testhelpers"
	"raffle/infrastructure/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRandomnessFulfillmentHandler_HandleMessage(t *testing.T) {
	t.Parallel()

	words := []*big.Int{big.NewInt(5)}
	applied := &interfaces.DrawResult{RoundNumber: 1, Winner: player3, WinnerIndex: 2, PlayerCount: 3, Amount: big.NewInt(30)}
	payoutErr := &entities.PayoutFailedError{Recipient: player3, Amount: big.NewInt(30), Err: entities.ErrTransferRejected}

	tests := []struct {
		name           string
		payload        string
		result         *interfaces.DrawResult
		fulfillErr     error
		expectCall     bool
		expectNak      bool
		expectResult   string
		expectFailures int64
	}{
		{
			name:         "applied",
			payload:      `{"requestId":"7","randomWords":["5"]}`,
			result:       applied,
			expectCall:   true,
			expectResult: observability.FulfillmentResultApplied,
		},
		{
			name:         "hex request id",
			payload:      `{"requestId":"0x7","randomWords":["0x5"]}`,
			result:       applied,
			expectCall:   true,
			expectResult: observability.FulfillmentResultApplied,
		},
		{
			name:         "stale request is acknowledged",
			payload:      `{"requestId":"7","randomWords":["5"]}`,
			fulfillErr:   fmt.Errorf("%w: 7", entities.ErrUnknownRequest),
			expectCall:   true,
			expectResult: observability.FulfillmentResultStale,
		},
		{
			name:           "payout failure is redelivered",
			payload:        `{"requestId":"7","randomWords":["5"]}`,
			fulfillErr:     payoutErr,
			expectCall:     true,
			expectNak:      true,
			expectResult:   observability.FulfillmentResultFailed,
			expectFailures: 1,
		},
		{
			name:         "storage failure is redelivered",
			payload:      `{"requestId":"7","randomWords":["5"]}`,
			fulfillErr:   errors.New("connection reset"),
			expectCall:   true,
			expectNak:    true,
			expectResult: observability.FulfillmentResultFailed,
		},
		{
			name:    "malformed payload is dropped",
			payload: `{"requestId":`,
		},
		{
			name:    "missing request id is dropped",
			payload: `{"randomWords":["5"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := new(testhelpers.MockLotteryEngine)
			if tt.expectCall {
				receiver.On("FulfillRandomWords", mock.Anything, big.NewInt(7), words).Return(tt.result, tt.fulfillErr)
			}

			mp, reader := newTestMetrics(t)
			handler := NewRandomnessFulfillmentHandler(receiver, mp)

			err := handler.HandleMessage([]byte(tt.payload))
			if tt.expectNak {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tt.expectCall {
				receiver.AssertExpectations(t)
				assert.Equal(t, int64(1), counterValue(t, reader, observability.FulfillmentsReceivedTotal))
				assert.Equal(t, int64(1), labeledCounterValue(t, reader,
					observability.FulfillmentsReceivedTotal, observability.LabelResult, tt.expectResult))
			} else {
				receiver.AssertNotCalled(t, "FulfillRandomWords", mock.Anything, mock.Anything, mock.Anything)
				assert.Zero(t, counterValue(t, reader, observability.FulfillmentsReceivedTotal))
			}
			assert.Equal(t, tt.expectFailures, counterValue(t, reader, observability.PayoutFailuresTotal))
		})
	}
}

func TestRandomnessFulfillmentHandler_PassesResultThrough(t *testing.T) {
	t.Parallel()

	result := &interfaces.DrawResult{RoundNumber: 4, Winner: player1}
	receiver := new(testhelpers.MockLotteryEngine)
	receiver.On("FulfillRandomWords", mock.Anything, big.NewInt(9), mock.Anything).Return(result, nil)

	handler := NewRandomnessFulfillmentHandler(receiver, nil)
	got, err := handler.FulfillRandomWords(context.Background(), big.NewInt(9), []*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	assert.Same(t, result, got)
}
