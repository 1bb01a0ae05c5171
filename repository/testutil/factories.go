package testutil

import (
	"math/big"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// TestEntranceFee is 0.01 ether in wei
var TestEntranceFee = big.NewInt(10_000_000_000_000_000)

// TestTime is a fixed, UTC, microsecond-aligned timestamp that survives a
// round trip through TIMESTAMPTZ
var TestTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// CreateTestRound creates an open first round with an empty pool
func CreateTestRound() *entities.Round {
	return entities.NewRound(TestEntranceFee, 30*time.Second, TestTime)
}

// CreateTestEntry creates an entry paying exactly the entrance fee
func CreateTestEntry(roundNumber int64, position int, player common.Address) *entities.Entry {
	return &entities.Entry{
		RoundNumber: roundNumber,
		Position:    position,
		Player:      player,
		Amount:      new(big.Int).Set(TestEntranceFee),
		EnteredAt:   TestTime.Add(time.Duration(position) * time.Second),
	}
}

// CreateTestRandomnessRequest creates a pending request for the round
func CreateTestRandomnessRequest(requestID int64, roundNumber int64) *entities.RandomnessRequest {
	return entities.NewRandomnessRequest(big.NewInt(requestID), roundNumber, entities.RandomnessRequestParams{
		KeyHash:          common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		SubscriptionID:   42,
		Confirmations:    entities.RequestConfirmations,
		CallbackGasLimit: 500_000,
		NumWords:         entities.NumWords,
	}, TestTime)
}

// CreateTestWinner creates a winner record for the round
func CreateTestWinner(roundNumber int64, winner common.Address, amount *big.Int) *entities.WinnerRecord {
	return &entities.WinnerRecord{
		RoundNumber: roundNumber,
		Winner:      winner,
		Amount:      new(big.Int).Set(amount),
		RequestID:   big.NewInt(roundNumber * 7),
		RandomWord:  big.NewInt(5),
		WinnerIndex: 2,
		PlayerCount: 3,
		SelectedAt:  TestTime.Add(time.Duration(roundNumber) * time.Minute),
	}
}
