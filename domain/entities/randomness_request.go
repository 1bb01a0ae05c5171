package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// RequestConfirmations is the block confirmation depth asked of the oracle
	RequestConfirmations uint16 = 3

	// NumWords is the number of random words requested per draw
	NumWords uint32 = 1
)

// RandomnessRequestParams are the arguments sent to the randomness oracle
type RandomnessRequestParams struct {
	KeyHash          common.Hash
	SubscriptionID   uint64
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
}

// RandomnessRequest is an oracle request bound to the current round
type RandomnessRequest struct {
	ID               int64       `db:"id"`
	RequestID        *big.Int    `db:"request_id"`
	RoundNumber      int64       `db:"round_number"`
	KeyHash          common.Hash `db:"key_hash"`
	SubscriptionID   uint64      `db:"subscription_id"`
	Confirmations    uint16      `db:"confirmations"`
	CallbackGasLimit uint32      `db:"callback_gas_limit"`
	NumWords         uint32      `db:"num_words"`
	RequestedAt      time.Time   `db:"requested_at"`
	RandomWord       *big.Int    `db:"random_word"`  // NULL until fulfilled
	FulfilledAt      *time.Time  `db:"fulfilled_at"` // NULL until fulfilled
}

// NewRandomnessRequest binds an oracle request id to a round
func NewRandomnessRequest(requestID *big.Int, roundNumber int64, params RandomnessRequestParams, now time.Time) *RandomnessRequest {
	return &RandomnessRequest{
		RequestID:        new(big.Int).Set(requestID),
		RoundNumber:      roundNumber,
		KeyHash:          params.KeyHash,
		SubscriptionID:   params.SubscriptionID,
		Confirmations:    params.Confirmations,
		CallbackGasLimit: params.CallbackGasLimit,
		NumWords:         params.NumWords,
		RequestedAt:      now,
	}
}

// IsFulfilled returns true once the oracle has delivered randomness
func (r *RandomnessRequest) IsFulfilled() bool {
	return r.FulfilledAt != nil
}

// Matches reports whether id identifies this request
func (r *RandomnessRequest) Matches(id *big.Int) bool {
	return id != nil && r.RequestID != nil && r.RequestID.Cmp(id) == 0
}

// Fulfill marks the request consumed with the word that was used
func (r *RandomnessRequest) Fulfill(word *big.Int, now time.Time) {
	r.RandomWord = new(big.Int).Set(word)
	r.FulfilledAt = &now
}

// Clone returns a deep copy of the request
func (r *RandomnessRequest) Clone() *RandomnessRequest {
	c := *r
	c.RequestID = cloneBig(r.RequestID)
	if r.RandomWord != nil {
		c.RandomWord = new(big.Int).Set(r.RandomWord)
	}
	if r.FulfilledAt != nil {
		t := *r.FulfilledAt
		c.FulfilledAt = &t
	}
	return &c
}
