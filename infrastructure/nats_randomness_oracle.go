package infrastructure

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

const (
	SubjectRandomnessRequested = "oracle.randomness.requested"
	SubjectRandomnessFulfilled = "oracle.randomness.fulfilled"

	// OracleStream holds both directions of the oracle protocol
	OracleStream = "oracle_randomness"
)

// RandomnessRequestMessage is published for the external oracle to fulfill
type RandomnessRequestMessage struct {
	RequestID        *math.HexOrDecimal256 `json:"requestId"`
	KeyHash          common.Hash           `json:"keyHash"`
	SubscriptionID   uint64                `json:"subscriptionId"`
	Confirmations    uint16                `json:"requestConfirmations"`
	CallbackGasLimit uint32                `json:"callbackGasLimit"`
	NumWords         uint32                `json:"numWords"`
	Nonce            uint64                `json:"nonce"`
}

// RandomnessFulfillmentMessage is the oracle callback
type RandomnessFulfillmentMessage struct {
	RequestID   *math.HexOrDecimal256   `json:"requestId"`
	RandomWords []*math.HexOrDecimal256 `json:"randomWords"`
}

// Words converts the delivered words to big integers
func (m *RandomnessFulfillmentMessage) Words() []*big.Int {
	words := make([]*big.Int, 0, len(m.RandomWords))
	for _, w := range m.RandomWords {
		if w == nil {
			continue
		}
		words = append(words, (*big.Int)(w))
	}
	return words
}

// DecodeFulfillment parses an oracle callback payload
func DecodeFulfillment(data []byte) (*RandomnessFulfillmentMessage, error) {
	var msg RandomnessFulfillmentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fulfillment: %w", err)
	}
	if msg.RequestID == nil {
		return nil, fmt.Errorf("fulfillment has no request id")
	}
	return &msg, nil
}

// ComputeRequestID derives a request id from the request parameters and a nonce
func ComputeRequestID(keyHash common.Hash, subscriptionID, nonce uint64) *big.Int {
	var sub, n [8]byte
	binary.BigEndian.PutUint64(sub[:], subscriptionID)
	binary.BigEndian.PutUint64(n[:], nonce)
	return new(big.Int).SetBytes(crypto.Keccak256(keyHash.Bytes(), sub[:], n[:]))
}

// NATSRandomnessOracle requests randomness from an external oracle over NATS.
// The oracle answers on SubjectRandomnessFulfilled.
type NATSRandomnessOracle struct {
	natsClient messagePublisher
	nonce      atomic.Uint64
}

// NewNATSRandomnessOracle creates a new NATS randomness oracle
func NewNATSRandomnessOracle(natsClient messagePublisher) *NATSRandomnessOracle {
	o := &NATSRandomnessOracle{natsClient: natsClient}
	// Seeded from the clock so ids do not repeat across restarts
	o.nonce.Store(uint64(time.Now().UnixNano()))
	return o
}

// RequestRandomWords publishes a randomness request and returns its id
func (o *NATSRandomnessOracle) RequestRandomWords(ctx context.Context, params entities.RandomnessRequestParams) (*big.Int, error) {
	nonce := o.nonce.Add(1)
	requestID := ComputeRequestID(params.KeyHash, params.SubscriptionID, nonce)

	msg := RandomnessRequestMessage{
		RequestID:        (*math.HexOrDecimal256)(requestID),
		KeyHash:          params.KeyHash,
		SubscriptionID:   params.SubscriptionID,
		Confirmations:    params.Confirmations,
		CallbackGasLimit: params.CallbackGasLimit,
		NumWords:         params.NumWords,
		Nonce:            nonce,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal randomness request: %w", err)
	}

	if err := o.natsClient.Publish(ctx, SubjectRandomnessRequested, data); err != nil {
		return nil, fmt.Errorf("failed to publish randomness request: %w", err)
	}

	log.WithFields(log.Fields{
		"requestId":      requestID.String(),
		"subscriptionId": params.SubscriptionID,
		"numWords":       params.NumWords,
	}).Info("Requested random words")

	return requestID, nil
}

// EnsureOracleStream ensures the oracle request and fulfillment stream exists
func (o *NATSRandomnessOracle) EnsureOracleStream() error {
	return o.natsClient.EnsureStream(OracleStream, "Verifiable randomness requests and fulfillments",
		[]string{SubjectRandomnessRequested, SubjectRandomnessFulfilled})
}
