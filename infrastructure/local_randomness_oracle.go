package infrastructure

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

var maxUint256 = new(big.Int).Lsh(big.NewInt(1), 256)

// LocalRandomnessOracle fulfills requests in-process after a fixed delay.
// It stands in for the external oracle in development.
type LocalRandomnessOracle struct {
	delay    time.Duration
	receiver interfaces.RandomnessReceiver

	mu     sync.Mutex
	nonce  uint64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalRandomnessOracle creates a new local oracle. SetReceiver must be
// called before the first request.
func NewLocalRandomnessOracle(delay time.Duration) *LocalRandomnessOracle {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalRandomnessOracle{
		delay:  delay,
		nonce:  randomNonce(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// randomNonce seeds request ids so a restarted process does not reissue ids
// already stored by an earlier one
func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint64(b[:])
}

// SetReceiver sets where fulfillments are delivered
func (o *LocalRandomnessOracle) SetReceiver(receiver interfaces.RandomnessReceiver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.receiver = receiver
}

// RequestRandomWords schedules a fulfillment and returns the request id
func (o *LocalRandomnessOracle) RequestRandomWords(ctx context.Context, params entities.RandomnessRequestParams) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.receiver == nil {
		return nil, fmt.Errorf("local oracle has no receiver")
	}
	if o.ctx.Err() != nil {
		return nil, fmt.Errorf("local oracle stopped")
	}

	words := make([]*big.Int, 0, params.NumWords)
	for i := uint32(0); i < params.NumWords; i++ {
		word, err := rand.Int(rand.Reader, maxUint256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random word: %w", err)
		}
		words = append(words, word)
	}

	o.nonce++
	requestID := ComputeRequestID(params.KeyHash, params.SubscriptionID, o.nonce)
	receiver := o.receiver

	o.wg.Add(1)
	go o.deliver(receiver, new(big.Int).Set(requestID), words)

	log.WithFields(log.Fields{
		"requestId": requestID.String(),
		"delay":     o.delay,
	}).Info("Scheduled local randomness fulfillment")

	return requestID, nil
}

func (o *LocalRandomnessOracle) deliver(receiver interfaces.RandomnessReceiver, requestID *big.Int, words []*big.Int) {
	defer o.wg.Done()

	select {
	case <-o.ctx.Done():
		return
	case <-time.After(o.delay):
	}

	if _, err := receiver.FulfillRandomWords(o.ctx, requestID, words); err != nil {
		log.WithError(err).WithField("requestId", requestID.String()).Warn("Local randomness fulfillment failed")
	}
}

// Stop cancels pending fulfillments and waits for in-flight ones
func (o *LocalRandomnessOracle) Stop() {
	o.cancel()
	o.wg.Wait()
}
