package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const fulfillmentTimeout = 30 * time.Second

// RandomnessFulfillmentHandler delivers oracle callbacks to the lottery and
// records how each one was handled
type RandomnessFulfillmentHandler struct {
	receiver interfaces.RandomnessReceiver
	metrics  *observability.MetricsProvider
}

// NewRandomnessFulfillmentHandler creates a new fulfillment handler. metrics may be nil.
func NewRandomnessFulfillmentHandler(receiver interfaces.RandomnessReceiver, metrics *observability.MetricsProvider) *RandomnessFulfillmentHandler {
	return &RandomnessFulfillmentHandler{
		receiver: receiver,
		metrics:  metrics,
	}
}

// FulfillRandomWords implements interfaces.RandomnessReceiver
func (h *RandomnessFulfillmentHandler) FulfillRandomWords(ctx context.Context, requestID *big.Int, words []*big.Int) (*interfaces.DrawResult, error) {
	result, err := h.receiver.FulfillRandomWords(ctx, requestID, words)
	switch {
	case err == nil:
		h.metrics.RecordFulfillment(observability.FulfillmentResultApplied)
	case errors.Is(err, entities.ErrUnknownRequest):
		h.metrics.RecordFulfillment(observability.FulfillmentResultStale)
	case errors.Is(err, entities.ErrPayoutFailed):
		h.metrics.RecordFulfillment(observability.FulfillmentResultFailed)
		h.metrics.RecordPayoutFailure()
	default:
		h.metrics.RecordFulfillment(observability.FulfillmentResultFailed)
	}
	return result, err
}

// HandleMessage processes a fulfillment delivered over NATS. Returning an
// error NAKs the message so the broker redelivers it.
func (h *RandomnessFulfillmentHandler) HandleMessage(data []byte) error {
	msg, err := infrastructure.DecodeFulfillment(data)
	if err != nil {
		// Redelivery cannot fix a malformed payload
		log.WithError(err).Error("Dropping malformed randomness fulfillment")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), fulfillmentTimeout)
	defer cancel()

	requestID := (*big.Int)(msg.RequestID)
	result, err := h.FulfillRandomWords(ctx, requestID, msg.Words())
	if err != nil {
		if errors.Is(err, entities.ErrUnknownRequest) {
			return nil
		}
		return fmt.Errorf("failed to fulfill request %s: %w", requestID, err)
	}

	log.WithFields(log.Fields{
		"requestId": requestID.String(),
		"round":     result.RoundNumber,
		"winner":    result.Winner.Hex(),
	}).Info("Applied randomness fulfillment")

	return nil
}
