package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// RandomnessRequestRepository implements oracle request storage
type RandomnessRequestRepository struct {
	q Queryable
}

func newRandomnessRequestRepositoryWithTx(tx Queryable) interfaces.RandomnessRequestRepository {
	return &RandomnessRequestRepository{q: tx}
}

// Create stores an outstanding request. The partial unique index rejects a
// second pending request.
func (r *RandomnessRequestRepository) Create(ctx context.Context, request *entities.RandomnessRequest) error {
	query := `
		INSERT INTO randomness_requests (
			request_id, round_number, key_hash, subscription_id,
			confirmations, callback_gas_limit, num_words, requested_at
		)
		VALUES ($1::numeric, $2, $3, $4::numeric, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		numericArg(request.RequestID),
		request.RoundNumber,
		request.KeyHash.Hex(),
		strconv.FormatUint(request.SubscriptionID, 10),
		int32(request.Confirmations),
		int64(request.CallbackGasLimit),
		int64(request.NumWords),
		request.RequestedAt,
	).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("failed to create randomness request %s: %w", request.RequestID, err)
	}

	return nil
}

// GetPending returns the unfulfilled request, if any
func (r *RandomnessRequestRepository) GetPending(ctx context.Context) (*entities.RandomnessRequest, error) {
	query := `
		SELECT id, request_id::text, round_number, key_hash, subscription_id::text,
			confirmations, callback_gas_limit, num_words, requested_at,
			random_word::text, fulfilled_at
		FROM randomness_requests
		WHERE fulfilled_at IS NULL
	`

	var (
		request        entities.RandomnessRequest
		requestID      string
		keyHash        string
		subscriptionID string
		confirmations  int32
		gasLimit       int64
		numWords       int64
		randomWord     *string
		fulfilledAt    *time.Time
	)
	err := r.q.QueryRow(ctx, query).Scan(
		&request.ID,
		&requestID,
		&request.RoundNumber,
		&keyHash,
		&subscriptionID,
		&confirmations,
		&gasLimit,
		&numWords,
		&request.RequestedAt,
		&randomWord,
		&fulfilledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending randomness request: %w", err)
	}

	if request.RequestID, err = parseNumeric("request_id", requestID); err != nil {
		return nil, err
	}
	if request.SubscriptionID, err = strconv.ParseUint(subscriptionID, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid subscription_id %q: %w", subscriptionID, err)
	}
	if request.RandomWord, err = parseNullableNumeric("random_word", randomWord); err != nil {
		return nil, err
	}
	request.KeyHash = common.HexToHash(keyHash)
	request.Confirmations = uint16(confirmations)
	request.CallbackGasLimit = uint32(gasLimit)
	request.NumWords = uint32(numWords)
	request.FulfilledAt = fulfilledAt

	return &request, nil
}

// MarkFulfilled records the consumed word. Only a pending request can be fulfilled.
func (r *RandomnessRequestRepository) MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error {
	if !request.IsFulfilled() {
		return fmt.Errorf("randomness request %s has no fulfillment", request.RequestID)
	}

	query := `
		UPDATE randomness_requests
		SET random_word = $1::numeric, fulfilled_at = $2
		WHERE request_id = $3::numeric AND fulfilled_at IS NULL
	`

	result, err := r.q.Exec(ctx, query,
		numericArg(request.RandomWord),
		*request.FulfilledAt,
		numericArg(request.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to mark randomness request %s fulfilled: %w", request.RequestID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending randomness request %s not found", request.RequestID)
	}

	return nil
}
