package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/database"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// RoundRepository implements the live round storage
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

func newRoundRepositoryWithTx(tx Queryable) interfaces.RoundRepository {
	return &RoundRepository{q: tx}
}

const roundColumns = `id, number, state, opened_at, interval_seconds, entrance_fee::text, pooled_funds::text, updated_at`

// GetCurrent returns the live round
func (r *RoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	return r.get(ctx, `SELECT `+roundColumns+` FROM rounds WHERE singleton`)
}

// GetCurrentForUpdate returns the live round and holds its row lock
func (r *RoundRepository) GetCurrentForUpdate(ctx context.Context) (*entities.Round, error) {
	return r.get(ctx, `SELECT `+roundColumns+` FROM rounds WHERE singleton FOR UPDATE`)
}

func (r *RoundRepository) get(ctx context.Context, query string) (*entities.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	return round, nil
}

// Create inserts the first round
func (r *RoundRepository) Create(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (number, state, opened_at, interval_seconds, entrance_fee, pooled_funds, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		round.Number,
		string(round.State),
		round.OpenedAt,
		int64(round.Interval/time.Second),
		numericArg(round.EntranceFee),
		numericArg(round.PooledFunds),
		round.UpdatedAt,
	).Scan(&round.ID)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of the live round
func (r *RoundRepository) Update(ctx context.Context, round *entities.Round) error {
	query := `
		UPDATE rounds
		SET number = $1, state = $2, opened_at = $3, pooled_funds = $4::numeric, updated_at = $5
		WHERE singleton
	`

	result, err := r.q.Exec(ctx, query,
		round.Number,
		string(round.State),
		round.OpenedAt,
		numericArg(round.PooledFunds),
		round.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update round %d: %w", round.Number, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %d not found", round.Number)
	}

	return nil
}

func scanRound(row pgx.Row) (*entities.Round, error) {
	var (
		round           entities.Round
		state           string
		intervalSeconds int64
		entranceFee     string
		pooledFunds     string
	)
	err := row.Scan(
		&round.ID,
		&round.Number,
		&state,
		&round.OpenedAt,
		&intervalSeconds,
		&entranceFee,
		&pooledFunds,
		&round.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	round.State = entities.RoundState(state)
	round.Interval = time.Duration(intervalSeconds) * time.Second
	if round.EntranceFee, err = parseNumeric("entrance_fee", entranceFee); err != nil {
		return nil, err
	}
	if round.PooledFunds, err = parseNumeric("pooled_funds", pooledFunds); err != nil {
		return nil, err
	}
	return &round, nil
}
