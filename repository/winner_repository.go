package repository

import (
	"context"
	"errors"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// WinnerRepository implements draw history storage
type WinnerRepository struct {
	q Queryable
}

func newWinnerRepositoryWithTx(tx Queryable) interfaces.WinnerRepository {
	return &WinnerRepository{q: tx}
}

const winnerColumns = `id, round_number, winner, amount::text, request_id::text, random_word::text, winner_index, player_count, selected_at`

// Create stores a winner record
func (r *WinnerRepository) Create(ctx context.Context, winner *entities.WinnerRecord) error {
	query := `
		INSERT INTO winners (round_number, winner, amount, request_id, random_word, winner_index, player_count, selected_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		winner.RoundNumber,
		winner.Winner.Hex(),
		numericArg(winner.Amount),
		numericArg(winner.RequestID),
		numericArg(winner.RandomWord),
		winner.WinnerIndex,
		winner.PlayerCount,
		winner.SelectedAt,
	).Scan(&winner.ID)
	if err != nil {
		return fmt.Errorf("failed to create winner for round %d: %w", winner.RoundNumber, err)
	}

	return nil
}

// GetLatest returns the most recent winner
func (r *WinnerRepository) GetLatest(ctx context.Context) (*entities.WinnerRecord, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners ORDER BY round_number DESC LIMIT 1`

	winner, err := scanWinner(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest winner: %w", err)
	}
	return winner, nil
}

// ListRecent returns up to limit winners, newest first
func (r *WinnerRepository) ListRecent(ctx context.Context, limit int) ([]*entities.WinnerRecord, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners ORDER BY round_number DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent winners: %w", err)
	}
	defer rows.Close()

	winners := make([]*entities.WinnerRecord, 0)
	for rows.Next() {
		winner, err := scanWinner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, winner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winners: %w", err)
	}

	return winners, nil
}

func scanWinner(row pgx.Row) (*entities.WinnerRecord, error) {
	var (
		winner     entities.WinnerRecord
		address    string
		amount     string
		requestID  string
		randomWord string
	)
	err := row.Scan(
		&winner.ID,
		&winner.RoundNumber,
		&address,
		&amount,
		&requestID,
		&randomWord,
		&winner.WinnerIndex,
		&winner.PlayerCount,
		&winner.SelectedAt,
	)
	if err != nil {
		return nil, err
	}

	winner.Winner = common.HexToAddress(address)
	if winner.Amount, err = parseNumeric("amount", amount); err != nil {
		return nil, err
	}
	if winner.RequestID, err = parseNumeric("request_id", requestID); err != nil {
		return nil, err
	}
	if winner.RandomWord, err = parseNumeric("random_word", randomWord); err != nil {
		return nil, err
	}
	return &winner, nil
}
