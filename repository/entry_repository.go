package repository

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
)

// EntryRepository implements round entry storage
type EntryRepository struct {
	q Queryable
}

func newEntryRepositoryWithTx(tx Queryable) interfaces.EntryRepository {
	return &EntryRepository{q: tx}
}

// Append stores an entry only if it extends the round's sequence by exactly one
func (r *EntryRepository) Append(ctx context.Context, entry *entities.Entry) error {
	query := `
		INSERT INTO entries (round_number, position, player, amount, entered_at)
		SELECT $1::bigint, $2::integer, $3::char(42), $4::numeric, $5::timestamptz
		WHERE $2::bigint = (SELECT COUNT(*) FROM entries WHERE round_number = $1::bigint)
		RETURNING id
	`

	rows, err := r.q.Query(ctx, query,
		entry.RoundNumber,
		entry.Position,
		entry.Player.Hex(),
		numericArg(entry.Amount),
		entry.EnteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append entry for round %d: %w", entry.RoundNumber, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to append entry for round %d: %w", entry.RoundNumber, err)
		}
		return fmt.Errorf("entry position %d does not extend round %d", entry.Position, entry.RoundNumber)
	}
	if err := rows.Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to scan entry id: %w", err)
	}

	return rows.Err()
}

// ListByRound returns entries in position order
func (r *EntryRepository) ListByRound(ctx context.Context, roundNumber int64) ([]*entities.Entry, error) {
	query := `
		SELECT id, round_number, position, player, amount::text, entered_at
		FROM entries
		WHERE round_number = $1
		ORDER BY position ASC
	`

	rows, err := r.q.Query(ctx, query, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for round %d: %w", roundNumber, err)
	}
	defer rows.Close()

	entries := make([]*entities.Entry, 0)
	for rows.Next() {
		var (
			entry  entities.Entry
			player string
			amount string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.RoundNumber,
			&entry.Position,
			&player,
			&amount,
			&entry.EnteredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Player = common.HexToAddress(player)
		if entry.Amount, err = parseNumeric("amount", amount); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// DeleteByRound removes the round's entries
func (r *EntryRepository) DeleteByRound(ctx context.Context, roundNumber int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM entries WHERE round_number = $1`, roundNumber)
	if err != nil {
		return fmt.Errorf("failed to delete entries for round %d: %w", roundNumber, err)
	}
	return nil
}
