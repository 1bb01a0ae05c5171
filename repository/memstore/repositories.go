package memstore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

type roundRepository struct {
	snap *snapshot
}

func (r *roundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	if r.snap.round == nil {
		return nil, nil
	}
	return r.snap.round.Clone(), nil
}

func (r *roundRepository) GetCurrentForUpdate(ctx context.Context) (*entities.Round, error) {
	// Units of work are already serialized by the store
	return r.GetCurrent(ctx)
}

func (r *roundRepository) Create(ctx context.Context, round *entities.Round) error {
	if r.snap.round != nil {
		return errors.New("round already exists")
	}
	round.ID = r.snap.newID()
	r.snap.round = round.Clone()
	return nil
}

func (r *roundRepository) Update(ctx context.Context, round *entities.Round) error {
	if r.snap.round == nil {
		return errors.New("round not found")
	}
	updated := round.Clone()
	updated.ID = r.snap.round.ID
	r.snap.round = updated
	return nil
}

type entryRepository struct {
	snap *snapshot
}

func (r *entryRepository) Append(ctx context.Context, entry *entities.Entry) error {
	existing := r.snap.entries[entry.RoundNumber]
	if entry.Position != len(existing) {
		return fmt.Errorf("entry position %d does not extend round %d of %d entries",
			entry.Position, entry.RoundNumber, len(existing))
	}
	entry.ID = r.snap.newID()
	r.snap.entries[entry.RoundNumber] = append(existing, entry.Clone())
	return nil
}

func (r *entryRepository) ListByRound(ctx context.Context, roundNumber int64) ([]*entities.Entry, error) {
	entries := r.snap.entries[roundNumber]
	out := make([]*entities.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (r *entryRepository) DeleteByRound(ctx context.Context, roundNumber int64) error {
	delete(r.snap.entries, roundNumber)
	return nil
}

type randomnessRequestRepository struct {
	snap *snapshot
}

func (r *randomnessRequestRepository) Create(ctx context.Context, request *entities.RandomnessRequest) error {
	if r.snap.pending() != nil {
		return errors.New("a randomness request is already outstanding")
	}
	for _, existing := range r.snap.requests {
		if existing.Matches(request.RequestID) {
			return fmt.Errorf("randomness request %s already exists", request.RequestID)
		}
	}
	request.ID = r.snap.newID()
	r.snap.requests = append(r.snap.requests, request.Clone())
	return nil
}

func (r *randomnessRequestRepository) GetPending(ctx context.Context) (*entities.RandomnessRequest, error) {
	if p := r.snap.pending(); p != nil {
		return p.Clone(), nil
	}
	return nil, nil
}

func (r *randomnessRequestRepository) MarkFulfilled(ctx context.Context, request *entities.RandomnessRequest) error {
	if !request.IsFulfilled() {
		return errors.New("request has not been fulfilled")
	}
	for i, existing := range r.snap.requests {
		if existing.Matches(request.RequestID) {
			updated := request.Clone()
			updated.ID = existing.ID
			r.snap.requests[i] = updated
			return nil
		}
	}
	return fmt.Errorf("randomness request %s not found", request.RequestID)
}

type winnerRepository struct {
	snap *snapshot
}

func (r *winnerRepository) Create(ctx context.Context, winner *entities.WinnerRecord) error {
	winner.ID = r.snap.newID()
	r.snap.winners = append(r.snap.winners, winner.Clone())
	return nil
}

func (r *winnerRepository) GetLatest(ctx context.Context) (*entities.WinnerRecord, error) {
	if len(r.snap.winners) == 0 {
		return nil, nil
	}
	return r.snap.winners[len(r.snap.winners)-1].Clone(), nil
}

func (r *winnerRepository) ListRecent(ctx context.Context, limit int) ([]*entities.WinnerRecord, error) {
	out := make([]*entities.WinnerRecord, 0, limit)
	for i := len(r.snap.winners) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.snap.winners[i].Clone())
	}
	return out, nil
}

type accountRepository struct {
	snap *snapshot
}

func (r *accountRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.Account, error) {
	if a, ok := r.snap.accounts[address]; ok {
		return a.Clone(), nil
	}
	return nil, nil
}

func (r *accountRepository) Upsert(ctx context.Context, account *entities.Account) error {
	now := time.Now().UTC()
	stored := account.Clone()
	if existing, ok := r.snap.accounts[account.Address]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.snap.accounts[account.Address] = stored

	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *accountRepository) Credit(ctx context.Context, address common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}

	now := time.Now().UTC()
	account, ok := r.snap.accounts[address]
	if !ok {
		account = &entities.Account{
			Address:         address,
			Balance:         new(big.Int),
			AcceptsPayments: true,
			CreatedAt:       now,
		}
		r.snap.accounts[address] = account
	}
	if !account.AcceptsPayments {
		return fmt.Errorf("%w: account %s does not accept payments", entities.ErrTransferRejected, address.Hex())
	}

	account.Balance = new(big.Int).Add(account.Balance, amount)
	account.UpdatedAt = now
	return nil
}
