// Package memstore keeps lottery state in process memory. Units of work are
// serialized and each one edits a private copy of the state that replaces
// the committed copy on Commit.
package memstore

import (
	"sync"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

type snapshot struct {
	round    *entities.Round
	entries  map[int64][]*entities.Entry
	requests []*entities.RandomnessRequest
	winners  []*entities.WinnerRecord
	accounts map[common.Address]*entities.Account
	nextID   int64
}

func newSnapshot() *snapshot {
	return &snapshot{
		entries:  make(map[int64][]*entities.Entry),
		accounts: make(map[common.Address]*entities.Account),
	}
}

func (s *snapshot) clone() *snapshot {
	c := newSnapshot()
	c.nextID = s.nextID
	if s.round != nil {
		c.round = s.round.Clone()
	}
	for number, entries := range s.entries {
		copied := make([]*entities.Entry, len(entries))
		for i, e := range entries {
			copied[i] = e.Clone()
		}
		c.entries[number] = copied
	}
	c.requests = make([]*entities.RandomnessRequest, len(s.requests))
	for i, r := range s.requests {
		c.requests[i] = r.Clone()
	}
	c.winners = make([]*entities.WinnerRecord, len(s.winners))
	for i, w := range s.winners {
		c.winners[i] = w.Clone()
	}
	for addr, a := range s.accounts {
		c.accounts[addr] = a.Clone()
	}
	return c
}

func (s *snapshot) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *snapshot) pending() *entities.RandomnessRequest {
	for _, r := range s.requests {
		if !r.IsFulfilled() {
			return r
		}
	}
	return nil
}

// Store holds the committed lottery state
type Store struct {
	txLock sync.Mutex // held for the lifetime of a unit of work

	mu        sync.RWMutex
	committed *snapshot
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{committed: newSnapshot()}
}

func (s *Store) read() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

func (s *Store) replace(next *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = next
}

// Round returns a copy of the committed round, or nil
func (s *Store) Round() *entities.Round {
	snap := s.read()
	if snap.round == nil {
		return nil
	}
	return snap.round.Clone()
}

// Entries returns copies of the committed entries of a round
func (s *Store) Entries(roundNumber int64) []*entities.Entry {
	snap := s.read()
	out := make([]*entities.Entry, 0, len(snap.entries[roundNumber]))
	for _, e := range snap.entries[roundNumber] {
		out = append(out, e.Clone())
	}
	return out
}

// PendingRequest returns a copy of the committed outstanding request, or nil
func (s *Store) PendingRequest() *entities.RandomnessRequest {
	if r := s.read().pending(); r != nil {
		return r.Clone()
	}
	return nil
}

// Winners returns copies of every committed winner, oldest first
func (s *Store) Winners() []*entities.WinnerRecord {
	snap := s.read()
	out := make([]*entities.WinnerRecord, 0, len(snap.winners))
	for _, w := range snap.winners {
		out = append(out, w.Clone())
	}
	return out
}

// Account returns a copy of a committed account, or nil
func (s *Store) Account(address common.Address) *entities.Account {
	if a, ok := s.read().accounts[address]; ok {
		return a.Clone()
	}
	return nil
}
