package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is one accepted stake in the current round
type Entry struct {
	ID          int64          `db:"id"`
	RoundNumber int64          `db:"round_number"`
	Position    int            `db:"position"` // Index used by winner selection
	Player      common.Address `db:"player"`
	Amount      *big.Int       `db:"amount"`
	EnteredAt   time.Time      `db:"entered_at"`
}

// Clone returns a deep copy of the entry
func (e *Entry) Clone() *Entry {
	c := *e
	c.Amount = cloneBig(e.Amount)
	return &c
}
