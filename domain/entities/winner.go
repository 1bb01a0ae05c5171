package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WinnerRecord represents the outcome of a completed draw
type WinnerRecord struct {
	ID          int64          `db:"id"`
	RoundNumber int64          `db:"round_number"`
	Winner      common.Address `db:"winner"`
	Amount      *big.Int       `db:"amount"`
	RequestID   *big.Int       `db:"request_id"`
	RandomWord  *big.Int       `db:"random_word"`
	WinnerIndex int            `db:"winner_index"`
	PlayerCount int            `db:"player_count"`
	SelectedAt  time.Time      `db:"selected_at"`
}

// Clone returns a deep copy of the record
func (w *WinnerRecord) Clone() *WinnerRecord {
	c := *w
	c.Amount = cloneBig(w.Amount)
	c.RequestID = cloneBig(w.RequestID)
	c.RandomWord = cloneBig(w.RandomWord)
	return &c
}
