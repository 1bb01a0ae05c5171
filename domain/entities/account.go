package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a payout ledger account
type Account struct {
	Address         common.Address `db:"address"`
	Balance         *big.Int       `db:"balance"`
	AcceptsPayments bool           `db:"accepts_payments"` // false models a recipient that reverts on receive
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	c := *a
	c.Balance = cloneBig(a.Balance)
	return &c
}
