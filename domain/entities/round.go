package entities

import (
	"math/big"
	"time"
)

// RoundState represents the lifecycle state of the live round
type RoundState string

const (
	RoundStateOpen    RoundState = "open"
	RoundStateDrawing RoundState = "drawing"
)

// IsValid returns true if the state is a known round state
func (s RoundState) IsValid() bool {
	return s == RoundStateOpen || s == RoundStateDrawing
}

// Round is the single live lottery round. It is reset, never destroyed.
type Round struct {
	ID          int64         `db:"id"`
	Number      int64         `db:"number"`       // Incremented every time the round reopens
	State       RoundState    `db:"state"`
	OpenedAt    time.Time     `db:"opened_at"`
	Interval    time.Duration `db:"interval_seconds"`
	EntranceFee *big.Int      `db:"entrance_fee"` // Captured at initialization
	PooledFunds *big.Int      `db:"pooled_funds"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// NewRound creates the first round of a lottery
func NewRound(entranceFee *big.Int, interval time.Duration, now time.Time) *Round {
	return &Round{
		Number:      1,
		State:       RoundStateOpen,
		OpenedAt:    now,
		Interval:    interval,
		EntranceFee: new(big.Int).Set(entranceFee),
		PooledFunds: new(big.Int),
		UpdatedAt:   now,
	}
}

// IsOpen returns true if the round accepts entries
func (r *Round) IsOpen() bool {
	return r.State == RoundStateOpen
}

// IsDrawing returns true if a draw is in flight
func (r *Round) IsDrawing() bool {
	return r.State == RoundStateDrawing
}

// Elapsed returns how long the round has been open at the given time
func (r *Round) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.OpenedAt)
}

// IntervalElapsed reports whether strictly more than the interval has passed
func (r *Round) IntervalElapsed(now time.Time) bool {
	return r.Elapsed(now) > r.Interval
}

// HasFunds returns true if the pool holds a positive balance
func (r *Round) HasFunds() bool {
	return r.PooledFunds != nil && r.PooledFunds.Sign() > 0
}

// Clone returns a deep copy of the round
func (r *Round) Clone() *Round {
	c := *r
	c.EntranceFee = cloneBig(r.EntranceFee)
	c.PooledFunds = cloneBig(r.PooledFunds)
	return &c
}

// WithDeposit returns a copy of the round with amount added to the pool
func (r *Round) WithDeposit(amount *big.Int, now time.Time) *Round {
	c := r.Clone()
	c.PooledFunds.Add(c.PooledFunds, amount)
	c.UpdatedAt = now
	return c
}

// BeginDraw returns a copy of the round locked for drawing
func (r *Round) BeginDraw(now time.Time) *Round {
	c := r.Clone()
	c.State = RoundStateDrawing
	c.UpdatedAt = now
	return c
}

// Reopen returns a copy of the round reset for the next cycle with an empty pool
func (r *Round) Reopen(now time.Time) *Round {
	c := r.Clone()
	c.Number++
	c.State = RoundStateOpen
	c.OpenedAt = now
	c.PooledFunds = new(big.Int)
	c.UpdatedAt = now
	return c
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
