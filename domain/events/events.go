package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeEntryAccepted  EventType = "entry_accepted"
	EventTypeDrawRequested  EventType = "draw_requested"
	EventTypeWinnerSelected EventType = "winner_selected"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// EntryAcceptedEvent is emitted when a player joins the open round
type EntryAcceptedEvent struct {
	RoundNumber int64          `json:"roundNumber"`
	Player      common.Address `json:"player"`
	Amount      *big.Int       `json:"amount"`
	Position    int            `json:"position"`
}

func (e EntryAcceptedEvent) Type() EventType {
	return EventTypeEntryAccepted
}

// DrawRequestedEvent is emitted when the round locks and randomness is requested
type DrawRequestedEvent struct {
	RoundNumber int64    `json:"roundNumber"`
	RequestID   *big.Int `json:"requestId"`
}

func (e DrawRequestedEvent) Type() EventType {
	return EventTypeDrawRequested
}

// WinnerSelectedEvent is emitted once the winner has been paid and the round reopened
type WinnerSelectedEvent struct {
	RoundNumber int64          `json:"roundNumber"`
	Winner      common.Address `json:"winner"`
	Amount      *big.Int       `json:"amount"`
	PlayerCount int            `json:"playerCount"`
}

func (e WinnerSelectedEvent) Type() EventType {
	return EventTypeWinnerSelected
}
