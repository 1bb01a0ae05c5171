package handlers

import (
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// Amounts are rendered as decimal strings since they routinely exceed 2^53

// EnterRequest is the body of POST /entries
type EnterRequest struct {
	Player string `json:"player" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// UpkeepRequest is the body of POST /upkeep
type UpkeepRequest struct {
	PerformData hexutil.Bytes `json:"performData"`
}

// FulfillmentRequest is the body of POST /oracle/fulfillments
type FulfillmentRequest struct {
	RequestID   *math.HexOrDecimal256   `json:"requestId" binding:"required"`
	RandomWords []*math.HexOrDecimal256 `json:"randomWords"`
}

// AccountPreferenceRequest is the body of PUT /accounts/:address
type AccountPreferenceRequest struct {
	AcceptsPayments *bool `json:"acceptsPayments" binding:"required"`
}

// EntryResponse describes an accepted entry
type EntryResponse struct {
	Round     int64     `json:"round"`
	Position  int       `json:"position"`
	Player    string    `json:"player"`
	Amount    string    `json:"amount"`
	EnteredAt time.Time `json:"enteredAt"`
}

// StatusResponse is the read-only lottery state
type StatusResponse struct {
	Round                int64   `json:"round"`
	State                string  `json:"state"`
	EntranceFee          string  `json:"entranceFee"`
	PooledFunds          string  `json:"pooledFunds"`
	PlayerCount          int     `json:"playerCount"`
	LastTimestamp        int64   `json:"lastTimestamp"`
	IntervalSeconds      int64   `json:"interval"`
	RecentWinner         *string `json:"recentWinner"`
	PendingRequestID     *string `json:"pendingRequestId,omitempty"`
	NumWords             uint32  `json:"numWords"`
	RequestConfirmations uint16  `json:"requestConfirmations"`
}

// UpkeepResponse is the result of an upkeep check
type UpkeepResponse struct {
	UpkeepNeeded bool                `json:"upkeepNeeded"`
	PerformData  hexutil.Bytes       `json:"performData"`
	Diagnostic   *DiagnosticResponse `json:"diagnostic,omitempty"`
}

// DiagnosticResponse explains draw readiness condition by condition
type DiagnosticResponse struct {
	State           string   `json:"state"`
	ElapsedSeconds  int64    `json:"elapsedSeconds"`
	IntervalSeconds int64    `json:"intervalSeconds"`
	PlayerCount     int      `json:"playerCount"`
	PooledFunds     string   `json:"pooledFunds"`
	Unmet           []string `json:"unmet"`
}

// DrawResponse describes a completed draw
type DrawResponse struct {
	Round       int64  `json:"round"`
	RequestID   string `json:"requestId"`
	RandomWord  string `json:"randomWord"`
	WinnerIndex int    `json:"winnerIndex"`
	PlayerCount int    `json:"playerCount"`
	Winner      string `json:"winner"`
	Amount      string `json:"amount"`
	NextRound   int64  `json:"nextRound"`
}

// WinnerResponse is one entry of the draw history
type WinnerResponse struct {
	Round       int64     `json:"round"`
	Winner      string    `json:"winner"`
	Amount      string    `json:"amount"`
	RequestID   string    `json:"requestId"`
	RandomWord  string    `json:"randomWord"`
	WinnerIndex int       `json:"winnerIndex"`
	PlayerCount int       `json:"playerCount"`
	SelectedAt  time.Time `json:"selectedAt"`
}

// AccountResponse is a payout ledger account
type AccountResponse struct {
	Address         string `json:"address"`
	Balance         string `json:"balance"`
	AcceptsPayments bool   `json:"acceptsPayments"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error      string              `json:"error"`
	Message    string              `json:"message"`
	Diagnostic *DiagnosticResponse `json:"diagnostic,omitempty"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func toEntryResponse(e *entities.Entry) EntryResponse {
	return EntryResponse{
		Round:     e.RoundNumber,
		Position:  e.Position,
		Player:    e.Player.Hex(),
		Amount:    amountString(e.Amount),
		EnteredAt: e.EnteredAt,
	}
}

func toStatusResponse(s interfaces.LotteryStatus) StatusResponse {
	resp := StatusResponse{
		Round:                s.RoundNumber,
		State:                string(s.State),
		EntranceFee:          amountString(s.EntranceFee),
		PooledFunds:          amountString(s.PooledFunds),
		PlayerCount:          s.PlayerCount,
		LastTimestamp:        s.LastTimestamp.Unix(),
		IntervalSeconds:      int64(s.Interval / time.Second),
		NumWords:             s.NumWords,
		RequestConfirmations: s.RequestConfirmations,
	}
	if s.RecentWinner != nil {
		winner := s.RecentWinner.Hex()
		resp.RecentWinner = &winner
	}
	if s.PendingRequestID != nil {
		id := s.PendingRequestID.String()
		resp.PendingRequestID = &id
	}
	return resp
}

func toDiagnosticResponse(d entities.UpkeepDiagnostic) *DiagnosticResponse {
	unmet := d.UnmetConditions()
	if unmet == nil {
		unmet = []string{}
	}
	return &DiagnosticResponse{
		State:           string(d.State),
		ElapsedSeconds:  int64(d.Elapsed / time.Second),
		IntervalSeconds: int64(d.Interval / time.Second),
		PlayerCount:     d.PlayerCount,
		PooledFunds:     amountString(d.PooledFunds),
		Unmet:           unmet,
	}
}

func toDrawResponse(r *interfaces.DrawResult) DrawResponse {
	return DrawResponse{
		Round:       r.RoundNumber,
		RequestID:   amountString(r.RequestID),
		RandomWord:  amountString(r.RandomWord),
		WinnerIndex: r.WinnerIndex,
		PlayerCount: r.PlayerCount,
		Winner:      r.Winner.Hex(),
		Amount:      amountString(r.Amount),
		NextRound:   r.NextRound,
	}
}

func toWinnerResponse(w *entities.WinnerRecord) WinnerResponse {
	return WinnerResponse{
		Round:       w.RoundNumber,
		Winner:      w.Winner.Hex(),
		Amount:      amountString(w.Amount),
		RequestID:   amountString(w.RequestID),
		RandomWord:  amountString(w.RandomWord),
		WinnerIndex: w.WinnerIndex,
		PlayerCount: w.PlayerCount,
		SelectedAt:  w.SelectedAt,
	}
}

func toAccountResponse(a *entities.Account) AccountResponse {
	return AccountResponse{
		Address:         a.Address.Hex(),
		Balance:         amountString(a.Balance),
		AcceptsPayments: a.AcceptsPayments,
	}
}

func toWords(raw []*math.HexOrDecimal256) []*big.Int {
	words := make([]*big.Int, 0, len(raw))
	for _, w := range raw {
		if w != nil {
			words = append(words, (*big.Int)(w))
		}
	}
	return words
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
