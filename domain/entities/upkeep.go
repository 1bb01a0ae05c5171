package entities

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// UpkeepDiagnostic reports each draw-readiness condition separately so a
// rejected trigger can explain which one was unmet.
type UpkeepDiagnostic struct {
	State           RoundState    `json:"state"`
	Elapsed         time.Duration `json:"elapsed"`
	Interval        time.Duration `json:"interval"`
	PlayerCount     int           `json:"playerCount"`
	PooledFunds     *big.Int      `json:"pooledFunds"`
	IsOpen          bool          `json:"isOpen"`
	IntervalElapsed bool          `json:"intervalElapsed"`
	HasPlayers      bool          `json:"hasPlayers"`
	HasBalance      bool          `json:"hasBalance"`
}

// Ready returns true when every condition holds
func (d UpkeepDiagnostic) Ready() bool {
	return d.IsOpen && d.IntervalElapsed && d.HasPlayers && d.HasBalance
}

// UnmetConditions lists the names of the conditions that do not hold
func (d UpkeepDiagnostic) UnmetConditions() []string {
	var unmet []string
	if !d.IsOpen {
		unmet = append(unmet, "round_not_open")
	}
	if !d.IntervalElapsed {
		unmet = append(unmet, "interval_not_elapsed")
	}
	if !d.HasPlayers {
		unmet = append(unmet, "no_players")
	}
	if !d.HasBalance {
		unmet = append(unmet, "no_balance")
	}
	return unmet
}

// Encode serializes the diagnostic into the opaque upkeep payload
func (d UpkeepDiagnostic) Encode() []byte {
	data, err := json.Marshal(d)
	if err != nil {
		// Every field is a plain value or *big.Int, both always marshal
		return nil
	}
	return data
}

// String formats the diagnostic for logs and error messages
func (d UpkeepDiagnostic) String() string {
	funds := "0"
	if d.PooledFunds != nil {
		funds = d.PooledFunds.String()
	}
	unmet := strings.Join(d.UnmetConditions(), ",")
	if unmet == "" {
		unmet = "none"
	}
	return fmt.Sprintf("state=%s players=%d pooled=%s elapsed=%s interval=%s unmet=%s",
		d.State, d.PlayerCount, funds, d.Elapsed, d.Interval, unmet)
}

// DecodeUpkeepDiagnostic parses a payload produced by Encode
func DecodeUpkeepDiagnostic(data []byte) (UpkeepDiagnostic, error) {
	var d UpkeepDiagnostic
	if err := json.Unmarshal(data, &d); err != nil {
		return UpkeepDiagnostic{}, fmt.Errorf("failed to decode upkeep diagnostic: %w", err)
	}
	return d, nil
}
