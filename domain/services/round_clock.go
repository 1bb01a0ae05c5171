package services

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"

	log "github.com/sirupsen/logrus"
)

type roundClock struct {
	now func() time.Time
}

func newRoundClock(now func() time.Time) *roundClock {
	return &roundClock{now: now}
}

// isDrawReady evaluates the four draw conditions against the current time
func (c *roundClock) isDrawReady(round *entities.Round, playerCount int) entities.UpkeepDiagnostic {
	now := c.now()
	return entities.UpkeepDiagnostic{
		State:           round.State,
		Elapsed:         round.Elapsed(now),
		Interval:        round.Interval,
		PlayerCount:     playerCount,
		PooledFunds:     new(big.Int).Set(round.PooledFunds),
		IsOpen:          round.IsOpen(),
		IntervalElapsed: round.IntervalElapsed(now),
		HasPlayers:      playerCount > 0,
		HasBalance:      round.HasFunds(),
	}
}

// DrawReadiness returns the readiness diagnostic for the live round
func (e *lotteryEngine) DrawReadiness() entities.UpkeepDiagnostic {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.round == nil {
		return entities.UpkeepDiagnostic{State: entities.RoundStateOpen, PooledFunds: new(big.Int)}
	}
	return e.clock.isDrawReady(e.round, e.ledger.count())
}

// CheckUpkeep is a pure query; the payload is advisory and PerformUpkeep
// re-evaluates readiness on its own.
func (e *lotteryEngine) CheckUpkeep(ctx context.Context) (bool, []byte) {
	diagnostic := e.DrawReadiness()

	log.WithFields(log.Fields{
		"ready":   diagnostic.Ready(),
		"state":   diagnostic.State,
		"players": diagnostic.PlayerCount,
		"unmet":   diagnostic.UnmetConditions(),
	}).Trace("Checked upkeep")

	return diagnostic.Ready(), diagnostic.Encode()
}
