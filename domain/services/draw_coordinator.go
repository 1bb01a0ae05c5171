package services

import (
	"context"
	"fmt"
	"math/big"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

func (e *lotteryEngine) requestParams() entities.RandomnessRequestParams {
	return entities.RandomnessRequestParams{
		KeyHash:          e.cfg.KeyHash,
		SubscriptionID:   e.cfg.SubscriptionID,
		Confirmations:    entities.RequestConfirmations,
		CallbackGasLimit: e.cfg.CallbackGasLimit,
		NumWords:         entities.NumWords,
	}
}

// PerformUpkeep locks the round and requests randomness. performData is only
// logged; readiness is always recomputed from current state.
func (e *lotteryEngine) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureRestored(); err != nil {
		return nil, err
	}

	diagnostic := e.clock.isDrawReady(e.round, e.ledger.count())
	if !diagnostic.Ready() {
		fields := log.Fields{
			"round": e.round.Number,
			"unmet": diagnostic.UnmetConditions(),
		}
		if len(performData) > 0 {
			if claimed, err := entities.DecodeUpkeepDiagnostic(performData); err == nil {
				fields["claimedReady"] = claimed.Ready()
			}
		}
		log.WithFields(fields).Debug("Rejected upkeep, draw conditions not met")
		return nil, &entities.UpkeepNotReadyError{Diagnostic: diagnostic}
	}

	now := e.cfg.Now()
	params := e.requestParams()
	locked := e.round.BeginDraw(now)

	var request *entities.RandomnessRequest
	err := e.runInTransaction(ctx, func(uow interfaces.UnitOfWork) error {
		if err := e.lockPersistedRound(ctx, uow); err != nil {
			return err
		}
		if err := uow.RoundRepository().Update(ctx, locked); err != nil {
			return fmt.Errorf("failed to lock round for drawing: %w", err)
		}

		requestID, err := e.oracle.RequestRandomWords(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to request random words: %w", err)
		}
		if requestID == nil {
			return fmt.Errorf("randomness oracle returned no request id")
		}

		request = entities.NewRandomnessRequest(requestID, locked.Number, params, now)
		if err := uow.RandomnessRequestRepository().Create(ctx, request); err != nil {
			return fmt.Errorf("failed to store randomness request: %w", err)
		}

		return uow.EventBus().Publish(events.DrawRequestedEvent{
			RoundNumber: locked.Number,
			RequestID:   new(big.Int).Set(requestID),
		})
	})
	if err != nil {
		log.WithError(err).WithField("round", e.round.Number).Error("Failed to start draw")
		return nil, err
	}

	e.round = locked
	e.pending = request

	log.WithFields(log.Fields{
		"round":     locked.Number,
		"requestId": request.RequestID.String(),
		"players":   e.ledger.count(),
		"pooled":    locked.PooledFunds.String(),
	}).Info("Draw requested")

	return new(big.Int).Set(request.RequestID), nil
}

// selectWinnerIndex maps a random word onto the entry sequence
func selectWinnerIndex(word *big.Int, playerCount int) int {
	idx := new(big.Int).Mod(word, big.NewInt(int64(playerCount)))
	return int(idx.Int64())
}

// FulfillRandomWords resolves the outstanding draw. The payout, ledger reset
// and reopen commit together; any failure leaves the round drawing.
func (e *lotteryEngine) FulfillRandomWords(ctx context.Context, requestID *big.Int, words []*big.Int) (*interfaces.DrawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureRestored(); err != nil {
		return nil, err
	}

	if e.pending == nil || !e.pending.Matches(requestID) {
		log.WithFields(log.Fields{
			"requestId": requestID,
			"round":     e.round.Number,
			"state":     e.round.State,
		}).Warn("Ignoring fulfillment for unknown request")
		return nil, fmt.Errorf("%w: %v", entities.ErrUnknownRequest, requestID)
	}

	if len(words) == 0 || words[0] == nil {
		return nil, entities.ErrEmptyRandomWords
	}

	playerCount := e.ledger.count()
	if playerCount == 0 {
		log.WithField("round", e.round.Number).Error("Draw resolved with an empty ledger")
		return nil, entities.ErrNoPlayers
	}

	word := new(big.Int).Set(words[0])
	winnerIndex := selectWinnerIndex(word, playerCount)
	winnerEntry, err := e.ledger.at(winnerIndex)
	if err != nil {
		return nil, err
	}

	now := e.cfg.Now()
	amount := new(big.Int).Set(e.round.PooledFunds)
	reopened := e.round.Reopen(now)
	fulfilled := e.pending.Clone()
	fulfilled.Fulfill(word, now)

	record := &entities.WinnerRecord{
		RoundNumber: e.round.Number,
		Winner:      winnerEntry.Player,
		Amount:      new(big.Int).Set(amount),
		RequestID:   new(big.Int).Set(e.pending.RequestID),
		RandomWord:  new(big.Int).Set(word),
		WinnerIndex: winnerIndex,
		PlayerCount: playerCount,
		SelectedAt:  now,
	}

	err = e.runInTransaction(ctx, func(uow interfaces.UnitOfWork) error {
		if err := e.lockPersistedRound(ctx, uow); err != nil {
			return err
		}

		if err := e.payout(uow).Pay(ctx, winnerEntry.Player, amount); err != nil {
			return &entities.PayoutFailedError{
				Recipient: winnerEntry.Player,
				Amount:    new(big.Int).Set(amount),
				Err:       err,
			}
		}

		if err := uow.EntryRepository().DeleteByRound(ctx, e.round.Number); err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}
		if err := uow.RoundRepository().Update(ctx, reopened); err != nil {
			return fmt.Errorf("failed to reopen round: %w", err)
		}
		if err := uow.RandomnessRequestRepository().MarkFulfilled(ctx, fulfilled); err != nil {
			return fmt.Errorf("failed to mark request fulfilled: %w", err)
		}
		if err := uow.WinnerRepository().Create(ctx, record); err != nil {
			return fmt.Errorf("failed to record winner: %w", err)
		}

		return uow.EventBus().Publish(events.WinnerSelectedEvent{
			RoundNumber: record.RoundNumber,
			Winner:      record.Winner,
			Amount:      new(big.Int).Set(amount),
			PlayerCount: playerCount,
		})
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"round":     e.round.Number,
			"requestId": requestID.String(),
			"winner":    winnerEntry.Player.Hex(),
		}).Error("Failed to resolve draw")
		return nil, err
	}

	e.round = reopened
	e.ledger.clear()
	e.pending = nil
	e.winner = record

	log.WithFields(log.Fields{
		"round":       record.RoundNumber,
		"winner":      record.Winner.Hex(),
		"winnerIndex": winnerIndex,
		"players":     playerCount,
		"amount":      amount.String(),
	}).Info("Winner selected")

	return &interfaces.DrawResult{
		RoundNumber: record.RoundNumber,
		RequestID:   new(big.Int).Set(record.RequestID),
		RandomWord:  new(big.Int).Set(word),
		WinnerIndex: winnerIndex,
		PlayerCount: playerCount,
		Winner:      record.Winner,
		Amount:      new(big.Int).Set(amount),
		NextRound:   reopened.Number,
	}, nil
}
