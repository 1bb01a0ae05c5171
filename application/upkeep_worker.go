package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// UpkeepWorker plays the automation network: it polls CheckUpkeep and
// triggers PerformUpkeep once the round is ready to draw
type UpkeepWorker struct {
	engine   interfaces.LotteryEngine
	interval time.Duration
	metrics  *observability.MetricsProvider
}

// NewUpkeepWorker creates a new upkeep worker. metrics may be nil.
func NewUpkeepWorker(engine interfaces.LotteryEngine, interval time.Duration, metrics *observability.MetricsProvider) *UpkeepWorker {
	return &UpkeepWorker{
		engine:   engine,
		interval: interval,
		metrics:  metrics,
	}
}

// Start begins polling. The returned function stops the worker and waits for it to exit.
func (w *UpkeepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithField("interval", w.interval).Info("Upkeep worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			if _, err := w.RunOnce(ctx); err != nil {
				log.WithError(err).Error("Upkeep failed")
			}

			select {
			case <-ctx.Done():
				log.Info("Upkeep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Upkeep worker shutting down (stop requested)...")
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		wg.Wait()
	}
}

// RunOnce performs a single check-and-trigger cycle. It returns the request id
// when a draw was started and nil when the round was not ready.
func (w *UpkeepWorker) RunOnce(ctx context.Context) (*big.Int, error) {
	ready, performData := w.engine.CheckUpkeep(ctx)
	w.metrics.RecordUpkeepCheck(ready)
	if !ready {
		return nil, nil
	}

	requestID, err := w.engine.PerformUpkeep(ctx, performData)
	if err != nil {
		// Another trigger can win the race between check and perform
		var notReady *entities.UpkeepNotReadyError
		if errors.As(err, &notReady) {
			log.WithField("unmet", notReady.Diagnostic.UnmetConditions()).Debug("Upkeep no longer needed")
			return nil, nil
		}
		return nil, err
	}

	log.WithField("requestId", requestID.String()).Info("Upkeep triggered draw")
	return requestID, nil
}
