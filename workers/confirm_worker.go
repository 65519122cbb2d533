// workers/confirm_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"role-reward-system/services"

	"github.com/go-co-op/gocron/v2"
)

const confirmBatchSize = 50

// ConfirmWorker backfills confirmed_at on claim rows whose transfer
// has since finalized on chain. The claim flow itself stays
// fire-and-forget; this only closes the loop after the fact.
type ConfirmWorker struct {
	Ledger   *services.ClaimLedger
	Transfer services.TransferSubmitter
}

func NewConfirmWorker(ledger *services.ClaimLedger, transfer services.TransferSubmitter) *ConfirmWorker {
	return &ConfirmWorker{Ledger: ledger, Transfer: transfer}
}

// Start schedules the backfill job. Returns the scheduler so the
// caller can shut it down.
func (w *ConfirmWorker) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			w.runOnce(ctx)
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func (w *ConfirmWorker) runOnce(ctx context.Context) {
	claims, err := w.Ledger.ListUnconfirmed(confirmBatchSize)
	if err != nil {
		log.Printf("[Confirm] DB error listing unconfirmed claims: %v", err)
		return
	}
	if len(claims) == 0 {
		return
	}

	confirmed := 0
	for _, claim := range claims {
		finalized, err := w.Transfer.TransferStatus(ctx, claim.TxID)
		if err != nil {
			// Transient relay trouble; the next tick retries.
			log.Printf("[Confirm] Status check failed for tx %s: %v", claim.TxID, err)
			continue
		}
		if !finalized {
			continue
		}
		if err := w.Ledger.MarkConfirmed(claim.ID, time.Now().UTC()); err != nil {
			log.Printf("[Confirm] Failed to mark claim %s confirmed: %v", claim.ID, err)
			continue
		}
		confirmed++
	}
	if confirmed > 0 {
		log.Printf("✅ Confirmed %d transfer(s)", confirmed)
	}
}
