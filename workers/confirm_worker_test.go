package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"role-reward-system/models"
	"role-reward-system/services"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubSubmitter struct {
	finalized map[string]bool
	statusErr error
}

func (s *stubSubmitter) SubmitTransfer(ctx context.Context, req services.TransferRequest) (string, error) {
	return "", errors.New("not used")
}

func (s *stubSubmitter) TransferStatus(ctx context.Context, txID string) (bool, error) {
	if s.statusErr != nil {
		return false, s.statusErr
	}
	return s.finalized[txID], nil
}

func setupLedger(t *testing.T) *services.ClaimLedger {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.ClaimRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return services.NewClaimLedger(db)
}

func seedClaim(t *testing.T, ledger *services.ClaimLedger, userID, txID string) {
	t.Helper()
	if err := ledger.InsertClaim(&models.ClaimRecord{
		DiscordUserID:  userID,
		WalletAddress:  "wallet",
		BazarProfileID: "profile",
		RoleID:         "R1",
		AssetID:        "asset",
		TxID:           txID,
		Amount:         "1",
		Token:          "Gold",
	}); err != nil {
		t.Fatalf("seed claim: %v", err)
	}
}

func TestConfirmWorkerBackfillsFinalized(t *testing.T) {
	ledger := setupLedger(t)
	seedClaim(t, ledger, "U1", "tx-done")
	seedClaim(t, ledger, "U2", "tx-pending")

	worker := NewConfirmWorker(ledger, &stubSubmitter{finalized: map[string]bool{"tx-done": true}})
	worker.runOnce(context.Background())

	unconfirmed, err := ledger.ListUnconfirmed(10)
	if err != nil {
		t.Fatalf("list unconfirmed: %v", err)
	}
	if len(unconfirmed) != 1 {
		t.Fatalf("expected 1 unconfirmed claim, got %d", len(unconfirmed))
	}
	if unconfirmed[0].TxID != "tx-pending" {
		t.Fatalf("wrong claim left unconfirmed: %s", unconfirmed[0].TxID)
	}

	confirmed, err := ledger.FindClaim("U1", "R1")
	if err != nil {
		t.Fatalf("find claim: %v", err)
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatal("expected confirmed_at to be set")
	}
}

func TestConfirmWorkerRetriesOnStatusError(t *testing.T) {
	ledger := setupLedger(t)
	seedClaim(t, ledger, "U1", "tx-1")

	submitter := &stubSubmitter{statusErr: errors.New("relay down")}
	worker := NewConfirmWorker(ledger, submitter)
	worker.runOnce(context.Background())

	unconfirmed, err := ledger.ListUnconfirmed(10)
	if err != nil {
		t.Fatalf("list unconfirmed: %v", err)
	}
	if len(unconfirmed) != 1 {
		t.Fatalf("claim must stay unconfirmed after a status error, got %d left", len(unconfirmed))
	}

	// Relay recovers; the next tick picks it up.
	submitter.statusErr = nil
	submitter.finalized = map[string]bool{"tx-1": true}
	worker.runOnce(context.Background())

	unconfirmed, err = ledger.ListUnconfirmed(10)
	if err != nil {
		t.Fatalf("list unconfirmed: %v", err)
	}
	if len(unconfirmed) != 0 {
		t.Fatalf("expected no unconfirmed claims, got %d", len(unconfirmed))
	}
}
