// services/ledger.go
package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"role-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateClaim means the (user, role) pair already has a claim
// row. Raised by the storage-level unique index, so it holds even
// when two requests race past the advisory pre-check.
var ErrDuplicateClaim = errors.New("reward already claimed for this user and role")

// ClaimLedger is the durable record of every reward sent. It is the
// only shared mutable state in the system.
type ClaimLedger struct {
	DB *gorm.DB
}

func NewClaimLedger(db *gorm.DB) *ClaimLedger {
	return &ClaimLedger{DB: db}
}

// FindClaim is the advisory pre-check: nil means no claim yet.
func (l *ClaimLedger) FindClaim(discordUserID, roleID string) (*models.ClaimRecord, error) {
	var record models.ClaimRecord
	err := l.DB.Where("discord_user_id = ? AND role_id = ?", discordUserID, roleID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// InsertClaim writes the claim row. The unique index on
// (discord_user_id, role_id) is the authoritative guard: a violation
// comes back as ErrDuplicateClaim regardless of any earlier pre-check.
func (l *ClaimLedger) InsertClaim(record *models.ClaimRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := l.DB.Create(record).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDuplicateClaim
		}
		log.Printf("DB Error inserting claim: %v", err)
		return err
	}
	return nil
}

// ListClaims returns claim history, newest first, optionally filtered
// to one user.
func (l *ClaimLedger) ListClaims(discordUserID string) ([]models.ClaimRecord, error) {
	var records []models.ClaimRecord
	query := l.DB.Order("created_at DESC")
	if discordUserID != "" {
		query = query.Where("discord_user_id = ?", discordUserID)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListUnconfirmed returns claims whose transfer has not been seen to
// finalize yet, oldest first so backfill drains in order.
func (l *ClaimLedger) ListUnconfirmed(limit int) ([]models.ClaimRecord, error) {
	var records []models.ClaimRecord
	if err := l.DB.Where("confirmed_at IS NULL").Order("created_at ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkConfirmed backfills confirmed_at once the transfer is known to
// have finalized. The only permitted update to a claim row.
func (l *ClaimLedger) MarkConfirmed(id string, at time.Time) error {
	return l.DB.Model(&models.ClaimRecord{}).Where("id = ?", id).Update("confirmed_at", at).Error
}

// isDuplicateKeyErr recognizes unique violations across the drivers
// we run on: gorm's translated error, SQLite's message, and the
// Postgres SQLSTATE.
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}
