// models/claim_record.go
package models

import "time"

// ClaimRecord = one reward sent to one user for one role.
// Rows are written once after a successful transfer submission and are
// never updated afterwards, except for the ConfirmedAt backfill.
//
// The composite unique index on (discord_user_id, role_id) is the
// authoritative one-claim-per-role guard: the orchestrator's pre-check
// is advisory and can race, the index cannot.
type ClaimRecord struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	DiscordUserID  string     `gorm:"not null;uniqueIndex:idx_user_role" json:"discord_user_id"`
	WalletAddress  string     `gorm:"not null" json:"wallet_address"`
	BazarProfileID string     `json:"bazar_profile_id"` // empty = sent directly to wallet, no profile
	RoleID         string     `gorm:"not null;uniqueIndex:idx_user_role" json:"role_id"`
	AssetID        string     `gorm:"not null" json:"asset_id"`
	TxID           string     `gorm:"not null" json:"tx_id"`
	Amount         string     `gorm:"not null" json:"amount"`
	Token          string     `gorm:"not null" json:"token"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}

// TableName keeps the table name of the original deployment so an
// existing rewards.db keeps working.
func (ClaimRecord) TableName() string {
	return "rewards"
}
