// services/catalog.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"role-reward-system/models"

	"github.com/shopspring/decimal"
)

// RewardCatalog is the server-authoritative role -> reward mapping.
// It is built once at startup and never mutated; transfer amounts and
// destination assets are always resolved through it, never through
// caller-supplied data.
type RewardCatalog struct {
	byRole  map[string]models.RewardDescriptor
	roleIDs []string // sorted ascending, see RoleIDs
}

// defaultDescriptors mirrors the deployed role tiers. Asset ids come
// from the environment so the same build can target testnet assets.
func defaultDescriptors() []models.RewardDescriptor {
	return []models.RewardDescriptor{
		{
			RoleID:           "1372348346512965674",
			Name:             "Teraflops",
			Amount:           "1",
			Token:            "Gold",
			TokenDisplayName: "The Golden Floppy Disk",
			AssetID:          os.Getenv("GOLD_ASSET_ID"),
		},
		{
			RoleID:           "1293319793981526077",
			Name:             "Gigaflops",
			Amount:           "1",
			Token:            "Silver",
			TokenDisplayName: "The Silver Floppy Disk",
			AssetID:          os.Getenv("SILVER_ASSET_ID"),
		},
		{
			RoleID:           "1293319628566560849",
			Name:             "Megaflops",
			Amount:           "1",
			Token:            "Bronze",
			TokenDisplayName: "The Bronze Floppy Disk",
			AssetID:          os.Getenv("BRONZE_ASSET_ID"),
		},
	}
}

// LoadRewardCatalog builds the catalog from REWARD_CATALOG_PATH if set,
// otherwise from the built-in tiers plus *_ASSET_ID env vars.
func LoadRewardCatalog() (*RewardCatalog, error) {
	path := os.Getenv("REWARD_CATALOG_PATH")
	if path == "" {
		return NewRewardCatalog(defaultDescriptors())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reward catalog %s: %w", path, err)
	}
	var descriptors []models.RewardDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("failed to parse reward catalog %s: %w", path, err)
	}
	return NewRewardCatalog(descriptors)
}

// NewRewardCatalog validates descriptors and indexes them by role id.
// Amounts must be positive decimals; a bad amount here means a
// misconfigured deployment, so it is a startup error.
func NewRewardCatalog(descriptors []models.RewardDescriptor) (*RewardCatalog, error) {
	c := &RewardCatalog{byRole: make(map[string]models.RewardDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.RoleID == "" {
			return nil, fmt.Errorf("reward descriptor %q has no role id", d.Name)
		}
		if _, exists := c.byRole[d.RoleID]; exists {
			return nil, fmt.Errorf("duplicate reward descriptor for role %s", d.RoleID)
		}
		amount, err := decimal.NewFromString(d.Amount)
		if err != nil {
			return nil, fmt.Errorf("reward for role %s has invalid amount %q: %w", d.RoleID, d.Amount, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("reward for role %s has non-positive amount %q", d.RoleID, d.Amount)
		}
		c.byRole[d.RoleID] = d
		c.roleIDs = append(c.roleIDs, d.RoleID)
	}
	sort.Strings(c.roleIDs)
	return c, nil
}

// Lookup returns the descriptor for a role, if one exists.
func (c *RewardCatalog) Lookup(roleID string) (models.RewardDescriptor, bool) {
	d, ok := c.byRole[roleID]
	return d, ok
}

// RoleIDs returns all reward-bearing role ids in ascending order.
// Ascending role id is the documented tie-break whenever "the first
// eligible role" has to be chosen.
func (c *RewardCatalog) RoleIDs() []string {
	out := make([]string, len(c.roleIDs))
	copy(out, c.roleIDs)
	return out
}

// EligibleRoles intersects a member's roles with the catalog keys.
// The result is sorted ascending so selection is deterministic.
func (c *RewardCatalog) EligibleRoles(memberRoles []string) []string {
	var eligible []string
	for _, roleID := range memberRoles {
		if _, ok := c.byRole[roleID]; ok {
			eligible = append(eligible, roleID)
		}
	}
	sort.Strings(eligible)
	return eligible
}

// HasAssetIDs reports whether every descriptor carries an asset id.
// Used by the health endpoint; a missing asset id means transfers for
// that role would be sent nowhere.
func (c *RewardCatalog) HasAssetIDs() bool {
	for _, d := range c.byRole {
		if d.AssetID == "" {
			return false
		}
	}
	return true
}
