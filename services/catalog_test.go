package services

import (
	"testing"

	"role-reward-system/models"

	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	catalog := testCatalog(t)

	d, ok := catalog.Lookup("R1")
	require.True(t, ok)
	require.Equal(t, "Teraflops", d.Name)
	require.Equal(t, "asset-gold", d.AssetID)

	_, ok = catalog.Lookup("unknown")
	require.False(t, ok)
}

func TestCatalogRoleIDsAscending(t *testing.T) {
	catalog, err := NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "30", Name: "c", Amount: "1", Token: "T"},
		{RoleID: "10", Name: "a", Amount: "1", Token: "T"},
		{RoleID: "20", Name: "b", Amount: "1", Token: "T"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"10", "20", "30"}, catalog.RoleIDs())
}

func TestCatalogEligibleRoles(t *testing.T) {
	catalog := testCatalog(t)

	require.Equal(t, []string{"R1", "R2"}, catalog.EligibleRoles([]string{"R2", "spectator", "R1"}))
	require.Empty(t, catalog.EligibleRoles([]string{"spectator"}))
	require.Empty(t, catalog.EligibleRoles(nil))
}

func TestCatalogRejectsBadDescriptors(t *testing.T) {
	_, err := NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "R1", Name: "a", Amount: "not-a-number", Token: "T"},
	})
	require.Error(t, err)

	_, err = NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "R1", Name: "a", Amount: "0", Token: "T"},
	})
	require.Error(t, err)

	_, err = NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "R1", Name: "a", Amount: "-1", Token: "T"},
	})
	require.Error(t, err)

	_, err = NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "", Name: "a", Amount: "1", Token: "T"},
	})
	require.Error(t, err)

	_, err = NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "R1", Name: "a", Amount: "1", Token: "T"},
		{RoleID: "R1", Name: "b", Amount: "1", Token: "T"},
	})
	require.Error(t, err)
}

func TestCatalogHasAssetIDs(t *testing.T) {
	require.True(t, testCatalog(t).HasAssetIDs())

	catalog, err := NewRewardCatalog([]models.RewardDescriptor{
		{RoleID: "R1", Name: "a", Amount: "1", Token: "T"},
	})
	require.NoError(t, err)
	require.False(t, catalog.HasAssetIDs())
}

func TestChooseRole(t *testing.T) {
	eligible := []string{"10", "20"}

	require.Equal(t, "20", chooseRole(eligible, "20", nil))
	require.Equal(t, "10", chooseRole(eligible, "", nil))
	require.Equal(t, "10", chooseRole(eligible, "99", nil))
	require.Equal(t, "", chooseRole(nil, "10", nil))

	// Override narrows the heuristic but never invents eligibility.
	override := overrideCatalog{"20": {}}
	require.Equal(t, "20", chooseRole(eligible, "", override))
	require.Equal(t, "10", chooseRole(eligible, "", overrideCatalog{"99": {}}))
}
