package models

// RewardDescriptor describes the reward attached to one Discord role.
// The set of descriptors is fixed for the process lifetime; it is the
// only place transfer amounts and destination assets come from.
type RewardDescriptor struct {
	RoleID           string `json:"roleId"`
	Name             string `json:"name"`
	Amount           string `json:"amount"` // decimal string, validated at load
	Token            string `json:"token"`
	TokenDisplayName string `json:"tokenDisplayName"`
	AssetID          string `json:"assetId"`
}
