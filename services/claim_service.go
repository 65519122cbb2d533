// services/claim_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"role-reward-system/models"

	"github.com/gofiber/fiber/v2"
)

// IdentityVerifier is the contract the orchestrator needs from the
// Discord client. Narrowed to an interface so tests can stub the
// upstream without HTTP.
type IdentityVerifier interface {
	ExchangeCode(ctx context.Context, code string) (*DiscordToken, error)
	FetchUser(ctx context.Context, token *DiscordToken) (*DiscordUser, error)
	FetchMember(ctx context.Context, userID string) (*GuildMember, error)
}

// ClaimService sequences verify-and-reward: role eligibility, profile
// policy, duplicate check, transfer, ledger write. All dependencies
// are injected at construction.
type ClaimService struct {
	Ledger   *ClaimLedger
	Catalog  *RewardCatalog
	Discord  IdentityVerifier
	Transfer TransferState
	Profiles *ProfileService
}

func NewClaimService(ledger *ClaimLedger, catalog *RewardCatalog, discord IdentityVerifier, transfer TransferState, profiles *ProfileService) *ClaimService {
	return &ClaimService{
		Ledger:   ledger,
		Catalog:  catalog,
		Discord:  discord,
		Transfer: transfer,
		Profiles: profiles,
	}
}

// overrideCatalog is the caller's copy of the reward table. It may
// only influence which eligible role gets picked; amounts and asset
// ids always come from the server catalog.
type overrideCatalog map[string]models.RewardDescriptor

// chooseRole picks the role to reward. Preference order: the caller's
// explicit roleId if eligible, then the lowest eligible role id also
// present in the caller's override set, then the lowest eligible role
// id. Ascending role id is the deterministic tie-break.
func chooseRole(eligible []string, preferred string, override overrideCatalog) string {
	if len(eligible) == 0 {
		return ""
	}
	for _, roleID := range eligible {
		if roleID == preferred {
			return roleID
		}
	}
	if len(override) > 0 {
		for _, roleID := range eligible {
			if _, ok := override[roleID]; ok {
				return roleID
			}
		}
	}
	return eligible[0]
}

// --- Handlers ---

// VerifyDiscord exchanges the OAuth2 code, resolves the user and
// their guild roles, and reports which reward role (if any) they are
// eligible for.
func (s *ClaimService) VerifyDiscord(c *fiber.Ctx) error {
	var req struct {
		Code          string          `json:"code"`
		EligibleRoles overrideCatalog `json:"eligibleRoles"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "No authorization code provided"})
	}

	ctx := c.Context()

	token, err := s.Discord.ExchangeCode(ctx, req.Code)
	if err != nil {
		log.Printf("Discord code exchange failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Discord authentication failed",
		})
	}

	user, err := s.Discord.FetchUser(ctx, token)
	if err != nil {
		log.Printf("Discord user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Discord authentication failed",
		})
	}
	log.Printf("👤 User: %s#%s (%s)", user.Username, user.Discriminator, user.ID)

	member, err := s.Discord.FetchMember(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			// Negative result, not a fault: the caller just is not in
			// the server.
			return c.JSON(fiber.Map{
				"success":      false,
				"message":      "User is not a member of the AO server",
				"serverMember": false,
			})
		}
		log.Printf("Discord member lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Discord authentication failed",
		})
	}

	eligible := s.Catalog.EligibleRoles(member.Roles)
	eligibleRole := chooseRole(eligible, "", req.EligibleRoles)

	var rewardTier interface{}
	if eligibleRole != "" {
		// Tier details come from the server catalog even when the
		// caller sent its own table.
		if d, ok := s.Catalog.Lookup(eligibleRole); ok {
			rewardTier = d
			log.Printf("🎯 Eligible role: %s", d.Name)
		}
	} else {
		log.Println("🎯 Eligible role: None")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":            user.ID,
			"username":      user.Username,
			"discriminator": user.Discriminator,
			"avatar":        user.Avatar,
			"accessToken":   token.AccessToken,
		},
		"hasRequiredRole": len(eligible) > 0,
		"eligibleRole":    eligibleRole,
		"rewardTier":      rewardTier,
		"serverMember":    true,
	})
}

// LookupProfile resolves a wallet address to a marketplace profile.
// "No profile" and "can't check right now" are both 200 responses
// with requiresProfile set; only a malformed address is a 400.
func (s *ClaimService) LookupProfile(c *fiber.Ctx) error {
	address := c.Params("address")

	profile, outcome, err := s.Profiles.Resolve(c.Context(), address)
	if err != nil {
		if errors.Is(err, ErrInvalidAddress) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid wallet address format",
			})
		}
		log.Printf("Profile resolve failed for %s: %v", address, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Profile lookup failed",
		})
	}

	switch outcome {
	case ProfileFound:
		return c.JSON(fiber.Map{
			"success": true,
			"profile": profile,
		})
	case ProfileUnavailable:
		return c.JSON(fiber.Map{
			"success":         false,
			"message":         "Profile lookup service unavailable. Please ensure you have a Bazar profile.",
			"requiresProfile": true,
		})
	default:
		return c.JSON(fiber.Map{
			"success":         false,
			"message":         "No Bazar profile found for this wallet address. Please create one at bazar.arweave.dev",
			"requiresProfile": true,
		})
	}
}

// VerifyAndReward is the claim state machine: input gate, degraded
// gate, live role re-check, catalog resolution, duplicate pre-check,
// transfer, ledger write. The ledger's unique index is the only
// correctness boundary; everything before it is advisory.
func (s *ClaimService) VerifyAndReward(c *fiber.Ctx) error {
	var req struct {
		DiscordUserID  string          `json:"discordUserId"`
		WalletAddress  string          `json:"walletAddress"`
		BazarProfileID string          `json:"bazarProfileId"`
		RoleID         string          `json:"roleId"`
		EligibleRoles  overrideCatalog `json:"eligibleRoles"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}

	// Input gate.
	if req.DiscordUserID == "" || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Missing required fields: discordUserId and walletAddress",
		})
	}
	if req.BazarProfileID == "" {
		// Policy: transfers go to profiles, never to bare wallet
		// addresses, even though the transfer mechanism could.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Bazar profile ID required to receive rewards. Please create a Bazar profile first.",
		})
	}

	// Degraded gate: fail fast before any outbound call.
	if !s.Transfer.Ready() {
		log.Printf("Claim rejected, transfer path degraded: %s", s.Transfer.Reason)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":   false,
			"message":   "Reward service is not available right now. Please try again later.",
			"errorType": "SERVICE_UNAVAILABLE",
		})
	}

	ctx := c.Context()
	log.Printf("🔄 Final verification for user: %s (wallet %s, profile %s)", req.DiscordUserID, req.WalletAddress, req.BazarProfileID)

	// Live role re-check; a role claimed by the client alone is never
	// trusted.
	member, err := s.Discord.FetchMember(ctx, req.DiscordUserID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return c.JSON(fiber.Map{
				"success":      false,
				"message":      "User is not a member of the AO server",
				"serverMember": false,
			})
		}
		log.Printf("Discord member re-check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not verify Discord roles",
		})
	}

	eligible := s.Catalog.EligibleRoles(member.Roles)
	if len(eligible) == 0 {
		return c.JSON(fiber.Map{
			"success": false,
			"message": "User does not have any eligible roles",
		})
	}
	roleID := chooseRole(eligible, req.RoleID, req.EligibleRoles)

	// Catalog resolution. The role just passed eligibility against
	// this same catalog, so absence here is a server misconfiguration.
	descriptor, ok := s.Catalog.Lookup(roleID)
	if !ok {
		log.Printf("❌ CONFIG: role %s passed eligibility but has no reward descriptor", roleID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"message":   "Reward configuration error. Please contact an administrator.",
			"errorType": "CONFIG_ERROR",
		})
	}

	// Advisory duplicate pre-check. The unique index below is the
	// real guard; this just avoids a pointless transfer in the common
	// repeat-claim case.
	existing, err := s.Ledger.FindClaim(req.DiscordUserID, roleID)
	if err != nil {
		log.Printf("DB Error checking existing claim: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"message":   "Failed to check claim history",
			"errorType": "DATABASE_ERROR",
		})
	}
	if existing != nil {
		log.Printf("⚠️  User %s already claimed role %s (tx %s)", req.DiscordUserID, roleID, existing.TxID)
		return c.JSON(alreadyClaimedResponse(descriptor, "ALREADY_CLAIMED", existing))
	}

	// Transfer: the single irreversible effect. Fire-and-forget; only
	// the synchronous message id is required.
	log.Println("🚀 Sending AO asset transfer...")
	txID, err := s.Transfer.Submitter.SubmitTransfer(ctx, TransferRequest{
		AssetID:   descriptor.AssetID,
		Recipient: req.BazarProfileID,
		Quantity:  descriptor.Amount,
	})
	if err != nil {
		log.Printf("❌ Transfer failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"message":   "Asset transfer failed. No reward was sent; please try again later.",
			"errorType": "TRANSFER_ERROR",
		})
	}
	log.Printf("✅ Transfer message sent: %s", txID)

	record := &models.ClaimRecord{
		DiscordUserID:  req.DiscordUserID,
		WalletAddress:  req.WalletAddress,
		BazarProfileID: req.BazarProfileID,
		RoleID:         roleID,
		AssetID:        descriptor.AssetID,
		TxID:           txID,
		Amount:         descriptor.Amount,
		Token:          descriptor.Token,
	}
	if err := s.Ledger.InsertClaim(record); err != nil {
		if errors.Is(err, ErrDuplicateClaim) {
			// Lost the insert race after our transfer was already
			// sent. The claim exists, so this is the already-claimed
			// outcome, not a server error.
			log.Printf("🔄 Duplicate claim race for user %s role %s", req.DiscordUserID, roleID)
			prior, _ := s.Ledger.FindClaim(req.DiscordUserID, roleID)
			return c.JSON(alreadyClaimedResponse(descriptor, "DUPLICATE_CLAIM", prior))
		}
		log.Printf("❌ Failed to save claim record (transfer %s may already be sent): %v", txID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"message":   "Failed to save reward record. The transfer may already have been sent; contact support before retrying.",
			"errorType": "DATABASE_ERROR",
		})
	}

	reward := fiber.Map{
		"txId":          txID,
		"amount":        descriptor.Amount,
		"token":         descriptor.Token,
		"roleName":      descriptor.Name,
		"roleId":        roleID,
		"recipient":     req.BazarProfileID,
		"walletAddress": req.WalletAddress,
		"assetId":       descriptor.AssetID,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"confirmed":     false,
	}
	log.Printf("🎉 Reward processed and saved: %s %s for role %s → %s", descriptor.Amount, descriptor.Token, descriptor.Name, req.BazarProfileID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Verification successful! %s %s sent for %s role.", descriptor.Amount, descriptor.Token, descriptor.Name),
		"reward":  reward,
	})
}

func alreadyClaimedResponse(descriptor models.RewardDescriptor, errorType string, prior *models.ClaimRecord) fiber.Map {
	resp := fiber.Map{
		"success":        false,
		"message":        fmt.Sprintf("You have already claimed your %s role reward! Each role reward can only be claimed once.", descriptor.Name),
		"alreadyClaimed": true,
		"errorType":      errorType,
		"rewardDetails": fiber.Map{
			"roleName":         descriptor.Name,
			"token":            descriptor.Token,
			"tokenDisplayName": descriptor.TokenDisplayName,
			"amount":           descriptor.Amount,
		},
	}
	if prior != nil {
		resp["transactionId"] = prior.TxID
		resp["claimDate"] = prior.CreatedAt
	}
	return resp
}

// GetClaimHistory lists claims newest-first, optionally for one user.
func (s *ClaimService) GetClaimHistory(c *fiber.Ctx) error {
	discordUserID := c.Params("discordUserId")

	claims, err := s.Ledger.ListClaims(discordUserID)
	if err != nil {
		log.Printf("DB Error fetching claims: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to fetch rewards"})
	}
	return c.JSON(fiber.Map{"success": true, "rewards": claims})
}

// Health reports configuration presence so a half-configured deploy
// is visible without reading logs.
func (s *ClaimService) Health(c *fiber.Ctx) error {
	databaseConnected := true
	if sqlDB, err := s.Ledger.DB.DB(); err != nil || sqlDB.Ping() != nil {
		databaseConnected = false
	}

	return c.JSON(fiber.Map{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"config": fiber.Map{
			"hasClientId":       os.Getenv("DISCORD_CLIENT_ID") != "",
			"hasClientSecret":   os.Getenv("DISCORD_CLIENT_SECRET") != "",
			"hasBotToken":       os.Getenv("DISCORD_BOT_TOKEN") != "",
			"hasServerId":       os.Getenv("AO_SERVER_ID") != "",
			"hasWallet":         s.Transfer.Ready(),
			"hasRelay":          os.Getenv("AO_RELAY_URL") != "",
			"hasAssetIds":       s.Catalog.HasAssetIDs(),
			"databaseConnected": databaseConnected,
		},
	})
}

// DebugTransfer exposes the transfer path's init outcome.
func (s *ClaimService) DebugTransfer(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"transferReady":  s.Transfer.Ready(),
		"walletAddress":  s.Transfer.WalletAddress,
		"degradedReason": s.Transfer.Reason,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// DebugProfile runs a raw directory lookup and reports what came back.
func (s *ClaimService) DebugProfile(c *fiber.Ctx) error {
	address := c.Params("address")

	debug := fiber.Map{
		"address":            address,
		"directoryAvailable": s.Profiles.Directory != nil,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	}
	if s.Profiles.Directory != nil {
		profile, err := s.Profiles.Directory.GetProfileByWallet(c.Context(), address)
		if err != nil {
			debug["error"] = err.Error()
			debug["hasProfile"] = false
		} else {
			debug["profile"] = profile
			debug["hasProfile"] = profile != nil && profile.ID != ""
		}
	}
	return c.JSON(debug)
}
