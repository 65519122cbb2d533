// handlers/reward_routes.go
package handlers

import (
	"role-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, claimService *services.ClaimService) {
	api := app.Group("/api")

	api.Post("/auth/discord", claimService.VerifyDiscord)
	api.Get("/lookup-profile/:address", claimService.LookupProfile)
	api.Post("/verify-and-reward", claimService.VerifyAndReward)
	api.Get("/rewards/:discordUserId?", claimService.GetClaimHistory)
	api.Get("/health", claimService.Health)

	// Diagnostics — no secrets, safe to leave on.
	api.Get("/debug/transfer", claimService.DebugTransfer)
	api.Get("/debug/profile/:address", claimService.DebugProfile)
}
