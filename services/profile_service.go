// services/profile_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Arweave addresses are always 43 characters.
const walletAddressLength = 43

// ErrInvalidAddress rejects malformed wallet addresses before any
// outbound call is made.
var ErrInvalidAddress = errors.New("invalid wallet address format")

// BazarProfile is a marketplace profile registered for a wallet
// address. The profile id is the transfer destination.
type BazarProfile struct {
	ID            string   `json:"id"`
	WalletAddress string   `json:"walletAddress"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"displayName"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Banner        string   `json:"banner,omitempty"`
	Assets        []string `json:"assets"`
}

// ProfileDirectory is the fixed contract for the external profile
// directory. Implementations return (nil, nil) when the directory is
// reachable but no profile exists for the address.
type ProfileDirectory interface {
	GetProfileByWallet(ctx context.Context, address string) (*BazarProfile, error)
}

// BazarClient looks profiles up over HTTP against the directory
// gateway configured by PROFILE_SERVICE_URL.
type BazarClient struct {
	BaseURL string
	Client  *http.Client
}

func NewBazarClient() (*BazarClient, error) {
	baseURL := os.Getenv("PROFILE_SERVICE_URL")
	if baseURL == "" {
		return nil, errors.New("PROFILE_SERVICE_URL environment variable not set")
	}
	return &BazarClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *BazarClient) GetProfileByWallet(ctx context.Context, address string) (*BazarProfile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/profiles/%s", c.BaseURL, address), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call profile directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("Profile directory returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("profile directory returned status %d", resp.StatusCode)
	}

	var profile BazarProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile directory response: %w", err)
	}
	return &profile, nil
}

// ProfileOutcome distinguishes "no profile exists" from "could not
// check right now"; both are everyday outcomes for the caller, not
// faults.
type ProfileOutcome int

const (
	ProfileFound ProfileOutcome = iota
	ProfileNotFound
	ProfileUnavailable
)

// ProfileService resolves wallet addresses to marketplace profiles.
// Directory may be nil when initialization failed at startup; lookups
// then degrade to ProfileUnavailable instead of erroring per-request.
type ProfileService struct {
	Directory ProfileDirectory
}

func NewProfileService(directory ProfileDirectory) *ProfileService {
	return &ProfileService{Directory: directory}
}

// Resolve validates the address and queries the directory. Optional
// profile fields are defaulted deterministically so responses never
// carry missing keys.
func (s *ProfileService) Resolve(ctx context.Context, address string) (*BazarProfile, ProfileOutcome, error) {
	if len(address) != walletAddressLength {
		return nil, ProfileNotFound, ErrInvalidAddress
	}

	if s.Directory == nil {
		log.Println("Profile directory not initialized, lookup unavailable")
		return nil, ProfileUnavailable, nil
	}

	profile, err := s.Directory.GetProfileByWallet(ctx, address)
	if err != nil {
		log.Printf("Profile lookup failed for %s: %v", address, err)
		return nil, ProfileUnavailable, nil
	}
	if profile == nil || profile.ID == "" {
		return nil, ProfileNotFound, nil
	}

	resolved := &BazarProfile{
		ID:            profile.ID,
		WalletAddress: profile.WalletAddress,
		Username:      profile.Username,
		DisplayName:   profile.DisplayName,
		Description:   profile.Description,
		Thumbnail:     profile.Thumbnail,
		Banner:        profile.Banner,
		Assets:        profile.Assets,
	}
	if resolved.WalletAddress == "" {
		resolved.WalletAddress = address
	}
	if resolved.Username == "" {
		resolved.Username = "Unknown"
	}
	if resolved.DisplayName == "" {
		resolved.DisplayName = "Unknown"
	}
	if resolved.Assets == nil {
		resolved.Assets = []string{}
	}
	return resolved, ProfileFound, nil
}
