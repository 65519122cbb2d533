// services/discord_client.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultDiscordAPIBase = "https://discord.com/api/v10"

var (
	// ErrNoCode means the caller supplied no authorization code.
	ErrNoCode = errors.New("no authorization code provided")
	// ErrNotAMember is the negative result of a guild member lookup:
	// the user exists but is not in the server. Not a fault.
	ErrNotAMember = errors.New("user is not a member of the server")
)

// DiscordClient talks to the Discord HTTP API: OAuth2 code exchange on
// behalf of the caller, and guild member lookups with the privileged
// bot token held by this backend.
type DiscordClient struct {
	ClientID     string
	ClientSecret string
	BotToken     string
	GuildID      string
	RedirectURI  string
	BaseURL      string
	Client       *http.Client
}

type DiscordToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

type GuildMember struct {
	Roles []string `json:"roles"`
}

func NewDiscordClient() *DiscordClient {
	redirectURI := os.Getenv("DISCORD_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://localhost:8080"
	}
	return &DiscordClient{
		ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		BotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		GuildID:      os.Getenv("AO_SERVER_ID"),
		RedirectURI:  redirectURI,
		BaseURL:      defaultDiscordAPIBase,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ExchangeCode trades a short-lived OAuth2 authorization code for an
// access token.
func (c *DiscordClient) ExchangeCode(ctx context.Context, code string) (*DiscordToken, error) {
	if code == "" {
		return nil, ErrNoCode
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.RedirectURI)
	form.Set("scope", "identify guilds.members.read")

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Discord token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("Discord token exchange returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("discord code exchange failed: %d", resp.StatusCode)
	}

	var token DiscordToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// FetchUser resolves "who am I" for the freshly exchanged token.
func (c *DiscordClient) FetchUser(ctx context.Context, token *DiscordToken) (*DiscordUser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token.TokenType+" "+token.AccessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Discord user endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("Discord /users/@me returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("discord user lookup failed: %d", resp.StatusCode)
	}

	var user DiscordUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchMember fetches the user's membership in the configured guild
// using the bot token. A 404 means "not a member" and is returned as
// ErrNotAMember so callers can surface it as a negative result rather
// than a server error.
func (c *DiscordClient) FetchMember(ctx context.Context, userID string) (*GuildMember, error) {
	reqURL := fmt.Sprintf("%s/guilds/%s/members/%s", c.BaseURL, c.GuildID, userID)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Discord member endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotAMember
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Discord member lookup returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("discord member lookup failed: %d", resp.StatusCode)
	}

	var member GuildMember
	if err := json.Unmarshal(body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}
