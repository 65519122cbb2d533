// services/transfer_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"role-reward-system/utils"
)

// routerProcessID is the AO router process every transfer message is
// addressed to; the router forwards the Transfer action to the asset
// process named in the tags.
const routerProcessID = "a2U7UBrMaI0uVzhhbOfUzuyuyIVTcsRVmI_B26nRwrw"

// TransferRequest carries everything the relay needs to move one
// asset to one recipient. Quantities are decimal strings.
type TransferRequest struct {
	AssetID   string
	Recipient string
	Quantity  string
}

// TransferSubmitter is the fixed contract for the outbound chain
// call. SubmitTransfer is fire-and-forget: it returns an opaque
// message id as soon as the relay accepts the message, without
// waiting for on-chain confirmation.
type TransferSubmitter interface {
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)
	TransferStatus(ctx context.Context, txID string) (bool, error)
}

// TransferState is the initialization outcome of the transfer path:
// either a ready submitter, or a recorded reason the path is
// degraded. The orchestrator checks this before any money-moving
// call instead of probing half-initialized dependencies per request.
type TransferState struct {
	Submitter     TransferSubmitter
	WalletAddress string
	Reason        string
}

func (s TransferState) Ready() bool {
	return s.Submitter != nil
}

// InitTransferState loads the signing wallet and builds the AO relay
// client. Any failure is captured as a degraded reason rather than
// aborting startup: the rest of the API (auth, profile lookup,
// history) stays useful without the transfer path.
func InitTransferState() TransferState {
	walletPath := os.Getenv("WALLET_PATH")
	if walletPath == "" {
		return TransferState{Reason: "WALLET_PATH environment variable not set"}
	}
	wallet, err := utils.LoadWallet(walletPath)
	if err != nil {
		log.Printf("❌ Failed to load wallet: %v", err)
		return TransferState{Reason: err.Error()}
	}

	address, err := wallet.Address()
	if err != nil {
		log.Printf("❌ Failed to derive wallet address: %v", err)
		return TransferState{Reason: err.Error()}
	}

	relayURL := os.Getenv("AO_RELAY_URL")
	if relayURL == "" {
		return TransferState{Reason: "AO_RELAY_URL environment variable not set"}
	}

	log.Printf("✅ Wallet loaded successfully (%s)", address)
	return TransferState{Submitter: NewAOClient(relayURL, wallet), WalletAddress: address}
}

// AOClient submits signed messages through an AO relay. The relay
// owns signing; this client only supplies the keyfile and the message
// body, and treats the chain as an opaque request/response service.
type AOClient struct {
	RelayURL string
	Wallet   *utils.Wallet
	Client   *http.Client
}

func NewAOClient(relayURL string, wallet *utils.Wallet) *AOClient {
	return &AOClient{
		RelayURL: relayURL,
		Wallet:   wallet,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type aoTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SubmitTransfer sends the Run-Action/Transfer message the asset
// processes expect. The tag layout is part of the wire contract and
// must not change.
func (c *AOClient) SubmitTransfer(ctx context.Context, req TransferRequest) (string, error) {
	payload := map[string]interface{}{
		"processId": routerProcessID,
		"action":    "Run-Action",
		"tags": []aoTag{
			{Name: "Action", Value: "Run-Action"},
			{Name: "ForwardAction", Value: "Transfer"},
			{Name: "ForwardTo", Value: req.AssetID},
			{Name: "Target", Value: req.AssetID},
			{Name: "Recipient", Value: req.Recipient},
			{Name: "Quantity", Value: req.Quantity},
		},
		"data": map[string]string{
			"Target": req.AssetID,
			"Action": "Transfer",
		},
		"wallet": c.Wallet.Raw(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.RelayURL+"/message", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call AO relay: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("AO relay returned %d: %s", resp.StatusCode, string(respBody))
		return "", fmt.Errorf("AO relay returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode AO relay response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("AO relay returned no message id")
	}
	return out.ID, nil
}

// TransferStatus asks the relay whether a previously submitted
// message has finalized on chain.
func (c *AOClient) TransferStatus(ctx context.Context, txID string) (bool, error) {
	reqURL := fmt.Sprintf("%s/result/%s?process=%s", c.RelayURL, txID, routerProcessID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to call AO relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("AO relay returned status %d", resp.StatusCode)
	}

	var out struct {
		Finalized bool `json:"finalized"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return false, fmt.Errorf("failed to decode AO relay response: %w", err)
	}
	return out.Finalized, nil
}
