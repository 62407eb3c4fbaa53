package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// ─────────────────────────────────────────────
// Reward Disbursement
//
// The treasury is an external collaborator: a
// signing sidecar that executes the on-chain
// token transfer. This package is only the I/O
// wrapper around it.
// ─────────────────────────────────────────────

// ErrTransfer means the disbursement failed on-chain or in transit.
// The caller must leave the ledger unmarked so a later qualifying
// evaluation can try again.
var ErrTransfer = errors.New("token transfer failed")

// baseUnitExponent is the settlement layer's fixed decimal scaling:
// one whole reward token is 10^9 base units.
const baseUnitExponent = 9

// Disburser executes a token transfer of whole reward tokens to an
// identity and returns the settlement transaction ID.
type Disburser interface {
	Transfer(ctx context.Context, identity string, amount int64) (string, error)
}

// Client is the HTTP Disburser talking to the treasury sidecar.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a treasury client. token may be empty when the sidecar
// runs without authentication (local development).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"` // base units
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error,omitempty"`
}

// Transfer sends amount whole tokens to identity, scaled to base units
// for the settlement layer.
func (c *Client) Transfer(ctx context.Context, identity string, amount int64) (string, error) {
	baseUnits := amount
	for i := 0; i < baseUnitExponent; i++ {
		baseUnits *= 10
	}

	payload, err := json.Marshal(transferRequest{
		Recipient: identity,
		Amount:    baseUnits,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrTransfer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	defer resp.Body.Close()

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTransfer, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrTransfer, msg)
	}
	if result.TransactionID == "" {
		return "", fmt.Errorf("%w: missing transaction id", ErrTransfer)
	}

	log.Printf("[treasury] sent %d token(s) to %s tx=%s", amount, identity, result.TransactionID)
	return result.TransactionID, nil
}
