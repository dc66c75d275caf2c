package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient adapts a remote registry service to the engine's custody
// interface. A non-2xx response is surfaced as a refusal, never masked.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the registry service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return NewHTTPClientWith(baseURL, &http.Client{Timeout: 10 * time.Second})
}

// NewHTTPClientWith creates a client using the provided http.Client.
func NewHTTPClientWith(baseURL string, client *http.Client) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// TransferRequest is the body of POST /assets/{id}/transfer.
type TransferRequest struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// ApproveRequest is the body of POST /assets/{id}/approve.
type ApproveRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
}

// MintRequest is the body of POST /assets.
type MintRequest struct {
	AssetID uint64 `json:"asset_id"`
	Owner   string `json:"owner"`
}

// OwnerResponse is the body of GET /assets/{id}/owner.
type OwnerResponse struct {
	AssetID uint64 `json:"asset_id"`
	Owner   string `json:"owner"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// TransferCustody asks the remote registry to move the asset.
func (c *HTTPClient) TransferCustody(ctx context.Context, caller string, assetID uint64, from, to string) error {
	body := &TransferRequest{Caller: caller, From: from, To: to}
	return c.post(ctx, fmt.Sprintf("/assets/%d/transfer", assetID), body, nil)
}

// Approve grants spender transfer rights over the asset.
func (c *HTTPClient) Approve(ctx context.Context, caller string, assetID uint64, spender string) error {
	body := &ApproveRequest{Caller: caller, Spender: spender}
	return c.post(ctx, fmt.Sprintf("/assets/%d/approve", assetID), body, nil)
}

// Mint registers a new asset on the remote registry.
func (c *HTTPClient) Mint(ctx context.Context, assetID uint64, owner string) error {
	return c.post(ctx, "/assets", &MintRequest{AssetID: assetID, Owner: owner}, nil)
}

// OwnerOf queries the current owner of the asset.
func (c *HTTPClient) OwnerOf(ctx context.Context, assetID uint64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/assets/%d/owner", c.baseURL, assetID), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", remoteError(resp)
	}

	var owner OwnerResponse
	if err := json.NewDecoder(resp.Body).Decode(&owner); err != nil {
		return "", fmt.Errorf("decode owner response: %w", err)
	}
	return owner.Owner, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return fmt.Errorf("registry refused (status %d): %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("registry refused (status %d)", resp.StatusCode)
}
