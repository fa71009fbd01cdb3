package xrpl

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	httpclient "github.com/wefund/wefund-api/internal/client/http"
	"github.com/wefund/wefund-api/internal/logger"
)

// DefaultAPIURL is the testnet JSON-RPC endpoint
const DefaultAPIURL = "https://s.altnet.rippletest.net:51234/"

// Client talks to the ledger network's public JSON-RPC-over-HTTP endpoint
type Client struct {
	httpClient *httpclient.HTTPClient
}

// NewClient creates a ledger client against the given RPC URL
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient: httpclient.NewHTTPClient(
			httpclient.WithBaseURL(apiURL),
			httpclient.WithTimeout(20*time.Second),
			httpclient.WithMetricsCollector(httpclient.NewPrometheusMetricsCollector("xrpl")),
		),
	}
}

// call performs a single JSON-RPC request and decodes result into out
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	req := rpcRequest{
		Method: method,
		Params: []interface{}{params},
	}

	resp, err := c.httpClient.Post(ctx, "/", req)
	if err != nil {
		return fmt.Errorf("ledger %s request failed: %w", method, err)
	}

	envelope := struct {
		Result interface{} `json:"result"`
	}{Result: out}

	if err := c.httpClient.ProcessJSONResponse(resp, &envelope); err != nil {
		return fmt.Errorf("failed to decode ledger %s response: %w", method, err)
	}

	return nil
}

// Submit posts a raw signed transaction blob. Only the tesSUCCESS engine
// result counts as success; anything else is surfaced as an EngineError with
// the raw result attached.
func (c *Client) Submit(ctx context.Context, txBlob string) (*SubmitResult, error) {
	logger.Info("submitting transaction to ledger",
		zap.Int("tx_blob_length", len(txBlob)))

	var result SubmitResult
	if err := c.call(ctx, "submit", map[string]interface{}{"tx_blob": txBlob}, &result); err != nil {
		return nil, err
	}

	if !result.Succeeded() {
		return nil, &EngineError{Result: &result}
	}

	return &result, nil
}

// AccountInfo fetches the validated ledger state of an account
func (c *Client) AccountInfo(ctx context.Context, address string) (*AccountData, error) {
	var result struct {
		AccountData AccountData `json:"account_data"`
	}

	params := map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return nil, err
	}

	if result.AccountData.Balance == "" {
		return nil, fmt.Errorf("failed to get account data for %s", address)
	}

	return &result.AccountData, nil
}

// GetBalanceDrops returns the account's native balance in drops
func (c *Client) GetBalanceDrops(ctx context.Context, address string) (int64, error) {
	account, err := c.AccountInfo(ctx, address)
	if err != nil {
		return 0, err
	}

	drops, err := strconv.ParseInt(account.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable balance %q for %s: %w", account.Balance, address, err)
	}

	return drops, nil
}

// GetBalances returns the account's positions in display units
func (c *Client) GetBalances(ctx context.Context, address string) ([]Balance, error) {
	drops, err := c.GetBalanceDrops(ctx, address)
	if err != nil {
		return nil, err
	}

	return []Balance{{Currency: "XRP", Value: DropsToXRP(drops)}}, nil
}

// ValidatedLedgerIndex returns the index of the latest validated ledger
func (c *Client) ValidatedLedgerIndex(ctx context.Context) (int64, error) {
	var result struct {
		LedgerIndex int64 `json:"ledger_index"`
	}

	if err := c.call(ctx, "ledger", map[string]interface{}{"ledger_index": "validated"}, &result); err != nil {
		return 0, err
	}

	if result.LedgerIndex == 0 {
		return 0, fmt.Errorf("failed to get current ledger index")
	}

	return result.LedgerIndex, nil
}

// Sign signs a payment transaction with the given secret via the ledger's
// sign method and returns the signed blob.
func (c *Client) Sign(ctx context.Context, tx PaymentTx, secret string) (string, error) {
	var result struct {
		TxBlob string `json:"tx_blob"`
		TxJSON struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}

	params := map[string]interface{}{
		"tx_json": tx,
		"secret":  secret,
	}
	if err := c.call(ctx, "sign", params, &result); err != nil {
		return "", err
	}

	if result.TxBlob == "" {
		return "", fmt.Errorf("failed to sign transaction")
	}

	logger.Debug("transaction signed",
		zap.Int("tx_blob_length", len(result.TxBlob)),
		zap.String("tx_hash", result.TxJSON.Hash))

	return result.TxBlob, nil
}
