package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer fakes the ledger's JSON-RPC endpoint, answering per method
func rpcServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		require.True(t, ok, "unexpected method %q", req.Method)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"result": result}))
	}))
}

func TestSubmit_Success(t *testing.T) {
	server := rpcServer(t, map[string]interface{}{
		"submit": map[string]interface{}{
			"engine_result":         "tesSUCCESS",
			"engine_result_code":    0,
			"engine_result_message": "The transaction was applied.",
			"status":                "success",
			"tx_json":               map[string]interface{}{"hash": "ABCDEF1234"},
		},
	})
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Submit(context.Background(), "120000ABC")

	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "ABCDEF1234", result.TxJSON.Hash)
}

func TestSubmit_EngineFailure(t *testing.T) {
	server := rpcServer(t, map[string]interface{}{
		"submit": map[string]interface{}{
			"engine_result":         "tecUNFUNDED_PAYMENT",
			"engine_result_message": "Insufficient XRP balance to send.",
			"status":                "success",
		},
	})
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Submit(context.Background(), "120000ABC")

	require.Error(t, err)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "tecUNFUNDED_PAYMENT", engineErr.Result.EngineResult)
}

func TestAccountInfoAndBalances(t *testing.T) {
	server := rpcServer(t, map[string]interface{}{
		"account_info": map[string]interface{}{
			"account_data": map[string]interface{}{
				"Account":  "rTestAccount",
				"Balance":  "25000000",
				"Sequence": 17,
			},
		},
	})
	defer server.Close()

	client := NewClient(server.URL)

	account, err := client.AccountInfo(context.Background(), "rTestAccount")
	require.NoError(t, err)
	assert.Equal(t, uint32(17), account.Sequence)

	drops, err := client.GetBalanceDrops(context.Background(), "rTestAccount")
	require.NoError(t, err)
	assert.Equal(t, int64(25_000_000), drops)

	balances, err := client.GetBalances(context.Background(), "rTestAccount")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "XRP", balances[0].Currency)
	assert.Equal(t, "25", balances[0].Value)
}

func TestValidatedLedgerIndex(t *testing.T) {
	server := rpcServer(t, map[string]interface{}{
		"ledger": map[string]interface{}{"ledger_index": 81000123},
	})
	defer server.Close()

	client := NewClient(server.URL)
	index, err := client.ValidatedLedgerIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(81000123), index)
}

func TestSign(t *testing.T) {
	server := rpcServer(t, map[string]interface{}{
		"sign": map[string]interface{}{
			"tx_blob": "SIGNEDBLOB123",
			"tx_json": map[string]interface{}{"hash": "SIGNEDHASH"},
		},
	})
	defer server.Close()

	client := NewClient(server.URL)
	blob, err := client.Sign(context.Background(), PaymentTx{
		TransactionType: "Payment",
		Account:         "rTestAccount",
		Amount:          "1000000",
		Destination:     "rDestination",
		Fee:             "12",
	}, "sSecret")

	require.NoError(t, err)
	assert.Equal(t, "SIGNEDBLOB123", blob)
}

func TestXRPToDrops(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{amount: 10, want: "10000000"},
		{amount: 0.000001, want: "1"},
		{amount: 1.5, want: "1500000"},
		{amount: 0, want: "0"},
		// Sub-drop precision truncates toward zero
		{amount: 1.0000019, want: "1000001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, XRPToDrops(tt.amount), "amount %v", tt.amount)
	}
}

func TestDropsToXRP(t *testing.T) {
	assert.Equal(t, "10", DropsToXRP(10_000_000))
	assert.Equal(t, "0.000001", DropsToXRP(1))
	assert.Equal(t, "1.5", DropsToXRP(1_500_000))
}
