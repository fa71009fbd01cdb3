package xrpl

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// EngineSuccess is the sentinel engine result denoting a validated submission
	EngineSuccess = "tesSUCCESS"

	// DropsPerXRP is the number of minor units in one display unit
	DropsPerXRP = 1_000_000

	// StandardFeeDrops is the standard transaction fee in drops
	StandardFeeDrops = 12
)

// rpcRequest is the JSON-RPC-over-HTTP envelope the ledger network accepts
type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// SubmitResult is the engine's answer to a raw blob submission
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	Status              string `json:"status"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// Succeeded reports whether the engine accepted the transaction
func (r *SubmitResult) Succeeded() bool {
	return r.EngineResult == EngineSuccess
}

// AccountData is the on-ledger state of an account
type AccountData struct {
	Account  string `json:"Account"`
	Balance  string `json:"Balance"`
	Sequence uint32 `json:"Sequence"`
}

// Balance is a single currency position, value in display units
type Balance struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// PaymentTx is the unsigned payment the platform wallet forwards with
type PaymentTx struct {
	TransactionType    string `json:"TransactionType"`
	Account            string `json:"Account"`
	Amount             string `json:"Amount"`
	Destination        string `json:"Destination"`
	Sequence           uint32 `json:"Sequence"`
	LastLedgerSequence int64  `json:"LastLedgerSequence"`
	Fee                string `json:"Fee"`
}

// EngineError is returned when a submission resolves to a non-success engine
// result. The raw result is attached for the caller.
type EngineError struct {
	Result *SubmitResult
}

func (e *EngineError) Error() string {
	if e.Result == nil || e.Result.EngineResult == "" {
		return "transaction failed: unknown engine result"
	}
	return fmt.Sprintf("transaction failed: %s (%s)", e.Result.EngineResult, e.Result.EngineResultMessage)
}

// XRPToDrops converts a display-unit amount to a drops string, truncating
// toward zero the way the platform has always encoded donation amounts.
func XRPToDrops(amount float64) string {
	return strconv.FormatInt(int64(math.Floor(amount*DropsPerXRP)), 10)
}

// DropsToXRP converts a drops balance to a display-unit decimal string
func DropsToXRP(drops int64) string {
	return strconv.FormatFloat(float64(drops)/DropsPerXRP, 'f', -1, 64)
}
