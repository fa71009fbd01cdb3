package xaman

// PaymentTransaction is the transaction template the user is asked to sign.
type PaymentTransaction struct {
	TransactionType string `json:"TransactionType"`
	Destination     string `json:"Destination"`
	Amount          string `json:"Amount"`
}

// ReturnURL configures where the wallet app sends the user after resolving
type ReturnURL struct {
	Web string `json:"web,omitempty"`
}

// PayloadOptions controls how the gateway handles the signed result. Submit
// false means the gateway hands back the signed blob instead of submitting it.
type PayloadOptions struct {
	Submit    bool       `json:"submit"`
	ReturnURL *ReturnURL `json:"return_url,omitempty"`
}

// CustomMeta carries free-form metadata attached to the signing request
type CustomMeta struct {
	Instruction string                 `json:"instruction,omitempty"`
	Blob        map[string]interface{} `json:"blob,omitempty"`
}

// CreatePayloadRequest is the body for POST /platform/payload
type CreatePayloadRequest struct {
	TxJSON     PaymentTransaction `json:"txjson"`
	Options    PayloadOptions     `json:"options"`
	CustomMeta CustomMeta         `json:"custom_meta"`
}

// PayloadRefs holds the scannable artifacts for a created payload
type PayloadRefs struct {
	QRPng string `json:"qr_png"`
}

// PayloadNext holds the deeplink for a created payload
type PayloadNext struct {
	Always string `json:"always"`
}

// CreatePayloadResponse is the gateway's answer to a payload creation
type CreatePayloadResponse struct {
	UUID string      `json:"uuid"`
	Refs PayloadRefs `json:"refs"`
	Next PayloadNext `json:"next"`
}

// PayloadMeta carries the resolution flags for a payload
type PayloadMeta struct {
	Resolved  bool `json:"resolved"`
	Signed    bool `json:"signed"`
	Cancelled bool `json:"cancelled"`
	Expired   bool `json:"expired"`
}

// PayloadResponse carries the signed result once the user has acted
type PayloadResponse struct {
	TxID             string `json:"txid"`
	Account          string `json:"account"`
	Hex              string `json:"hex"`
	DispatchedResult string `json:"dispatched_result"`
}

// PayloadStatus is the gateway's answer to GET /platform/payload/{id}
type PayloadStatus struct {
	Meta     PayloadMeta     `json:"meta"`
	Response PayloadResponse `json:"response"`
}

// Outcome reduces a PayloadStatus to a single state
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSigned    Outcome = "signed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeExpired   Outcome = "expired"
)

// Outcome returns the terminal or pending state of the payload
func (s *PayloadStatus) Outcome() Outcome {
	switch {
	case s.Meta.Signed:
		return OutcomeSigned
	case s.Meta.Cancelled:
		return OutcomeCancelled
	case s.Meta.Expired:
		return OutcomeExpired
	default:
		return OutcomePending
	}
}

// Terminal reports whether the payload has reached a final state
func (s *PayloadStatus) Terminal() bool {
	return s.Outcome() != OutcomePending
}

// PingResponse is the gateway's answer to GET /platform/ping
type PingResponse struct {
	Pong bool `json:"pong"`
	Auth struct {
		Application struct {
			Name string `json:"name"`
			UUID string `json:"uuidv4"`
		} `json:"application"`
	} `json:"auth"`
}

// gatewayError mirrors the error envelope the gateway wraps failures in
type gatewayError struct {
	Error struct {
		Code      int    `json:"code"`
		Reference string `json:"reference"`
	} `json:"error"`
}
