package dto

type AuthNonceRequest struct {
	Address string `json:"address"`
}

type AuthLoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"` // hex, personal-sign over the nonce message
}

type CreateEscrowRequest struct {
	SenderSNSID   string `json:"sender_sns_id"`
	Hash          string `json:"hash"`
	Receiver      string `json:"receiver,omitempty"`        // empty or zero address: unresolved
	ReceiverSNSID string `json:"receiver_sns_id,omitempty"`
	Amount        string `json:"amount"`                    // smallest unit, decimal string
	TokenAddress  string `json:"token_address,omitempty"`   // empty or zero address: native asset
	Expiration    int64  `json:"expiration"`                // unix seconds
	WrapperType   string `json:"wrapper_type"`
	Value         string `json:"value,omitempty"`           // attached native value
}

type ClaimEscrowRequest struct {
	Claimant string `json:"claimant"`
	Proof    string `json:"proof,omitempty"` // hex
}

type RoleChangeRequest struct {
	Role    string `json:"role"`    // name (RELAYER_ROLE) or 32-byte hex id
	Account string `json:"account"`
}
