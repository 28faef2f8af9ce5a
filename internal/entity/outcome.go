package entity

import "errors"

// Reason is the outcome vocabulary consumed by transport handlers for
// user-facing messaging.
type Reason string

const (
	ReasonSuccess           Reason = "success"
	ReasonAlreadyProcessed  Reason = "already_processed"
	ReasonUserNotFound      Reason = "user_not_found"
	ReasonItemNotFound      Reason = "item_not_found"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonOutOfStock        Reason = "out_of_stock"
	ReasonTransactionError  Reason = "transaction_error"
)

// Business declines. Each always leaves the ledger unchanged.
var (
	ErrAlreadyProcessed  = errors.New("payment already processed")
	ErrUserNotFound      = errors.New("user not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOutOfStock        = errors.New("out of stock")
)

type SettlementOutcome struct {
	Success bool   `json:"success"`
	Reason  Reason `json:"reason"`
}

type PurchaseData struct {
	Price      int64  `json:"price"`
	NewBalance int64  `json:"new_balance"`
	Payload    string `json:"payload"`
	SaleID     string `json:"sale_id"`
}

type PurchaseOutcome struct {
	Success bool          `json:"success"`
	Reason  Reason        `json:"reason"`
	Data    *PurchaseData `json:"data,omitempty"`
}
