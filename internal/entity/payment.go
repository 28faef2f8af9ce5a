package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment providers.
const (
	ProviderCryptoPay = "cryptopay"
	ProviderStars     = "stars"
	ProviderTelegram  = "telegram"
)

// PaymentRecord is one terminal row per external payment. The pair
// (Provider, ExternalID) is unique; the settlement engine's insert of
// this row is the idempotency guard.
type PaymentRecord struct {
	ID         int64         `json:"id"`
	Provider   string        `json:"provider"`
	ExternalID string        `json:"external_id"`
	Amount     int64         `json:"amount"`
	Status     PaymentStatus `json:"status"`
	UserID     int64         `json:"user_id"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PendingTopup tracks an open invoice until the settlement engine or
// the recovery poller resolves it. It carries no money.
type PendingTopup struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Amount     int64     `json:"amount"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReferralEarning is the immutable record of a referral bonus.
type ReferralEarning struct {
	ID             int64     `json:"id"`
	ReferrerID     int64     `json:"referrer_id"`
	ReferredID     int64     `json:"referred_id"`
	Amount         int64     `json:"amount"`
	OriginalAmount int64     `json:"original_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// Operation is one row of the top-up journal.
type Operation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
