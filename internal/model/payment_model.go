package model

import "time"

// PaymentModel rows are terminal. The composite unique index on
// (provider, external_id) is the idempotency guard: the settlement
// engine's INSERT either takes the slot or fails with a duplicate key.
type PaymentModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider   string    `gorm:"type:varchar(32);uniqueIndex:uq_payments_provider_external;not null" json:"provider"`
	ExternalID string    `gorm:"type:varchar(128);uniqueIndex:uq_payments_provider_external;not null" json:"external_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Status     string    `gorm:"type:varchar(16);index;not null" json:"status"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PaymentModel) TableName() string {
	return "payments"
}

type PendingTopupModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Provider   string    `gorm:"type:varchar(32);index;not null" json:"provider"`
	ExternalID string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"external_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (PendingTopupModel) TableName() string {
	return "pending_topups"
}

type ReferralEarningModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID     int64     `gorm:"index;not null" json:"referrer_id"`
	ReferredID     int64     `gorm:"index;not null" json:"referred_id"`
	Amount         int64     `gorm:"not null" json:"amount"`
	OriginalAmount int64     `gorm:"not null" json:"original_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ReferralEarningModel) TableName() string {
	return "referral_earnings"
}

type OperationModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Amount    int64     `gorm:"column:operation_value;not null" json:"amount"`
	CreatedAt time.Time `gorm:"column:operation_time;index" json:"created_at"`
}

func (OperationModel) TableName() string {
	return "operations"
}
