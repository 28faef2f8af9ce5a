package entity

import "time"

// SoldUnit is the immutable receipt of one completed sale. SaleID is
// globally unique and is the reference for "view my purchase" lookups.
type SoldUnit struct {
	ID       int64     `json:"id"`
	SaleID   string    `json:"sale_id"`
	ItemName string    `json:"item_name"`
	Payload  string    `json:"payload"`
	Price    int64     `json:"price"`
	BuyerID  int64     `json:"buyer_id"`
	BoughtAt time.Time `json:"bought_at"`
}
