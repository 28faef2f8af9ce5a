package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SoldUnitModel struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID   string    `gorm:"type:uuid;uniqueIndex;not null" json:"sale_id"`
	ItemName string    `gorm:"type:varchar(100);index;not null" json:"item_name"`
	Payload  string    `gorm:"type:text;column:value;not null" json:"value"`
	Price    int64     `gorm:"not null" json:"price"`
	BuyerID  int64     `gorm:"index;not null" json:"buyer_id"`
	BoughtAt time.Time `gorm:"not null" json:"bought_at"`
}

func (SoldUnitModel) TableName() string {
	return "bought_goods"
}

func (s *SoldUnitModel) BeforeCreate(tx *gorm.DB) error {
	if s.SaleID == "" {
		s.SaleID = uuid.New().String()
	}
	return nil
}
