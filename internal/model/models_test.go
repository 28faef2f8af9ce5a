package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoldUnit_BeforeCreate(t *testing.T) {
	sold := &SoldUnitModel{
		ItemName: "steam-key",
		Payload:  "XXXX-YYYY",
		Price:    1000,
		BuyerID:  123,
	}

	// BeforeCreate should set SaleID if empty
	err := sold.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, sold.SaleID)
}

func TestSoldUnit_BeforeCreate_WithSaleID(t *testing.T) {
	existingID := "existing-sale-id-123"
	sold := &SoldUnitModel{
		SaleID:   existingID,
		ItemName: "steam-key",
		Payload:  "XXXX-YYYY",
	}

	err := sold.BeforeCreate(nil)
	assert.NoError(t, err)
	// SaleID should remain unchanged if already set
	assert.Equal(t, existingID, sold.SaleID)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", UserModel{}.TableName())
	assert.Equal(t, "roles", RoleModel{}.TableName())
	assert.Equal(t, "goods", GoodModel{}.TableName())
	assert.Equal(t, "item_values", StockUnitModel{}.TableName())
	assert.Equal(t, "bought_goods", SoldUnitModel{}.TableName())
	assert.Equal(t, "payments", PaymentModel{}.TableName())
	assert.Equal(t, "pending_topups", PendingTopupModel{}.TableName())
	assert.Equal(t, "referral_earnings", ReferralEarningModel{}.TableName())
	assert.Equal(t, "operations", OperationModel{}.TableName())
}
