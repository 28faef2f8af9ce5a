package persistent

import (
	"context"
	"time"

	"digi-shop/internal/entity"
)

// Store is the ledger boundary the engines run against. WithinTx
// scopes a group of calls to one transaction: the callback's Store
// operates on the transaction, commit happens iff the callback
// returns nil, and any error rolls back every change.
//
// ForUpdate variants take a row-level exclusive lock that spans the
// read and the subsequent write; there is no read-decide-write gap.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Users
	GetUser(ctx context.Context, telegramID int64) (*entity.User, error)
	GetUserForUpdate(ctx context.Context, telegramID int64) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) error
	AddBalance(ctx context.Context, telegramID int64, delta int64) error
	SetRole(ctx context.Context, telegramID int64, roleID int) error
	GetRole(ctx context.Context, roleID int) (*entity.Role, error)
	GetRoleByName(ctx context.Context, name string) (*entity.Role, error)
	UpsertRole(ctx context.Context, role *entity.Role) error

	// Catalog
	GetGood(ctx context.Context, name string) (*entity.Good, error)
	GetGoodShared(ctx context.Context, name string) (*entity.Good, error)
	CreateGood(ctx context.Context, good *entity.Good) error
	DeleteGood(ctx context.Context, name string) error
	CreateCategory(ctx context.Context, name string) error
	ListCategories(ctx context.Context) ([]*entity.Category, error)
	ListGoods(ctx context.Context, category string) ([]*entity.Good, error)
	AddStockUnit(ctx context.Context, unit *entity.StockUnit) (bool, error)
	CountStock(ctx context.Context, itemName string) (int64, error)
	HasInfiniteUnit(ctx context.Context, itemName string) (bool, error)
	AllocateUnit(ctx context.Context, itemName string) (payload string, consumed bool, err error)

	// Sales
	InsertSoldUnit(ctx context.Context, sold *entity.SoldUnit) error
	GetSoldUnit(ctx context.Context, saleID string) (*entity.SoldUnit, error)
	ListUserPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]*entity.SoldUnit, error)

	// Payments
	InsertPayment(ctx context.Context, payment *entity.PaymentRecord) error
	InsertOperation(ctx context.Context, op *entity.Operation) error
	InsertReferralEarning(ctx context.Context, earning *entity.ReferralEarning) error
	CreatePendingTopup(ctx context.Context, pending *entity.PendingTopup) error
	GetPendingTopup(ctx context.Context, provider, externalID string) (*entity.PendingTopup, error)
	ListStalePendingTopups(ctx context.Context, provider string, olderThan time.Time) ([]*entity.PendingTopup, error)
	DeletePendingTopup(ctx context.Context, provider, externalID string) error

	// Referral reporting
	CountReferrals(ctx context.Context, referrerID int64) (int64, error)
	ReferralEarningsSummary(ctx context.Context, referrerID int64) (count int64, total int64, err error)

	// Stats and health
	Stats(ctx context.Context) (*Stats, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	Ping(ctx context.Context) error
}

// Stats is the aggregate snapshot served by the ops API.
type Stats struct {
	Users      int64 `json:"users"`
	Goods      int64 `json:"goods"`
	StockUnits int64 `json:"stock_units"`
	Sold       int64 `json:"sold"`
	Revenue    int64 `json:"revenue"`
	TopUpTotal int64 `json:"topup_total"`
}
