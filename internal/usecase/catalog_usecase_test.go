package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digi-shop/internal/entity"
	"digi-shop/pkg/logger"
)

func newTestCatalog(store *fakeStore) CatalogUseCase {
	return NewCatalogUseCase(store, nil, logger.New())
}

func TestRegisterUser_DropsSelfReferral(t *testing.T) {
	store := newFakeStore()
	uc := newTestCatalog(store)

	self := int64(100)
	require.NoError(t, uc.RegisterUser(context.Background(), 100, &self))

	user, err := store.GetUser(context.Background(), 100)
	require.NoError(t, err)
	assert.Nil(t, user.ReferrerID)
}

func TestRegisterUser_RepeatedStartKeepsOriginalReferrer(t *testing.T) {
	store := newFakeStore()
	uc := newTestCatalog(store)

	first := int64(1)
	second := int64(2)
	require.NoError(t, uc.RegisterUser(context.Background(), 100, &first))
	require.NoError(t, uc.RegisterUser(context.Background(), 100, &second))

	user, err := store.GetUser(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, user.ReferrerID)
	assert.Equal(t, int64(1), *user.ReferrerID)
}

func TestHasPermission(t *testing.T) {
	store := newFakeStore()
	store.state.roles[2] = entity.Role{
		ID:          2,
		Name:        entity.RoleAdmin,
		Permissions: entity.PermissionUse | entity.PermissionShopManage | entity.PermissionBroadcast,
	}
	mustCreateUser(t, store, 1, 0, nil)
	mustCreateUser(t, store, 2, 0, nil)
	require.NoError(t, store.SetRole(context.Background(), 2, 2))
	uc := newTestCatalog(store)

	ok, err := uc.HasPermission(context.Background(), 1, entity.PermissionShopManage)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = uc.HasPermission(context.Background(), 2, entity.PermissionShopManage)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = uc.HasPermission(context.Background(), 2, entity.PermissionOwn)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetItemInfo(t *testing.T) {
	store := newFakeStore()
	mustCreateGood(t, store, "steam-key", 700)
	mustAddStock(t, store, "steam-key", "AAAA", false)
	mustAddStock(t, store, "steam-key", "BBBB", false)
	uc := newTestCatalog(store)

	info, err := uc.GetItemInfo(context.Background(), "steam-key")
	require.NoError(t, err)
	assert.Equal(t, int64(700), info.Good.Price)
	assert.Equal(t, int64(2), info.Available)
	assert.False(t, info.Unlimited)

	_, err = uc.GetItemInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrItemNotFound)
}

func TestGetItemInfo_Unlimited(t *testing.T) {
	store := newFakeStore()
	mustCreateGood(t, store, "vpn-sub", 1000)
	mustAddStock(t, store, "vpn-sub", "shared", true)
	uc := newTestCatalog(store)

	info, err := uc.GetItemInfo(context.Background(), "vpn-sub")
	require.NoError(t, err)
	assert.True(t, info.Unlimited)
}

func TestCreateGood_RejectsNonPositivePrice(t *testing.T) {
	store := newFakeStore()
	uc := newTestCatalog(store)

	err := uc.CreateGood(context.Background(), &entity.Good{Name: "freebie", Price: 0})
	assert.Error(t, err)

	err = uc.CreateGood(context.Background(), &entity.Good{Name: "debt", Price: -5})
	assert.Error(t, err)
}

func TestAddStockUnit_DuplicatePayloadIgnored(t *testing.T) {
	store := newFakeStore()
	mustCreateGood(t, store, "steam-key", 700)
	uc := newTestCatalog(store)

	added, err := uc.AddStockUnit(context.Background(), &entity.StockUnit{ItemName: "steam-key", Payload: "AAAA"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = uc.AddStockUnit(context.Background(), &entity.StockUnit{ItemName: "steam-key", Payload: "AAAA"})
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, int64(1), stockCount(t, store, "steam-key"))
}

func TestReferralStats(t *testing.T) {
	store := newFakeStore()
	mustCreateUser(t, store, 1, 0, nil)
	referrer := int64(1)
	mustCreateUser(t, store, 2, 0, &referrer)
	mustCreateUser(t, store, 3, 0, &referrer)
	uc := newTestCatalog(store)

	settle := newTestSettlement(store)
	require.True(t, settle.SettlePayment(context.Background(), 2, 1000, entity.ProviderCryptoPay, "a", 10).Success)
	require.True(t, settle.SettlePayment(context.Background(), 3, 500, entity.ProviderCryptoPay, "b", 10).Success)

	report, err := uc.ReferralStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Referrals)
	assert.Equal(t, int64(2), report.EarningsCount)
	assert.Equal(t, int64(150), report.EarningsTotal)
}
