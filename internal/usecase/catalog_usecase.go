package usecase

import (
	"context"
	"fmt"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/cache"
	"digi-shop/pkg/logger"
)

type ItemInfo struct {
	Good      *entity.Good `json:"good"`
	Available int64        `json:"available"`
	Unlimited bool         `json:"unlimited"`
}

type ReferralReport struct {
	Referrals     int64 `json:"referrals"`
	EarningsCount int64 `json:"earnings_count"`
	EarningsTotal int64 `json:"earnings_total"`
}

// CatalogUseCase serves the read-mostly paths. Reads may come from the
// cache; every mutation goes straight to the ledger and invalidates.
type CatalogUseCase interface {
	RegisterUser(ctx context.Context, telegramID int64, referrerID *int64) error
	GetProfile(ctx context.Context, telegramID int64) (*entity.User, error)
	HasPermission(ctx context.Context, telegramID int64, permission int) (bool, error)

	ListCategories(ctx context.Context) ([]*entity.Category, error)
	ListGoods(ctx context.Context, category string) ([]*entity.Good, error)
	GetItemInfo(ctx context.Context, itemName string) (*ItemInfo, error)
	GetPurchase(ctx context.Context, saleID string) (*entity.SoldUnit, error)
	ListPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]*entity.SoldUnit, error)
	ReferralStats(ctx context.Context, referrerID int64) (*ReferralReport, error)

	CreateCategory(ctx context.Context, name string) error
	CreateGood(ctx context.Context, good *entity.Good) error
	DeleteGood(ctx context.Context, name string) error
	AddStockUnit(ctx context.Context, unit *entity.StockUnit) (bool, error)
}

type catalogUseCase struct {
	store  persistent.Store
	cache  *cache.Manager
	logger *logger.Logger
}

func NewCatalogUseCase(store persistent.Store, cacheManager *cache.Manager, log *logger.Logger) CatalogUseCase {
	return &catalogUseCase{
		store:  store,
		cache:  cacheManager,
		logger: log,
	}
}

func (uc *catalogUseCase) RegisterUser(ctx context.Context, telegramID int64, referrerID *int64) error {
	// Self-referral is meaningless
	if referrerID != nil && *referrerID == telegramID {
		referrerID = nil
	}
	user := &entity.User{
		TelegramID: telegramID,
		RoleID:     1,
		ReferrerID: referrerID,
	}
	if err := uc.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("register user %d: %w", telegramID, err)
	}
	return nil
}

func (uc *catalogUseCase) GetProfile(ctx context.Context, telegramID int64) (*entity.User, error) {
	key := fmt.Sprintf("user:%d", telegramID)
	if uc.cache != nil {
		var cached entity.User
		if hit, err := uc.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	user, err := uc.store.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, user, cache.DefaultTTL); err != nil {
			uc.logger.Warn("Failed to cache profile %d: %v", telegramID, err)
		}
	}
	return user, nil
}

func (uc *catalogUseCase) HasPermission(ctx context.Context, telegramID int64, permission int) (bool, error) {
	user, err := uc.GetProfile(ctx, telegramID)
	if err != nil {
		return false, err
	}
	role, err := uc.store.GetRole(ctx, user.RoleID)
	if err != nil {
		return false, fmt.Errorf("load role %d: %w", user.RoleID, err)
	}
	return role.Has(permission), nil
}

func (uc *catalogUseCase) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	return uc.store.ListCategories(ctx)
}

func (uc *catalogUseCase) ListGoods(ctx context.Context, category string) ([]*entity.Good, error) {
	return uc.store.ListGoods(ctx, category)
}

func (uc *catalogUseCase) GetItemInfo(ctx context.Context, itemName string) (*ItemInfo, error) {
	key := fmt.Sprintf("item:%s", itemName)
	if uc.cache != nil {
		var cached ItemInfo
		if hit, err := uc.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	good, err := uc.store.GetGood(ctx, itemName)
	if err != nil {
		return nil, err
	}
	count, err := uc.store.CountStock(ctx, itemName)
	if err != nil {
		return nil, fmt.Errorf("count stock for %q: %w", itemName, err)
	}

	unlimited, err := uc.store.HasInfiniteUnit(ctx, itemName)
	if err != nil {
		return nil, fmt.Errorf("check supply mode for %q: %w", itemName, err)
	}

	info := &ItemInfo{Good: good, Available: count, Unlimited: unlimited}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, info, cache.DefaultTTL); err != nil {
			uc.logger.Warn("Failed to cache item %q: %v", itemName, err)
		}
	}
	return info, nil
}

func (uc *catalogUseCase) GetPurchase(ctx context.Context, saleID string) (*entity.SoldUnit, error) {
	return uc.store.GetSoldUnit(ctx, saleID)
}

func (uc *catalogUseCase) ListPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]*entity.SoldUnit, error) {
	return uc.store.ListUserPurchases(ctx, buyerID, limit, offset)
}

func (uc *catalogUseCase) ReferralStats(ctx context.Context, referrerID int64) (*ReferralReport, error) {
	referrals, err := uc.store.CountReferrals(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	count, total, err := uc.store.ReferralEarningsSummary(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	return &ReferralReport{
		Referrals:     referrals,
		EarningsCount: count,
		EarningsTotal: total,
	}, nil
}

func (uc *catalogUseCase) CreateCategory(ctx context.Context, name string) error {
	return uc.store.CreateCategory(ctx, name)
}

func (uc *catalogUseCase) CreateGood(ctx context.Context, good *entity.Good) error {
	if good.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	if err := uc.store.CreateGood(ctx, good); err != nil {
		return err
	}
	uc.invalidateItem(good.Name)
	return nil
}

func (uc *catalogUseCase) DeleteGood(ctx context.Context, name string) error {
	if err := uc.store.DeleteGood(ctx, name); err != nil {
		return err
	}
	uc.invalidateItem(name)
	return nil
}

func (uc *catalogUseCase) AddStockUnit(ctx context.Context, unit *entity.StockUnit) (bool, error) {
	added, err := uc.store.AddStockUnit(ctx, unit)
	if err != nil {
		return false, err
	}
	if added {
		uc.invalidateItem(unit.ItemName)
	}
	return added, nil
}

func (uc *catalogUseCase) invalidateItem(name string) {
	if uc.cache == nil {
		return
	}
	uc.cache.InvalidateAsync(
		fmt.Sprintf("item:%s", name),
		fmt.Sprintf("item:%s:stock", name),
		"stats:summary",
	)
}
