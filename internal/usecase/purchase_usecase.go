package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/cache"
	"digi-shop/pkg/logger"

	"github.com/google/uuid"
)

type PurchaseUseCase interface {
	// BuyItem debits the buyer, removes one unit of stock and records
	// the sale as one atomic unit. Any failure, including a failure
	// after allocation, leaves the ledger exactly as it was.
	BuyItem(ctx context.Context, userID int64, itemName string) entity.PurchaseOutcome
}

type purchaseUseCase struct {
	store  persistent.Store
	cache  *cache.Manager
	logger *logger.Logger
}

func NewPurchaseUseCase(store persistent.Store, cacheManager *cache.Manager, log *logger.Logger) PurchaseUseCase {
	return &purchaseUseCase{
		store:  store,
		cache:  cacheManager,
		logger: log,
	}
}

func (uc *purchaseUseCase) BuyItem(ctx context.Context, userID int64, itemName string) entity.PurchaseOutcome {
	var data *entity.PurchaseData

	err := uc.store.WithinTx(ctx, func(tx persistent.Store) error {
		good, err := tx.GetGoodShared(ctx, itemName)
		if err != nil {
			return err
		}

		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if user.Balance < good.Price {
			return entity.ErrInsufficientFunds
		}

		payload, _, err := tx.AllocateUnit(ctx, itemName)
		if err != nil {
			return err
		}

		if err := tx.AddBalance(ctx, userID, -good.Price); err != nil {
			return fmt.Errorf("debit user %d: %w", userID, err)
		}

		sold := &entity.SoldUnit{
			SaleID:   uuid.New().String(),
			ItemName: good.Name,
			Payload:  payload,
			Price:    good.Price,
			BuyerID:  userID,
			BoughtAt: time.Now().UTC(),
		}
		if err := tx.InsertSoldUnit(ctx, sold); err != nil {
			return fmt.Errorf("record sale: %w", err)
		}

		data = &entity.PurchaseData{
			Price:      good.Price,
			NewBalance: user.Balance - good.Price,
			Payload:    payload,
			SaleID:     sold.SaleID,
		}
		return nil
	})

	switch {
	case err == nil:
		uc.invalidateAfterPurchase(userID, itemName)
		uc.logger.Info("User %d bought %q for %d (sale %s)", userID, itemName, data.Price, data.SaleID)
		return entity.PurchaseOutcome{Success: true, Reason: entity.ReasonSuccess, Data: data}
	case errors.Is(err, entity.ErrItemNotFound):
		return entity.PurchaseOutcome{Success: false, Reason: entity.ReasonItemNotFound}
	case errors.Is(err, entity.ErrUserNotFound):
		return entity.PurchaseOutcome{Success: false, Reason: entity.ReasonUserNotFound}
	case errors.Is(err, entity.ErrInsufficientFunds):
		return entity.PurchaseOutcome{Success: false, Reason: entity.ReasonInsufficientFunds}
	case errors.Is(err, entity.ErrOutOfStock):
		return entity.PurchaseOutcome{Success: false, Reason: entity.ReasonOutOfStock}
	default:
		uc.logger.Error("Purchase of %q by user %d failed: %v", itemName, userID, err)
		return entity.PurchaseOutcome{Success: false, Reason: entity.ReasonTransactionError}
	}
}

func (uc *purchaseUseCase) invalidateAfterPurchase(userID int64, itemName string) {
	if uc.cache == nil {
		return
	}
	uc.cache.InvalidateAsync(
		fmt.Sprintf("user:%d", userID),
		fmt.Sprintf("item:%s", itemName),
		fmt.Sprintf("item:%s:stock", itemName),
		"stats:summary",
	)
}
