package usecase

import (
	"context"
	"errors"
	"fmt"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/cache"
	"digi-shop/pkg/logger"
)

type SettlementUseCase interface {
	// SettlePayment credits a user balance for one external payment
	// exactly once. For any fixed (provider, externalID) concurrent or
	// repeated calls yield exactly one success; all others resolve to
	// already_processed with zero side effects.
	SettlePayment(ctx context.Context, userID int64, amount int64, provider, externalID string, referralPercent int) entity.SettlementOutcome

	// OpenTopup registers an issued invoice so the recovery poller can
	// find it if the user never comes back to confirm.
	OpenTopup(ctx context.Context, userID int64, amount int64, provider, externalID string) error

	// PendingTopup resolves an open invoice to its owner. Transports
	// must verify ownership through this before asking for settlement
	// of a caller-supplied external id.
	PendingTopup(ctx context.Context, provider, externalID string) (*entity.PendingTopup, error)
}

type settlementUseCase struct {
	store  persistent.Store
	cache  *cache.Manager
	logger *logger.Logger
}

func NewSettlementUseCase(store persistent.Store, cacheManager *cache.Manager, log *logger.Logger) SettlementUseCase {
	return &settlementUseCase{
		store:  store,
		cache:  cacheManager,
		logger: log,
	}
}

func (uc *settlementUseCase) SettlePayment(ctx context.Context, userID int64, amount int64, provider, externalID string, referralPercent int) entity.SettlementOutcome {
	if amount <= 0 || externalID == "" {
		uc.logger.Warn("Rejected settlement for user %d: amount=%d external_id=%q", userID, amount, externalID)
		return entity.SettlementOutcome{Success: false, Reason: entity.ReasonTransactionError}
	}
	if referralPercent < 0 {
		referralPercent = 0
	}
	if referralPercent > 100 {
		referralPercent = 100
	}

	err := uc.store.WithinTx(ctx, func(tx persistent.Store) error {
		// Insert-as-lock: the unique (provider, external_id) constraint
		// is the sole idempotency mechanism. A duplicate aborts the
		// whole transaction before any balance is touched.
		record := &entity.PaymentRecord{
			Provider:   provider,
			ExternalID: externalID,
			Amount:     amount,
			Status:     entity.PaymentStatusSucceeded,
			UserID:     userID,
		}
		if err := tx.InsertPayment(ctx, record); err != nil {
			return err
		}

		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if err := tx.AddBalance(ctx, userID, amount); err != nil {
			return fmt.Errorf("credit user %d: %w", userID, err)
		}

		if err := tx.InsertOperation(ctx, &entity.Operation{UserID: userID, Amount: amount}); err != nil {
			return fmt.Errorf("journal top-up: %w", err)
		}

		if user.ReferrerID != nil && referralPercent > 0 {
			if err := uc.disburseBonus(ctx, tx, user, amount, referralPercent); err != nil {
				return err
			}
		}

		// The invoice is no longer pending regardless of rail
		if err := tx.DeletePendingTopup(ctx, provider, externalID); err != nil {
			return fmt.Errorf("finish pending topup: %w", err)
		}

		return nil
	})

	switch {
	case err == nil:
		uc.invalidateAfterSettle(userID)
		uc.logger.Info("Settled payment %s/%s: user %d credited %d", provider, externalID, userID, amount)
		return entity.SettlementOutcome{Success: true, Reason: entity.ReasonSuccess}
	case errors.Is(err, entity.ErrAlreadyProcessed):
		return entity.SettlementOutcome{Success: false, Reason: entity.ReasonAlreadyProcessed}
	case errors.Is(err, entity.ErrUserNotFound):
		return entity.SettlementOutcome{Success: false, Reason: entity.ReasonUserNotFound}
	default:
		uc.logger.Error("Settlement of %s/%s failed: %v", provider, externalID, err)
		return entity.SettlementOutcome{Success: false, Reason: entity.ReasonTransactionError}
	}
}

func (uc *settlementUseCase) OpenTopup(ctx context.Context, userID int64, amount int64, provider, externalID string) error {
	if amount <= 0 || externalID == "" {
		return fmt.Errorf("invalid topup: amount=%d external_id=%q", amount, externalID)
	}
	pending := &entity.PendingTopup{
		UserID:     userID,
		Amount:     amount,
		Provider:   provider,
		ExternalID: externalID,
	}
	if err := uc.store.CreatePendingTopup(ctx, pending); err != nil {
		return fmt.Errorf("open topup %s/%s: %w", provider, externalID, err)
	}
	return nil
}

func (uc *settlementUseCase) PendingTopup(ctx context.Context, provider, externalID string) (*entity.PendingTopup, error) {
	return uc.store.GetPendingTopup(ctx, provider, externalID)
}

// disburseBonus credits the referrer inside the same transaction.
// A vanished referrer does not fail the settlement.
func (uc *settlementUseCase) disburseBonus(ctx context.Context, tx persistent.Store, user *entity.User, amount int64, referralPercent int) error {
	// Floor truncation in minor units
	bonus := amount * int64(referralPercent) / 100
	if bonus <= 0 {
		return nil
	}

	referrer, err := tx.GetUserForUpdate(ctx, *user.ReferrerID)
	if errors.Is(err, entity.ErrUserNotFound) {
		uc.logger.Warn("Referrer %d of user %d no longer exists, skipping bonus", *user.ReferrerID, user.TelegramID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load referrer %d: %w", *user.ReferrerID, err)
	}

	if err := tx.AddBalance(ctx, referrer.TelegramID, bonus); err != nil {
		return fmt.Errorf("credit referrer %d: %w", referrer.TelegramID, err)
	}

	earning := &entity.ReferralEarning{
		ReferrerID:     referrer.TelegramID,
		ReferredID:     user.TelegramID,
		Amount:         bonus,
		OriginalAmount: amount,
	}
	if err := tx.InsertReferralEarning(ctx, earning); err != nil {
		return fmt.Errorf("record referral earning: %w", err)
	}

	return nil
}

func (uc *settlementUseCase) invalidateAfterSettle(userID int64) {
	if uc.cache == nil {
		return
	}
	uc.cache.InvalidateAsync(
		fmt.Sprintf("user:%d", userID),
		"stats:summary",
	)
}
