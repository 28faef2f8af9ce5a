package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digi-shop/internal/entity"
	"digi-shop/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	db *gorm.DB
}

// NewLedger wraps the shared connection pool. The handle is passed
// into every engine at construction time; there is no global lookup.
func NewLedger(db *gorm.DB) Store {
	return &ledger{db: db}
}

func (r *ledger) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledger{db: tx})
	})
}

// Users

func (r *ledger) GetUser(ctx context.Context, telegramID int64) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrUserNotFound
		}
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *ledger) GetUserForUpdate(ctx context.Context, telegramID int64) (*entity.User, error) {
	var userModel model.UserModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("telegram_id = ?", telegramID).
		First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrUserNotFound
		}
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *ledger) CreateUser(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if userModel.RegistrationDate.IsZero() {
		userModel.RegistrationDate = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Create(userModel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Repeated /start is not an error
		return nil
	}
	return err
}

func (r *ledger) AddBalance(ctx context.Context, telegramID int64, delta int64) error {
	result := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Where("telegram_id = ?", telegramID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *ledger) SetRole(ctx context.Context, telegramID int64, roleID int) error {
	result := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Where("telegram_id = ?", telegramID).
		Update("role_id", roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *ledger) GetRole(ctx context.Context, roleID int) (*entity.Role, error) {
	var roleModel model.RoleModel
	if err := r.db.WithContext(ctx).Where("id = ?", roleID).First(&roleModel).Error; err != nil {
		return nil, err
	}
	return ToRoleEntity(&roleModel), nil
}

func (r *ledger) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var roleModel model.RoleModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&roleModel).Error; err != nil {
		return nil, err
	}
	return ToRoleEntity(&roleModel), nil
}

func (r *ledger) UpsertRole(ctx context.Context, role *entity.Role) error {
	roleModel := model.RoleModel{
		ID:          role.ID,
		Name:        role.Name,
		Default:     role.Default,
		Permissions: role.Permissions,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"default", "permissions"}),
		}).
		Create(&roleModel).Error
}

// Payments

func (r *ledger) InsertPayment(ctx context.Context, payment *entity.PaymentRecord) error {
	paymentModel := model.PaymentModel{
		Provider:   payment.Provider,
		ExternalID: payment.ExternalID,
		Amount:     payment.Amount,
		Status:     string(payment.Status),
		UserID:     payment.UserID,
	}
	err := r.db.WithContext(ctx).Create(&paymentModel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return entity.ErrAlreadyProcessed
	}
	if err != nil {
		return err
	}
	payment.ID = paymentModel.ID
	return nil
}

func (r *ledger) InsertOperation(ctx context.Context, op *entity.Operation) error {
	opModel := model.OperationModel{
		UserID:    op.UserID,
		Amount:    op.Amount,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&opModel).Error
}

func (r *ledger) InsertReferralEarning(ctx context.Context, earning *entity.ReferralEarning) error {
	earningModel := model.ReferralEarningModel{
		ReferrerID:     earning.ReferrerID,
		ReferredID:     earning.ReferredID,
		Amount:         earning.Amount,
		OriginalAmount: earning.OriginalAmount,
	}
	return r.db.WithContext(ctx).Create(&earningModel).Error
}

func (r *ledger) CreatePendingTopup(ctx context.Context, pending *entity.PendingTopup) error {
	pendingModel := model.PendingTopupModel{
		UserID:     pending.UserID,
		Amount:     pending.Amount,
		Provider:   pending.Provider,
		ExternalID: pending.ExternalID,
	}
	return r.db.WithContext(ctx).Create(&pendingModel).Error
}

func (r *ledger) GetPendingTopup(ctx context.Context, provider, externalID string) (*entity.PendingTopup, error) {
	var pendingModel model.PendingTopupModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&pendingModel).Error
	if err != nil {
		return nil, err
	}
	return ToPendingTopupEntity(&pendingModel), nil
}

func (r *ledger) ListStalePendingTopups(ctx context.Context, provider string, olderThan time.Time) ([]*entity.PendingTopup, error) {
	var pendingModels []model.PendingTopupModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND created_at < ?", provider, olderThan).
		Order("created_at").
		Find(&pendingModels).Error
	if err != nil {
		return nil, err
	}

	pendings := make([]*entity.PendingTopup, len(pendingModels))
	for i := range pendingModels {
		pendings[i] = ToPendingTopupEntity(&pendingModels[i])
	}
	return pendings, nil
}

func (r *ledger) DeletePendingTopup(ctx context.Context, provider, externalID string) error {
	return r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		Delete(&model.PendingTopupModel{}).Error
}

// Referral reporting

func (r *ledger) CountReferrals(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	return count, err
}

func (r *ledger) ReferralEarningsSummary(ctx context.Context, referrerID int64) (int64, int64, error) {
	var summary struct {
		Count int64
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&model.ReferralEarningModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("referrer_id = ?", referrerID).
		Scan(&summary).Error
	if err != nil {
		return 0, 0, err
	}
	return summary.Count, summary.Total, nil
}

// Stats and health

func (r *ledger) Stats(ctx context.Context) (*Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &Stats{}

	if err := db.Model(&model.UserModel{}).Count(&stats.Users).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&model.GoodModel{}).Count(&stats.Goods).Error; err != nil {
		return nil, fmt.Errorf("count goods: %w", err)
	}
	if err := db.Model(&model.StockUnitModel{}).Count(&stats.StockUnits).Error; err != nil {
		return nil, fmt.Errorf("count stock: %w", err)
	}
	if err := db.Model(&model.SoldUnitModel{}).Count(&stats.Sold).Error; err != nil {
		return nil, fmt.Errorf("count sold: %w", err)
	}
	if err := db.Model(&model.SoldUnitModel{}).
		Select("COALESCE(SUM(price), 0)").Scan(&stats.Revenue).Error; err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	if err := db.Model(&model.OperationModel{}).
		Select("COALESCE(SUM(operation_value), 0)").Scan(&stats.TopUpTotal).Error; err != nil {
		return nil, fmt.Errorf("sum operations: %w", err)
	}

	return stats, nil
}

func (r *ledger) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Pluck("telegram_id", &ids).Error
	return ids, err
}

func (r *ledger) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
