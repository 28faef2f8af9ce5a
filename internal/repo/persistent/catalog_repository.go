package persistent

import (
	"context"
	"errors"

	"digi-shop/internal/entity"
	"digi-shop/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *ledger) GetGood(ctx context.Context, name string) (*entity.Good, error) {
	var goodModel model.GoodModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&goodModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrItemNotFound
		}
		return nil, err
	}
	return ToGoodEntity(&goodModel), nil
}

// GetGoodShared takes a shared lock so the good cannot be deleted or
// repriced while a purchase is in flight.
func (r *ledger) GetGoodShared(ctx context.Context, name string) (*entity.Good, error) {
	var goodModel model.GoodModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("name = ?", name).
		First(&goodModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrItemNotFound
		}
		return nil, err
	}
	return ToGoodEntity(&goodModel), nil
}

func (r *ledger) CreateGood(ctx context.Context, good *entity.Good) error {
	return r.db.WithContext(ctx).Create(ToGoodModel(good)).Error
}

func (r *ledger) DeleteGood(ctx context.Context, name string) error {
	// Stock rows go with the good (ON DELETE CASCADE)
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.GoodModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrItemNotFound
	}
	return nil
}

func (r *ledger) CreateCategory(ctx context.Context, name string) error {
	err := r.db.WithContext(ctx).Create(&model.CategoryModel{Name: name}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *ledger) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	var categoryModels []model.CategoryModel
	if err := r.db.WithContext(ctx).Order("name").Find(&categoryModels).Error; err != nil {
		return nil, err
	}

	categories := make([]*entity.Category, len(categoryModels))
	for i := range categoryModels {
		categories[i] = &entity.Category{Name: categoryModels[i].Name}
	}
	return categories, nil
}

func (r *ledger) ListGoods(ctx context.Context, category string) ([]*entity.Good, error) {
	var goodModels []model.GoodModel
	query := r.db.WithContext(ctx).Order("name")
	if category != "" {
		query = query.Where("category_name = ?", category)
	}
	if err := query.Find(&goodModels).Error; err != nil {
		return nil, err
	}

	goods := make([]*entity.Good, len(goodModels))
	for i := range goodModels {
		goods[i] = ToGoodEntity(&goodModels[i])
	}
	return goods, nil
}

// AddStockUnit reports false when the payload already exists for the
// item; the unique constraint settles concurrent inserts.
func (r *ledger) AddStockUnit(ctx context.Context, unit *entity.StockUnit) (bool, error) {
	unitModel := model.StockUnitModel{
		ItemName:   unit.ItemName,
		Payload:    unit.Payload,
		IsInfinite: unit.IsInfinite,
	}
	err := r.db.WithContext(ctx).Create(&unitModel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	unit.ID = unitModel.ID
	return true, nil
}

func (r *ledger) CountStock(ctx context.Context, itemName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.StockUnitModel{}).
		Where("item_name = ?", itemName).
		Count(&count).Error
	return count, err
}

func (r *ledger) HasInfiniteUnit(ctx context.Context, itemName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.StockUnitModel{}).
		Where("item_name = ? AND is_infinity = ?", itemName, true).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// AllocateUnit picks one available unit of the good. An infinite unit
// wins and is never consumed. Otherwise one finite unit is locked,
// deleted and returned; racing callers block on the row lock and see
// the deletion when they resume, so the last unit is sold exactly once.
func (r *ledger) AllocateUnit(ctx context.Context, itemName string) (string, bool, error) {
	var unit model.StockUnitModel

	err := r.db.WithContext(ctx).
		Where("item_name = ? AND is_infinity = ?", itemName, true).
		Order("id").
		First(&unit).Error
	if err == nil {
		return unit.Payload, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_name = ? AND is_infinity = ?", itemName, false).
		Order("id").
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, entity.ErrOutOfStock
	}
	if err != nil {
		return "", false, err
	}

	result := r.db.WithContext(ctx).Delete(&model.StockUnitModel{}, unit.ID)
	if result.Error != nil {
		return "", false, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race after all; treat as sold out
		return "", false, entity.ErrOutOfStock
	}

	return unit.Payload, true, nil
}

// Sales

func (r *ledger) InsertSoldUnit(ctx context.Context, sold *entity.SoldUnit) error {
	soldModel := ToSoldUnitModel(sold)
	soldModel.ID = 0
	if err := r.db.WithContext(ctx).Create(soldModel).Error; err != nil {
		return err
	}
	sold.ID = soldModel.ID
	sold.SaleID = soldModel.SaleID
	return nil
}

func (r *ledger) GetSoldUnit(ctx context.Context, saleID string) (*entity.SoldUnit, error) {
	var soldModel model.SoldUnitModel
	if err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&soldModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrItemNotFound
		}
		return nil, err
	}
	return ToSoldUnitEntity(&soldModel), nil
}

func (r *ledger) ListUserPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]*entity.SoldUnit, error) {
	var soldModels []model.SoldUnitModel
	query := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("bought_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&soldModels).Error; err != nil {
		return nil, err
	}

	sold := make([]*entity.SoldUnit, len(soldModels))
	for i := range soldModels {
		sold[i] = ToSoldUnitEntity(&soldModels[i])
	}
	return sold, nil
}
