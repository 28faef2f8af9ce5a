package persistent

import (
	"digi-shop/internal/entity"
	"digi-shop/internal/model"
)

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}

	return &entity.User{
		TelegramID:       m.TelegramID,
		RoleID:           m.RoleID,
		Balance:          m.Balance,
		ReferrerID:       m.ReferrerID,
		RegistrationDate: m.RegistrationDate,
	}
}

func ToUserModel(e *entity.User) *model.UserModel {
	if e == nil {
		return nil
	}

	return &model.UserModel{
		TelegramID:       e.TelegramID,
		RoleID:           e.RoleID,
		Balance:          e.Balance,
		ReferrerID:       e.ReferrerID,
		RegistrationDate: e.RegistrationDate,
	}
}

func ToRoleEntity(m *model.RoleModel) *entity.Role {
	if m == nil {
		return nil
	}

	return &entity.Role{
		ID:          m.ID,
		Name:        m.Name,
		Default:     m.Default,
		Permissions: m.Permissions,
	}
}

func ToGoodEntity(m *model.GoodModel) *entity.Good {
	if m == nil {
		return nil
	}

	return &entity.Good{
		Name:         m.Name,
		Price:        m.Price,
		Description:  m.Description,
		CategoryName: m.CategoryName,
	}
}

func ToGoodModel(e *entity.Good) *model.GoodModel {
	if e == nil {
		return nil
	}

	return &model.GoodModel{
		Name:         e.Name,
		Price:        e.Price,
		Description:  e.Description,
		CategoryName: e.CategoryName,
	}
}

func ToSoldUnitEntity(m *model.SoldUnitModel) *entity.SoldUnit {
	if m == nil {
		return nil
	}

	return &entity.SoldUnit{
		ID:       m.ID,
		SaleID:   m.SaleID,
		ItemName: m.ItemName,
		Payload:  m.Payload,
		Price:    m.Price,
		BuyerID:  m.BuyerID,
		BoughtAt: m.BoughtAt,
	}
}

func ToSoldUnitModel(e *entity.SoldUnit) *model.SoldUnitModel {
	if e == nil {
		return nil
	}

	return &model.SoldUnitModel{
		ID:       e.ID,
		SaleID:   e.SaleID,
		ItemName: e.ItemName,
		Payload:  e.Payload,
		Price:    e.Price,
		BuyerID:  e.BuyerID,
		BoughtAt: e.BoughtAt,
	}
}

func ToPendingTopupEntity(m *model.PendingTopupModel) *entity.PendingTopup {
	if m == nil {
		return nil
	}

	return &entity.PendingTopup{
		ID:         m.ID,
		UserID:     m.UserID,
		Amount:     m.Amount,
		Provider:   m.Provider,
		ExternalID: m.ExternalID,
		CreatedAt:  m.CreatedAt,
	}
}
