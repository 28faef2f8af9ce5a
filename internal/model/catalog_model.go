package model

type CategoryModel struct {
	Name string `gorm:"type:varchar(100);primaryKey" json:"name"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

type GoodModel struct {
	Name         string `gorm:"type:varchar(100);primaryKey" json:"name"`
	Price        int64  `gorm:"not null" json:"price"`
	Description  string `gorm:"type:text;not null" json:"description"`
	CategoryName string `gorm:"type:varchar(100);index;not null" json:"category_name"`
}

func (GoodModel) TableName() string {
	return "goods"
}

type StockUnitModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName   string `gorm:"type:varchar(100);index:ix_item_values_item_inf;uniqueIndex:uq_item_value_per_item;not null" json:"item_name"`
	Payload    string `gorm:"type:text;column:value;uniqueIndex:uq_item_value_per_item" json:"value"`
	IsInfinite bool   `gorm:"column:is_infinity;index:ix_item_values_item_inf;not null" json:"is_infinity"`
}

func (StockUnitModel) TableName() string {
	return "item_values"
}
