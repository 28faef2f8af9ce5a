package entity

type Category struct {
	Name string `json:"name"`
}

type Good struct {
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Description  string `json:"description"`
	CategoryName string `json:"category_name"`
}

// StockUnit is one sellable unit of a good. An infinite unit is a
// sentinel that is returned on every sale and never consumed; a finite
// unit is deleted the moment it is sold.
type StockUnit struct {
	ID         int64  `json:"id"`
	ItemName   string `json:"item_name"`
	Payload    string `json:"payload"`
	IsInfinite bool   `json:"is_infinite"`
}
