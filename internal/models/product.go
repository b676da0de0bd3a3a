package models

// Product is an inventory line owned by a store.
type Product struct {
	BaseModel
	StoreID  string  `gorm:"size:50;index;uniqueIndex:idx_products_store_custom" json:"store_id"`
	CustomID *string `gorm:"size:50;uniqueIndex:idx_products_store_custom" json:"custom_id,omitempty"`
	Name     string  `gorm:"size:255;not null" json:"name"`
	Category string  `gorm:"size:100;default:General" json:"category"`
	Price    float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock    int     `gorm:"not null;check:stock >= 0" json:"stock"`
}
