package model

import "github.com/shopspring/decimal"

type ProductVariant struct {
	BaseModel
	ProductID    string           `db:"product_id" json:"product_id"`
	SKU          string           `db:"sku" json:"sku"`
	InStock      bool             `db:"in_stock" json:"in_stock"`
	AvailableQty int              `db:"available_qty" json:"available_qty"`
	Price        *decimal.Decimal `db:"price" json:"price"`
	IsActive     bool             `db:"is_active" json:"is_active"`
	IsDeleted    bool             `db:"is_deleted" json:"is_deleted"`
	Options      []VariantOption  `db:"-" json:"options"`
}

// Visible reports whether the variant belongs to the active set.
func (v *ProductVariant) Visible() bool {
	return v.IsActive && !v.IsDeleted
}

type VariantOption struct {
	ID          string           `db:"id" json:"id"`
	VariantID   string           `db:"variant_id" json:"variant_id"`
	AttributeID string           `db:"attribute_id" json:"attribute_id"`
	ValueID     string           `db:"value_id" json:"value_id"`
	PriceBump   *decimal.Decimal `db:"price_bump" json:"price_bump"`
}
