package model

import "github.com/shopspring/decimal"

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusPending   ProductStatus = "PENDING"
	ProductStatusPublished ProductStatus = "PUBLISHED"
	ProductStatusLive      ProductStatus = "LIVE"
	ProductStatusRejected  ProductStatus = "REJECTED"
)

// Sellable reports whether third-party sellers may open offers on a product in this state.
func (s ProductStatus) Sellable() bool {
	return s == ProductStatusPublished || s == ProductStatusLive
}

type Product struct {
	BaseModel
	Title     string           `db:"title" json:"title"`
	Status    ProductStatus    `db:"status" json:"status"`
	SellerID  *string          `db:"seller_id" json:"seller_id"` // Nullable, platform-owned when nil
	BasePrice *decimal.Decimal `db:"base_price" json:"base_price"`
	IsDeleted bool             `db:"is_deleted" json:"is_deleted"`
	Variants  []ProductVariant `db:"-" json:"variants"`
}

// OwnedBy reports whether sellerID owns the product.
func (p *Product) OwnedBy(sellerID string) bool {
	return p.SellerID != nil && *p.SellerID == sellerID
}
