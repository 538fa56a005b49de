package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Model names understood by the schema capability adapter.
const (
	ModelProduct       = "Product"
	ModelVariant       = "ProductVariant"
	ModelVariantOption = "VariantOption"
	ModelOffer         = "Offer"
	ModelChangeRequest = "OfferChangeRequest"
)
