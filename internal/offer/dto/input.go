package dto

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UpsertOfferInput is a seller's proposed full state for one offer.
// VariantID nil targets the base offer on ProductID.
type UpsertOfferInput struct {
	SellerID     string
	ProductID    string
	VariantID    *string
	Price        decimal.Decimal
	AvailableQty int
	LeadDays     *int
	IsActive     bool
	InStock      bool
	Currency     string
}

// Normalize trims identifiers and upper-cases the currency code.
func (in *UpsertOfferInput) Normalize() {
	in.SellerID = strings.TrimSpace(in.SellerID)
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.VariantID != nil {
		id := strings.TrimSpace(*in.VariantID)
		if id == "" {
			in.VariantID = nil
		} else {
			in.VariantID = &id
		}
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
}

type DeleteOfferInput struct {
	SellerID  string
	ProductID string
	VariantID *string
}
