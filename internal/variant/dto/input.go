package dto

import "github.com/shopspring/decimal"

type ReconcileVariantsInput struct {
	ProductID string
	Replace   *bool // Defaults to true
	Variants  []VariantRowInput
}

// ReplaceMode resolves the replace flag.
func (in *ReconcileVariantsInput) ReplaceMode() bool {
	return in.Replace == nil || *in.Replace
}

type VariantRowInput struct {
	ID           *string
	SKU          *string
	Options      []OptionInput
	AvailableQty *int
	InStock      *bool
	Price        *decimal.Decimal
}

type OptionInput struct {
	AttributeID string
	ValueID     string
	PriceBump   *decimal.Decimal
}
