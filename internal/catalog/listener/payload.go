package listener

import (
	"encoding/json"
	"strings"
	"time"

	offerDTO "github.com/fekuna/omnipos-catalog-service/internal/offer/dto"
	variantDTO "github.com/fekuna/omnipos-catalog-service/internal/variant/dto"
	"github.com/shopspring/decimal"
)

const (
	CommandReconcileVariants = "ReconcileVariants"
	CommandUpsertOffer       = "UpsertOffer"
	CommandDeleteOffer       = "DeleteOffer"
)

// CommandEnvelope is one message on the command topic.
type CommandEnvelope struct {
	CommandID   string          `json:"command_id"`
	CommandType string          `json:"command_type"`
	ActorID     string          `json:"actor_id"`
	Payload     json.RawMessage `json:"payload"`
}

// CommandResult is published to the event topic for every command consumed.
type CommandResult struct {
	CommandID   string    `json:"command_id"`
	CommandType string    `json:"command_type"`
	OK          bool      `json:"ok"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	Result      any       `json:"result,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type OptionPayload struct {
	AttributeID string           `json:"attribute_id"`
	ValueID     string           `json:"value_id"`
	PriceBump   *decimal.Decimal `json:"price_bump"`
}

type VariantRowPayload struct {
	ID           *string          `json:"id"`
	SKU          *string          `json:"sku"`
	Options      []OptionPayload  `json:"options"`
	AvailableQty *int             `json:"available_qty"`
	InStock      *bool            `json:"in_stock"`
	Price        *decimal.Decimal `json:"price"`
}

type ReconcileVariantsPayload struct {
	ProductID string              `json:"product_id"`
	Replace   *bool               `json:"replace"`
	Variants  []VariantRowPayload `json:"variants"`
}

type UpsertOfferPayload struct {
	SellerID     string          `json:"seller_id"`
	ProductID    string          `json:"product_id"`
	VariantID    *string         `json:"variant_id"`
	Price        decimal.Decimal `json:"price"`
	AvailableQty int             `json:"available_qty"`
	LeadDays     *int            `json:"lead_days"`
	IsActive     *bool           `json:"is_active"` // Defaults to true
	InStock      bool            `json:"in_stock"`
	Currency     string          `json:"currency"`
}

type DeleteOfferPayload struct {
	SellerID  string  `json:"seller_id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (p *ReconcileVariantsPayload) toInput() *variantDTO.ReconcileVariantsInput {
	in := &variantDTO.ReconcileVariantsInput{
		ProductID: strings.TrimSpace(p.ProductID),
		Replace:   p.Replace,
		Variants:  make([]variantDTO.VariantRowInput, len(p.Variants)),
	}
	for i, row := range p.Variants {
		opts := make([]variantDTO.OptionInput, len(row.Options))
		for j, o := range row.Options {
			opts[j] = variantDTO.OptionInput{
				AttributeID: strings.TrimSpace(o.AttributeID),
				ValueID:     strings.TrimSpace(o.ValueID),
				PriceBump:   o.PriceBump,
			}
		}
		in.Variants[i] = variantDTO.VariantRowInput{
			ID:           trimmed(row.ID),
			SKU:          trimmed(row.SKU),
			Options:      opts,
			AvailableQty: row.AvailableQty,
			InStock:      row.InStock,
			Price:        row.Price,
		}
	}
	return in
}

func (p *UpsertOfferPayload) toInput() *offerDTO.UpsertOfferInput {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return &offerDTO.UpsertOfferInput{
		SellerID:     p.SellerID,
		ProductID:    p.ProductID,
		VariantID:    p.VariantID,
		Price:        p.Price,
		AvailableQty: p.AvailableQty,
		LeadDays:     p.LeadDays,
		IsActive:     active,
		InStock:      p.InStock,
		Currency:     p.Currency,
	}
}

func (p *DeleteOfferPayload) toInput() *offerDTO.DeleteOfferInput {
	return &offerDTO.DeleteOfferInput{
		SellerID:  strings.TrimSpace(p.SellerID),
		ProductID: strings.TrimSpace(p.ProductID),
		VariantID: trimmed(p.VariantID),
	}
}
