package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferScope string

const (
	OfferScopeBase    OfferScope = "BASE_OFFER"
	OfferScopeVariant OfferScope = "VARIANT_OFFER"
)

type Offer struct {
	BaseModel
	SellerID     string          `db:"seller_id" json:"seller_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	VariantID    *string         `db:"variant_id" json:"variant_id"` // Nil for base offers
	Price        decimal.Decimal `db:"price" json:"price"`
	Currency     string          `db:"currency" json:"currency"`
	LeadDays     *int            `db:"lead_days" json:"lead_days"`
	AvailableQty int             `db:"available_qty" json:"available_qty"`
	InStock      bool            `db:"in_stock" json:"in_stock"`
	IsActive     bool            `db:"is_active" json:"is_active"`
}

func (o *Offer) Scope() OfferScope {
	if o.VariantID != nil {
		return OfferScopeVariant
	}
	return OfferScopeBase
}

type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "PENDING"
	ChangeRequestApproved  ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected  ChangeRequestStatus = "REJECTED"
	ChangeRequestCancelled ChangeRequestStatus = "CANCELLED"
)

// OfferPatch holds the review-gated fields a seller proposed. Nil means unchanged.
type OfferPatch struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	LeadDays *int             `json:"leadDays,omitempty"`
	IsActive *bool            `json:"isActive,omitempty"`
}

func (p OfferPatch) Empty() bool {
	return p.Price == nil && p.Currency == nil && p.LeadDays == nil && p.IsActive == nil
}

// ReviewSnapshot captures an offer's review-gated values when a change request is opened.
type ReviewSnapshot struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	LeadDays *int            `json:"leadDays"`
	IsActive bool            `json:"isActive"`
}

func SnapshotOf(o *Offer) ReviewSnapshot {
	return ReviewSnapshot{
		Price:    o.Price,
		Currency: o.Currency,
		LeadDays: o.LeadDays,
		IsActive: o.IsActive,
	}
}

type ChangeRequest struct {
	BaseModel
	SellerID    string              `db:"seller_id" json:"seller_id"`
	Scope       OfferScope          `db:"scope" json:"scope"`
	OfferID     string              `db:"offer_id" json:"offer_id"`
	Patch       OfferPatch          `db:"-" json:"patch"`
	Snapshot    *ReviewSnapshot     `db:"-" json:"snapshot"`
	Status      ChangeRequestStatus `db:"status" json:"status"`
	RequestedBy string              `db:"requested_by" json:"requested_by"`
	RequestedAt time.Time           `db:"requested_at" json:"requested_at"`
	ReviewedBy  *string             `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt  *time.Time          `db:"reviewed_at" json:"reviewed_at"`
	ReviewNote  *string             `db:"review_note" json:"review_note"`
}
