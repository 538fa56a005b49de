package offer

import (
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/offer/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
)

type FieldClass int

const (
	// Immediate fields take effect as soon as the seller submits them.
	Immediate FieldClass = iota
	// ReviewGated fields only change once an administrator approves a change request.
	ReviewGated
)

func (c FieldClass) String() string {
	if c == Immediate {
		return "immediate"
	}
	return "review"
}

// FieldRule describes one offer field under the governor's policy.
type FieldRule struct {
	Name  string
	Class FieldClass
	// SchemaField names the optional Offer column backing the field; empty when always present.
	SchemaField string
	Changed     func(cur *model.Offer, in *dto.UpsertOfferInput) bool
	// Apply copies the proposed value onto the offer (immediate fields).
	Apply func(o *model.Offer, in *dto.UpsertOfferInput)
	// Stage copies the proposed value into a change request patch (review-gated fields).
	Stage func(p *model.OfferPatch, in *dto.UpsertOfferInput)
}

// Policy is the fixed classification of offer fields.
var Policy = []FieldRule{
	{
		Name:    "availableQty",
		Class:   Immediate,
		Changed: func(cur *model.Offer, in *dto.UpsertOfferInput) bool { return cur.AvailableQty != in.AvailableQty },
		Apply:   func(o *model.Offer, in *dto.UpsertOfferInput) { o.AvailableQty = in.AvailableQty },
	},
	{
		Name:    "inStock",
		Class:   Immediate,
		Changed: func(cur *model.Offer, in *dto.UpsertOfferInput) bool { return cur.InStock != in.InStock },
		Apply:   func(o *model.Offer, in *dto.UpsertOfferInput) { o.InStock = in.InStock },
	},
	{
		Name:    "price",
		Class:   ReviewGated,
		Changed: func(cur *model.Offer, in *dto.UpsertOfferInput) bool { return !cur.Price.Equal(in.Price) },
		Stage: func(p *model.OfferPatch, in *dto.UpsertOfferInput) {
			price := in.Price
			p.Price = &price
		},
	},
	{
		Name:        "currency",
		Class:       ReviewGated,
		SchemaField: schema.FieldCurrency,
		Changed:     func(cur *model.Offer, in *dto.UpsertOfferInput) bool { return cur.Currency != in.Currency },
		Stage: func(p *model.OfferPatch, in *dto.UpsertOfferInput) {
			currency := in.Currency
			p.Currency = &currency
		},
	},
	{
		Name:        "leadDays",
		Class:       ReviewGated,
		SchemaField: schema.FieldLeadDays,
		Changed: func(cur *model.Offer, in *dto.UpsertOfferInput) bool {
			if in.LeadDays == nil {
				return false
			}
			return cur.LeadDays == nil || *cur.LeadDays != *in.LeadDays
		},
		Stage: func(p *model.OfferPatch, in *dto.UpsertOfferInput) {
			days := *in.LeadDays
			p.LeadDays = &days
		},
	},
	{
		Name:        "isActive",
		Class:       ReviewGated,
		SchemaField: schema.FieldIsActive,
		Changed:     func(cur *model.Offer, in *dto.UpsertOfferInput) bool { return cur.IsActive != in.IsActive },
		Stage: func(p *model.OfferPatch, in *dto.UpsertOfferInput) {
			active := in.IsActive
			p.IsActive = &active
		},
	},
}

// Classify returns the class of a field by name.
func Classify(field string) (FieldClass, bool) {
	for _, r := range Policy {
		if r.Name == field {
			return r.Class, true
		}
	}
	return 0, false
}

// Diff is the outcome of comparing a proposal with the current offer.
type Diff struct {
	Immediate []string
	Review    []string
	Patch     model.OfferPatch
}

func (d Diff) ImmediateChanged() bool { return len(d.Immediate) > 0 }
func (d Diff) ReviewChanged() bool    { return len(d.Review) > 0 }

// Evaluate walks the policy, skipping fields the schema does not expose. Immediate changes
// are applied onto next; review-gated changes are staged into the patch.
func Evaluate(caps schema.Capability, cur *model.Offer, in *dto.UpsertOfferInput, next *model.Offer) Diff {
	var d Diff
	for _, r := range Policy {
		if r.SchemaField != "" && !caps.HasField(model.ModelOffer, r.SchemaField) {
			continue
		}
		if !r.Changed(cur, in) {
			continue
		}
		switch r.Class {
		case Immediate:
			r.Apply(next, in)
			d.Immediate = append(d.Immediate, r.Name)
		case ReviewGated:
			r.Stage(&d.Patch, in)
			d.Review = append(d.Review, r.Name)
		}
	}
	return d
}
