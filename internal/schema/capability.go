// Package schema answers which optional fields and relations a deployment's tables expose,
// so the reconciler and governor can skip optional behavior instead of failing.
package schema

import "github.com/fekuna/omnipos-catalog-service/internal/model"

type Capability interface {
	HasField(modelName, field string) bool
	HasRelation(modelName, field string) bool
	ResolveRelationTarget(modelName, field string) (string, bool)
}

// Static is a fixed capability table.
type Static struct {
	fields    map[string]map[string]bool
	relations map[string]map[string]string
}

func NewStatic() *Static {
	return &Static{
		fields:    map[string]map[string]bool{},
		relations: map[string]map[string]string{},
	}
}

// WithFields registers fields on a model and returns the receiver for chaining.
func (s *Static) WithFields(modelName string, fields ...string) *Static {
	m, ok := s.fields[modelName]
	if !ok {
		m = map[string]bool{}
		s.fields[modelName] = m
	}
	for _, f := range fields {
		m[f] = true
	}
	return s
}

// WithoutFields drops fields from a model.
func (s *Static) WithoutFields(modelName string, fields ...string) *Static {
	for _, f := range fields {
		delete(s.fields[modelName], f)
	}
	return s
}

func (s *Static) WithRelation(modelName, field, target string) *Static {
	m, ok := s.relations[modelName]
	if !ok {
		m = map[string]string{}
		s.relations[modelName] = m
	}
	m[field] = target
	return s
}

func (s *Static) WithoutRelation(modelName, field string) *Static {
	delete(s.relations[modelName], field)
	return s
}

func (s *Static) HasField(modelName, field string) bool {
	return s.fields[modelName][field]
}

func (s *Static) HasRelation(modelName, field string) bool {
	_, ok := s.relations[modelName][field]
	return ok
}

func (s *Static) ResolveRelationTarget(modelName, field string) (string, bool) {
	t, ok := s.relations[modelName][field]
	return t, ok
}

// Optional field names consulted by the use cases.
const (
	FieldBasePrice   = "basePrice"
	FieldIsDeleted   = "isDeleted"
	FieldIsActive    = "isActive"
	FieldInStock     = "inStock"
	FieldAvailable   = "availableQty"
	FieldPrice       = "price"
	FieldPriceBump   = "priceBump"
	FieldCreatedAt   = "createdAt"
	FieldSellerID    = "sellerId"
	FieldLeadDays    = "leadDays"
	FieldCurrency    = "currency"
	FieldSnapshot    = "snapshot"
	FieldReviewedBy  = "reviewedBy"
	FieldReviewedAt  = "reviewedAt"
	FieldReviewNote  = "reviewNote"
	RelationOptions  = "options"
	RelationVariants = "variants"
)

// FullCatalog describes a schema where every optional field and relation exists.
func FullCatalog() *Static {
	return NewStatic().
		WithFields(model.ModelProduct, FieldBasePrice, FieldIsDeleted, FieldSellerID, FieldCreatedAt).
		WithFields(model.ModelVariant, FieldIsDeleted, FieldIsActive, FieldInStock, FieldAvailable, FieldPrice, FieldCreatedAt).
		WithFields(model.ModelVariantOption, FieldPriceBump).
		WithFields(model.ModelOffer, FieldLeadDays, FieldCurrency, FieldIsActive).
		WithFields(model.ModelChangeRequest, FieldSnapshot, FieldReviewedBy, FieldReviewedAt, FieldReviewNote).
		WithRelation(model.ModelProduct, RelationVariants, model.ModelVariant).
		WithRelation(model.ModelVariant, RelationOptions, model.ModelVariantOption)
}
