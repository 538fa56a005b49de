package schema

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TableMapping ties a model to its table and the columns backing its optional fields.
type TableMapping struct {
	Model     string
	Table     string
	Fields    map[string]string // field -> column
	Relations []RelationMapping
}

// RelationMapping is satisfied when Table has a foreign key column pointing back at the owner.
type RelationMapping struct {
	Field       string
	TargetModel string
	TargetTable string
	FKColumn    string
}

// DefaultMappings lists the catalog tables this service reads and writes.
func DefaultMappings() []TableMapping {
	return []TableMapping{
		{
			Model: model.ModelProduct,
			Table: "products",
			Fields: map[string]string{
				FieldBasePrice: "base_price",
				FieldIsDeleted: "is_deleted",
				FieldSellerID:  "seller_id",
				FieldCreatedAt: "created_at",
			},
			Relations: []RelationMapping{
				{Field: RelationVariants, TargetModel: model.ModelVariant, TargetTable: "product_variants", FKColumn: "product_id"},
			},
		},
		{
			Model: model.ModelVariant,
			Table: "product_variants",
			Fields: map[string]string{
				FieldIsDeleted: "is_deleted",
				FieldIsActive:  "is_active",
				FieldInStock:   "in_stock",
				FieldAvailable: "available_qty",
				FieldPrice:     "price",
				FieldCreatedAt: "created_at",
			},
			Relations: []RelationMapping{
				{Field: RelationOptions, TargetModel: model.ModelVariantOption, TargetTable: "variant_options", FKColumn: "variant_id"},
			},
		},
		{
			Model:  model.ModelVariantOption,
			Table:  "variant_options",
			Fields: map[string]string{FieldPriceBump: "price_bump"},
		},
		{
			Model: model.ModelOffer,
			Table: "offers",
			Fields: map[string]string{
				FieldLeadDays: "lead_days",
				FieldCurrency: "currency",
				FieldIsActive: "is_active",
			},
		},
		{
			Model: model.ModelChangeRequest,
			Table: "offer_change_requests",
			Fields: map[string]string{
				FieldSnapshot:   "snapshot",
				FieldReviewedBy: "reviewed_by",
				FieldReviewedAt: "reviewed_at",
				FieldReviewNote: "review_note",
			},
		},
	}
}

type columnRow struct {
	Table  string `db:"table_name"`
	Column string `db:"column_name"`
}

// Introspect reads the live schema once and freezes it into a Static.
func Introspect(ctx context.Context, db *sqlx.DB, mappings []TableMapping) (*Static, error) {
	tables := make([]string, 0, len(mappings)*2)
	for _, m := range mappings {
		tables = append(tables, m.Table)
		for _, r := range m.Relations {
			tables = append(tables, r.TargetTable)
		}
	}

	var rows []columnRow
	query := `
        SELECT table_name, column_name
        FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = ANY($1)
    `
	if err := db.SelectContext(ctx, &rows, query, pq.Array(tables)); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	present := make(map[string]map[string]bool, len(tables))
	for _, r := range rows {
		if present[r.Table] == nil {
			present[r.Table] = map[string]bool{}
		}
		present[r.Table][r.Column] = true
	}

	return buildStatic(mappings, present), nil
}

func buildStatic(mappings []TableMapping, present map[string]map[string]bool) *Static {
	s := NewStatic()
	for _, m := range mappings {
		cols := present[m.Table]
		for field, column := range m.Fields {
			if cols[column] {
				s.WithFields(m.Model, field)
			}
		}
		for _, r := range m.Relations {
			if present[r.TargetTable][r.FKColumn] {
				s.WithRelation(m.Model, r.Field, r.TargetModel)
			}
		}
	}
	return s
}
