package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB     *sqlx.DB
	schema schema.Capability
}

func NewPGRepository(db *sqlx.DB, caps schema.Capability) *PGRepository {
	return &PGRepository{DB: db, schema: caps}
}

func (r *PGRepository) has(field string) bool {
	return r.schema.HasField(model.ModelVariant, field)
}

// optionalColumns lists the variant columns this deployment's schema exposes, in write order.
func (r *PGRepository) optionalColumns() []string {
	var cols []string
	if r.has(schema.FieldInStock) {
		cols = append(cols, "in_stock")
	}
	if r.has(schema.FieldAvailable) {
		cols = append(cols, "available_qty")
	}
	if r.has(schema.FieldPrice) {
		cols = append(cols, "price")
	}
	if r.has(schema.FieldIsActive) {
		cols = append(cols, "is_active")
	}
	if r.has(schema.FieldIsDeleted) {
		cols = append(cols, "is_deleted")
	}
	return cols
}

func (r *PGRepository) baseColumns() []string {
	cols := []string{"id", "product_id", "sku", "updated_at"}
	if r.has(schema.FieldCreatedAt) {
		cols = append(cols, "created_at")
	}
	return cols
}

func (r *PGRepository) selectColumns() string {
	return strings.Join(append(r.baseColumns(), r.optionalColumns()...), ", ")
}

func (r *PGRepository) orderBy() string {
	if r.has(schema.FieldCreatedAt) {
		return "created_at ASC, id ASC"
	}
	return "id ASC"
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.ProductVariant, error) {
	var v model.ProductVariant
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE id = $1 LIMIT 1`, r.selectColumns())
	err := database.ConnFrom(ctx, r.DB).GetContext(ctx, &v, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !r.has(schema.FieldIsActive) {
		v.IsActive = true
	}
	return &v, nil
}

func (r *PGRepository) ListByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE product_id = $1 ORDER BY %s`,
		r.selectColumns(), r.orderBy())
	return r.listWithOptions(ctx, query, productID)
}

func (r *PGRepository) ListActiveByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	conditions := []string{"product_id = $1"}
	if r.has(schema.FieldIsActive) {
		conditions = append(conditions, "is_active = TRUE")
	}
	if r.has(schema.FieldIsDeleted) {
		conditions = append(conditions, "is_deleted = FALSE")
	}
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE %s ORDER BY %s`,
		r.selectColumns(), strings.Join(conditions, " AND "), r.orderBy())
	return r.listWithOptions(ctx, query, productID)
}

func (r *PGRepository) listWithOptions(ctx context.Context, query string, productID string) ([]model.ProductVariant, error) {
	conn := database.ConnFrom(ctx, r.DB)

	var variants []model.ProductVariant
	if err := conn.SelectContext(ctx, &variants, query, productID); err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return []model.ProductVariant{}, nil
	}

	// Columns missing from the schema read as their zero value; flags default to visible.
	if !r.has(schema.FieldIsActive) {
		for i := range variants {
			variants[i].IsActive = true
		}
	}

	ids := make([]string, len(variants))
	for i, v := range variants {
		ids[i] = v.ID
	}

	optCols := "id, variant_id, attribute_id, value_id"
	if r.schema.HasField(model.ModelVariantOption, schema.FieldPriceBump) {
		optCols += ", price_bump"
	}
	var options []model.VariantOption
	optQuery := fmt.Sprintf(`SELECT %s FROM variant_options WHERE variant_id = ANY($1) ORDER BY variant_id, position`, optCols)
	if err := conn.SelectContext(ctx, &options, optQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	byVariant := make(map[string][]model.VariantOption, len(variants))
	for _, o := range options {
		byVariant[o.VariantID] = append(byVariant[o.VariantID], o)
	}
	for i := range variants {
		variants[i].Options = byVariant[variants[i].ID]
	}
	return variants, nil
}

func (r *PGRepository) LockedVariantIDs(ctx context.Context, productID string, ownerID *string) (map[string]bool, error) {
	query := `
        SELECT DISTINCT o.variant_id
        FROM offers o
        JOIN product_variants v ON v.id = o.variant_id
        WHERE v.product_id = $1
          AND ($2::text IS NULL OR o.seller_id <> $2)
    `
	if r.schema.HasField(model.ModelOffer, schema.FieldIsActive) {
		query += ` AND o.is_active = TRUE`
	}

	var ids []string
	if err := database.ConnFrom(ctx, r.DB).SelectContext(ctx, &ids, query, productID, ownerID); err != nil {
		return nil, err
	}
	locked := make(map[string]bool, len(ids))
	for _, id := range ids {
		locked[id] = true
	}
	return locked, nil
}

func (r *PGRepository) ReferencedVariantIDs(ctx context.Context, productID string) (map[string]bool, error) {
	query := `
        SELECT DISTINCT o.variant_id
        FROM offers o
        JOIN product_variants v ON v.id = o.variant_id
        WHERE v.product_id = $1
    `
	var ids []string
	if err := database.ConnFrom(ctx, r.DB).SelectContext(ctx, &ids, query, productID); err != nil {
		return nil, err
	}
	referenced := make(map[string]bool, len(ids))
	for _, id := range ids {
		referenced[id] = true
	}
	return referenced, nil
}

func (r *PGRepository) Create(ctx context.Context, v *model.ProductVariant) error {
	cols := append(r.baseColumns(), r.optionalColumns()...)
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}
	query := fmt.Sprintf(`INSERT INTO product_variants (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(params, ", "))
	_, err := database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, v)
	return err
}

func (r *PGRepository) Update(ctx context.Context, v *model.ProductVariant) error {
	sets := []string{"sku = :sku", "updated_at = :updated_at"}
	for _, c := range r.optionalColumns() {
		sets = append(sets, c+" = :"+c)
	}
	query := fmt.Sprintf(`UPDATE product_variants SET %s WHERE id = :id AND product_id = :product_id`,
		strings.Join(sets, ", "))
	_, err := database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, v)
	return err
}

type optionRow struct {
	model.VariantOption
	Position int `db:"position"`
}

func (r *PGRepository) ReplaceOptions(ctx context.Context, variantID string, opts []model.VariantOption) error {
	conn := database.ConnFrom(ctx, r.DB)
	if _, err := conn.ExecContext(ctx, `DELETE FROM variant_options WHERE variant_id = $1`, variantID); err != nil {
		return err
	}
	if len(opts) == 0 {
		return nil
	}

	cols := "id, variant_id, attribute_id, value_id, position"
	params := ":id, :variant_id, :attribute_id, :value_id, :position"
	if r.schema.HasField(model.ModelVariantOption, schema.FieldPriceBump) {
		cols += ", price_bump"
		params += ", :price_bump"
	}
	query := fmt.Sprintf(`INSERT INTO variant_options (%s) VALUES (%s)`, cols, params)

	for i, o := range opts {
		o.VariantID = variantID
		if _, err := conn.NamedExecContext(ctx, query, optionRow{VariantOption: o, Position: i}); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) SoftDisable(ctx context.Context, id string) error {
	var sets []string
	if r.has(schema.FieldIsActive) {
		sets = append(sets, "is_active = FALSE")
	}
	if r.has(schema.FieldIsDeleted) {
		sets = append(sets, "is_deleted = TRUE")
	}
	if len(sets) == 0 {
		return fmt.Errorf("variant %s: schema has no soft-disable flag", id)
	}
	query := fmt.Sprintf(`UPDATE product_variants SET %s, updated_at = NOW() WHERE id = $1`, strings.Join(sets, ", "))
	_, err := database.ConnFrom(ctx, r.DB).ExecContext(ctx, query, id)
	return err
}

func (r *PGRepository) HardDelete(ctx context.Context, id string) error {
	conn := database.ConnFrom(ctx, r.DB)
	if _, err := conn.ExecContext(ctx, `DELETE FROM variant_options WHERE variant_id = $1`, id); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	return err
}

func (r *PGRepository) SKUExists(ctx context.Context, sku, excludeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM product_variants WHERE sku = $1`
	args := []interface{}{sku}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`

	err := database.ConnFrom(ctx, r.DB).GetContext(ctx, &exists, query, args...)
	return exists, err
}
