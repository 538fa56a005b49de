package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

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

func (r *PGRepository) offerColumns() []string {
	cols := []string{"id", "seller_id", "product_id", "variant_id", "price", "available_qty", "in_stock", "created_at", "updated_at"}
	if r.schema.HasField(model.ModelOffer, schema.FieldCurrency) {
		cols = append(cols, "currency")
	}
	if r.schema.HasField(model.ModelOffer, schema.FieldLeadDays) {
		cols = append(cols, "lead_days")
	}
	if r.schema.HasField(model.ModelOffer, schema.FieldIsActive) {
		cols = append(cols, "is_active")
	}
	return cols
}

func (r *PGRepository) fillDefaults(o *model.Offer) {
	if !r.schema.HasField(model.ModelOffer, schema.FieldIsActive) {
		o.IsActive = true
	}
}

func (r *PGRepository) FindOffer(ctx context.Context, sellerID, productID string, variantID *string) (*model.Offer, error) {
	var o model.Offer
	query := fmt.Sprintf(`
        SELECT %s FROM offers
        WHERE seller_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3
        LIMIT 1
        FOR UPDATE
    `, strings.Join(r.offerColumns(), ", "))

	err := database.ConnFrom(ctx, r.DB).GetContext(ctx, &o, query, sellerID, productID, variantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.fillDefaults(&o)
	return &o, nil
}

func (r *PGRepository) ListVariantOffers(ctx context.Context, sellerID, productID string) ([]model.Offer, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM offers
        WHERE seller_id = $1 AND product_id = $2 AND variant_id IS NOT NULL
        ORDER BY created_at ASC, id ASC
        FOR UPDATE
    `, strings.Join(r.offerColumns(), ", "))

	var offers []model.Offer
	if err := database.ConnFrom(ctx, r.DB).SelectContext(ctx, &offers, query, sellerID, productID); err != nil {
		return nil, err
	}
	for i := range offers {
		r.fillDefaults(&offers[i])
	}
	return offers, nil
}

func (r *PGRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	cols := r.offerColumns()
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}
	query := fmt.Sprintf(`INSERT INTO offers (%s) VALUES (%s)`, strings.Join(cols, ", "), strings.Join(params, ", "))
	_, err := database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, o)
	return err
}

func (r *PGRepository) UpdateStock(ctx context.Context, o *model.Offer) error {
	query := `
        UPDATE offers
        SET available_qty = :available_qty, in_stock = :in_stock, updated_at = :updated_at
        WHERE id = :id
    `
	_, err := database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, o)
	return err
}

func (r *PGRepository) DeleteOffers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := database.ConnFrom(ctx, r.DB).ExecContext(ctx, `DELETE FROM offers WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// changeRequestRow carries patch and snapshot as JSON text. lib/pq sends []byte as bytea,
// so the jsonb columns are bound as strings.
type changeRequestRow struct {
	model.ChangeRequest
	PatchJSON    string         `db:"patch"`
	SnapshotJSON sql.NullString `db:"snapshot"`
}

func (r *PGRepository) hasCR(field string) bool {
	return r.schema.HasField(model.ModelChangeRequest, field)
}

func (r *PGRepository) changeRequestColumns() []string {
	cols := []string{"id", "seller_id", "scope", "offer_id", "patch", "status", "requested_by", "requested_at", "created_at", "updated_at"}
	if r.hasCR(schema.FieldSnapshot) {
		cols = append(cols, "snapshot")
	}
	return append(cols, r.resolutionColumns()...)
}

func (r *PGRepository) resolutionColumns() []string {
	var cols []string
	if r.hasCR(schema.FieldReviewedBy) {
		cols = append(cols, "reviewed_by")
	}
	if r.hasCR(schema.FieldReviewedAt) {
		cols = append(cols, "reviewed_at")
	}
	if r.hasCR(schema.FieldReviewNote) {
		cols = append(cols, "review_note")
	}
	return cols
}

func toRow(cr *model.ChangeRequest) (*changeRequestRow, error) {
	patch, err := json.Marshal(cr.Patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	row := &changeRequestRow{ChangeRequest: *cr, PatchJSON: string(patch)}
	if cr.Snapshot != nil {
		snap, err := json.Marshal(cr.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		row.SnapshotJSON = sql.NullString{String: string(snap), Valid: true}
	}
	return row, nil
}

func (row *changeRequestRow) decode() (*model.ChangeRequest, error) {
	cr := row.ChangeRequest
	if err := json.Unmarshal([]byte(row.PatchJSON), &cr.Patch); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if row.SnapshotJSON.Valid && row.SnapshotJSON.String != "" {
		var snap model.ReviewSnapshot
		if err := json.Unmarshal([]byte(row.SnapshotJSON.String), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		cr.Snapshot = &snap
	}
	return &cr, nil
}

func (r *PGRepository) FindPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error) {
	cols := r.changeRequestColumns()
	for i, c := range cols {
		if c == "patch" || c == "snapshot" {
			cols[i] = c + "::text AS " + c
		}
	}
	query := fmt.Sprintf(`
        SELECT %s FROM offer_change_requests
        WHERE seller_id = $1 AND scope = $2 AND offer_id = $3 AND status = $4
        LIMIT 1
        FOR UPDATE
    `, strings.Join(cols, ", "))

	var row changeRequestRow
	err := database.ConnFrom(ctx, r.DB).GetContext(ctx, &row, query, sellerID, scope, offerID, model.ChangeRequestPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.decode()
}

func (r *PGRepository) CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	row, err := toRow(cr)
	if err != nil {
		return err
	}
	cols := r.changeRequestColumns()
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
		if c == "patch" || c == "snapshot" {
			params[i] = "CAST(:" + c + " AS jsonb)"
		}
	}
	query := fmt.Sprintf(`INSERT INTO offer_change_requests (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(params, ", "))
	_, err = database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, row)
	return err
}

func (r *PGRepository) OverwriteChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	row, err := toRow(cr)
	if err != nil {
		return err
	}
	sets := []string{
		"patch = CAST(:patch AS jsonb)",
		"status = :status",
		"requested_by = :requested_by",
		"requested_at = :requested_at",
		"updated_at = :updated_at",
	}
	for _, c := range r.resolutionColumns() {
		sets = append(sets, c+" = NULL")
	}
	query := fmt.Sprintf(`UPDATE offer_change_requests SET %s WHERE id = :id`, strings.Join(sets, ", "))
	_, err = database.ConnFrom(ctx, r.DB).NamedExecContext(ctx, query, row)
	return err
}

func (r *PGRepository) CancelPendingChangeRequests(ctx context.Context, offerIDs []string, at time.Time) (int64, error) {
	if len(offerIDs) == 0 {
		return 0, nil
	}
	sets := []string{"status = $1", "updated_at = $2"}
	if r.hasCR(schema.FieldReviewedAt) {
		sets = append(sets, "reviewed_at = $2")
	}
	query := fmt.Sprintf(`
        UPDATE offer_change_requests SET %s
        WHERE offer_id = ANY($3) AND status = $4
    `, strings.Join(sets, ", "))

	res, err := database.ConnFrom(ctx, r.DB).ExecContext(ctx, query,
		model.ChangeRequestCancelled, at, pq.Array(offerIDs), model.ChangeRequestPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
